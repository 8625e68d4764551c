package main

import (
	"fmt"

	"spine-analyzer-go/internal/service"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var model string
	var save bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run inference on an image or a volumetric scan",
		Long:  `Volumetric files (.nii, .nii.gz, .dcm) are sliced first and every slice is analyzed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readFile(args[0])
			if err != nil {
				return err
			}
			slices, err := a.analyzer.PrepareSlices(cmd.Context(), file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, slice := range slices {
				response, err := a.analyzer.Analyze(cmd.Context(), slice, model, save)
				if err != nil {
					return fmt.Errorf("%s: %w", slice.Name, err)
				}
				fmt.Fprintf(out, "%s\n", slice.Name)
				if response.Record != nil {
					fmt.Fprintf(out, "saved as %s\n", response.Record.ID)
				}
				printSummary(cmd, response.Summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "yolov11", "model id")
	cmd.Flags().BoolVar(&save, "save", false, "save each analysis as a record")
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check storage and the inference service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			health := a.analyzer.CheckHealth(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\nstorage: %s\napi: %s\n",
				health.Status, health.Storage, a.settings.BaseURL(cmd.Context()))
			if health.Status != "healthy" {
				return fmt.Errorf("service is %s", health.Status)
			}
			return nil
		},
	}
}

func newAPIURLCmd(a *app) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "api-url [url]",
		Short: "Show, set or reset the inference service address",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				setting *service.APIURLSetting
				err     error
			)
			switch {
			case reset:
				setting, err = a.settings.Reset(cmd.Context())
			case len(args) == 1:
				setting, err = a.settings.Set(cmd.Context(), args[0])
			default:
				setting, err = a.settings.Get(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", setting.URL, setting.Source)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "restore the default address")
	return cmd
}
