package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spine-analyzer-go/internal/codec"
	"spine-analyzer-go/internal/geo"
	"spine-analyzer-go/internal/repository"
	"spine-analyzer-go/pkg/models"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := a.records.Summaries(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "no saved analyses")
				return nil
			}
			for _, s := range summaries {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d segments\n", s.ID, s.Timestamp, s.ImageName, s.Model, s.Segments)
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var hovered string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved analysis with its angle summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := a.records.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			overlay, err := a.records.Overlay(cmd.Context(), args[0], hovered)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:        %s\n", record.ID)
			fmt.Fprintf(out, "timestamp: %s\n", record.Timestamp)
			fmt.Fprintf(out, "image:     %s\n", record.ImageName)
			fmt.Fprintf(out, "model:     %s\n", record.Model)
			if record.Notes != "" {
				fmt.Fprintf(out, "notes:     %s\n", record.Notes)
			}
			fmt.Fprintf(out, "segments:  %d\n", len(overlay.Layers))

			printSummary(cmd, overlay.Summary)

			if overlay.Hover != nil {
				fmt.Fprintf(out, "\n%s (%s", overlay.Hover.Label, overlay.Hover.Percent)
				if overlay.Hover.IsReference {
					fmt.Fprint(out, ", reference")
				}
				fmt.Fprintln(out, ")")
				for _, connector := range overlay.Connectors {
					fmt.Fprintf(out, "  %s -> %s  %s\n", connector.SegmentIDs[0], connector.SegmentIDs[1], connector.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hovered, "hovered", "", "segment id to highlight")
	return cmd
}

func printSummary(cmd *cobra.Command, summary []geo.AngleSummaryEntry) {
	out := cmd.OutOrStdout()
	if len(summary) == 0 {
		return
	}
	fmt.Fprintln(out, "\nangles:")
	for _, entry := range summary {
		fmt.Fprintf(out, "  %-8s %s\n", entry.Pair, entry.Text)
	}
}

func newSaveCmd(a *app) *cobra.Command {
	var model, resultPath string

	cmd := &cobra.Command{
		Use:   "save <image>",
		Short: "Save an image with an existing analysis result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := readFile(args[0])
			if err != nil {
				return err
			}
			result, err := os.ReadFile(resultPath)
			if err != nil {
				return fmt.Errorf("failed to read analysis result: %w", err)
			}
			if !json.Valid(result) {
				return &models.ValidationError{Field: "analysisResult", Reason: "must be valid JSON"}
			}

			record, err := a.records.Save(cmd.Context(), image, json.RawMessage(result), model)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), record.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "yolov11", "model that produced the result")
	cmd.Flags().StringVarP(&resultPath, "result", "r", "", "path to the analysis result JSON")
	_ = cmd.MarkFlagRequired("result")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.records.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d analyses remaining\n", len(records))
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.records.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all analyses deleted")
			return nil
		},
	}
}

func newNotesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <id> <text>",
		Short: "Replace the notes of a saved analysis",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := a.records.UpdateNotes(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), record.ID)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all analyses to a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.records.Export(cmd.Context())
			if err != nil {
				return err
			}

			exportedAt, err := time.Parse(time.RFC3339Nano, doc.ExportDate)
			if err != nil {
				exportedAt = time.Now()
			}

			var buf bytes.Buffer
			if err := repository.WriteExport(&buf, doc); err != nil {
				return err
			}

			path := filepath.Join(dir, models.ExportFilename(exportedAt))
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d analyses to %s\n", len(doc.Records), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory for the backup file")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge analyses from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contents, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}
			records, err := a.records.Import(cmd.Context(), contents)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d analyses after import\n", len(records))
			return nil
		},
	}
}

// readFile читает файл с диска, тип содержимого определяется по данным
func readFile(path string) (codec.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return codec.File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return codec.File{
		Name:        filepath.Base(path),
		ContentType: codec.DetectContentType(data),
		Data:        data,
	}, nil
}
