package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	a := &app{}
	if err := execute(a, newRootCmd(a)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute запускает команду и закрывает хранилище, даже если команда завершилась ошибкой
func execute(a *app, root *cobra.Command) error {
	err := root.Execute()
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}
