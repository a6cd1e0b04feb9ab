package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/transparenciamx/numeralia/internal/cmd/monitor"
)

func NewRootCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "numeralia",
		Short: "Polls transparency-platform providers and reports their record counts",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Welcome to numeralia!")
		},
	}

	cmd.AddCommand(monitor.NewCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
