package monitor

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "monitor",
		Short: "Manages provider polling runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("welcome to numeralia monitor!")
			return nil
		},
	}
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newServeCommand())
	return cmd
}
