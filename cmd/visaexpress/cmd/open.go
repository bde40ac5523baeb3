package cmd

import (
	"github.com/spf13/cobra"
)

func newOpenCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "open [path]",
		Short: "Navigate to a panel path (/, /dashboard, /edit, /mail, /logout, /result/{id})",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			c, err := openConsole(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()
			return c.navigate(cmd.Context(), path)
		},
	}
}
