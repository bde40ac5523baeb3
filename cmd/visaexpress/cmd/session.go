package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jmcleod/visaexpress/gate"
)

func gateIntent(path string) gate.Intent {
	return gate.Intent{TargetPath: path}
}

func newSessionCommand(opts *options) *cobra.Command {
	show := &cobra.Command{
		Use:   "show",
		Short: "Show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSession(cmd, opts)
		},
	}
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSession(cmd, opts)
		},
	}
	cmd.AddCommand(show)
	return cmd
}

// showSession prints the signed-in user. The credential itself is never shown.
func showSession(cmd *cobra.Command, opts *options) error {
	c, err := openConsole(opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	s := c.gate.Session()
	if !s.LoggedIn() {
		color.New(color.FgYellow).Fprintln(out, "Not signed in.")
		return nil
	}
	name := s.CurrentUser.Username
	if name == "" {
		name = "(unknown)"
	}
	color.New(color.FgGreen).Fprintf(out, "Signed in as %s\n", name)
	fmt.Fprintf(out, "Backend:  %s\n", c.client.BaseURL())
	fmt.Fprintf(out, "Policy:   %s\n", c.gate.Policy())
	return nil
}
