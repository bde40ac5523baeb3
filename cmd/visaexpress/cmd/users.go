package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmcleod/visaexpress/controller"
)

func newUsersCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List, add and look up users",
	}
	cmd.AddCommand(newUsersListCommand(opts), newUsersAddCommand(opts), newUsersSendCommand(opts))
	return cmd
}

func newUsersListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openConsole(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()
			return c.navigate(cmd.Context(), "/")
		},
	}
}

func newUsersAddCommand(opts *options) *cobra.Command {
	fields := map[string]*string{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openConsole(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()

			if d := c.gate.Check(gateIntent("/edit")); d.IsRedirect() {
				return &ErrRedirected{Target: "/edit", Location: d.Location}
			}

			record := controller.Record{}
			for name, v := range fields {
				if *v != "" {
					record[name] = *v
				}
			}
			if err := c.listing().Add(cmd.Context(), record); err != nil {
				return errReported
			}
			return nil
		},
	}
	for _, name := range []string{"name", "email", "username", "password"} {
		fields[name] = cmd.Flags().String(name, "", "User "+name)
	}
	return cmd
}

func newUsersSendCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <id>",
		Short: "Show the result view for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openConsole(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()
			return sendTo(cmd.Context(), c, args[0])
		},
	}
}

// sendTo moves to the result view of id as a new gated navigation.
func sendTo(ctx context.Context, c *console, id string) error {
	var navErr error
	nav := controller.NavigatorFunc(func(path string) {
		navErr = c.navigate(ctx, path)
	})
	c.listing(controller.WithNavigator(nav)).Send(id)
	return navErr
}
