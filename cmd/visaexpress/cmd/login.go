package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jmcleod/visaexpress/controller"
)

func newLoginCommand(opts *options) *cobra.Command {
	var username, password string
	var skipVerify bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openConsole(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()

			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				if username, err = prompt(cmd.OutOrStdout(), in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(cmd.OutOrStdout(), in, "Password: "); err != nil {
					return err
				}
			}

			authPath := opts.cfg.Backend.AuthPath
			if skipVerify {
				authPath = ""
			}
			login := controller.NewLogin(c.store, c.client,
				controller.WithAuthPath(authPath),
				controller.WithLoginLogger(opts.logger),
			)
			cred, err := login.Login(cmd.Context(), username, password)
			if errors.Is(err, controller.ErrInvalidCredentials) {
				return fmt.Errorf("login failed: %w", err)
			}
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Signed in as %s\n", cred.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (prompted when empty)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password (prompted when empty)")
	cmd.Flags().BoolVar(&skipVerify, "no-verify", false, "Store the credential without checking it with the backend")
	return cmd
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openConsole(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := controller.NewLogout(c.store, c.client).Run(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
