package cmd

import (
	"errors"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jmcleod/visaexpress/config"
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	dataDir    string
	backendURL string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the visaexpress command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "visaexpress",
		Short: "VisaExpress is the admin panel for the VisaExpress backend",
		Long: `Admin panel for the VisaExpress backend: serve the web panel, or sign in
and manage users from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", os.Getenv("VISAEXPRESS_CONFIG"), "Path to the YAML config file")
	pf.StringVar(&opts.dataDir, "data-dir", "", "Directory for persistent data (overrides data_dir)")
	pf.StringVar(&opts.backendURL, "backend", "", "Backend API base URL (overrides backend.url)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		newServeCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newOpenCommand(opts),
		newUsersCommand(opts),
		newSessionCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			color.New(color.FgRed).Fprintln(root.ErrOrStderr(), "Error: "+err.Error())
		}
		os.Exit(1)
	}
}

func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.backendURL != "" {
		cfg.Backend.URL = o.backendURL
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = newLogger(cfg.Logging, cmd.ErrOrStderr())
	slog.SetDefault(o.logger)
	return nil
}
