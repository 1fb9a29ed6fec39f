package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qepting91/workshop-scraper/internal/config"
	"github.com/qepting91/workshop-scraper/internal/dashboard"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and reports a failed command on stderr.
func execute(ctx context.Context, args []string, stderr io.Writer) int {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

type app struct {
	cfg    config.Config
	logger *slog.Logger
	debug  bool
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Workshop catalog scraper",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newCatalogCommand(a),
		newDetailCommand(a),
		&cobra.Command{
			Use:   "dashboard",
			Short: "Serve charts over the data file",
			RunE: func(cmd *cobra.Command, args []string) error {
				a.logger.Info("Starting Dashboard", "port", a.cfg.Port, "data", a.cfg.DataFile)
				return dashboard.StartServer(a.cfg.DataFile, a.cfg.Port)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "scraper version %s\n", version)
			},
		},
	)
	return root
}

// setup loads the config and installs the JSON logger as the default.
func (a *app) setup() error {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level := cfg.LogLevel
	if a.debug {
		level = slog.LevelDebug
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}
