// Command ecocycle is the operator CLI: database migrations, offline
// classification and valuation, challenge sweeps, demo seeding and a
// detection loop over a directory of frames.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/ecocycle/internal/config"
)

// app carries what every subcommand needs. PersistentPreRunE fills it in.
type app struct {
	configFile string
	logLevel   string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ecocycle",
		Short:         "♻️  E-waste recycling rewards: admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file (default: $"+config.FileEnv+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		migrateCmd(a),
		classifyCmd(a),
		valueCmd(a),
		sweepCmd(a),
		seedCmd(a),
		detectCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
