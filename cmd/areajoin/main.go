package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/areajoin/internal/config"
	"github.com/areajoin/internal/logging"
)

const version = "1.0.0"

// app holds what every subcommand loads before it runs
type app struct {
	configFile string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	// Create root command
	rootCmd := &cobra.Command{
		Use:           "areajoin",
		Short:         "Join property listings to area statistics on messy keys",
		Long:          `Match listing postal codes or addresses to demographic areas by fuzzy key similarity and write the left-joined table`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug output")

	// Add subcommands
	rootCmd.AddCommand(createJoinCmd(a))
	rootCmd.AddCommand(createScoreCmd(a))
	rootCmd.AddCommand(createServeCmd(a))

	return rootCmd
}

// setup loads .env, the config file and AREAJOIN_* variables, with the
// command's flags bound on top, and builds the logger.
func (a *app) setup(cmd *cobra.Command, bindings map[string]string) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	}
	bindings["debug"] = "debug"
	for key, flag := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
