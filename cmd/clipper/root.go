package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipper/internal/config"
)

// globalFlags are bound on the root command and shared by every subcommand.
type globalFlags struct {
	json        bool
	yaml        bool
	logLevel    string
	metricsFile string
}

func (g *globalFlags) structured() bool {
	return g.json || g.yaml
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "clipper",
		Short:         "Clipper stores files, caches their derivatives and binds them to owners",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.json && flags.yaml {
				return errors.New("--json and --yaml are mutually exclusive")
			}
			selectFormatter(flags)
			warnings, err := configureLoggerForCLI(os.Stderr, flags.logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			for _, warning := range warnings {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&flags.json, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&flags.yaml, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	cmd.AddCommand(
		newSaveCmd(cfg, flags),
		newGetCmd(cfg, flags),
		newURICmd(cfg, flags),
		newDeleteCmd(cfg, flags),
		newMoveCmd(cfg, flags),
		newUpdateCmd(cfg, flags),
		newAttachCmd(cfg, flags),
		newDetachCmd(cfg, flags),
		newSlotCmd(cfg, flags),
		newListCmd(cfg, flags),
		newExistsCmd(cfg, flags),
		newPruneCmd(cfg, flags),
		newWarmCmd(cfg, flags),
		newMigrateCmd(cfg, flags),
		newConfigCmd(cfg, flags),
		newPresetsCmd(cfg, flags),
		newInfoCmd(cfg, flags),
	)

	return cmd
}
