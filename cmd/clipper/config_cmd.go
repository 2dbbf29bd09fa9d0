package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/config"
)

func newConfigCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change configuration",
	}
	cmd.AddCommand(newConfigGetCmd(cfg), newConfigListCmd(cfg, flags), newConfigSetCmd())
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.IsAllowedKey(args[0]) {
				return fmt.Errorf("unknown key: %s (allowed: %v)", args[0], config.AllowedKeys())
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

type configEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// effectiveConfig lists every scalar key followed by each backend's fields.
func effectiveConfig(cfg *config.Config) ([]configEntry, error) {
	var keys []string
	for _, key := range config.AllowedKeys() {
		if strings.HasPrefix(key, "backends.") {
			// Templates; expanded per configured backend below.
			continue
		}
		keys = append(keys, key)
	}
	for _, name := range cfg.BackendNames() {
		for _, field := range []string{"driver", "root", "public_prefix", "compress"} {
			keys = append(keys, "backends."+name+"."+field)
		}
	}

	entries := make([]configEntry, 0, len(keys))
	for _, key := range keys {
		value, err := cfg.Get(key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, configEntry{Key: key, Value: value})
	}
	return entries, nil
}

func newConfigListCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := effectiveConfig(cfg)
			if err != nil {
				return err
			}
			if flags.structured() {
				return writeStructured(entries)
			}
			for _, entry := range entries {
				if err := writePlain("%s = %s\n", entry.Key, entry.Value); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a config value to the project or global file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathFn := config.ProjectPath
			if global {
				pathFn = config.GlobalPath
			}
			path, err := pathFn()
			if err != nil {
				return err
			}
			if err := config.SetKey(path, args[0], args[1]); err != nil {
				return err
			}
			return writePlain("%s = %s (%s)\n", args[0], args[1], path)
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "write to the global config file")
	return cmd
}
