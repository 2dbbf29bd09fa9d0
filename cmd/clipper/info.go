package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/config"
	"clipper/internal/processor/imaging"
	"clipper/internal/store"
)

type infoResponse struct {
	store.StoreInfo `yaml:",inline"`

	DBPath         string   `json:"db_path" yaml:"db_path"`
	DefaultBackend string   `json:"default_backend" yaml:"default_backend"`
	Backends       []string `json:"backends" yaml:"backends"`
	Processors     []string `json:"processors" yaml:"processors"`
}

func newInfoCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show database, backend and processor info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cfg, flags, func(a *app) error {
				stats, err := a.store.StoreInfo(cmd.Context())
				if err != nil {
					return err
				}
				resp := infoResponse{
					DBPath:         cfg.DBPath,
					DefaultBackend: cfg.DefaultBackend,
					Backends:       cfg.BackendNames(),
					Processors:     processorNames(cfg.Processors),
					StoreInfo:      *stats,
				}
				if flags.structured() {
					return writeStructured(resp)
				}

				_ = writePlain("db_path: %s\n", resp.DBPath)
				_ = writePlain("schema_version: %d\n", stats.SchemaVersion)
				_ = writePlain("default_backend: %s\n", resp.DefaultBackend)
				_ = writePlain("processors: %s\n", strings.Join(resp.Processors, ", "))
				_ = writePlain("total_files: %d\n", stats.TotalFiles)
				_ = writePlain("total_attachments: %d\n", stats.TotalAttachments)
				_ = writePlain("unattached_files: %d\n", stats.UnattachedFiles)

				backends := make([]string, 0, len(stats.FilesByBackend))
				for backend := range stats.FilesByBackend {
					backends = append(backends, backend)
				}
				sort.Strings(backends)
				for _, backend := range backends {
					_ = writePlain("  %s: %d\n", backend, stats.FilesByBackend[backend])
				}
				return nil
			})
		},
	}
}

func processorNames(procs []config.ProcessorConfig) []string {
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		names = append(names, p.Name)
	}
	return names
}

func newPresetsCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List option presets and builtin processors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := config.LoadPresets(cfg.PresetsPath)
			if err != nil {
				return err
			}
			if flags.structured() {
				return writeStructured(presets)
			}
			for _, name := range presets.Names() {
				if err := writePlain("%s %s\n", name, formatOptions(presets[name])); err != nil {
					return err
				}
			}
			return writePlain("processors: %s\n", strings.Join(imaging.Names(), ", "))
		},
	}
}
