package main

import (
	"context"

	"github.com/spf13/cobra"

	"clipper/internal/clipper"
	"clipper/internal/config"
	"clipper/internal/models"
	"clipper/internal/store"
)

func newPruneCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var in clipper.PruneInput

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete files no owner references (dry run unless --apply)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cfg, flags, func(a *app) error {
				result, err := a.service.Prune(cmd.Context(), in)
				if err != nil {
					return err
				}
				if flags.structured() {
					return writeStructured(result)
				}
				if result.DryRun {
					return writePlain("candidates: %d (dry run; pass --apply to delete)\n", result.CandidateCount)
				}
				return writePlain("candidates: %d deleted: %d vetoed: %d failed: %d\n",
					result.CandidateCount, result.DeletedCount, result.VetoedCount, result.FailedCount)
			})
		},
	}

	cmd.Flags().DurationVar(&in.OlderThan, "older-than", 0, "only files created longer ago than this (e.g. 720h)")
	cmd.Flags().IntVar(&in.BatchSize, "batch-size", 0, "files per batch (prune_batch_size when omitted)")
	cmd.Flags().BoolVar(&in.Apply, "apply", false, "delete instead of counting")
	return cmd
}

func newWarmCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var (
		derivative  derivativeFlags
		concurrency int
		backend     string
		mimeType    string
	)

	cmd := &cobra.Command{
		Use:   "warm [<file>...]",
		Short: "Generate a derivative ahead of time for the given files, or for every matching file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cfg, derivative.preset, derivative.opts)
			if err != nil {
				return err
			}
			return withService(cfg, flags, func(a *app) error {
				files, err := warmTargets(cmd.Context(), a.service, args, store.ListFilesFilter{Backend: backend, MimeType: mimeType})
				if err != nil {
					return err
				}
				result, err := a.service.Warm(cmd.Context(), files, opts, concurrency)
				if err != nil {
					return err
				}
				if flags.structured() {
					return writeStructured(result)
				}
				return writePlain("resolved: %d failed: %d\n", result.Resolved, result.Failed)
			})
		},
	}

	bindDerivativeFlags(cmd, &derivative)
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel resolutions (default 4)")
	cmd.Flags().StringVar(&backend, "backend", "", "only files on this backend")
	cmd.Flags().StringVar(&mimeType, "mime", "", "only files with this mime type")
	return cmd
}

func warmTargets(ctx context.Context, svc *clipper.Service, args []string, filter store.ListFilesFilter) ([]models.File, error) {
	if len(args) == 0 {
		return svc.ListFiles(ctx, filter)
	}
	files := make([]models.File, 0, len(args))
	for _, arg := range args {
		file, err := lookupFile(ctx, svc, arg)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, nil
}
