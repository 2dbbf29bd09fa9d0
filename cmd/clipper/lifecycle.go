package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clipper/internal/clipper"
	"clipper/internal/config"
	"clipper/internal/store"
)

type deleteResult struct {
	FileID int64  `json:"file_id" yaml:"file_id"`
	Scope  string `json:"scope" yaml:"scope"`
}

func newDeleteCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var derivative derivativeFlags

	cmd := &cobra.Command{
		Use:   "delete <file>",
		Short: "Delete a file with its derivatives, or one derivative when options are given",
		Args:  requireFileArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cfg, derivative.preset, derivative.opts)
			if err != nil {
				return err
			}
			return withService(cfg, flags, func(a *app) error {
				file, err := lookupFile(cmd.Context(), a.service, args[0])
				if err != nil {
					return err
				}
				scope := "all"
				if !opts.IsEmpty() {
					if scope, err = clipper.Name(file, opts); err != nil {
						return err
					}
				}
				ok, err := a.service.Delete(cmd.Context(), file, opts)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("delete %d: vetoed by a processor", file.ID)
				}
				if flags.structured() {
					return writeStructured(deleteResult{FileID: file.ID, Scope: scope})
				}
				return writePlain("%d %s\n", file.ID, scope)
			})
		},
	}

	bindDerivativeFlags(cmd, &derivative)
	return cmd
}

func newMoveCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "move <file> <backend>",
		Short: "Move a file's original to another backend",
		Args:  requireExactlyArgs(2, "file and target backend are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cfg, flags, func(a *app) error {
				file, err := lookupFile(cmd.Context(), a.service, args[0])
				if err != nil {
					return err
				}
				moved, ok, err := a.service.Move(cmd.Context(), file, args[1])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("move %d: vetoed by a processor", file.ID)
				}
				return writeFile(moved, flags)
			})
		},
	}
}

func newUpdateCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var (
		label    string
		mimeType string
	)

	cmd := &cobra.Command{
		Use:   "update <file>",
		Short: "Change a file's label or mime type",
		Args:  requireFileArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			update := store.FileUpdate{}
			if cmd.Flags().Changed("label") {
				update.Label = &label
			}
			if cmd.Flags().Changed("mime") {
				update.MimeType = &mimeType
			}
			if update.Label == nil && update.MimeType == nil {
				return errors.New("no fields to update")
			}
			return withService(cfg, flags, func(a *app) error {
				file, err := lookupFile(cmd.Context(), a.service, args[0])
				if err != nil {
					return err
				}
				updated, err := a.service.Update(cmd.Context(), file.ID, update)
				if err != nil {
					return err
				}
				return writeFile(updated, flags)
			})
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "new label (empty clears it)")
	cmd.Flags().StringVar(&mimeType, "mime", "", "new mime type")
	return cmd
}
