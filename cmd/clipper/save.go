package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/clipper"
	"clipper/internal/config"
	"clipper/internal/models"
)

type saveCmdOptions struct {
	mimeType string
	backend  string
	label    string
	owner    string
	slot     string
}

func newSaveCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	opts := &saveCmdOptions{}
	cmd := &cobra.Command{
		Use:   "save <path|url>",
		Short: "Store a local file or a remote URL as a new original",
		Args:  requireExactlyArgs(1, "path or url is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := buildSaveInput(cmd, opts)
			if err != nil {
				return err
			}
			return withService(cfg, flags, func(a *app) error {
				file, ok, err := a.service.SaveFrom(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("save %s: vetoed by a processor", args[0])
				}
				return writeFile(file, flags)
			})
		},
	}

	cmd.Flags().StringVar(&opts.mimeType, "mime", "", "mime type (sniffed when omitted)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "backend name (default_backend when omitted)")
	cmd.Flags().StringVar(&opts.label, "label", "", "unique label")
	cmd.Flags().StringVar(&opts.owner, "owner", "", "attach to owner Type:ID")
	cmd.Flags().StringVar(&opts.slot, "slot", "", "slot on the owner")
	return cmd
}

func buildSaveInput(cmd *cobra.Command, opts *saveCmdOptions) (clipper.SaveInput, error) {
	in := clipper.SaveInput{
		MimeType: strings.TrimSpace(opts.mimeType),
		Backend:  strings.TrimSpace(opts.backend),
		Label:    strings.TrimSpace(opts.label),
	}
	if strings.TrimSpace(opts.owner) != "" {
		owner, err := models.ParseOwner(opts.owner)
		if err != nil {
			return in, err
		}
		in.Owner = &owner
	}
	if cmd.Flags().Changed("slot") {
		in.Slot = models.Slot(opts.slot)
	}
	return in, nil
}
