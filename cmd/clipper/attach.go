package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/config"
	"clipper/internal/models"
	"clipper/internal/store"
)

func newAttachCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var slot string

	cmd := &cobra.Command{
		Use:   "attach <file> <owner>",
		Short: "Attach a file to an owner, replacing the slot's current occupant",
		Args:  requireExactlyArgs(2, "file and owner (Type:ID) are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := models.ParseOwner(args[1])
			if err != nil {
				return err
			}
			return withService(cfg, flags, func(a *app) error {
				file, err := lookupFile(cmd.Context(), a.service, args[0])
				if err != nil {
					return err
				}
				attachment, err := a.service.Attach(cmd.Context(), file, owner, models.Slot(slot))
				if err != nil {
					return err
				}
				if flags.structured() {
					return writeStructured(attachment)
				}
				return writePlain("%s\n", formatAttachmentLine(*attachment))
			})
		},
	}

	cmd.Flags().StringVar(&slot, "slot", "", "slot on the owner")
	return cmd
}

func newDetachCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var ownerRaw string

	cmd := &cobra.Command{
		Use:   "detach [<attachment-id>]",
		Short: "Remove one attachment, or every attachment of an owner with --owner",
		Args:  requireAtMostArgs(1, "at most one attachment id is accepted"),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasOwner := strings.TrimSpace(ownerRaw) != ""
			if hasOwner == (len(args) == 1) {
				return errors.New("exactly one of <attachment-id> or --owner is required")
			}
			return withService(cfg, flags, func(a *app) error {
				if hasOwner {
					owner, err := models.ParseOwner(ownerRaw)
					if err != nil {
						return err
					}
					removed, err := a.service.DeleteOwner(cmd.Context(), owner)
					if err != nil {
						return err
					}
					return writeAttachments(removed, flags)
				}

				id, err := parseID(args[0], "attachment id")
				if err != nil {
					return err
				}
				if err := a.service.Detach(cmd.Context(), id); err != nil {
					return err
				}
				if flags.structured() {
					return writeStructured(map[string]any{"id": id, "detached": true})
				}
				return writePlain("%d\n", id)
			})
		},
	}

	cmd.Flags().StringVar(&ownerRaw, "owner", "", "detach every attachment of owner Type:ID")
	return cmd
}

func newSlotCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "slot <owner> <slot>",
		Short: "Show the file occupying an owner's slot",
		Args:  requireExactlyArgs(2, "owner (Type:ID) and slot are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := models.ParseOwner(args[0])
			if err != nil {
				return err
			}
			return withService(cfg, flags, func(a *app) error {
				file, err := a.service.FindBySlot(cmd.Context(), owner, args[1])
				if err != nil {
					return err
				}
				return writeFile(file, flags)
			})
		},
	}
}

type listCmdOptions struct {
	slots        []string
	noSlot       bool
	integerSlots bool
	backend      string
	mimeType     string
	unattached   bool
	limit        int
}

func newListCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	opts := &listCmdOptions{}
	cmd := &cobra.Command{
		Use:   "ls [<owner>]",
		Short: "List an owner's attachments, or stored files when no owner is given",
		Args:  requireAtMostArgs(1, "at most one owner is accepted"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cfg, flags, func(a *app) error {
				if len(args) == 0 {
					files, err := a.service.ListFiles(cmd.Context(), store.ListFilesFilter{
						Backend:    opts.backend,
						MimeType:   opts.mimeType,
						Unattached: opts.unattached,
						Limit:      opts.limit,
					})
					if err != nil {
						return err
					}
					if flags.structured() {
						return writeStructured(files)
					}
					return writeFileList(files)
				}

				owner, err := models.ParseOwner(args[0])
				if err != nil {
					return err
				}
				attachments, err := a.service.Attachments(cmd.Context(), owner, store.AttachmentFilter{
					Slots:            opts.slots,
					WithoutSlot:      opts.noSlot,
					IntegerSlotsOnly: opts.integerSlots,
				})
				if err != nil {
					return err
				}
				return writeAttachments(attachments, flags)
			})
		},
	}

	cmd.Flags().StringSliceVar(&opts.slots, "slot", nil, "only these slots (repeatable)")
	cmd.Flags().BoolVar(&opts.noSlot, "no-slot", false, "only attachments without a slot")
	cmd.Flags().BoolVar(&opts.integerSlots, "integer-slots", false, "only integer slots, in numeric order")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "files on this backend")
	cmd.Flags().StringVar(&opts.mimeType, "mime", "", "files with this mime type")
	cmd.Flags().BoolVar(&opts.unattached, "unattached", false, "files no owner references")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "limit files listed")
	return cmd
}

func newExistsCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var ownerRaw string

	cmd := &cobra.Command{
		Use:   "exists <label>",
		Short: "Report whether a labeled file exists, optionally attached to an owner",
		Args:  requireExactlyArgs(1, "label is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var owner *models.Owner
			if strings.TrimSpace(ownerRaw) != "" {
				parsed, err := models.ParseOwner(ownerRaw)
				if err != nil {
					return err
				}
				owner = &parsed
			}
			return withService(cfg, flags, func(a *app) error {
				exists, err := a.service.Exists(cmd.Context(), args[0], owner)
				if err != nil {
					return err
				}
				if flags.structured() {
					return writeStructured(map[string]any{"label": args[0], "exists": exists})
				}
				return writePlain("%t\n", exists)
			})
		},
	}

	cmd.Flags().StringVar(&ownerRaw, "owner", "", "only count files attached to owner Type:ID")
	return cmd
}
