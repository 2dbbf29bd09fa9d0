package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"clipper/internal/clipper"
	"clipper/internal/config"
)

// derivativeFlags selects a derivative by preset and k=v options.
type derivativeFlags struct {
	preset string
	opts   []string
}

func bindDerivativeFlags(cmd *cobra.Command, d *derivativeFlags) {
	cmd.Flags().StringVar(&d.preset, "preset", "", "named option preset")
	cmd.Flags().StringArrayVar(&d.opts, "opt", nil, "derivative option key=value (repeatable, dotted keys nest)")
}

type getResult struct {
	FileID int64  `json:"file_id" yaml:"file_id"`
	Name   string `json:"name" yaml:"name"`
	Output string `json:"output" yaml:"output"`
	Bytes  int64  `json:"bytes" yaml:"bytes"`
}

func newGetCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var (
		derivative derivativeFlags
		outPath    string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "get <file>",
		Short: "Read an original or a derivative, generating it on first use",
		Args:  requireFileArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cfg, derivative.preset, derivative.opts)
			if err != nil {
				return err
			}
			if outPath != "" && !force {
				if _, err := os.Stat(outPath); err == nil {
					return fmt.Errorf("output file exists (use --force to overwrite)")
				}
			}

			return withService(cfg, flags, func(a *app) error {
				file, err := lookupFile(cmd.Context(), a.service, args[0])
				if err != nil {
					return err
				}
				name, err := clipper.Name(file, opts)
				if err != nil {
					return err
				}
				rc, err := a.service.Resolve(cmd.Context(), file, opts)
				if err != nil {
					return err
				}
				defer rc.Close()

				if outPath == "" {
					_, err := io.Copy(os.Stdout, rc)
					return err
				}
				n, err := writeOutputFile(outPath, rc)
				if err != nil {
					return err
				}
				if flags.structured() {
					return writeStructured(getResult{FileID: file.ID, Name: name, Output: outPath, Bytes: n})
				}
				return writePlain("%s\n", outPath)
			})
		},
	}

	bindDerivativeFlags(cmd, &derivative)
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (stdout when omitted)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	return cmd
}

func writeOutputFile(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

func newURICmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var derivative derivativeFlags

	cmd := &cobra.Command{
		Use:   "uri <file>",
		Short: "Print the public URI of an original or derivative",
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
				uri, err := a.service.PublicURI(cmd.Context(), file, opts)
				if err != nil {
					return err
				}
				if flags.structured() {
					return writeStructured(map[string]any{"file_id": file.ID, "uri": uri})
				}
				return writePlain("%s\n", uri)
			})
		},
	}

	bindDerivativeFlags(cmd, &derivative)
	return cmd
}
