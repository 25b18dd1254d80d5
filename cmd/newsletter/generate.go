package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newGenerateCommand(a *app) *cobra.Command {
	var (
		links     []string
		linksFile string
		out       string
		deliver   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one newsletter",
		RunE: func(cmd *cobra.Command, args []string) error {
			all := cleanLinks(append(links, args...))
			if linksFile != "" {
				fromFile, err := loadLinksFile(linksFile)
				if err != nil {
					return err
				}
				all = append(all, fromFile...)
			}
			if len(all) == 0 {
				return errors.New("no links given: use --links, --links-file or positional arguments")
			}

			ctx := cmd.Context()
			nl := buildPipeline(a.cfg, a.log).Generate(ctx, all)

			if out == "" || out == "-" {
				fmt.Fprint(cmd.OutOrStdout(), nl.FullNewsletter)
			} else {
				if err := os.WriteFile(out, []byte(nl.FullNewsletter), 0o644); err != nil {
					return fmt.Errorf("writing newsletter: %w", err)
				}
				a.log.Info("newsletter written", zap.String("path", out), zap.Int("links", len(nl.Links)))
			}

			if !deliver {
				return nil
			}
			d, err := buildDeliverer(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer d.Close()
			return d.Deliver(ctx, nl)
		},
	}

	cmd.Flags().StringSliceVar(&links, "links", nil, "links to include (repeatable or comma separated)")
	cmd.Flags().StringVar(&linksFile, "links-file", "", "YAML file with links")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&deliver, "deliver", false, "also send the newsletter to the configured delivery sinks")
	return cmd
}
