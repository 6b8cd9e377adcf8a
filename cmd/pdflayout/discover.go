package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdflayout/internal/sources"
)

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <page-url>",
		Short: "Print a sources manifest for the documents linked from a web page",
		Example: `  pdflayout discover https://example.com/reports > sources.yaml
  pdflayout --sources sources.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			// Log to stderr so stdout stays a clean manifest.
			log := cfg.Log.NewLogger(cmd.ErrOrStderr())

			client := newFetchClient(cfg, log)
			defer client.Close()

			found, err := client.DiscoverLinks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			log.Info("links discovered", "page", args[0], "count", len(found))
			return writeManifest(cmd.OutOrStdout(), found)
		},
	}
}

func writeManifest(w io.Writer, list []sources.Source) error {
	if err := sources.WriteManifest(w, list); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
