package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"ItemCatalog/internal/catalog"
	"ItemCatalog/pkg/kit"
)

var (
	inspectFile string
	inspectURL  string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print item count, ETag and Last-Modified of a data file or a running server",
	Long: `inspect loads a catalog data file the same way the server does and
prints the validators the server would send for it. A file that cannot be
parsed is reported as empty, exactly as the server would treat it.

With --url the validators are fetched from a running server instead.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if inspectURL != "" {
			return inspectRemote(cmd, inspectURL)
		}

		log, err := kit.NewLogger(service, "error", false)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		store := catalog.OpenStore(inspectFile, catalog.StoreDeps{Log: log})
		snap := store.Snapshot()

		printValidators(cmd.OutOrStdout(), store.Path(), len(snap.Items),
			kit.ETag(snap.Fingerprint), snap.LastModified.UTC().Format(http.TimeFormat))
		return nil
	},
}

func inspectRemote(cmd *cobra.Command, baseURL string) error {
	res, err := catalog.NewClient(baseURL).List(cmd.Context(), url.Values{"limit": {"1"}}, "")
	if err != nil {
		return fmt.Errorf("inspect %s: %w", baseURL, err)
	}
	printValidators(cmd.OutOrStdout(), baseURL, res.Result.Meta.Total, res.ETag, res.LastModified)
	return nil
}

func printValidators(out io.Writer, source string, items int, etag, lastModified string) {
	fmt.Fprintf(out, "source:        %s\n", source)
	fmt.Fprintf(out, "items:         %d\n", items)
	fmt.Fprintf(out, "etag:          %s\n", etag)
	fmt.Fprintf(out, "last-modified: %s\n", lastModified)
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectFile, "file", "f", "data/items.json", "Path of the catalog data file")
	inspectCmd.Flags().StringVarP(&inspectURL, "url", "u", "", "Base URL of a running catalog server")
}
