/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/arxiv-rag/service"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull new and updated papers from the arXiv feed",
	Long: `Pages through the arXiv search API for the configured query and upserts
the entries into the metadata store. Papers whose "updated" date changed are
rewritten; unchanged papers are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if q, _ := cmd.Flags().GetString("query"); q != "" {
			a.cfg.Feed.Query = q
		}
		if n, _ := cmd.Flags().GetInt("limit"); n > 0 {
			a.cfg.Feed.TotalLimit = n
		}

		store, err := a.MetadataStore()
		if err != nil {
			return err
		}
		sync := service.NewSyncService(service.NewFeedClient(a.cfg.Feed), store, a.cfg.Feed)
		report, err := sync.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringP("query", "q", "", "arXiv search query (overrides feed.query)")
	syncCmd.Flags().IntP("limit", "n", 0, "maximum number of results (overrides feed.total_limit)")
}
