/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many papers are stored, processed and indexed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := a.MetadataStore()
		if err != nil {
			return err
		}
		records, err := store.Count(ctx)
		if err != nil {
			return err
		}
		processed, err := a.ProcessedSet()
		if err != nil {
			return err
		}
		index, err := a.VectorIndex(ctx)
		if err != nil {
			return err
		}
		chunks, err := index.Count(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Papers in metadata store: %d\n", records)
		fmt.Fprintf(out, "Papers processed:         %d\n", processed.Len())
		fmt.Fprintf(out, "Chunks in vector index:   %d (%s)\n", chunks, a.cfg.VectorIndex.Type)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
