/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/arxiv-rag/database"
	"github.com/tieubaoca/arxiv-rag/service"
)

type resetter interface {
	Reset(ctx context.Context) error
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk, embed and index papers not yet processed",
	Long: `Reads papers from the metadata store, skips those already indexed and
processes the rest in batches. Progress is checkpointed after every batch,
so an interrupted run resumes where it stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = a.cfg.Ingest.Limit
		}
		if pct, _ := cmd.Flags().GetInt("batch-pct"); pct > 0 {
			a.cfg.Ingest.BatchPct = pct
		}

		store, err := a.MetadataStore()
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

		if reset, _ := cmd.Flags().GetBool("reset"); reset {
			if err := resetIndex(cmd, index, processed); err != nil {
				return err
			}
		}

		chunker, err := a.Chunker(ctx)
		if err != nil {
			return err
		}
		loader, err := service.NewLoader(chunker, index, processed, a.cfg.Ingest.BatchPct)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		loader.OnBatch = func(br service.BatchReport) {
			fmt.Fprintf(out, "Batch %d/%d done: %d document(s), %d chunk(s). Index count: %d\n",
				br.Batch, br.Batches, br.Indexed, br.Chunks, br.IndexCount)
		}

		records, err := store.List(ctx, limit)
		if err != nil {
			return err
		}
		report, err := loader.Run(ctx, records)
		if report != nil {
			fmt.Fprintf(out, "%d already processed, %d new, %d skipped: %d indexed, %d failed, %d chunk(s) added\n",
				report.AlreadyProcessed, report.Pending, report.Skipped, report.Indexed, report.Failed, report.Chunks)
		}
		return err
	},
}

func resetIndex(cmd *cobra.Command, index database.VectorIndex, processed *database.ProcessedSet) error {
	r, ok := index.(resetter)
	if !ok {
		return fmt.Errorf("vector index type %T cannot be reset", index)
	}
	if err := r.Reset(cmd.Context()); err != nil {
		return err
	}
	if err := processed.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Vector index and processed state cleared")
	return nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().IntP("limit", "n", 0, "maximum number of papers to read from the metadata store (default ingest.limit)")
	ingestCmd.Flags().Int("batch-pct", 0, "batch size as a percentage of pending papers (default ingest.batch_pct)")
	ingestCmd.Flags().Bool("reset", false, "drop the vector index and processed state before ingesting")
}
