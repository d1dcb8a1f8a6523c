/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/arxiv-rag/service"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <pdf-path-or-url>",
	Short: "Extract and split one PDF without indexing it",
	Long: `Runs text extraction and chunking on a single PDF and prints each chunk
with its token count. Nothing is embedded or stored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tokenizer, err := a.Tokenizer()
		if err != nil {
			return err
		}
		chunker, err := service.NewChunker(a.Extractor(), nil, tokenizer, a.cfg.Chunker.ChunkSize, 1)
		if err != nil {
			return err
		}
		text, err := a.Extractor().Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		chunks := chunker.Split(text)
		for i, c := range chunks {
			fmt.Fprintf(out, "--- chunk %d (%d tokens) ---\n%s\n", i+1, tokenizer.Count(c), c)
		}
		fmt.Fprintf(out, "%d chunk(s), chunk size %d\n", len(chunks), a.cfg.Chunker.ChunkSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chunkCmd)
}
