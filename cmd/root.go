/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/arxiv-rag/config"
	"github.com/tieubaoca/arxiv-rag/logger"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arxiv-rag",
	Short: "Question answering over arXiv papers",
	Long: `arxiv-rag keeps a local copy of arXiv search results, chunks and embeds
the papers into a vector index and answers questions about them.

  arxiv-rag sync      pull new and updated papers from the arXiv feed
  arxiv-rag ingest    chunk and index papers not yet processed
  arxiv-rag ask       chat with the indexed papers
  arxiv-rag serve     expose the chat over HTTP and websocket`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
