/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/arxiv-rag/handler"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long:  `Serves the chat over a websocket at /ws plus a small JSON API under /api/v1.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if port, _ := cmd.Flags().GetString("port"); port != "" {
			a.cfg.Server.Port = port
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
		embedder, err := a.Embedder(ctx)
		if err != nil {
			return err
		}
		answerer, err := a.Answerer(ctx)
		if err != nil {
			return err
		}
		conversations, err := a.Conversations(ctx)
		if err != nil {
			return err
		}

		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}
		router := handler.NewRouter(handler.Handlers{
			Cors:          handler.NewCorsHandler(a.cfg.Server.AllowOrigin),
			Stats:         handler.NewStatsHandler(store, processed, index),
			Conversations: handler.NewConversationHandler(conversations),
			Search:        handler.NewSearchHandler(embedder, index, a.cfg.Answerer.TopK),
			Chat:          handler.NewChatHandler(service.NewWebSocketService(answerer, conversations)),
		})

		srv := &http.Server{
			Addr:    ":" + a.cfg.Server.Port,
			Handler: router,
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("server shutdown: %v", err)
			}
		}()

		logger.Info("starting server on port %s", a.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "listen port (overrides server.port)")
}
