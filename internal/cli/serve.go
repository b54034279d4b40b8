package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmhodges/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floramind/floramind/internal/chat"
	"github.com/floramind/floramind/internal/config"
	"github.com/floramind/floramind/internal/gateway"
	"github.com/floramind/floramind/internal/llm"
	"github.com/floramind/floramind/internal/server"
	"github.com/floramind/floramind/internal/store"
	"github.com/floramind/floramind/internal/weather"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	// Resolve database path
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	clk := clock.New()

	// Text-generation client is optional: without it, reminders keep their
	// standard messages and chat is disabled.
	var chatMgr *chat.Manager
	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Warnw("LLM not configured, personalization and chat disabled", "err", err)
		llmClient = nil
	} else {
		chatMgr = chat.NewManager(llmClient)
		log.Infow("llm configured", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	}

	weatherClient := weather.NewClient(cfg.Weather)
	gw := gateway.New(weatherClient, llmClient, clk, cfg.Weather.CacheTTL, log)

	srv := server.New(db, gw, chatMgr, clk, log, cfg.Weather.DefaultCity, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infow("floramind serving", "addr", addr, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-done
	log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
