package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"

	"psychsession/internal/config"
	"psychsession/internal/core"
	"psychsession/internal/db"
	httpserver "psychsession/internal/http"
	"psychsession/internal/llm"
	"psychsession/internal/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	if err != nil {
		log.Fatalf("failed to construct OpenAI client: %v", err)
	}
	gateway := llm.NewGateway(client, logger)

	var docs transcript.DocumentStore
	var notifier httpserver.Notifier
	if cfg.DatabaseURL != "" {
		conn, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := conn.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping database: %v", err)
		}
		if err := db.Migrate(context.Background(), conn); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		docs = db.NewStore(conn)
		notifier = db.NewNotifier(conn, cfg.NotifyChannel)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory session store")
		docs = transcript.NewMemoryStore()
	}

	srv := httpserver.NewServer(
		core.Config{Model: cfg.Model, SessionDurationMinutes: cfg.SessionDurationMinutes},
		gateway,
		transcript.NewStore(docs),
		notifier,
		logger,
	)

	logger.Info("listening", "addr", cfg.Addr(), "model", cfg.Model,
		"session_duration_minutes", cfg.SessionDurationMinutes)
	if err := http.ListenAndServe(cfg.Addr(), srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
