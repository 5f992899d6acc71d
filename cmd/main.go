package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"onlinescoring/internal/configuration"
	"onlinescoring/internal/invocation"
	"onlinescoring/internal/journal"
	"onlinescoring/internal/modeldir"
	"onlinescoring/internal/scoring"
	"onlinescoring/internal/server"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

// prepareLogger installs a JSON slog logger on os.Stdout as the default one.
// Unknown levels fall back to Info.
func prepareLogger(level string) {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

func newJournal(config configuration.JournalConfig) journal.Journal {
	if config.File == "" {
		return journal.Nop{}
	}
	return journal.NewJsonJournal(config.File, config.Size, config.Amount)
}

// Configuration or start-up errors terminate the process with code 1.
func main() {
	configPath := flag.String("config", "/etc/onlinescoring/config.yaml", "configuration file, empty for defaults and environment only")
	flag.Parse()
	config, err := configuration.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}
	prepareLogger(config.Logger.Level)

	appCtx, appCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer appCancel()

	lister, err := modeldir.NewLister(config.Scoring.Exclude)
	if err != nil {
		slog.Error("Unable to initialize model directory lister", "error", err)
		os.Exit(1)
	}

	entry := scoring.NewEntry(config.Scoring.EnvVar, lister)
	entry.Init()

	history := invocation.NewHistory(config.History.Length, config.History.Ttl)
	go history.Serve(appCtx)

	scoringJournal := newJournal(config.Journal)
	defer scoringJournal.Close()

	router := server.NewScoringRouter(entry, history, scoringJournal, config.Server.MaxBodyBytes)
	srv := server.NewServer(config.Server.Address, config.Server.ReadTimeout, config.Server.WriteTimeout, router)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			appCancel()
		}
	}()
	slog.Info("Server listening " + config.Server.Address)
	<-appCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer shutdownCancel()

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("Server shutdown", "error", err)
	}
	slog.Info("Server stopped")
}
