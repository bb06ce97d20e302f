package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicdesk/clinic-assistant/api"
	"github.com/clinicdesk/clinic-assistant/assistant"
	"github.com/clinicdesk/clinic-assistant/config"
	"github.com/clinicdesk/clinic-assistant/llm"
	"github.com/clinicdesk/clinic-assistant/logger"
	"github.com/clinicdesk/clinic-assistant/store"
	"github.com/clinicdesk/clinic-assistant/types"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.For("main").Fatal().Err(err).Msg("load config")
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output); err != nil {
		logger.For("main").Fatal().Err(err).Msg("init logger")
	}
	log := logger.For("main")

	db, err := store.OpenSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("open storage")
	}
	defer db.Close()

	var history assistant.HistoryStore
	if cfg.History.Backend == "redis" {
		rh, err := store.NewRedisHistory(cfg.History.RedisURL, cfg.History.MaxTurns, cfg.History.SessionTTL.Std())
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis history")
		}
		defer rh.Close()
		history = rh
		log.Info().Msg("history backend: redis")
	}

	client, err := llm.New(llm.Settings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout.Std(),
	})
	switch {
	case errors.Is(err, llm.ErrLLMDisabled):
		log.Warn().Msg("LLM disabled; routing on rules with canned small talk")
		client = llm.NullClient{}
	case err != nil:
		log.Fatal().Err(err).Msg("init llm client")
	}

	var srv *api.Server
	engine := assistant.NewEngine(assistant.Deps{
		Client:       client,
		Appointments: db,
		Accounts:     db,
		History:      history,
		HistoryTurns: cfg.History.MaxTurns,
		Notify: func(ev types.Event) {
			if srv != nil {
				srv.BroadcastEvent(ev)
			}
		},
	})
	srv = api.NewServer(cfg.Server.Port, engine, db, db, cfg.Server.AllowedOrigins)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}
}
