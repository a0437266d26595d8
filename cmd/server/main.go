package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"modelarena/internal/config"
	"modelarena/internal/domain/conversation"
	"modelarena/internal/domain/dispatch"
	"modelarena/internal/domain/settings"
	"modelarena/internal/infrastructure/inference"
	"modelarena/internal/infrastructure/logger"
	"modelarena/internal/infrastructure/observability"
	"modelarena/internal/infrastructure/persistence"
	"modelarena/internal/interfaces/httpserver"
	"modelarena/internal/interfaces/httpserver/handlers/conversationhandler"
	"modelarena/internal/interfaces/httpserver/handlers/settingshandler"
	v1 "modelarena/internal/interfaces/httpserver/routes/v1"
	conversationroute "modelarena/internal/interfaces/httpserver/routes/v1/conversation"
	settingsroute "modelarena/internal/interfaces/httpserver/routes/v1/settings"

	_ "net/http/pprof"
)

func main() {
	ctx := context.Background()
	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	log, err = logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}

	otelShutdown, err := observability.Setup(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	kv, err := persistence.Open(cfg.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open persistence")
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Error().Err(err).Msg("close persistence")
		}
	}()

	store, err := conversation.Open(kv, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open conversation store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close conversation store")
		}
	}()

	settingsService, err := settings.Open(kv, settings.Settings{
		Models:  cfg.DefaultModels,
		BaseURL: cfg.DefaultBaseURL,
		APIKey:  cfg.DefaultAPIKey,
		Layout:  cfg.DefaultLayout,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open settings")
	}

	dispatcher := dispatch.NewDispatcher(
		store,
		settingsService,
		inference.Factory(cfg.CompletionTimeout),
		log,
	)

	v1Route := v1.NewV1Route(
		conversationroute.NewConversationRoute(
			conversationhandler.NewConversationHandler(store, dispatcher),
		),
		settingsroute.NewSettingsRoute(
			settingshandler.NewSettingsHandler(settingsService),
		),
	)
	server := httpserver.NewHTTPServer(v1Route, cfg, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var eg errgroup.Group
	eg.Go(func() error {
		err := http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", cfg.PprofPort), nil)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		err := server.Run()
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		<-runCtx.Done()
		return runCtx.Err()
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("server exited")
	}
}
