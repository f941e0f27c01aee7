// Package main runs the mini-app client shell: one process per session,
// identity and backend resolved once from the launch environment, pages
// served locally while the remote backend stays the source of truth.
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arendahub/miniapp-client/internal/backend"
	"github.com/arendahub/miniapp-client/internal/config"
	"github.com/arendahub/miniapp-client/internal/flow"
	"github.com/arendahub/miniapp-client/internal/host"
	"github.com/arendahub/miniapp-client/internal/launch"
	"github.com/arendahub/miniapp-client/internal/logging"
	"github.com/arendahub/miniapp-client/internal/metrics"
	"github.com/arendahub/miniapp-client/internal/webui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.Setup("info", false)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.Setup(cfg.LogLevel, cfg.LogPretty)

	launchQuery, err := url.ParseQuery(cfg.LaunchQuery)
	if err != nil {
		log.Warn().Err(err).Msg("malformed launch query, ignoring")
		launchQuery = url.Values{}
	}

	hostCtx := host.Resolve(host.Env{
		InitData: cfg.InitData,
		Query:    launchQuery,
		DevMode:  cfg.DevMode,
	})
	if !hostCtx.Present {
		log.Info().Msg("no host environment detected")
	}
	if hostCtx.ChatID == 0 {
		log.Warn().Msg("no identity resolved; backend operations will short-circuit")
	}

	// Launch parameter overrides the build-time default backend.
	backendURL := cfg.BackendURL
	if lc := launch.Decode(hostCtx.StartParam); lc.Backend != "" {
		backendURL = lc.Backend
	}
	log.Info().Str("backend", backendURL).Int64("chat_id", hostCtx.ChatID).Msg("starting mini-app client")

	m := metrics.New()

	client := backend.New(backend.Config{
		BaseURL: backendURL,
		ChatID:  hostCtx.ChatID,
		Timeout: cfg.RequestTimeout,
		Logger:  log,
		Metrics: m,
	})

	recorder := backend.NewRecorder(backend.RecorderConfig{
		Client: client,
		Backfill: backend.Backfill{
			FirstName: hostCtx.User.FirstName,
			LastName:  hostCtx.User.LastName,
			Username:  hostCtx.User.Username,
			Phone:     hostCtx.User.Phone,
		},
		Logger:  log,
		Metrics: m,
	})
	defer recorder.Close()

	session := flow.NewSession(flow.SessionConfig{
		Backend:  client,
		Recorder: recorder,
		Resolver: flow.NewResolver(client, log),
		Logger:   log,
		Metrics:  m,
	})
	defer session.Close()

	server, err := webui.New(webui.ServerConfig{
		Host:     hostCtx,
		Backend:  client,
		Recorder: recorder,
		Session:  session,
		Pages:    config.LoadPagesOrDefault(cfg.PagesFile),
		Logger:   log,
		Metrics:  m,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build web shell")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
