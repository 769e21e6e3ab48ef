// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tvargenta/retrotv/internal"
	"github.com/tvargenta/retrotv/pkg/catalog"
	"github.com/tvargenta/retrotv/pkg/logging"
	"github.com/tvargenta/retrotv/pkg/schedule"
	"github.com/tvargenta/retrotv/pkg/store"
)

// SetupServer sets up router, middleware, and server, given koanf configuration.
func SetupServer(ctx context.Context, cfg *ServerConfig) (*Server, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.SlogMiddleWare(slog.Default()))
	r.Use(middleware.Recoverer)
	r.Use(addVersionAndCORSHeaders)
	r.Use(NewPrometheusMiddleware())

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	if cfg.TimeoutS > 0 {
		r.Use(middleware.Timeout(time.Duration(cfg.TimeoutS) * time.Second))
	}

	r.Mount("/metrics", promhttp.Handler())

	st, err := store.New(cfg.ContentRoot)
	if err != nil {
		return nil, fmt.Errorf("open content root: %w", err)
	}
	cat := catalog.New(st, filepath.Join(cfg.ContentRoot, "videos"), nil)
	planner := schedule.NewService(st, cat, cfg.Seed)

	server := Server{
		Router:  r,
		Cfg:     cfg,
		store:   st,
		catalog: cat,
		planner: planner,
		sw:      newSwitchState(),
		vcr:     newVCRTracker(st),
	}
	server.trigger = newTriggerWatcher(cfg.TriggerPath, server.sw.RaiseForceNext)

	if err := server.Routes(ctx); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}

	start := time.Now()
	planner.Initialize(ctx)
	elapsedSeconds := fmt.Sprintf("%.3fs", time.Since(start).Seconds())
	slog.Info("schedule plans ready", "elapsed", elapsedSeconds)

	go planner.Run(ctx)
	go server.vcr.run(ctx)
	go server.trigger.watch(ctx)

	slog.Info("retrotv starting", "version", internal.GetVersion(), "port", cfg.Port,
		"contentroot", cfg.ContentRoot)

	return &server, nil
}
