// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tvargenta/retrotv/pkg/logging"
)

// Routes defines dispatches for all routes.
func (s *Server) Routes(ctx context.Context) error {
	for _, route := range logging.LogRoutes {
		s.Router.MethodFunc(route.Method, route.Path, route.Handler)
	}
	s.Router.Mount("/debug", middleware.Profiler())
	s.Router.MethodFunc("GET", "/healthz", s.healthzHandlerFunc)

	s.Router.MethodFunc("GET", "/api/next_video", s.nextVideoHandlerFunc)
	s.Router.MethodFunc("POST", "/api/played", s.playedHandlerFunc)
	s.Router.MethodFunc("GET", "/api/should_reload", s.shouldReloadHandlerFunc)
	s.Router.MethodFunc("GET", "/api/canales", s.canalesHandlerFunc)
	s.Router.MethodFunc("POST", "/api/set_canal_activo", s.setCanalActivoHandlerFunc)
	s.Router.MethodFunc("GET", "/api/series", s.seriesHandlerFunc)
	s.Router.MethodFunc("POST", "/api/series/time_of_day", s.seriesTimeOfDayHandlerFunc)
	s.Router.MethodFunc("GET", "/api/videos", s.videosHandlerFunc)
	s.Router.MethodFunc("GET", "/api/commercials", s.commercialsHandlerFunc)
	s.Router.MethodFunc("GET", "/api/schedule/info", s.scheduleInfoHandlerFunc)
	s.Router.MethodFunc("GET", "/api/vcr/state", s.vcrStateHandlerFunc)

	// Admin API, rate limited per IP when configured.
	s.Router.Route("/api/admin", func(r chi.Router) {
		if s.Cfg.MaxRequests > 0 {
			r.Use(NewIPRequestLimiter("RetroTV-Requests", s.Cfg.MaxRequests, 24*time.Hour))
		}
		createRouteAPI(s)(r)
	})

	// Static content: the video library and thumbnails.
	videoFS := http.FileServer(http.Dir(s.catalog.VideoDir()))
	s.Router.Handle("/videos/*", http.StripPrefix("/videos/", videoFS))
	thumbFS := http.FileServer(http.Dir(filepath.Join(s.Cfg.ContentRoot, "thumbnails")))
	s.Router.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/", thumbFS))

	return nil
}
