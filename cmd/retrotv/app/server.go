// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tvargenta/retrotv/pkg/catalog"
	"github.com/tvargenta/retrotv/pkg/schedule"
	"github.com/tvargenta/retrotv/pkg/store"
)

type Server struct {
	Router  *chi.Mux
	Cfg     *ServerConfig
	store   *store.Store
	catalog *catalog.Catalog
	planner *schedule.Service
	sw      *switchState
	trigger *triggerWatcher
	vcr     *vcrTracker
}

func (s *Server) healthzHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, true, http.StatusOK)
}

// jsonResponse marshals message and give response with code
//
// Don't add any more content after this since Content-Length is set
func (s *Server) jsonResponse(w http.ResponseWriter, message any, code int) {
	raw, err := json.Marshal(message)
	if err != nil {
		http.Error(w, fmt.Sprintf("{message: \"%s\"}", err), http.StatusInternalServerError)
		slog.Error(err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	_, err = w.Write(raw)
	if err != nil {
		slog.Error("could not write HTTP response", "err", err)
	}
}

// errorResponse answers with the typed {error, cause} JSON shape.
func (s *Server) errorResponse(w http.ResponseWriter, msg string, cause string, code int) {
	body := map[string]string{"error": msg}
	if cause != "" {
		body["cause"] = cause
	}
	s.jsonResponse(w, body, code)
}
