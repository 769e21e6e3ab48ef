// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"net/http"
)

// videosHandlerFunc lists the whole video catalog.
func (s *Server) videosHandlerFunc(w http.ResponseWriter, r *http.Request) {
	md := s.store.Videos()
	s.jsonResponse(w, map[string]any{"ok": true, "videos": md, "count": len(md)}, http.StatusOK)
}

// commercialsHandlerFunc lists the commercial pool the daily planner
// samples from, with resolved durations.
func (s *Server) commercialsHandlerFunc(w http.ResponseWriter, r *http.Request) {
	md := s.store.Videos()
	pool := s.catalog.Commercials(md)

	list := make([]map[string]any, 0, len(pool))
	for _, c := range pool {
		list = append(list, map[string]any{
			"video_id":     c.VideoID,
			"title":        videoTitle(c.VideoID, md[c.VideoID]),
			"duracion_sec": c.Duration,
		})
	}
	s.jsonResponse(w, map[string]any{"ok": true, "commercials": list}, http.StatusOK)
}
