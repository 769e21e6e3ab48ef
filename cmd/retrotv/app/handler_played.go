// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// playedHandlerFunc confirms a playback: clears any pending pick for the
// video and counts the completion. Unknown ids still count; the stat is
// "reported completions", not "known videos played".
func (s *Server) playedHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoID string `json:"video_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VideoID == "" {
		s.jsonResponse(w, map[string]any{"ok": false, "error": "missing video_id"}, http.StatusBadRequest)
		return
	}

	for _, cid := range s.sw.ClearPending(body.VideoID) {
		slog.Info("playback confirmed, pending pick cleared", "canal", cid, "video", body.VideoID)
	}

	stats, err := s.store.BumpPlay(body.VideoID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.jsonResponse(w, map[string]any{"ok": false, "error": err.Error()}, http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, map[string]any{
		"ok":          true,
		"video_id":    body.VideoID,
		"plays":       stats.Plays,
		"last_played": stats.LastPlayed,
	}, http.StatusOK)
}
