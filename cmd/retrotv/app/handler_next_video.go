// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/tvargenta/retrotv/pkg/store"
)

// libraryVideoURL resolves the playback URL for a library video.
func libraryVideoURL(id string, v store.Video) string {
	if v.SeriesPath != "" {
		return "/videos/" + v.SeriesPath + ".mp4"
	}
	return "/videos/" + id + ".mp4"
}

func videoTitle(id string, v store.Video) string {
	if v.Title != "" {
		return v.Title
	}
	return strings.ReplaceAll(id, "_", " ")
}

func orEmptyTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// nextVideoHandlerFunc is the hot path: resolve what the active channel
// should play right now. Three branches: the AV-input channel "03", a
// broadcast channel answered by the daily plan, and the fairness picker
// for library channels. Catalog trouble never yields a 5xx here.
func (s *Server) nextVideoHandlerFunc(w http.ResponseWriter, r *http.Request) {
	active := s.store.ActiveChannel().CanalID

	// Channel 03 is the AV input. The player decides what to show from
	// the VCR state; the server only returns the marker.
	if active == "03" {
		s.jsonResponse(w, map[string]any{
			"channel_type": "av_input",
			"modo":         "03",
			"canal_nombre": "03",
			"canal_id":     "03",
			"canal_numero": "03",
		}, http.StatusOK)
		return
	}

	canales := s.store.Channels()

	// Broadcast channels are answered by the daily plan. A cold plan
	// cache falls through to the fairness picker with a warning.
	if cfg, ok := canales[active]; ok && len(cfg.SeriesFilter) > 0 {
		if _, warm := s.planner.Snapshot(); warm {
			sched := s.planner.Lookup(active, s.sw.now())
			md := s.store.Videos()
			slog.Info("broadcast pick", "canal", active, "type", sched.Type,
				"video", sched.VideoID, "seek", sched.SeekTo)
			s.jsonResponse(w, map[string]any{
				"video_id":       sched.VideoID,
				"video_url":      sched.VideoURL,
				"seek_to":        sched.SeekTo,
				"title":          videoTitle(sched.VideoID, md[sched.VideoID]),
				"tags":           []string{},
				"modo":           active,
				"canal_nombre":   canalNombre(canales, active),
				"canal_numero":   canalNumero(canales, active),
				"broadcast_type": sched.Type,
				"is_broadcast":   true,
			}, http.StatusOK)
			return
		}
		slog.Warn("daily plan not ready, falling back to fairness pick", "canal", active)
	}

	s.libraryNextVideo(w, active, canales)
}

// libraryNextVideo runs the fairness pipeline under the switch-state
// mutex: force-next consumption, anti-bounce windows (pending dedupe,
// sticky, cooldown), candidate build, gap filter, scoring.
func (s *Server) libraryNextVideo(w http.ResponseWriter, active string, canales store.Channels) {
	md := s.store.Videos()

	canalID := "canal_base"
	var cfg store.Channel
	if c, ok := canales[active]; ok {
		canalID = active
		cfg = c
	} else {
		g := s.store.Config()
		cfg = store.Channel{
			TagsPrioridad: g.TagsPrioridad,
			TagsIncluidos: g.TagsIncluidos,
			MinGapMinutes: g.MinGapMinutes,
		}
	}

	s.sw.mu.Lock()
	defer s.sw.mu.Unlock()

	now := s.sw.now()
	force := s.sw.consumeForceNext()
	kind, pp := s.sw.checkBounce(canalID, force, now)

	switch kind {
	case bouncePending:
		info := md[pp.videoID]
		slog.Info("reusing pending pick", "canal", canalID, "video", pp.videoID)
		s.jsonResponse(w, map[string]any{
			"video_id":       pp.videoID,
			"video_url":      libraryVideoURL(pp.videoID, info),
			"title":          videoTitle(pp.videoID, info),
			"tags":           orEmptyTags(info.Tags),
			"modo":           canalID,
			"canal_nombre":   canalNombre(canales, canalID),
			"canal_numero":   canalNumero(canales, canalID),
			"reused":         true,
			"do_not_restart": true,
		}, http.StatusOK)
		return
	case bounceSticky:
		if info, ok := md[pp.videoID]; ok {
			s.jsonResponse(w, map[string]any{
				"video_id":        pp.videoID,
				"video_url":       libraryVideoURL(pp.videoID, info),
				"title":           videoTitle(pp.videoID, info),
				"tags":            orEmptyTags(info.Tags),
				"score_tags":      0,
				"fair_plays_norm": 0.0,
				"fair_last_ts":    0.0,
				"modo":            canalID,
				"canal_nombre":    canalNombre(canales, canalID),
				"canal_numero":    canalNumero(canales, canalID),
				"sticky":          true,
			}, http.StatusOK)
			return
		}
	case bounceCooldown:
		slog.Info("cooldown window", "canal", canalID)
		s.jsonResponse(w, map[string]any{"cooldown": true, "canal_id": canalID}, http.StatusOK)
		return
	}

	if len(cfg.TagsIncluidos) == 0 && len(cfg.TagsPrioridad) == 0 && len(cfg.SeriesFilter) == 0 {
		s.errorResponse(w, "no included tags configured for this channel", "", http.StatusBadRequest)
		return
	}

	prevTags := map[string]bool{}
	if prev, ok := s.sw.lastChoice[canalID]; ok {
		prevTags = tagSet(md[prev.videoID].Tags)
	}

	plays := s.store.Plays()
	minGap := minGapFor(cfg)

	shownSet := tagSet(s.sw.shown[canalID])
	cands := applyGapFilter(buildCandidates(cfg, md, shownSet, prevTags), plays, minGap, now)

	// Exhausted rotation: clear the shown list and retry once.
	if len(cands) == 0 && len(s.sw.shown[canalID]) > 0 {
		s.sw.shown[canalID] = nil
		cands = applyGapFilter(buildCandidates(cfg, md, map[string]bool{}, prevTags), plays, minGap, now)
	}
	if len(cands) == 0 {
		slog.Warn("no videos for channel", "canal", canalID, "series_filter", cfg.SeriesFilter)
		s.jsonResponse(w, map[string]any{"no_videos": true, "canal_id": canalID}, http.StatusOK)
		return
	}

	best, _ := pickBest(cands, plays)
	s.sw.recordPick(canalID, best.videoID, now)

	age := ageSeconds(plays[best.videoID], now)
	var ageField any
	if !math.IsInf(age, 1) {
		ageField = int(age)
	}
	slog.Info("fairness pick", "canal", canalID, "video", best.videoID,
		"tag_score", best.tagScore, "plays_norm", best.playsNorm,
		"overlap_prev", best.overlap, "gap_minutes", int(minGap.Minutes()))

	s.jsonResponse(w, map[string]any{
		"video_id":        best.videoID,
		"video_url":       libraryVideoURL(best.videoID, best.video),
		"title":           videoTitle(best.videoID, best.video),
		"tags":            orEmptyTags(best.video.Tags),
		"score_tags":      best.tagScore,
		"fair_plays_norm": best.playsNorm,
		"fair_last_ts":    best.lastTS,
		"overlap_prev":    best.overlap,
		"modo":            canalID,
		"canal_nombre":    canalNombre(canales, canalID),
		"canal_numero":    canalNumero(canales, canalID),
		"min_gap_minutes": int(minGap.Minutes()),
		"age_seconds":     ageField,
	}, http.StatusOK)
}
