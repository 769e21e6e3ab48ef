// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"net/http"
	"sort"
	"time"

	"github.com/tvargenta/retrotv/pkg/schedule"
	"github.com/tvargenta/retrotv/pkg/store"
)

func segmentInfo(seg store.Segment, md store.Metadata) map[string]any {
	return map[string]any{
		"type":           seg.Type,
		"video_id":       seg.VideoID,
		"video_url":      schedule.SegmentURL(seg),
		"title":          videoTitle(seg.VideoID, md[seg.VideoID]),
		"start_sec":      seg.StartSec,
		"end_sec":        seg.EndSec,
		"base_timestamp": seg.BaseTimestamp,
	}
}

// scheduleInfoHandlerFunc reports what a broadcast channel is playing
// now and the next upcoming episode, for the program-guide UI.
func (s *Server) scheduleInfoHandlerFunc(w http.ResponseWriter, r *http.Request) {
	canalID := r.URL.Query().Get("canal_id")
	if canalID == "" {
		canalID = s.store.ActiveChannel().CanalID
	}

	plan, warm := s.planner.Snapshot()
	if !warm {
		s.jsonResponse(w, map[string]any{
			"ok": true, "canal_id": canalID,
			"now_playing": nil, "up_next": nil,
		}, http.StatusOK)
		return
	}

	segs, ok := plan.Channels[canalID]
	if !ok {
		s.errorResponse(w, "no schedule for channel", canalID, http.StatusNotFound)
		return
	}

	md := s.store.Videos()
	now := time.Now()
	sec := float64(schedule.SecondsSince3AM(now))

	idx := sort.Search(len(segs), func(i int) bool { return segs[i].StartSec > sec }) - 1

	var nowPlaying, upNext map[string]any
	if idx >= 0 && sec < segs[idx].EndSec {
		nowPlaying = segmentInfo(segs[idx], md)
	}
	for i := idx + 1; i >= 0 && i < len(segs); i++ {
		if segs[i].Type == store.SegmentEpisode {
			upNext = segmentInfo(segs[i], md)
			break
		}
	}

	s.jsonResponse(w, map[string]any{
		"ok":            true,
		"canal_id":      canalID,
		"schedule_date": plan.ScheduleDate,
		"now_playing":   nowPlaying,
		"up_next":       upNext,
	}, http.StatusOK)
}
