// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/tvargenta/retrotv/pkg/store"
)

// Scheduled is the result of a plan lookup: what a broadcast channel
// should be playing right now.
type Scheduled struct {
	Type     string
	VideoID  string
	VideoURL string
	SeekTo   float64
}

// TestPatternFallback is returned for unknown channels, cold caches, and
// plan gaps.
func TestPatternFallback() Scheduled {
	return Scheduled{
		Type:     store.SegmentTestPattern,
		VideoID:  store.TestPatternID,
		VideoURL: "/videos/system/test_pattern.mp4",
		SeekTo:   0,
	}
}

// SecondsSince3AM maps a wall-clock time onto the broadcast-day timeline.
// Hours before 03:00 fall into the tail of yesterday's plan.
func SecondsSince3AM(now time.Time) int {
	h, m, s := now.Clock()
	if h < 3 {
		return (24-3)*3600 + h*3600 + m*60 + s
	}
	return (h-3)*3600 + m*60 + s
}

// SegmentURL derives the player URL for a segment by its kind.
func SegmentURL(seg store.Segment) string {
	switch seg.Type {
	case store.SegmentTestPattern:
		return "/videos/system/test_pattern.mp4"
	case store.SegmentSponsorsPlaceholder:
		return "/videos/system/sponsors_placeholder.mp4"
	case store.SegmentCommercial:
		return fmt.Sprintf("/videos/commercials/%s.mp4", seg.VideoID)
	default:
		if seg.SeriesPath != "" {
			return fmt.Sprintf("/videos/%s.mp4", seg.SeriesPath)
		}
		return fmt.Sprintf("/videos/%s.mp4", seg.VideoID)
	}
}

// LookupAt finds the segment covering now in a channel's plan and returns
// the video plus the seek offset into it. Pure: no mutation, no I/O.
func LookupAt(plan store.DailySchedule, channelID string, now time.Time) Scheduled {
	segs := plan.Channels[channelID]
	if len(segs) == 0 {
		return TestPatternFallback()
	}
	s := float64(SecondsSince3AM(now))

	// rightmost segment with start <= s
	idx := sort.Search(len(segs), func(i int) bool { return segs[i].StartSec > s })
	if idx == 0 {
		return TestPatternFallback()
	}
	seg := segs[idx-1]
	if s >= seg.EndSec {
		return TestPatternFallback()
	}
	return Scheduled{
		Type:     seg.Type,
		VideoID:  seg.VideoID,
		VideoURL: SegmentURL(seg),
		SeekTo:   seg.BaseTimestamp + (s - seg.StartSec),
	}
}
