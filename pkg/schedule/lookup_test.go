// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvargenta/retrotv/pkg/store"
)

// planWith5AMBlock builds a minimal plan whose 05:00 block starts with a
// 120s commercial followed by an episode.
func planWith5AMBlock() store.DailySchedule {
	// 05:00 is 7200 seconds after 03:00
	return store.DailySchedule{
		ScheduleDate: "2025-08-25",
		Channels: map[string][]store.Segment{
			"05": {
				{StartSec: 0, EndSec: 3600, Type: store.SegmentTestPattern, VideoID: store.TestPatternID},
				{StartSec: 3600, EndSec: 7200, Type: store.SegmentTestPattern, VideoID: store.TestPatternID},
				{StartSec: 7200, EndSec: 7320, Type: store.SegmentCommercial, VideoID: "ad_soda"},
				{StartSec: 7320, EndSec: 8520, Type: store.SegmentEpisode, VideoID: "friends_s01e01",
					SeriesPath: "series/friends/friends_s01e01"},
				{StartSec: 8520, EndSec: 86400, Type: store.SegmentTestPattern, VideoID: store.TestPatternID},
			},
		},
	}
}

func TestSecondsSince3AM(t *testing.T) {
	day := func(h, m, s int) time.Time {
		return time.Date(2025, 8, 25, h, m, s, 0, time.Local)
	}
	assert.Equal(t, 0, SecondsSince3AM(day(3, 0, 0)))
	assert.Equal(t, 3600, SecondsSince3AM(day(4, 0, 0)))
	assert.Equal(t, 7230, SecondsSince3AM(day(5, 0, 30)))
	// before 03:00 maps into yesterday's tail
	assert.Equal(t, (24-3)*3600+2*3600+59*60, SecondsSince3AM(day(2, 59, 0)))
}

func TestLookupCommercialWithSeek(t *testing.T) {
	plan := planWith5AMBlock()
	now := time.Date(2025, 8, 25, 5, 0, 30, 0, time.Local)

	got := LookupAt(plan, "05", now)
	assert.Equal(t, store.SegmentCommercial, got.Type)
	assert.Equal(t, "ad_soda", got.VideoID)
	assert.Equal(t, "/videos/commercials/ad_soda.mp4", got.VideoURL)
	assert.Equal(t, 30.0, got.SeekTo)
}

func TestLookupEpisodeURLUsesSeriesPath(t *testing.T) {
	plan := planWith5AMBlock()
	now := time.Date(2025, 8, 25, 5, 10, 0, 0, time.Local)

	got := LookupAt(plan, "05", now)
	assert.Equal(t, store.SegmentEpisode, got.Type)
	assert.Equal(t, "/videos/series/friends/friends_s01e01.mp4", got.VideoURL)
	assert.InDelta(t, 600-120, got.SeekTo, 0.001)
}

func TestLookupAtExactly3AM(t *testing.T) {
	plan := planWith5AMBlock()
	now := time.Date(2025, 8, 25, 3, 0, 0, 0, time.Local)

	got := LookupAt(plan, "05", now)
	assert.Equal(t, store.SegmentTestPattern, got.Type)
	assert.Equal(t, 0.0, got.SeekTo)
}

func TestLookupBefore3AMFallsIntoTail(t *testing.T) {
	plan := planWith5AMBlock()
	now := time.Date(2025, 8, 25, 2, 59, 0, 0, time.Local)

	got := LookupAt(plan, "05", now)
	// 02:59 is deep in the final segment of the stored plan
	assert.Equal(t, store.SegmentTestPattern, got.Type)
	assert.Greater(t, got.SeekTo, 0.0)
}

func TestLookupUnknownChannelFallsBack(t *testing.T) {
	plan := planWith5AMBlock()
	got := LookupAt(plan, "99", time.Now())
	assert.Equal(t, TestPatternFallback(), got)
}

func TestLookupGapFallsBack(t *testing.T) {
	plan := store.DailySchedule{
		Channels: map[string][]store.Segment{
			"05": {{StartSec: 0, EndSec: 3600, Type: store.SegmentTestPattern, VideoID: store.TestPatternID}},
		},
	}
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.Local)
	got := LookupAt(plan, "05", now)
	assert.Equal(t, TestPatternFallback(), got)
}

func TestLookupMonotone(t *testing.T) {
	plan := planWith5AMBlock()
	base := time.Date(2025, 8, 25, 4, 59, 0, 0, time.Local)

	prev := LookupAt(plan, "05", base)
	for i := 1; i <= 180; i++ {
		now := base.Add(time.Duration(i) * time.Second)
		cur := LookupAt(plan, "05", now)
		if cur.VideoID == prev.VideoID {
			// same segment: seek advances by exactly one second
			assert.InDelta(t, prev.SeekTo+1, cur.SeekTo, 0.001)
		}
		prev = cur
	}
}

func TestSegmentURLKinds(t *testing.T) {
	cases := []struct {
		seg  store.Segment
		want string
	}{
		{store.Segment{Type: store.SegmentTestPattern}, "/videos/system/test_pattern.mp4"},
		{store.Segment{Type: store.SegmentSponsorsPlaceholder}, "/videos/system/sponsors_placeholder.mp4"},
		{store.Segment{Type: store.SegmentCommercial, VideoID: "ad"}, "/videos/commercials/ad.mp4"},
		{store.Segment{Type: store.SegmentEpisode, VideoID: "ep", SeriesPath: "series/x/ep"}, "/videos/series/x/ep.mp4"},
		{store.Segment{Type: store.SegmentEpisode, VideoID: "ep"}, "/videos/ep.mp4"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, SegmentURL(c.seg))
	}
}
