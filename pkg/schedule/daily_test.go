// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package schedule

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvargenta/retrotv/pkg/catalog"
	"github.com/tvargenta/retrotv/pkg/store"
)

func TestBlockStructure(t *testing.T) {
	cases := []struct {
		duration float64
		episodes int
		blocks   int
	}{
		{300, 3, 1},    // very short
		{599, 3, 1},    //
		{600, 2, 1},    // short
		{899, 2, 1},    //
		{900, 1, 1},    // medium
		{1679, 1, 1},   //
		{1680, 1, 2},   // long
		{3479, 1, 2},   //
		{3480, 1, 2},   // very long, ceil(3480/1800)=2
		{3700, 1, 3},   //
		{7200, 1, 4},   //
		{10000, 1, 6},  //
	}
	for _, c := range cases {
		eps, blocks := blockStructure(c.duration)
		assert.Equal(t, c.episodes, eps, "duration %.0f", c.duration)
		assert.Equal(t, c.blocks, blocks, "duration %.0f", c.duration)
	}
}

// blockSum adds up the lengths of all segments starting inside one block.
func blockSum(segs []store.Segment, blockStart float64) float64 {
	sum := 0.0
	for _, s := range segs {
		if s.StartSec >= blockStart && s.StartSec < blockStart+BlockDurationSec {
			sum += s.Duration()
		}
	}
	return sum
}

func requireContiguous(t *testing.T, segs []store.Segment) {
	t.Helper()
	for i := 1; i < len(segs); i++ {
		require.InDelta(t, segs[i-1].EndSec, segs[i].StartSec, 0.001,
			"segment %d not contiguous", i)
	}
}

func TestMediumBlockNoCommercials(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	segs := buildSingleEpisodeBlock(rnd, 3600, blockEpisode{
		videoID: "ep", seriesPath: "series/x/ep", duration: 1200,
	}, nil)

	require.Len(t, segs, 5)
	wantTypes := []string{
		store.SegmentSponsorsPlaceholder,
		store.SegmentEpisode,
		store.SegmentSponsorsPlaceholder,
		store.SegmentEpisode,
		store.SegmentSponsorsPlaceholder,
	}
	wantLens := []float64{200, 600, 200, 600, 200}
	for i, s := range segs {
		assert.Equal(t, wantTypes[i], s.Type, "segment %d", i)
		assert.InDelta(t, wantLens[i], s.Duration(), 0.001, "segment %d", i)
	}
	assert.Equal(t, 0.0, segs[1].BaseTimestamp)
	assert.Equal(t, 600.0, segs[3].BaseTimestamp)
	requireContiguous(t, segs)
	assert.InDelta(t, 1800, blockSum(segs, 3600), 0.001)
}

func TestExactBlockLengthEpisodeSkipsBreaks(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	segs := buildSingleEpisodeBlock(rnd, 3600, blockEpisode{
		videoID: "ep", duration: 1800,
	}, nil)
	require.Len(t, segs, 2)
	assert.InDelta(t, 900, segs[0].Duration(), 0.001)
	assert.InDelta(t, 900, segs[1].Duration(), 0.001)
	assert.Equal(t, 900.0, segs[1].BaseTimestamp)
	assert.InDelta(t, 1800, blockSum(segs, 3600), 0.001)
}

func TestMultiEpisodeBlockSumsToBlock(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	pool := []catalog.Commercial{{VideoID: "ad1", Duration: 25}, {VideoID: "ad2", Duration: 40}}
	eps := []blockEpisode{
		{videoID: "e1", duration: 700},
		{videoID: "e2", duration: 700},
	}
	segs := buildMultiEpisodeBlock(rnd, 5400, eps, pool)
	requireContiguous(t, segs)
	assert.InDelta(t, 1800, blockSum(segs, 5400), 0.001)

	// both episodes appear in full with base 0
	var epSegs []store.Segment
	for _, s := range segs {
		if s.Type == store.SegmentEpisode {
			epSegs = append(epSegs, s)
		}
	}
	require.Len(t, epSegs, 2)
	for _, s := range epSegs {
		assert.InDelta(t, 700, s.Duration(), 0.001)
		assert.Equal(t, 0.0, s.BaseTimestamp)
	}
}

func TestMultiEpisodeBlockClampsToBlockEnd(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	eps := []blockEpisode{
		{videoID: "e1", duration: 300},
		{videoID: "e2", duration: 1740},
		{videoID: "e3", duration: 300},
	}
	segs := buildMultiEpisodeBlock(rnd, 3600, eps, nil)
	requireContiguous(t, segs)

	// oversized input never spills into the next block: the second
	// episode is cut at the block end and the third is dropped
	require.NotEmpty(t, segs)
	assert.InDelta(t, 5400, segs[len(segs)-1].EndSec, 0.001)
	for _, s := range segs {
		assert.NotEqual(t, "e3", s.VideoID)
	}
	assert.InDelta(t, 1800, blockSum(segs, 3600), 0.001)
}

func TestCommercialBreakLoopsAndClips(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	pool := []catalog.Commercial{{VideoID: "ad1", Duration: 20}, {VideoID: "ad2", Duration: 30}}
	segs := buildCommercialBreak(rnd, 0, 120, pool)
	requireContiguous(t, segs)
	total := 0.0
	for _, s := range segs {
		assert.Equal(t, store.SegmentCommercial, s.Type)
		total += s.Duration()
	}
	assert.InDelta(t, 120, total, 0.001)
}

func TestCommercialBreakEmptyPool(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	segs := buildCommercialBreak(rnd, 100, 90, nil)
	require.Len(t, segs, 1)
	assert.Equal(t, store.SegmentSponsorsPlaceholder, segs[0].Type)
	assert.Equal(t, store.SponsorsPlaceholderID, segs[0].VideoID)
	assert.InDelta(t, 90, segs[0].Duration(), 0.001)
}

// dailyFixture sets up a broadcast channel whose weekly plan carries the
// given series in every slot.
func dailyFixture(t *testing.T, md store.Metadata, series string) (*store.Store, *catalog.Catalog) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	cat := catalog.New(st, filepath.Join(st.Root(), "videos"), nil)

	require.NoError(t, st.SaveChannels(store.Channels{
		"05": {Nombre: "Retro Uno", Numero: "05", SeriesFilter: []string{series}},
	}))
	require.NoError(t, st.SaveSeries(store.SeriesMap{series: {TimeOfDay: AnyTime}}))
	require.NoError(t, st.SaveVideos(md))

	slots := map[string][]string{}
	for period, count := range TimeOfDaySlots {
		arr := make([]string, count)
		for i := range arr {
			arr[i] = series
		}
		slots[period] = arr
	}
	require.NoError(t, st.SaveWeekly(store.WeeklySchedule{
		WeekStart: "2025-08-24",
		Channels:  map[string]store.WeeklyChannel{"05": {TimeSlots: slots}},
	}))
	return st, cat
}

func mediumSeriesMetadata(n int) store.Metadata {
	md := store.Metadata{
		"ad_soda": {Category: store.CategoryCommercial, DurationSec: 30},
		"ad_cars": {Category: store.CategoryCommercial, DurationSec: 20},
	}
	for i := 1; i <= n; i++ {
		id := "friends_s01e" + string(rune('0'+i))
		md[id] = store.Video{
			Category: store.CategoryTVEpisode, Series: "friends",
			Season: 1, Episode: i, DurationSec: 1200,
			SeriesPath: "series/friends/" + id,
		}
	}
	return md
}

func TestGenerateDailyInvariants(t *testing.T) {
	st, cat := dailyFixture(t, mediumSeriesMetadata(5), "friends")
	rnd := rand.New(rand.NewSource(11))
	now := time.Date(2025, 8, 25, 3, 0, 5, 0, time.Local)

	plan, err := GenerateDaily(context.Background(), st, cat, rnd, now, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-25", plan.ScheduleDate)

	segs := plan.Channels["05"]
	require.NotEmpty(t, segs)

	// first segment is the 03:00 test pattern hour
	assert.Equal(t, store.SegmentTestPattern, segs[0].Type)
	assert.Equal(t, 0.0, segs[0].StartSec)
	assert.Equal(t, float64(ProgrammingStartSec), segs[0].EndSec)

	require.NoError(t, ValidateChannelSegments(segs))

	// every 30-minute block sums to exactly 1800s
	for blockNum := 0; blockNum < BlocksPerDay; blockNum++ {
		blockStart := float64(ProgrammingStartSec + blockNum*BlockDurationSec)
		assert.InDelta(t, 1800, blockSum(segs, blockStart), 0.01, "block %d", blockNum)
	}

	// no segment crosses the day boundary
	last := segs[len(segs)-1]
	assert.LessOrEqual(t, last.EndSec, float64(ProgrammingStartSec+BlocksPerDay*BlockDurationSec))

	// episode segments respect the source duration
	for _, s := range segs {
		if s.Type == store.SegmentEpisode {
			assert.LessOrEqual(t, s.BaseTimestamp+s.Duration(), 1200+0.01, "video %s", s.VideoID)
		}
	}

	// cursors persisted together with the plan
	cur := st.Cursors()
	require.Contains(t, cur, "05")
	assert.Contains(t, cur["05"], "friends")
}

func TestGenerateDailyLongEpisodeSpansBlocks(t *testing.T) {
	md := store.Metadata{
		"movie_s01e1": {Category: store.CategoryTVEpisode, Series: "cine", Season: 1, Episode: 1,
			DurationSec: 3000, SeriesPath: "series/cine/movie_s01e1"},
		"movie_s01e2": {Category: store.CategoryTVEpisode, Series: "cine", Season: 1, Episode: 2,
			DurationSec: 3000, SeriesPath: "series/cine/movie_s01e2"},
		"ad_soda": {Category: store.CategoryCommercial, DurationSec: 30},
	}
	st, cat := dailyFixture(t, md, "cine")
	rnd := rand.New(rand.NewSource(11))
	now := time.Date(2025, 8, 25, 3, 0, 5, 0, time.Local)

	plan, err := GenerateDaily(context.Background(), st, cat, rnd, now, "")
	require.NoError(t, err)
	segs := plan.Channels["05"]
	require.NoError(t, ValidateChannelSegments(segs))

	// a 3000s episode spans 2 blocks of 1500s each; the continuation
	// block resumes at the per-block offset instead of restarting
	perBlock := 1500.0
	var bases []float64
	for _, s := range segs {
		if s.Type == store.SegmentEpisode && s.VideoID == "movie_s01e1" {
			bases = append(bases, s.BaseTimestamp)
			break
		}
	}
	require.NotEmpty(t, bases)
	seen := map[float64]bool{}
	for _, s := range segs {
		if s.Type == store.SegmentEpisode {
			seen[s.BaseTimestamp] = true
		}
	}
	assert.True(t, seen[0.0])
	assert.True(t, seen[perBlock], "continuation block should resume at %.0fs", perBlock)
	assert.True(t, seen[perBlock/2])
	assert.True(t, seen[perBlock+perBlock/2])
}

func TestGenerateDailyMixedDurationSeries(t *testing.T) {
	// a very-short lead episode asks for 3 per block, but the follow-ups
	// vary in length; episodes that do not fit wait for a later block
	md := store.Metadata{
		"varios_s01e1": {Category: store.CategoryTVEpisode, Series: "varios", Season: 1, Episode: 1,
			DurationSec: 500, SeriesPath: "series/varios/varios_s01e1"},
		"varios_s01e2": {Category: store.CategoryTVEpisode, Series: "varios", Season: 1, Episode: 2,
			DurationSec: 820, SeriesPath: "series/varios/varios_s01e2"},
		"varios_s01e3": {Category: store.CategoryTVEpisode, Series: "varios", Season: 1, Episode: 3,
			DurationSec: 500, SeriesPath: "series/varios/varios_s01e3"},
		"ad_soda": {Category: store.CategoryCommercial, DurationSec: 30},
	}
	st, cat := dailyFixture(t, md, "varios")
	rnd := rand.New(rand.NewSource(11))
	now := time.Date(2025, 8, 25, 3, 0, 5, 0, time.Local)

	plan, err := GenerateDaily(context.Background(), st, cat, rnd, now, "")
	require.NoError(t, err)
	segs := plan.Channels["05"]
	require.NoError(t, ValidateChannelSegments(segs))

	for blockNum := 0; blockNum < BlocksPerDay; blockNum++ {
		blockStart := float64(ProgrammingStartSec + blockNum*BlockDurationSec)
		assert.InDelta(t, 1800, blockSum(segs, blockStart), 0.01, "block %d", blockNum)
	}

	// the first programming block holds e1+e2 (1320s); e3 would push the
	// total past 30 minutes and opens the next block instead
	durations := map[string]float64{"varios_s01e1": 500, "varios_s01e2": 820, "varios_s01e3": 500}
	var firstBlock []string
	for _, s := range segs {
		if s.Type != store.SegmentEpisode {
			continue
		}
		// episodes always air in full, never clipped mid-block
		assert.InDelta(t, durations[s.VideoID], s.Duration(), 0.001, "video %s", s.VideoID)
		if s.StartSec >= float64(ProgrammingStartSec) &&
			s.StartSec < float64(ProgrammingStartSec+BlockDurationSec) {
			firstBlock = append(firstBlock, s.VideoID)
		}
	}
	assert.Equal(t, []string{"varios_s01e1", "varios_s01e2"}, firstBlock)
}

func TestGenerateDailyNoEpisodesAllTestPattern(t *testing.T) {
	md := store.Metadata{"ad_soda": {Category: store.CategoryCommercial, DurationSec: 30}}
	st, cat := dailyFixture(t, md, "ghost_series")
	rnd := rand.New(rand.NewSource(11))

	plan, err := GenerateDaily(context.Background(), st, cat, rnd, time.Now(), "")
	require.NoError(t, err)
	for _, s := range plan.Channels["05"] {
		assert.Equal(t, store.SegmentTestPattern, s.Type)
	}
}

func TestGenerateDailySingleChannelPreservesOthers(t *testing.T) {
	st, cat := dailyFixture(t, mediumSeriesMetadata(3), "friends")
	require.NoError(t, st.SaveChannels(store.Channels{
		"05": {Nombre: "Retro Uno", SeriesFilter: []string{"friends"}},
		"09": {Nombre: "Retro Dos", SeriesFilter: []string{"friends"}},
	}))
	w := st.Weekly()
	w.Channels["09"] = w.Channels["05"]
	require.NoError(t, st.SaveWeekly(w))

	rnd := rand.New(rand.NewSource(11))
	now := time.Date(2025, 8, 25, 3, 0, 5, 0, time.Local)
	_, err := GenerateDaily(context.Background(), st, cat, rnd, now, "")
	require.NoError(t, err)
	before := st.Daily().Channels["09"]
	require.NotEmpty(t, before)

	_, err = GenerateDaily(context.Background(), st, cat, rnd, now, "05")
	require.NoError(t, err)
	after := st.Daily().Channels["09"]
	assert.Equal(t, before, after)
}

func TestBlockSumHelperSanity(t *testing.T) {
	segs := []store.Segment{
		{StartSec: 3600, EndSec: 3700},
		{StartSec: 3700, EndSec: 5400},
	}
	assert.True(t, math.Abs(blockSum(segs, 3600)-1800) < 0.001)
}
