// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/tvargenta/retrotv/pkg/catalog"
	"github.com/tvargenta/retrotv/pkg/store"
)

// Daily plan layout, in seconds since 03:00 of the schedule date.
const (
	BlockDurationSec       = 30 * 60
	ProgrammingStartSec    = 3600 // 04:00
	BlocksPerDay           = 46   // 04:00 through 03:00 next day
	commercialBreaksPerBlk = 3
)

// Episode duration thresholds in seconds.
const (
	veryShortEpisodeMax = 10 * 60
	shortEpisodeMax     = 15 * 60
	mediumEpisodeMax    = 28 * 60
	longEpisodeMax      = 58 * 60
)

// blockStructure maps an upcoming episode's duration to the number of
// episodes per block and the number of blocks spanned.
func blockStructure(durationSec float64) (episodesPerBlock, blocks int) {
	switch {
	case durationSec < veryShortEpisodeMax:
		return 3, 1
	case durationSec < shortEpisodeMax:
		return 2, 1
	case durationSec < mediumEpisodeMax:
		return 1, 1
	case durationSec < longEpisodeMax:
		return 1, 2
	default:
		return 1, int(math.Ceil(durationSec / BlockDurationSec))
	}
}

// blockEpisode is one episode slice placed into a block: Base is the
// seek offset inside the source at which the slice starts.
type blockEpisode struct {
	videoID    string
	seriesPath string
	duration   float64
	base       float64
}

// buildCommercialBreak fills budget seconds starting at startSec from a
// per-break shuffled copy of the pool, looping when exhausted and
// clipping the final spot to the budget. An empty pool yields a single
// sponsors placeholder covering the whole budget.
func buildCommercialBreak(rnd *rand.Rand, startSec, budget float64,
	pool []catalog.Commercial) []store.Segment {
	if budget <= 0 {
		return nil
	}
	if len(pool) == 0 {
		return []store.Segment{{
			StartSec: startSec,
			EndSec:   startSec + budget,
			Type:     store.SegmentSponsorsPlaceholder,
			VideoID:  store.SponsorsPlaceholderID,
		}}
	}
	shuffled := make([]catalog.Commercial, len(pool))
	copy(shuffled, pool)
	rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	var segs []store.Segment
	cur := startSec
	remaining := budget
	idx := 0
	for remaining > 0 {
		if idx >= len(shuffled) {
			rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			idx = 0
		}
		ad := shuffled[idx]
		length := math.Min(ad.Duration, remaining)
		segs = append(segs, store.Segment{
			StartSec: cur,
			EndSec:   cur + length,
			Type:     store.SegmentCommercial,
			VideoID:  ad.VideoID,
		})
		cur += length
		remaining -= length
		idx++
	}
	return segs
}

// buildSingleEpisodeBlock lays out one 30-minute block around a single
// episode slice: [break | half | break | half | break]. The three breaks
// share the commercial budget equally; the closing break absorbs any
// remainder so the block sums to exactly 30 minutes.
func buildSingleEpisodeBlock(rnd *rand.Rand, blockStart float64, ep blockEpisode,
	pool []catalog.Commercial) []store.Segment {
	if ep.duration > BlockDurationSec {
		ep.duration = BlockDurationSec
	}
	budget := BlockDurationSec - ep.duration
	if budget < 0 {
		budget = 0
	}
	perBreak := budget / commercialBreaksPerBlk
	half := ep.duration / 2

	var segs []store.Segment
	cur := blockStart

	add := func(more []store.Segment) {
		segs = append(segs, more...)
		if n := len(segs); n > 0 {
			cur = segs[n-1].EndSec
		}
	}

	add(buildCommercialBreak(rnd, cur, perBreak, pool))
	segs = append(segs, store.Segment{
		StartSec: cur, EndSec: cur + half,
		Type: store.SegmentEpisode, VideoID: ep.videoID,
		SeriesPath: ep.seriesPath, BaseTimestamp: ep.base,
	})
	cur += half
	add(buildCommercialBreak(rnd, cur, perBreak, pool))
	segs = append(segs, store.Segment{
		StartSec: cur, EndSec: cur + half,
		Type: store.SegmentEpisode, VideoID: ep.videoID,
		SeriesPath: ep.seriesPath, BaseTimestamp: ep.base + half,
	})
	cur += half
	add(buildCommercialBreak(rnd, cur, blockStart+BlockDurationSec-cur, pool))
	return segs
}

// buildMultiEpisodeBlock lays out [break | ep]xN for short and very-short
// episodes, closing with a break to the end of the block. Episode slices
// are clamped to the block end so the block never exceeds 30 minutes,
// whatever durations the caller collected.
func buildMultiEpisodeBlock(rnd *rand.Rand, blockStart float64, eps []blockEpisode,
	pool []catalog.Commercial) []store.Segment {
	blockEnd := blockStart + BlockDurationSec
	total := 0.0
	for _, ep := range eps {
		total += ep.duration
	}
	budget := BlockDurationSec - total
	if budget < 0 {
		budget = 0
	}
	perBreak := budget / commercialBreaksPerBlk

	var segs []store.Segment
	cur := blockStart
	add := func(more []store.Segment) {
		segs = append(segs, more...)
		if n := len(segs); n > 0 {
			cur = segs[n-1].EndSec
		}
	}
	for _, ep := range eps {
		add(buildCommercialBreak(rnd, cur, perBreak, pool))
		length := math.Min(ep.duration, blockEnd-cur)
		if length <= 0 {
			break
		}
		segs = append(segs, store.Segment{
			StartSec: cur, EndSec: cur + length,
			Type: store.SegmentEpisode, VideoID: ep.videoID,
			SeriesPath: ep.seriesPath, BaseTimestamp: 0,
		})
		cur += length
	}
	add(buildCommercialBreak(rnd, cur, blockEnd-cur, pool))
	return segs
}

func testPatternSegment(start, end float64) store.Segment {
	return store.Segment{
		StartSec: start,
		EndSec:   end,
		Type:     store.SegmentTestPattern,
		VideoID:  store.TestPatternID,
	}
}

// GenerateDaily expands the weekly plan into the day's segment list for
// every broadcast channel. Cursor advances happen in memory and are
// persisted together with the plan before returning. With onlyChannel
// set, the other channels' segments are preserved from the stored plan.
func GenerateDaily(ctx context.Context, st *store.Store, cat *catalog.Catalog,
	rnd *rand.Rand, now time.Time, onlyChannel string) (store.DailySchedule, error) {
	channels := st.Channels()
	weekly := st.Weekly()
	md := st.Videos()
	cursors := NewCursors(st.Cursors())
	pool := cat.Commercials(md)

	scheduleDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	validFrom := scheduleDate.Add(4 * time.Hour)
	validUntil := scheduleDate.AddDate(0, 0, 1).Add(3 * time.Hour)

	var schedule store.DailySchedule
	toProcess := channels
	if onlyChannel != "" {
		schedule = st.Daily()
		toProcess = store.Channels{onlyChannel: channels[onlyChannel]}
	}
	if schedule.Channels == nil {
		schedule.Channels = map[string][]store.Segment{}
	}
	schedule.GeneratedAt = now.Format(time.RFC3339)
	schedule.ScheduleDate = scheduleDate.Format("2006-01-02")
	schedule.ValidFrom = validFrom.Format(time.RFC3339)
	schedule.ValidUntil = validUntil.Format(time.RFC3339)

	// resolve a duration, probing through the catalog when unknown
	episodeDuration := func(ep catalog.Episode) float64 {
		if ep.Duration > 0 {
			return ep.Duration
		}
		return cat.Duration(ctx, ep.VideoID)
	}

	for cid, cfg := range toProcess {
		if len(cfg.SeriesFilter) == 0 {
			continue
		}
		weeklyChannel, ok := weekly.Channels[cid]
		if !ok {
			slog.Warn("no weekly schedule for channel", "channel", cid)
			continue
		}

		segs := []store.Segment{testPatternSegment(0, ProgrammingStartSec)}
		// continuation blocks of a long episode are pre-claimed so the
		// cursor advances once per episode
		claimed := map[int]bool{}

		for blockNum := 0; blockNum < BlocksPerDay; blockNum++ {
			if claimed[blockNum] {
				continue
			}
			blockStart := float64(ProgrammingStartSec + blockNum*BlockDurationSec)

			secondsFromMidnight := 3*3600 + int(blockStart)
			blockHour := (secondsFromMidnight / 3600) % 24
			blockMinute := (secondsFromMidnight % 3600) / 60
			period, slotIdx := slotIndexForTime(blockHour, blockMinute)

			seriesName := store.TestPatternID
			if slots := weeklyChannel.TimeSlots[period]; slotIdx < len(slots) {
				seriesName = slots[slotIdx]
			}
			if seriesName == store.TestPatternID {
				segs = append(segs, testPatternSegment(blockStart, blockStart+BlockDurationSec))
				continue
			}

			eps := cat.EpisodesOf(seriesName, md)
			nextEp, ok := cursors.Peek(cid, seriesName, 0, eps)
			if !ok {
				segs = append(segs, testPatternSegment(blockStart, blockStart+BlockDurationSec))
				continue
			}
			dur := episodeDuration(nextEp)
			episodesPerBlock, blocks := blockStructure(dur)

			if blocks > 1 {
				ep, _ := cursors.Advance(cid, seriesName, eps, now)
				perBlock := dur / float64(blocks)
				for span := 0; span < blocks; span++ {
					spanBlock := blockNum + span
					if spanBlock >= BlocksPerDay {
						break // never cross the day boundary
					}
					claimed[spanBlock] = true
					spanStart := float64(ProgrammingStartSec + spanBlock*BlockDurationSec)
					segs = append(segs, buildSingleEpisodeBlock(rnd, spanStart, blockEpisode{
						videoID:    ep.VideoID,
						seriesPath: ep.SeriesPath,
						duration:   perBlock,
						base:       float64(span) * perBlock,
					}, pool)...)
				}
				continue
			}

			// peek the follow-up episodes before advancing: one that
			// does not fit the block stays queued for a later block
			var blockEps []blockEpisode
			used := 0.0
			for i := 0; i < episodesPerBlock; i++ {
				ep, ok := cursors.Peek(cid, seriesName, i, eps)
				if !ok {
					break
				}
				d := episodeDuration(ep)
				if i > 0 && used+d > BlockDurationSec {
					break
				}
				blockEps = append(blockEps, blockEpisode{
					videoID:    ep.VideoID,
					seriesPath: ep.SeriesPath,
					duration:   d,
				})
				used += d
			}
			for range blockEps {
				cursors.Advance(cid, seriesName, eps, now)
			}
			switch {
			case len(blockEps) == 0:
				segs = append(segs, testPatternSegment(blockStart, blockStart+BlockDurationSec))
			case len(blockEps) == 1:
				segs = append(segs, buildSingleEpisodeBlock(rnd, blockStart, blockEps[0], pool)...)
			default:
				segs = append(segs, buildMultiEpisodeBlock(rnd, blockStart, blockEps, pool)...)
			}
		}
		schedule.Channels[cid] = segs
	}

	// a plan that violates the block invariants must never be persisted
	// or reach the lookup path
	for cid, segs := range schedule.Channels {
		if err := ValidateChannelSegments(segs); err != nil {
			return store.DailySchedule{}, fmt.Errorf("generated plan for channel %q: %w", cid, err)
		}
	}

	// cursors and plan persist together
	if err := st.SaveCursors(cursors.Map()); err != nil {
		return schedule, err
	}
	if err := st.SaveDaily(schedule); err != nil {
		return schedule, err
	}
	slog.Info("daily schedule generated", "channels", len(schedule.Channels), "date", schedule.ScheduleDate)
	return schedule, nil
}
