// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/tvargenta/retrotv/pkg/store"
)

// candidate is one video eligible for the fairness pick on a channel.
type candidate struct {
	videoID  string
	video    store.Video
	tagScore int
	tags     map[string]bool
	overlap  int
}

// scoredCandidate carries the fairness sort key alongside the candidate.
type scoredCandidate struct {
	candidate
	playsNorm float64
	lastTS    float64
	jitter    float64
}

func tagSet(tags []string) map[string]bool {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		m[t] = true
	}
	return m
}

// isoToTS parses an ISO 8601 timestamp to epoch seconds, 0 on failure.
func isoToTS(iso string) float64 {
	if iso == "" {
		return 0
	}
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return float64(t.Unix())
	}
	// naive local timestamp without zone
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", iso, time.Local); err == nil {
		return float64(t.Unix())
	}
	return 0
}

// tagScoreFor sums positional priority weights for the tags that appear
// in the channel's ordered priority list.
func tagScoreFor(tags map[string]bool, prioridad []string) int {
	score := 0
	for i, t := range prioridad {
		if tags[t] {
			score += len(prioridad) - i
		}
	}
	return score
}

// fairnessScore computes plays-per-minute-of-runtime and the last-played
// epoch. Short, oft-played videos are penalised in proportion to length.
func fairnessScore(v store.Video, ps store.PlayStats) (playsNorm, lastTS float64) {
	minutes := math.Max(1, math.Ceil(v.DurationSec/60.0))
	playsNorm = float64(ps.Plays) / minutes
	lastTS = isoToTS(ps.LastPlayed)
	return playsNorm, lastTS
}

// ageSeconds returns the seconds since a video was last played, +Inf if never.
func ageSeconds(ps store.PlayStats, now time.Time) float64 {
	last := isoToTS(ps.LastPlayed)
	if last == 0 {
		return math.Inf(1)
	}
	return float64(now.Unix()) - last
}

// buildCandidates assembles the eligible videos for a channel.
// With a series filter only matching TV episodes qualify (defensive,
// broadcast channels are normally answered by the scheduler); otherwise
// the tag intersection with tags_incluidos decides. Videos already shown
// on the channel are excluded. prevTags is the previous pick's tag set,
// used for the diversity overlap.
func buildCandidates(cfg store.Channel, md store.Metadata, shown map[string]bool,
	prevTags map[string]bool) []candidate {

	seriesFilter := map[string]bool{}
	for _, s := range cfg.SeriesFilter {
		seriesFilter[s] = true
	}
	incluidos := tagSet(cfg.TagsIncluidos)
	if len(incluidos) == 0 {
		incluidos = tagSet(cfg.TagsPrioridad)
	}

	var out []candidate
	for videoID, v := range md {
		if shown[videoID] {
			continue
		}
		tags := tagSet(v.Tags)
		if len(seriesFilter) > 0 {
			if v.Category != store.CategoryTVEpisode || !seriesFilter[v.Series] {
				continue
			}
		} else {
			matched := false
			for t := range tags {
				if incluidos[t] {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		overlap := 0
		for t := range tags {
			if prevTags[t] {
				overlap++
			}
		}
		out = append(out, candidate{
			videoID:  videoID,
			video:    v,
			tagScore: tagScoreFor(tags, cfg.TagsPrioridad),
			tags:     tags,
			overlap:  overlap,
		})
	}
	return out
}

// applyGapFilter drops candidates played less than minGap ago. If that
// empties the set the gap is relaxed: the too-fresh candidates are kept,
// ordered oldest first, rather than returning nothing.
func applyGapFilter(cands []candidate, plays store.Plays, minGap time.Duration,
	now time.Time) []candidate {

	var ok, fresh []candidate
	for _, c := range cands {
		if ageSeconds(plays[c.videoID], now) >= minGap.Seconds() {
			ok = append(ok, c)
		} else {
			fresh = append(fresh, c)
		}
	}
	if len(ok) > 0 || len(fresh) == 0 {
		return ok
	}
	sort.Slice(fresh, func(i, j int) bool {
		return ageSeconds(plays[fresh[i].videoID], now) > ageSeconds(plays[fresh[j].videoID], now)
	})
	return fresh
}

// pickBest sorts by the fairness key (plays_norm, last_ts, overlap,
// -tag_score, jitter) ascending and returns the minimum.
func pickBest(cands []candidate, plays store.Plays) (scoredCandidate, bool) {
	if len(cands) == 0 {
		return scoredCandidate{}, false
	}
	scored := make([]scoredCandidate, 0, len(cands))
	for _, c := range cands {
		pn, lt := fairnessScore(c.video, plays[c.videoID])
		scored = append(scored, scoredCandidate{
			candidate: c,
			playsNorm: pn,
			lastTS:    lt,
			jitter:    rand.Float64() * 0.01,
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.playsNorm != b.playsNorm {
			return a.playsNorm < b.playsNorm
		}
		if a.lastTS != b.lastTS {
			return a.lastTS < b.lastTS
		}
		if a.overlap != b.overlap {
			return a.overlap < b.overlap
		}
		if a.tagScore != b.tagScore {
			return a.tagScore > b.tagScore
		}
		return a.jitter < b.jitter
	})
	return scored[0], true
}

// minGapFor resolves the channel's anti-repeat window, default 60 minutes.
func minGapFor(cfg store.Channel) time.Duration {
	m := cfg.MinGapMinutes
	if m <= 0 {
		if m < 0 {
			m = 0
		} else {
			m = 60
		}
	}
	return time.Duration(m) * time.Minute
}
