// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package catalog provides read-through views over the metadata store:
// episodes of a series, the commercial pool, system videos, and media
// file locations.
package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tvargenta/retrotv/pkg/store"
)

const (
	// DefaultCommercialSec is assumed when a commercial has no known duration.
	DefaultCommercialSec = 30.0
	// DefaultEpisodeSec is the fallback duration bucket when a probe fails.
	DefaultEpisodeSec = 1800.0

	probeTimeout = 30 * time.Second
)

// Episode is one entry in a chronological series listing.
type Episode struct {
	VideoID    string
	Season     int
	Episode    int
	Duration   float64
	SeriesPath string
}

// Commercial is one entry of the ad pool.
type Commercial struct {
	VideoID  string
	Duration float64
}

// Catalog exposes catalog views over a Store and resolves media files
// under videoDir.
type Catalog struct {
	store    *store.Store
	videoDir string
	probe    ProbeFunc
}

// New creates a Catalog. probe may be nil, in which case ffprobe is used.
func New(st *store.Store, videoDir string, probe ProbeFunc) *Catalog {
	if probe == nil {
		probe = ProbeDuration
	}
	return &Catalog{store: st, videoDir: videoDir, probe: probe}
}

// VideoDir returns the root of the served video tree.
func (c *Catalog) VideoDir() string {
	return c.videoDir
}

// EpisodesOf returns the episodes of a series sorted by (season, episode).
// Missing season or episode numbers default to 1.
func (c *Catalog) EpisodesOf(series string, md store.Metadata) []Episode {
	if md == nil {
		md = c.store.Videos()
	}
	var eps []Episode
	for id, v := range md {
		if v.Category != store.CategoryTVEpisode || v.Series != series {
			continue
		}
		season, episode := v.Season, v.Episode
		if season == 0 {
			season = 1
		}
		if episode == 0 {
			episode = 1
		}
		eps = append(eps, Episode{
			VideoID:    id,
			Season:     season,
			Episode:    episode,
			Duration:   v.DurationSec,
			SeriesPath: v.SeriesPath,
		})
	}
	sort.Slice(eps, func(i, j int) bool {
		if eps[i].Season != eps[j].Season {
			return eps[i].Season < eps[j].Season
		}
		if eps[i].Episode != eps[j].Episode {
			return eps[i].Episode < eps[j].Episode
		}
		return eps[i].VideoID < eps[j].VideoID
	})
	return eps
}

// Commercials returns the ad pool. Unknown durations default to 30s.
func (c *Catalog) Commercials(md store.Metadata) []Commercial {
	if md == nil {
		md = c.store.Videos()
	}
	var ads []Commercial
	for id, v := range md {
		if v.Category != store.CategoryCommercial {
			continue
		}
		dur := v.DurationSec
		if dur <= 0 {
			dur = DefaultCommercialSec
		}
		ads = append(ads, Commercial{VideoID: id, Duration: dur})
	}
	sort.Slice(ads, func(i, j int) bool { return ads[i].VideoID < ads[j].VideoID })
	return ads
}

// FilePath resolves the on-disk media file of a video record.
func (c *Catalog) FilePath(id string, v store.Video) string {
	switch {
	case v.SeriesPath != "":
		return filepath.Join(c.videoDir, filepath.FromSlash(v.SeriesPath)+".mp4")
	case v.CommercialsPath != "":
		return filepath.Join(c.videoDir, filepath.FromSlash(v.CommercialsPath)+".mp4")
	default:
		return filepath.Join(c.videoDir, id+".mp4")
	}
}

// Duration returns the duration of a video, probing the media file and
// writing the result back when the metadata has no value. A failed probe
// yields the default 30-minute bucket without touching the store.
func (c *Catalog) Duration(ctx context.Context, id string) float64 {
	md := c.store.Videos()
	v, ok := md[id]
	if !ok {
		return DefaultEpisodeSec
	}
	if v.DurationSec > 0 {
		return v.DurationSec
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	dur, err := c.probe(probeCtx, c.FilePath(id, v))
	if err != nil || dur <= 0 {
		slog.Warn("duration probe failed, using default bucket", "video", id, "err", err)
		return DefaultEpisodeSec
	}
	if err := c.store.UpdateVideos(func(m store.Metadata) {
		rec := m[id]
		rec.DurationSec = dur
		m[id] = rec
	}); err != nil {
		slog.Warn("duration write-back failed", "video", id, "err", err)
	}
	return dur
}

// DisplayName converts a series folder name to its display name.
func DisplayName(folder string) string {
	return strings.ReplaceAll(folder, "_", " ")
}
