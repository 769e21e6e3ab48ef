// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"github.com/tvargenta/retrotv/pkg/catalog"
	"github.com/tvargenta/retrotv/pkg/schedule"
	"github.com/tvargenta/retrotv/pkg/store"
)

type seriesEpisode struct {
	VideoID  string  `json:"video_id"`
	Title    string  `json:"title"`
	Season   int     `json:"season"`
	Episode  int     `json:"episode"`
	Duration float64 `json:"duration"`
}

type seriesSeason struct {
	Season   int             `json:"season"`
	Episodes []seriesEpisode `json:"episodes"`
}

type seriesInfo struct {
	FolderName   string         `json:"folder_name"`
	DisplayName  string         `json:"display_name"`
	EpisodeCount int            `json:"episode_count"`
	TimeOfDay    string         `json:"time_of_day"`
	Created      string         `json:"created"`
	Seasons      []seriesSeason `json:"seasons"`
}

// seriesHandlerFunc lists all series with their episodes grouped by season.
func (s *Server) seriesHandlerFunc(w http.ResponseWriter, r *http.Request) {
	seriesData := s.store.Series()
	md := s.store.Videos()

	names := make([]string, 0, len(seriesData))
	for name := range seriesData {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]seriesInfo, 0, len(names))
	for _, name := range names {
		info := seriesData[name]

		bySeason := map[int][]seriesEpisode{}
		count := 0
		for videoID, v := range md {
			if v.Category != store.CategoryTVEpisode || v.Series != name {
				continue
			}
			season := v.Season
			if season == 0 {
				season = 1
			}
			bySeason[season] = append(bySeason[season], seriesEpisode{
				VideoID:  videoID,
				Title:    videoTitle(videoID, v),
				Season:   season,
				Episode:  v.Episode,
				Duration: v.DurationSec,
			})
			count++
		}

		seasonNums := make([]int, 0, len(bySeason))
		for n := range bySeason {
			seasonNums = append(seasonNums, n)
		}
		sort.Ints(seasonNums)

		seasons := make([]seriesSeason, 0, len(seasonNums))
		for _, n := range seasonNums {
			eps := bySeason[n]
			sort.Slice(eps, func(i, j int) bool {
				if eps[i].Episode != eps[j].Episode {
					return eps[i].Episode < eps[j].Episode
				}
				return eps[i].Title < eps[j].Title
			})
			seasons = append(seasons, seriesSeason{Season: n, Episodes: eps})
		}

		tod := info.TimeOfDay
		if tod == "" {
			tod = schedule.AnyTime
		}
		result = append(result, seriesInfo{
			FolderName:   name,
			DisplayName:  catalog.DisplayName(name),
			EpisodeCount: count,
			TimeOfDay:    tod,
			Created:      info.Created,
			Seasons:      seasons,
		})
	}

	s.jsonResponse(w, map[string]any{"ok": true, "series": result}, http.StatusOK)
}

// seriesTimeOfDayHandlerFunc updates the time-of-day preference for a series.
func (s *Server) seriesTimeOfDayHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SeriesName string `json:"series_name"`
		TimeOfDay  string `json:"time_of_day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil ||
		body.SeriesName == "" || body.TimeOfDay == "" {
		s.errorResponse(w, "missing series_name or time_of_day", "", http.StatusBadRequest)
		return
	}
	if !schedule.ValidTimeOfDay(body.TimeOfDay) {
		s.errorResponse(w, "invalid time_of_day", body.TimeOfDay, http.StatusBadRequest)
		return
	}

	seriesData := s.store.Series()
	info, ok := seriesData[body.SeriesName]
	if !ok {
		s.errorResponse(w, "series not found", body.SeriesName, http.StatusNotFound)
		return
	}
	info.TimeOfDay = body.TimeOfDay
	seriesData[body.SeriesName] = info
	if err := s.store.SaveSeries(seriesData); err != nil {
		s.errorResponse(w, "could not persist series", err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("series time_of_day updated", "series", body.SeriesName, "time_of_day", body.TimeOfDay)
	s.jsonResponse(w, map[string]any{
		"ok":          true,
		"series_name": body.SeriesName,
		"time_of_day": body.TimeOfDay,
	}, http.StatusOK)
}
