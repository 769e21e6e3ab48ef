// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package schedule

import (
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/tvargenta/retrotv/pkg/catalog"
	"github.com/tvargenta/retrotv/pkg/store"
)

// backToBackWeights gives the run-length distribution for consecutive
// slots of the same series.
var backToBackWeights = map[int]int{
	2: 80,
	3: 10,
	4: 5,
	5: 3,
	6: 2,
}

// backToBackCount samples a run length from the weighted distribution.
func backToBackCount(rnd *rand.Rand) int {
	total := 0
	counts := make([]int, 0, len(backToBackWeights))
	for count, weight := range backToBackWeights {
		total += weight
		counts = append(counts, count)
	}
	sort.Ints(counts)
	roll := rnd.Intn(total) + 1
	cumulative := 0
	for _, count := range counts {
		cumulative += backToBackWeights[count]
		if roll <= cumulative {
			return count
		}
	}
	return 2
}

// WeekStart returns the date of the most recent Sunday relative to now.
func WeekStart(now time.Time) time.Time {
	daysSinceSunday := int(now.Weekday()) // Sunday = 0
	d := now.AddDate(0, 0, -daysSinceSunday)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// eligibleSeries returns the series of a channel filter that may play in
// a period: matching time_of_day or "any", and at least one episode.
func eligibleSeries(period string, filter []string, series store.SeriesMap,
	md store.Metadata, cat *catalog.Catalog) []string {
	var eligible []string
	for _, name := range filter {
		tod := series[name].TimeOfDay
		if tod == "" {
			tod = AnyTime
		}
		if tod != AnyTime && tod != period {
			continue
		}
		if len(cat.EpisodesOf(name, md)) == 0 {
			continue
		}
		eligible = append(eligible, name)
	}
	return eligible
}

// fillSlots fills a period's slot array: pick a series uniformly at
// random, repeat it for a sampled back-to-back run, truncate to the
// fixed slot count.
func fillSlots(rnd *rand.Rand, eligible []string, slotCount int) []string {
	slots := make([]string, 0, slotCount)
	for len(slots) < slotCount {
		series := eligible[rnd.Intn(len(eligible))]
		run := backToBackCount(rnd)
		for i := 0; i < run && len(slots) < slotCount; i++ {
			slots = append(slots, series)
		}
	}
	return slots
}

// GenerateWeekly builds the weekly plan: one slot array per time-of-day
// period per broadcast channel. With onlyChannel set, the other channels'
// assignments are preserved from the stored plan. Cursors are not touched.
func GenerateWeekly(st *store.Store, cat *catalog.Catalog, rnd *rand.Rand,
	now time.Time, onlyChannel string) (store.WeeklySchedule, error) {
	channels := st.Channels()
	seriesData := st.Series()
	md := st.Videos()

	weekStart := WeekStart(now)

	var schedule store.WeeklySchedule
	toProcess := channels
	if onlyChannel != "" {
		schedule = st.Weekly()
		toProcess = store.Channels{onlyChannel: channels[onlyChannel]}
	}
	if schedule.Channels == nil {
		schedule.Channels = map[string]store.WeeklyChannel{}
	}
	schedule.GeneratedAt = now.Format(time.RFC3339)
	schedule.WeekStart = weekStart.Format("2006-01-02")

	for cid, cfg := range toProcess {
		if len(cfg.SeriesFilter) == 0 {
			continue // library channel
		}
		wc := store.WeeklyChannel{TimeSlots: map[string][]string{}}
		for _, period := range TimeOfDayOrder {
			slotCount := TimeOfDaySlots[period]
			eligible := eligibleSeries(period, cfg.SeriesFilter, seriesData, md, cat)
			if len(eligible) == 0 {
				slog.Warn("no eligible series for period", "channel", cid, "period", period)
				slots := make([]string, slotCount)
				for i := range slots {
					slots[i] = store.TestPatternID
				}
				wc.TimeSlots[period] = slots
				continue
			}
			wc.TimeSlots[period] = fillSlots(rnd, eligible, slotCount)
		}
		schedule.Channels[cid] = wc
	}

	if err := st.SaveWeekly(schedule); err != nil {
		return schedule, err
	}
	slog.Info("weekly schedule generated", "channels", len(schedule.Channels), "week_start", schedule.WeekStart)
	return schedule, nil
}
