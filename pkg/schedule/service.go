// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tvargenta/retrotv/pkg/catalog"
	"github.com/tvargenta/retrotv/pkg/store"
)

const (
	checkInterval = 5 * time.Second

	weeklyHour   = 2
	weeklyMinute = 30
	dailyHour    = 3
)

var planGenerations = func() *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "plan_generations_total",
			Help:        "Number of schedule plan generations, partitioned by kind.",
			ConstLabels: prometheus.Labels{"service": "retrotv"},
		},
		[]string{"kind"},
	)
	prometheus.MustRegister(cv)
	return cv
}()

// Service owns the planners, the in-memory daily-plan snapshot, and the
// background regeneration loop.
type Service struct {
	st  *store.Store
	cat *catalog.Catalog

	planMu sync.Mutex // serializes generations and guards rnd
	rnd    *rand.Rand

	cacheMu sync.RWMutex
	daily   *store.DailySchedule // immutable per generation
}

// NewService creates the scheduler service. seed feeds the planner PRNG;
// pass 0 for a time-based seed.
func NewService(st *store.Store, cat *catalog.Catalog, seed int64) *Service {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Service{
		st:  st,
		cat: cat,
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// Initialize runs the startup sequence: ensure system videos, generate
// missing plans, warm the cache.
func (s *Service) Initialize(ctx context.Context) {
	s.cat.EnsureSystemVideos(ctx)
	s.CheckAndGenerate(ctx, time.Now())
	s.WarmCache(ctx)
}

// Run executes the background loop: a 5-second wake that fires the
// weekly and daily regeneration checks. Errors are logged; a failed
// generation does not kill the loop.
func (s *Service) Run(ctx context.Context) {
	slog.Info("scheduler loop started", "interval", checkInterval)
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler loop stopped")
			return
		case <-ticker.C:
			s.CheckAndGenerate(ctx, time.Now())
		}
	}
}

// CheckAndGenerate regenerates whichever plans are stale at now.
func (s *Service) CheckAndGenerate(ctx context.Context, now time.Time) {
	meta := s.st.ScheduleMeta()
	updated := false

	if needsWeeklyRegeneration(meta, now, s.st.HasWeekly()) {
		if err := s.RegenerateWeekly(now, ""); err != nil {
			slog.Error("weekly generation failed", "err", err)
		} else {
			meta.WeeklyGenerated = now.Format(time.RFC3339)
			updated = true
		}
	}
	if needsDailyRegeneration(meta, now, s.st.HasDaily()) {
		if err := s.RegenerateDaily(ctx, now, ""); err != nil {
			slog.Error("daily generation failed", "err", err)
		} else {
			meta.DailyGenerated = now.Format(time.RFC3339)
			updated = true
		}
	}
	if updated {
		if err := s.st.SaveScheduleMeta(meta); err != nil {
			slog.Error("save schedule meta", "err", err)
		}
	}
}

// RegenerateWeekly rebuilds the weekly plan, for one channel or all.
func (s *Service) RegenerateWeekly(now time.Time, onlyChannel string) error {
	s.planMu.Lock()
	defer s.planMu.Unlock()
	_, err := GenerateWeekly(s.st, s.cat, s.rnd, now, onlyChannel)
	if err == nil {
		planGenerations.WithLabelValues("weekly").Inc()
	}
	return err
}

// RegenerateDaily rebuilds the daily plan and swaps the cache snapshot.
func (s *Service) RegenerateDaily(ctx context.Context, now time.Time, onlyChannel string) error {
	s.planMu.Lock()
	defer s.planMu.Unlock()
	plan, err := GenerateDaily(ctx, s.st, s.cat, s.rnd, now, onlyChannel)
	if err != nil {
		return err
	}
	planGenerations.WithLabelValues("daily").Inc()
	s.cacheMu.Lock()
	s.daily = &plan
	s.cacheMu.Unlock()
	return nil
}

// WarmCache loads the stored daily plan into memory. A plan that
// violates the contiguity invariant is discarded and regenerated; a
// broken plan must never reach the lookup path.
func (s *Service) WarmCache(ctx context.Context) {
	if !s.st.HasDaily() {
		return
	}
	plan := s.st.Daily()
	for cid, segs := range plan.Channels {
		if err := ValidateChannelSegments(segs); err != nil {
			slog.Warn("stored daily plan invalid, regenerating", "channel", cid, "err", err)
			if err := s.RegenerateDaily(ctx, time.Now(), ""); err != nil {
				slog.Error("daily regeneration after invalid plan", "err", err)
			}
			return
		}
	}
	s.cacheMu.Lock()
	s.daily = &plan
	s.cacheMu.Unlock()
	slog.Info("daily schedule cache warmed", "channels", len(plan.Channels))
}

// Snapshot returns the current in-memory daily plan.
func (s *Service) Snapshot() (store.DailySchedule, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	if s.daily == nil {
		return store.DailySchedule{}, false
	}
	return *s.daily, true
}

// Lookup resolves what a broadcast channel should play at now, falling
// back to the test pattern on a cold cache.
func (s *Service) Lookup(channelID string, now time.Time) Scheduled {
	plan, ok := s.Snapshot()
	if !ok {
		return TestPatternFallback()
	}
	return LookupAt(plan, channelID, now)
}

// ValidateChannelSegments checks the plan invariants for one channel:
// segments sorted and contiguous, first segment a test pattern covering
// [0, 3600), coverage of at least 23 hours.
func ValidateChannelSegments(segs []store.Segment) error {
	if len(segs) == 0 {
		return fmt.Errorf("no segments")
	}
	first := segs[0]
	if first.Type != store.SegmentTestPattern || first.StartSec != 0 || first.EndSec != ProgrammingStartSec {
		return fmt.Errorf("first segment is not the 03:00 test pattern hour")
	}
	const epsilon = 0.01
	for i := 1; i < len(segs); i++ {
		gap := segs[i].StartSec - segs[i-1].EndSec
		if gap > epsilon || gap < -epsilon {
			return fmt.Errorf("segments %d and %d not contiguous (gap %.3fs)", i-1, i, gap)
		}
	}
	covered := segs[len(segs)-1].EndSec
	if covered < 23*3600 {
		return fmt.Errorf("coverage %.0fs is below 23h", covered)
	}
	return nil
}

func needsWeeklyRegeneration(meta store.ScheduleMeta, now time.Time, fileExists bool) bool {
	if !fileExists {
		return true
	}
	if meta.WeeklyGenerated == "" {
		return true
	}
	last, err := time.ParseInLocation(time.RFC3339, meta.WeeklyGenerated, now.Location())
	if err != nil {
		return true
	}
	// a plan generated before the most recent Sunday midnight describes
	// the previous week, whatever today's weekday is
	if last.Before(WeekStart(now)) {
		return true
	}
	// scheduled refresh happens Sunday after 02:30
	if now.Weekday() != time.Sunday {
		return false
	}
	if now.Hour() < weeklyHour || (now.Hour() == weeklyHour && now.Minute() < weeklyMinute) {
		return false
	}
	if sameDay(last, now) && last.Hour() >= weeklyHour {
		return false // already refreshed this Sunday
	}
	return true
}

func needsDailyRegeneration(meta store.ScheduleMeta, now time.Time, fileExists bool) bool {
	if !fileExists {
		return true
	}
	if meta.DailyGenerated == "" {
		return true
	}
	last, err := time.ParseInLocation(time.RFC3339, meta.DailyGenerated, now.Location())
	if err != nil {
		return true
	}
	if now.Hour() < dailyHour {
		// before 03:00 yesterday's plan is still the current one
		yesterday := now.AddDate(0, 0, -1)
		return !(sameDay(last, yesterday) && last.Hour() >= dailyHour)
	}
	return !(sameDay(last, now) && last.Hour() >= dailyHour)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
