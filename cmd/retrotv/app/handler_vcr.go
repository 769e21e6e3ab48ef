// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/tvargenta/retrotv/pkg/store"
)

const vcrPersistInterval = 30 * time.Second

// vcrTracker mirrors vcr_state.json in memory and advances the tape
// position at 1 Hz. The external NFC subsystem owns tape insertion and
// rewind; the tracker reloads when it sees a foreign write and persists
// its own position updates every 30 seconds.
type vcrTracker struct {
	st *store.Store

	mu        sync.Mutex
	state     store.VCRState
	lastWrite time.Time // mtime of our own last persist
	dirty     bool
}

func newVCRTracker(st *store.Store) *vcrTracker {
	return &vcrTracker{st: st, state: st.VCRState()}
}

// State returns a snapshot of the current VCR state.
func (v *vcrTracker) State() store.VCRState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// reloadIfForeign picks up writes made by the NFC subsystem.
func (v *vcrTracker) reloadIfForeign() {
	fi, err := os.Stat(v.st.Path(store.VCRStateFile))
	if err != nil {
		return
	}
	if fi.ModTime().After(v.lastWrite) {
		v.state = v.st.VCRState()
		v.dirty = false
	}
}

// tick advances the position one second for an inserted, running tape.
func (v *vcrTracker) tick() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reloadIfForeign()

	st := &v.state
	if st.TapeInserted && !st.IsPaused && !st.IsRewinding {
		st.PositionSec++
		if st.DurationSec > 0 && st.PositionSec > st.DurationSec {
			st.PositionSec = st.DurationSec
		}
		v.dirty = true
	}
}

func (v *vcrTracker) persist(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.dirty {
		return
	}
	v.state.UpdatedAt = now.UTC().Format(time.RFC3339)
	if err := v.st.SaveVCRState(v.state); err != nil {
		slog.Error("persist VCR state", "err", err)
		return
	}
	v.lastWrite = now
	v.dirty = false
}

// run is the 1 Hz position ticker.
func (v *vcrTracker) run(ctx context.Context) {
	tick := time.NewTicker(time.Second)
	persist := time.NewTicker(vcrPersistInterval)
	defer tick.Stop()
	defer persist.Stop()
	for {
		select {
		case <-ctx.Done():
			v.persist(time.Now())
			return
		case <-tick.C:
			v.tick()
		case now := <-persist.C:
			v.persist(now)
		}
	}
}

// vcrStateHandlerFunc serves the VCR state for the player (Channel 03).
func (s *Server) vcrStateHandlerFunc(w http.ResponseWriter, r *http.Request) {
	state := s.vcr.State()
	s.jsonResponse(w, map[string]any{
		"ok":              true,
		"reader_attached": state.ReaderAttached,
		"tape_inserted":   state.TapeInserted,
		"tape_uid":        state.TapeUID,
		"video_id":        state.VideoID,
		"title":           state.Title,
		"duration_sec":    state.DurationSec,
		"position_sec":    state.PositionSec,
		"is_paused":       state.IsPaused,
		"is_rewinding":    state.IsRewinding,
	}, http.StatusOK)
}
