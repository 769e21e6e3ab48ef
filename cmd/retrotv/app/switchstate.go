// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"sync"
	"time"
)

// Anti-bounce windows for library channels.
const (
	pendingTTL   = 12 * time.Second
	stickyWindow = 1 * time.Second
	nextCooldown = 500 * time.Millisecond
)

type pick struct {
	videoID string
	ts      time.Time
}

// switchState holds all mutable channel-switcher state behind one mutex:
// pending picks, sticky choices, cooldown stamps, per-channel shown
// lists, and the one-shot force-next flag.
type switchState struct {
	mu         sync.Mutex
	pending    map[string]pick
	lastChoice map[string]pick
	lastCall   map[string]time.Time
	shown      map[string][]string
	forceNext  bool

	now func() time.Time
}

func newSwitchState() *switchState {
	return &switchState{
		pending:    make(map[string]pick),
		lastChoice: make(map[string]pick),
		lastCall:   make(map[string]time.Time),
		shown:      make(map[string][]string),
		now:        time.Now,
	}
}

// RaiseForceNext arms the one-shot skip signal. The next call on any
// channel bypasses all anti-bounce windows.
func (sw *switchState) RaiseForceNext() {
	sw.mu.Lock()
	sw.forceNext = true
	sw.mu.Unlock()
}

// consumeForceNext reads and clears the flag. Caller holds sw.mu.
func (sw *switchState) consumeForceNext() bool {
	f := sw.forceNext
	sw.forceNext = false
	return f
}

// bounceKind classifies a call inside the anti-bounce windows.
type bounceKind int

const (
	bounceNone bounceKind = iota
	bouncePending
	bounceSticky
	bounceCooldown
)

// checkBounce evaluates the anti-bounce windows for canalID in the
// original order: pending dedupe, then sticky, then cooldown. force
// bypasses all three. Caller holds sw.mu.
func (sw *switchState) checkBounce(canalID string, force bool, now time.Time) (bounceKind, pick) {
	if force {
		return bounceNone, pick{}
	}
	if pp, ok := sw.pending[canalID]; ok && now.Sub(pp.ts) < pendingTTL {
		return bouncePending, pp
	}
	sticky, hasSticky := sw.lastChoice[canalID]
	if hasSticky && now.Sub(sticky.ts) < stickyWindow {
		return bounceSticky, sticky
	}
	if last, ok := sw.lastCall[canalID]; ok && now.Sub(last) < nextCooldown &&
		hasSticky && now.Sub(sticky.ts) >= stickyWindow {
		return bounceCooldown, pick{}
	}
	return bounceNone, pick{}
}

// recordPick registers a fresh selection for canalID: pending pick,
// shown list append, cooldown stamp, and sticky choice. Caller holds sw.mu.
func (sw *switchState) recordPick(canalID, videoID string, now time.Time) {
	sw.pending[canalID] = pick{videoID: videoID, ts: now}
	sw.shown[canalID] = append(sw.shown[canalID], videoID)
	sw.lastCall[canalID] = now
	sw.lastChoice[canalID] = pick{videoID: videoID, ts: now}
}

// ClearPending drops any pending pick matching videoID, on any channel.
// Called when the player confirms playback.
func (sw *switchState) ClearPending(videoID string) []string {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	var cleared []string
	for cid, pp := range sw.pending {
		if pp.videoID == videoID {
			delete(sw.pending, cid)
			cleared = append(cleared, cid)
		}
	}
	return cleared
}
