// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frozenSwitchState(at time.Time) (*switchState, *time.Time) {
	sw := newSwitchState()
	now := at
	sw.now = func() time.Time { return now }
	return sw, &now
}

func TestBounceOrderPendingBeforeSticky(t *testing.T) {
	base := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	sw, now := frozenSwitchState(base)

	sw.mu.Lock()
	sw.recordPick("07", "clip_one", *now)
	sw.mu.Unlock()

	// both windows are open but the pending dedupe wins
	*now = base.Add(300 * time.Millisecond)
	sw.mu.Lock()
	kind, pp := sw.checkBounce("07", false, *now)
	sw.mu.Unlock()
	assert.Equal(t, bouncePending, kind)
	assert.Equal(t, "clip_one", pp.videoID)
}

func TestBounceStickyAfterConfirm(t *testing.T) {
	base := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	sw, now := frozenSwitchState(base)

	sw.mu.Lock()
	sw.recordPick("07", "clip_one", *now)
	sw.mu.Unlock()
	require.Equal(t, []string{"07"}, sw.ClearPending("clip_one"))

	*now = base.Add(300 * time.Millisecond)
	sw.mu.Lock()
	kind, pp := sw.checkBounce("07", false, *now)
	sw.mu.Unlock()
	assert.Equal(t, bounceSticky, kind)
	assert.Equal(t, "clip_one", pp.videoID)
}

func TestBounceCooldownBetweenStickyAndFree(t *testing.T) {
	base := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	sw, now := frozenSwitchState(base)

	sw.mu.Lock()
	sw.recordPick("07", "clip_one", *now)
	sw.mu.Unlock()
	sw.ClearPending("clip_one")

	// sticky has lapsed but the pick was only 1.2 s ago: impossible to
	// be inside cooldown since cooldown < sticky, so the call is free
	*now = base.Add(1200 * time.Millisecond)
	sw.mu.Lock()
	kind, _ := sw.checkBounce("07", false, *now)
	sw.mu.Unlock()
	assert.Equal(t, bounceNone, kind)

	// a stale sticky with a fresh lastCall stamp hits the cooldown
	sw.mu.Lock()
	sw.lastCall["07"] = (*now).Add(-200 * time.Millisecond)
	sw.lastChoice["07"] = pick{videoID: "clip_one", ts: (*now).Add(-3 * time.Second)}
	kind, _ = sw.checkBounce("07", false, *now)
	sw.mu.Unlock()
	assert.Equal(t, bounceCooldown, kind)
}

func TestForceBypassesAllWindows(t *testing.T) {
	base := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	sw, now := frozenSwitchState(base)

	sw.mu.Lock()
	sw.recordPick("07", "clip_one", *now)
	sw.mu.Unlock()

	*now = base.Add(100 * time.Millisecond)
	sw.RaiseForceNext()

	sw.mu.Lock()
	force := sw.consumeForceNext()
	kind, _ := sw.checkBounce("07", force, *now)
	consumedAgain := sw.consumeForceNext()
	sw.mu.Unlock()

	assert.True(t, force)
	assert.Equal(t, bounceNone, kind)
	assert.False(t, consumedAgain, "force-next is one-shot")
}

func TestClearPendingAcrossChannels(t *testing.T) {
	base := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
	sw, now := frozenSwitchState(base)

	sw.mu.Lock()
	sw.recordPick("07", "clip_one", *now)
	sw.recordPick("08", "clip_one", *now)
	sw.recordPick("09", "clip_two", *now)
	sw.mu.Unlock()

	cleared := sw.ClearPending("clip_one")
	assert.ElementsMatch(t, []string{"07", "08"}, cleared)

	sw.mu.Lock()
	_, stillThere := sw.pending["09"]
	sw.mu.Unlock()
	assert.True(t, stillThere)
}
