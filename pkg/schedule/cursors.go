// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package schedule

import (
	"time"

	"github.com/tvargenta/retrotv/pkg/catalog"
	"github.com/tvargenta/retrotv/pkg/store"
)

// Cursors tracks chronological episode progression per (channel, series).
// Progression is independent per channel: the same series on two channels
// advances separately. The value is not safe for concurrent use; the
// daily planner owns it for the duration of a generation and persists it
// together with the plan.
type Cursors struct {
	m store.CursorMap
}

// NewCursors wraps a loaded cursor map. A nil map starts empty.
func NewCursors(m store.CursorMap) *Cursors {
	if m == nil {
		m = store.CursorMap{}
	}
	return &Cursors{m: m}
}

// Map exposes the underlying map for persistence.
func (c *Cursors) Map() store.CursorMap {
	return c.m
}

func (c *Cursors) lastIndex(channel, series string) int {
	if entry, ok := c.m[channel][series]; ok {
		return entry.LastIndex
	}
	return -1
}

// Peek returns the episode at (last_index + 1 + offset) mod N without
// mutating the cursor. ok is false for an empty episode list.
func (c *Cursors) Peek(channel, series string, offset int, eps []catalog.Episode) (catalog.Episode, bool) {
	if len(eps) == 0 {
		return catalog.Episode{}, false
	}
	idx := (c.lastIndex(channel, series) + 1 + offset) % len(eps)
	return eps[idx], true
}

// Advance moves the cursor to the next episode, wrapping modulo the
// episode count, and returns it. ok is false for an empty episode list.
func (c *Cursors) Advance(channel, series string, eps []catalog.Episode, now time.Time) (catalog.Episode, bool) {
	if len(eps) == 0 {
		return catalog.Episode{}, false
	}
	next := (c.lastIndex(channel, series) + 1) % len(eps)
	ep := eps[next]
	if c.m[channel] == nil {
		c.m[channel] = map[string]store.CursorEntry{}
	}
	c.m[channel][series] = store.CursorEntry{
		Season:    ep.Season,
		Episode:   ep.Episode,
		LastIndex: next,
		UpdatedAt: now.Format(time.RFC3339),
	}
	return ep, true
}
