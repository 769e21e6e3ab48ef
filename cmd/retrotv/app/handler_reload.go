// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const triggerReasonNext = "BTN_NEXT"

// triggerWatcher observes the trigger file the encoder bridge writes.
// A new mtime is one event: it arms the should_reload flag once and,
// for BTN_NEXT, raises the one-shot force-next signal.
type triggerWatcher struct {
	path  string
	force func()

	mu        sync.Mutex
	lastMtime time.Time
	pending   bool
}

func newTriggerWatcher(path string, force func()) *triggerWatcher {
	return &triggerWatcher{path: path, force: force}
}

// check stats the trigger file and processes an mtime edge exactly once.
func (t *triggerWatcher) check() {
	if t == nil || t.path == "" {
		return
	}
	fi, err := os.Stat(t.path)
	if err != nil {
		return
	}
	mtime := fi.ModTime()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !mtime.After(t.lastMtime) {
		return
	}
	t.lastMtime = mtime
	t.pending = true

	var trig struct {
		Reason string `json:"reason"`
	}
	if raw, err := os.ReadFile(t.path); err == nil {
		_ = json.Unmarshal(raw, &trig)
	}
	slog.Debug("trigger edge", "reason", trig.Reason)
	if trig.Reason == triggerReasonNext {
		t.force()
	}
}

// consume returns whether a reload is due and clears the flag.
func (t *triggerWatcher) consume() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.pending
	t.pending = false
	return p
}

// watch reacts to filesystem events on the trigger file so BTN_NEXT
// takes effect even when the player is not polling should_reload.
// The handler still stats the file itself, so a dead watcher only
// loses immediacy, not events.
func (t *triggerWatcher) watch(ctx context.Context) {
	if t == nil || t.path == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("trigger watcher unavailable, relying on polling", "err", err)
		return
	}
	defer watcher.Close()

	// Watch the directory: the bridge may recreate the file.
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		slog.Warn("cannot watch trigger directory", "dir", filepath.Dir(t.path), "err", err)
		return
	}
	slog.Info("trigger watcher started", "path", t.path)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Name != t.path {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				t.check()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("trigger watcher error", "err", err)
		}
	}
}

// shouldReloadHandlerFunc serves the one-shot trigger edge to the player.
func (s *Server) shouldReloadHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.trigger.check()
	s.jsonResponse(w, map[string]any{"should_reload": s.trigger.consume()}, http.StatusOK)
}
