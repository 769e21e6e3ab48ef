// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvargenta/retrotv/pkg/store"
)

func TestPlayedCountsCompletions(t *testing.T) {
	dir, st := newTestRoot(t)
	require.NoError(t, st.SaveVideos(store.Metadata{
		"clip_one": {Tags: []string{"retro"}, DurationSec: 300},
	}))
	ts := startServer(t, dir)

	got := postJSON(t, ts, "/api/played", map[string]string{"video_id": "clip_one"}, 200)
	assert.Equal(t, true, got["ok"])
	assert.EqualValues(t, 1, got["plays"])
	assert.NotEmpty(t, got["last_played"])

	// plays is a count of reported completions, so a second report adds one
	got = postJSON(t, ts, "/api/played", map[string]string{"video_id": "clip_one"}, 200)
	assert.EqualValues(t, 2, got["plays"])

	// unknown ids still count
	got = postJSON(t, ts, "/api/played", map[string]string{"video_id": "ghost"}, 200)
	assert.EqualValues(t, 1, got["plays"])

	got = postJSON(t, ts, "/api/played", map[string]string{}, 400)
	assert.Equal(t, false, got["ok"])
}
