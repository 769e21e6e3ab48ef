// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ProbeFunc measures the duration of a media file in seconds.
type ProbeFunc func(ctx context.Context, path string) (float64, error)

// ProbeDuration runs ffprobe on the file. The context bounds the
// subprocess; on expiry the process is killed and an error returned.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w (%s)", path, err, strings.TrimSpace(stderr.String()))
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe output %q: %w", out.String(), err)
	}
	return dur, nil
}
