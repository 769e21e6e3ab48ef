// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// System video kinds.
const (
	SystemTestPattern         = "test_pattern"
	SystemSponsorsPlaceholder = "sponsors_placeholder"
)

const (
	systemDirName   = "system"
	genTimeout      = 10 * time.Minute
	placeholderText = "Your scheduled programming\\nwill resume after a word\\nfrom our sponsors"
)

// SystemVideoPath returns the filesystem path of a system asset.
func (c *Catalog) SystemVideoPath(kind string) string {
	return filepath.Join(c.videoDir, systemDirName, kind+".mp4")
}

// EnsureSystemVideos generates the test pattern and sponsors placeholder
// on first run. Generation failures are logged and do not abort startup;
// the daily plan still references the assets and the player falls back.
func (c *Catalog) EnsureSystemVideos(ctx context.Context) {
	dir := filepath.Join(c.videoDir, systemDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create system video dir", "dir", dir, "err", err)
		return
	}

	tp := c.SystemVideoPath(SystemTestPattern)
	if _, err := os.Stat(tp); os.IsNotExist(err) {
		slog.Info("generating test pattern video", "path", tp)
		if err := generateTestPattern(ctx, tp); err != nil {
			slog.Error("generate test pattern", "err", err)
		}
	}

	sp := c.SystemVideoPath(SystemSponsorsPlaceholder)
	if _, err := os.Stat(sp); os.IsNotExist(err) {
		slog.Info("generating sponsors placeholder video", "path", sp)
		if err := generateSponsorsPlaceholder(ctx, sp); err != nil {
			slog.Error("generate sponsors placeholder", "err", err)
		}
	}
}

// generateTestPattern renders one hour of SMPTE color bars with a 1 kHz
// tone, looped logically by the daily plan during the 03:00 hour.
func generateTestPattern(ctx context.Context, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, genTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "lavfi", "-i", "smptebars=size=960x540:rate=25",
		"-f", "lavfi", "-i", "sine=frequency=1000:sample_rate=48000",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "128k",
		"-pix_fmt", "yuv420p",
		"-t", "3600",
		"-shortest",
		dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg test pattern: %w (%s)", err, tail(out))
	}
	return nil
}

// generateSponsorsPlaceholder renders a 30 s text card on a blue background.
func generateSponsorsPlaceholder(ctx context.Context, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, genTimeout)
	defer cancel()
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontsize=36:fontcolor=white:x=(w-text_w)/2:y=(h-text_h)/2:font=monospace",
		placeholderText)
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "lavfi", "-i", "color=c=0x000088:s=960x540:d=30",
		"-f", "lavfi", "-i", "anullsrc=r=48000:cl=stereo",
		"-vf", drawtext,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-c:a", "aac",
		"-t", "30",
		"-pix_fmt", "yuv420p",
		dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg sponsors placeholder: %w (%s)", err, tail(out))
	}
	return nil
}

func tail(out []byte) string {
	const max = 300
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return string(out)
}
