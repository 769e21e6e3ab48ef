// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package store

// Video categories.
const (
	CategoryVHSTape    = "vhs_tape"
	CategoryTVEpisode  = "tv_episode"
	CategoryCommercial = "commercial"
	CategoryMovie      = "movie"
)

// Video is one record in metadata.json, keyed by video_id.
// Exactly one of SeriesPath, CommercialsPath, or the plain id locates the file.
type Video struct {
	Title           string   `json:"title,omitempty"`
	Category        string   `json:"category,omitempty"`
	Series          string   `json:"series,omitempty"`
	Season          int      `json:"season,omitempty"`
	Episode         int      `json:"episode,omitempty"`
	DurationSec     float64  `json:"duracion_sec,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	LoudnessLUFS    float64  `json:"loudness_lufs,omitempty"`
	SeriesPath      string   `json:"series_path,omitempty"`
	CommercialsPath string   `json:"commercials_path,omitempty"`
}

// Metadata is the full video catalog keyed by video_id.
type Metadata map[string]Video

// Series is one record in series.json, keyed by folder name.
type Series struct {
	Created   string `json:"created,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
}

type SeriesMap map[string]Series

// Channel is one record in canales.json, keyed by canal_id.
// A non-empty SeriesFilter makes it a broadcast channel.
type Channel struct {
	Nombre        string   `json:"nombre"`
	Numero        string   `json:"numero,omitempty"`
	SeriesFilter  []string `json:"series_filter,omitempty"`
	TagsPrioridad []string `json:"tags_prioridad,omitempty"`
	TagsIncluidos []string `json:"tags_incluidos,omitempty"`
	MinGapMinutes int      `json:"min_gap_minutes,omitempty"`
	Icono         string   `json:"icono,omitempty"`
}

type Channels map[string]Channel

// ActiveChannel is the content of canal_activo.json.
type ActiveChannel struct {
	CanalID string `json:"canal_id"`
}

// PlayStats tracks reported completions per video.
type PlayStats struct {
	Plays      int    `json:"plays"`
	LastPlayed string `json:"last_played,omitempty"` // UTC ISO 8601, empty if never
}

type Plays map[string]PlayStats

// CursorEntry is the per-(channel, series) episode progression pointer.
// LastIndex is -1 before the first advance.
type CursorEntry struct {
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	LastIndex int    `json:"last_index"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CursorMap is keyed channel_id -> series folder name.
type CursorMap map[string]map[string]CursorEntry

// WeeklyChannel holds the series assignment per time-of-day slot array.
// Slots may carry the TestPatternID sentinel.
type WeeklyChannel struct {
	TimeSlots map[string][]string `json:"time_slots"`
}

// WeeklySchedule is the content of weekly_schedule.json.
type WeeklySchedule struct {
	GeneratedAt string                   `json:"generated_at"`
	WeekStart   string                   `json:"week_start"` // YYYY-MM-DD, most recent Sunday
	Channels    map[string]WeeklyChannel `json:"channels"`
}

// Segment types inside a daily plan.
const (
	SegmentTestPattern         = "test_pattern"
	SegmentSponsorsPlaceholder = "sponsors_placeholder"
	SegmentCommercial          = "commercial"
	SegmentEpisode             = "episode"
)

// Sentinel video ids for system content.
const (
	TestPatternID         = "__test_pattern__"
	SponsorsPlaceholderID = "__sponsors_placeholder__"
)

// Segment is one contiguous piece of a single video inside a daily plan.
// Times are seconds since 03:00 of the schedule date, end-exclusive.
// BaseTimestamp is the seek offset inside the source at which it begins.
type Segment struct {
	StartSec      float64 `json:"start_sec"`
	EndSec        float64 `json:"end_sec"`
	Type          string  `json:"type"`
	VideoID       string  `json:"video_id"`
	SeriesPath    string  `json:"series_path,omitempty"`
	BaseTimestamp float64 `json:"base_timestamp,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.EndSec - s.StartSec
}

// DailySchedule is the content of daily_schedule.json.
type DailySchedule struct {
	GeneratedAt  string               `json:"generated_at"`
	ScheduleDate string               `json:"schedule_date"` // YYYY-MM-DD
	ValidFrom    string               `json:"valid_from"`
	ValidUntil   string               `json:"valid_until"`
	Channels     map[string][]Segment `json:"channels"`
}

// ScheduleMeta records the last generation timestamps.
type ScheduleMeta struct {
	WeeklyGenerated string `json:"weekly_generated,omitempty"`
	DailyGenerated  string `json:"daily_generated,omitempty"`
}

// TagsFile groups tags for the admin UI (tags.json).
type TagsFile map[string][]string

// Config is the content of configuracion.json: global fallback values
// for channels that do not define their own.
type Config struct {
	TagsPrioridad []string `json:"tags_prioridad,omitempty"`
	TagsIncluidos []string `json:"tags_incluidos,omitempty"`
	MinGapMinutes int      `json:"min_gap_minutes,omitempty"`
}

// VCRState mirrors vcr_state.json, owned by the external NFC subsystem.
// The server re-serves it and advances PositionSec for an inserted tape.
type VCRState struct {
	ReaderAttached bool    `json:"reader_attached"`
	TapeInserted   bool    `json:"tape_inserted"`
	TapeUID        string  `json:"tape_uid,omitempty"`
	VideoID        string  `json:"video_id,omitempty"`
	Title          string  `json:"title,omitempty"`
	DurationSec    float64 `json:"duration_sec"`
	PositionSec    float64 `json:"position_sec"`
	IsPaused       bool    `json:"is_paused"`
	IsRewinding    bool    `json:"is_rewinding"`
	UpdatedAt      string  `json:"updated_at,omitempty"`
}

// Trigger is the content of a trigger file written by the encoder bridge.
type Trigger struct {
	Reason string `json:"reason,omitempty"`
}
