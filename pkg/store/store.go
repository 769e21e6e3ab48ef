// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package store provides the durable JSON documents under the content root.
// Every document has a load that returns a documented default on a missing
// or corrupt file, and an atomic save (temp file, fsync, rename).
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// Document file names under the content root.
const (
	MetadataFile      = "metadata.json"
	SeriesFile        = "series.json"
	ChannelsFile      = "canales.json"
	ActiveChannelFile = "canal_activo.json"
	PlaysFile         = "plays.json"
	TagsFile_         = "tags.json"
	ConfigFile        = "configuracion.json"
	WeeklyFile        = "weekly_schedule.json"
	DailyFile         = "daily_schedule.json"
	CursorsFile       = "episode_cursors.json"
	MetaFile          = "schedule_meta.json"
	VCRStateFile      = "vcr_state.json"

	metadataLockFile = ".metadata.lock"
)

// Store gives serialized access to the JSON documents of one content root.
// Each document has its own mutex; metadata.json additionally takes an
// advisory file lock shared with the external metadata daemon.
type Store struct {
	root string

	mu sync.Mutex
	// per-document mutexes, created lazily
	docMu map[string]*sync.Mutex
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content root: %w", err)
	}
	return &Store{
		root:  dir,
		docMu: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the content root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the absolute path of a document file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.root, name)
}

func (s *Store) lockDoc(name string) func() {
	s.mu.Lock()
	m, ok := s.docMu[name]
	if !ok {
		m = &sync.Mutex{}
		s.docMu[name] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// loadJSON fills dst from the document file. A missing file leaves dst at
// its default. A corrupt file is logged and leaves dst at its default.
func (s *Store) loadJSON(name string, dst any) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("read document", "file", name, "err", err)
		}
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("corrupt document, using default", "file", name, "err", err)
	}
}

// saveJSON writes v atomically: a pending temp file in the same directory
// is fsynced and renamed over the document. A failed write leaves the
// prior document intact.
func (s *Store) saveJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	pf, err := renameio.NewPendingFile(s.Path(name))
	if err != nil {
		return fmt.Errorf("create pending %s: %w", name, err)
	}
	defer func() {
		if err := pf.Cleanup(); err != nil {
			slog.Debug("cleanup pending file", "file", name, "err", err)
		}
	}()
	if _, err := pf.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// Videos loads metadata.json.
func (s *Store) Videos() Metadata {
	defer s.lockDoc(MetadataFile)()
	m := Metadata{}
	s.loadJSON(MetadataFile, &m)
	return m
}

// SaveVideos writes metadata.json under the shared advisory lock.
func (s *Store) SaveVideos(m Metadata) error {
	defer s.lockDoc(MetadataFile)()
	unlock, err := s.lockMetadataFile()
	if err != nil {
		return err
	}
	defer unlock()
	return s.saveJSON(MetadataFile, m)
}

// UpdateVideos applies fn to a fresh copy of metadata.json and writes the
// result back, all under the advisory lock so that the external metadata
// daemon cannot interleave.
func (s *Store) UpdateVideos(fn func(Metadata)) error {
	defer s.lockDoc(MetadataFile)()
	unlock, err := s.lockMetadataFile()
	if err != nil {
		return err
	}
	defer unlock()
	m := Metadata{}
	s.loadJSON(MetadataFile, &m)
	fn(m)
	return s.saveJSON(MetadataFile, m)
}

func (s *Store) Series() SeriesMap {
	defer s.lockDoc(SeriesFile)()
	m := SeriesMap{}
	s.loadJSON(SeriesFile, &m)
	return m
}

func (s *Store) SaveSeries(m SeriesMap) error {
	defer s.lockDoc(SeriesFile)()
	return s.saveJSON(SeriesFile, m)
}

func (s *Store) Channels() Channels {
	defer s.lockDoc(ChannelsFile)()
	m := Channels{}
	s.loadJSON(ChannelsFile, &m)
	return m
}

func (s *Store) SaveChannels(m Channels) error {
	defer s.lockDoc(ChannelsFile)()
	return s.saveJSON(ChannelsFile, m)
}

// ActiveChannel returns canal_activo.json. Default canal_id is "canal_base".
func (s *Store) ActiveChannel() ActiveChannel {
	defer s.lockDoc(ActiveChannelFile)()
	a := ActiveChannel{CanalID: "canal_base"}
	s.loadJSON(ActiveChannelFile, &a)
	return a
}

func (s *Store) SaveActiveChannel(a ActiveChannel) error {
	defer s.lockDoc(ActiveChannelFile)()
	return s.saveJSON(ActiveChannelFile, a)
}

func (s *Store) Plays() Plays {
	defer s.lockDoc(PlaysFile)()
	m := Plays{}
	s.loadJSON(PlaysFile, &m)
	return m
}

func (s *Store) SavePlays(m Plays) error {
	defer s.lockDoc(PlaysFile)()
	return s.saveJSON(PlaysFile, m)
}

// BumpPlay increments plays and stamps last_played for a video id,
// returning the updated stats. Unknown ids are created; the semantics
// are "count of reported completions".
func (s *Store) BumpPlay(videoID, lastPlayed string) (PlayStats, error) {
	defer s.lockDoc(PlaysFile)()
	m := Plays{}
	s.loadJSON(PlaysFile, &m)
	item := m[videoID]
	item.Plays++
	item.LastPlayed = lastPlayed
	m[videoID] = item
	return item, s.saveJSON(PlaysFile, m)
}

func (s *Store) Tags() TagsFile {
	defer s.lockDoc(TagsFile_)()
	m := TagsFile{}
	s.loadJSON(TagsFile_, &m)
	return m
}

func (s *Store) Config() Config {
	defer s.lockDoc(ConfigFile)()
	c := Config{}
	s.loadJSON(ConfigFile, &c)
	return c
}

func (s *Store) Weekly() WeeklySchedule {
	defer s.lockDoc(WeeklyFile)()
	w := WeeklySchedule{}
	s.loadJSON(WeeklyFile, &w)
	return w
}

func (s *Store) SaveWeekly(w WeeklySchedule) error {
	defer s.lockDoc(WeeklyFile)()
	return s.saveJSON(WeeklyFile, w)
}

func (s *Store) Daily() DailySchedule {
	defer s.lockDoc(DailyFile)()
	d := DailySchedule{}
	s.loadJSON(DailyFile, &d)
	return d
}

func (s *Store) SaveDaily(d DailySchedule) error {
	defer s.lockDoc(DailyFile)()
	return s.saveJSON(DailyFile, d)
}

// HasDaily reports whether daily_schedule.json exists on disk.
func (s *Store) HasDaily() bool {
	_, err := os.Stat(s.Path(DailyFile))
	return err == nil
}

// HasWeekly reports whether weekly_schedule.json exists on disk.
func (s *Store) HasWeekly() bool {
	_, err := os.Stat(s.Path(WeeklyFile))
	return err == nil
}

func (s *Store) Cursors() CursorMap {
	defer s.lockDoc(CursorsFile)()
	m := CursorMap{}
	s.loadJSON(CursorsFile, &m)
	return m
}

func (s *Store) SaveCursors(m CursorMap) error {
	defer s.lockDoc(CursorsFile)()
	return s.saveJSON(CursorsFile, m)
}

func (s *Store) ScheduleMeta() ScheduleMeta {
	defer s.lockDoc(MetaFile)()
	m := ScheduleMeta{}
	s.loadJSON(MetaFile, &m)
	return m
}

func (s *Store) SaveScheduleMeta(m ScheduleMeta) error {
	defer s.lockDoc(MetaFile)()
	return s.saveJSON(MetaFile, m)
}

func (s *Store) VCRState() VCRState {
	defer s.lockDoc(VCRStateFile)()
	v := VCRState{}
	s.loadJSON(VCRStateFile, &v)
	return v
}

func (s *Store) SaveVCRState(v VCRState) error {
	defer s.lockDoc(VCRStateFile)()
	return s.saveJSON(VCRStateFile, v)
}
