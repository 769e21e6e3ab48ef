// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

//go:build !windows

package store

import (
	"fmt"
	"os"
	"syscall"
)

// lockMetadataFile takes the exclusive advisory lock on .metadata.lock.
// The external metadata daemon takes the same lock before writing probe
// results, so admin edits and daemon writes cannot race.
func (s *Store) lockMetadataFile() (unlock func(), err error) {
	f, err := os.OpenFile(s.Path(metadataLockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open metadata lock: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flock metadata lock: %w", err)
	}
	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
	}, nil
}
