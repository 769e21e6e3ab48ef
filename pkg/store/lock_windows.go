// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

//go:build windows

package store

// The appliance runs on Linux; on Windows the external metadata daemon
// does not exist, so the advisory lock degrades to a no-op.
func (s *Store) lockMetadataFile() (unlock func(), err error) {
	return func() {}, nil
}
