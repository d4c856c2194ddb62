// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is the polling interval while waiting for the advisory
// lock.
const lockRetryDelay = 100 * time.Millisecond

// Mutex is an advisory file lock guarding a workspace's lock file. The
// orchestrator holds it across the whole resolve-to-lock-update span so
// two concurrent installs in the same workspace cannot interleave writes.
type Mutex struct {
	fl *flock.Flock
}

// NewMutex creates the advisory lock for the given lock file path. The
// lock lives in a sibling ".flock" file so the lock file itself can still
// be atomically renamed while held.
func NewMutex(lockfilePath string) *Mutex {
	return &Mutex{fl: flock.New(lockfilePath + ".flock")}
}

// Lock acquires the advisory lock, polling until the context is
// canceled.
func (m *Mutex) Lock(ctx context.Context) error {
	locked, err := m.fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring workspace lock %s: %w", m.fl.Path(), err)
	}
	if !locked {
		return fmt.Errorf("workspace lock %s is held by another process", m.fl.Path())
	}
	return nil
}

// Unlock releases the advisory lock.
func (m *Mutex) Unlock() error {
	return m.fl.Unlock()
}
