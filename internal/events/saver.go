package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/unibike/campus-bikeshare/internal/db"
	"github.com/unibike/campus-bikeshare/internal/engine"
)

// SnapshotSaver writes the post-commit snapshot to the persistence
// collaborator. A failed save is logged, not propagated: durability lag must
// not fail the rider-facing operation that already committed.
//
// Deliveries for overlapping operations may arrive in any order, so the
// saver serializes writes and drops any snapshot older than the newest one
// already written; otherwise a slow save of an early commit could overwrite
// a later state in the store.
type SnapshotSaver struct {
	store   db.SnapshotStore
	timeout time.Duration

	mu      sync.Mutex
	lastSeq uint64
}

// NewSnapshotSaver returns a saver writing through the given store.
func NewSnapshotSaver(store db.SnapshotStore) *SnapshotSaver {
	return &SnapshotSaver{store: store, timeout: 10 * time.Second}
}

// Committed implements engine.CommitListener.
func (s *SnapshotSaver) Committed(m engine.Mutation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Seq <= s.lastSeq {
		log.WithFields(log.Fields{"op": m.Op, "seq": m.Seq}).Debug("Dropping stale snapshot")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Save(ctx, m.Snapshot); err != nil {
		log.WithError(err).WithField("op", m.Op).Error("Failed to persist snapshot")
		return
	}
	s.lastSeq = m.Seq
}
