package sink

import (
	"alumni-chat/contract"
	"alumni-chat/domain/event"
	"context"
	"sync"
)

var _ contract.EventSink = (*SnapshotSink)(nil)

// SnapshotLoader reads the current content of the watched collection.
type SnapshotLoader func(ctx context.Context) (contract.Snapshot, error)

// SnapshotSink is registered by a subscriber and called by the fanout.
// Each change reloads the collection and hands the snapshot to the subscriber.
// Only the latest snapshot is kept: a slow subscriber skips intermediate states
// but always ends up on the current one.
type SnapshotSink struct {
	mu        sync.Mutex
	load      SnapshotLoader
	snapshots chan contract.Snapshot
	closed    bool
}

func NewSnapshotSink(load SnapshotLoader) *SnapshotSink {
	return &SnapshotSink{load: load, snapshots: make(chan contract.Snapshot, 1)}
}

func (s *SnapshotSink) Snapshots() <-chan contract.Snapshot {
	return s.snapshots
}

// Consume is called by fanout
func (s *SnapshotSink) Consume(ctx context.Context, _ event.DomainEvent) error {
	return s.Refresh(ctx)
}

// Refresh loads the collection and replaces any snapshot not yet read.
func (s *SnapshotSink) Refresh(ctx context.Context) error {
	snapshot, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case <-s.snapshots:
	default:
	}
	s.snapshots <- snapshot
	return nil
}

func (s *SnapshotSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.snapshots)
}
