package sink

import (
	"alumni-chat/contract"
	"alumni-chat/domain/event"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotSink_Keeps_Latest_Snapshot(t *testing.T) {
	req := require.New(t)
	version := 0
	s := NewSnapshotSink(func(ctx context.Context) (contract.Snapshot, error) {
		version++
		return contract.Snapshot{Collection: fmt.Sprintf("v%d", version)}, nil
	})

	// Given three changes consumed before the subscriber reads
	for i := 0; i < 3; i++ {
		req.NoError(s.Consume(context.Background(), event.DocumentChanged{}))
	}

	// Then only the latest snapshot is pending
	snapshot := <-s.Snapshots()
	req.Equal("v3", snapshot.Collection)
	req.Empty(s.Snapshots())
}

func TestSnapshotSink_Close_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	s := NewSnapshotSink(func(ctx context.Context) (contract.Snapshot, error) {
		return contract.Snapshot{}, nil
	})
	s.Close()
	s.Close()

	// Consuming after close is a no-op
	req.NoError(s.Consume(context.Background(), event.DocumentChanged{}))
	_, ok := <-s.Snapshots()
	req.False(ok)
}

func TestSnapshotSink_Propagates_Load_Error(t *testing.T) {
	req := require.New(t)
	boom := fmt.Errorf("boom")
	s := NewSnapshotSink(func(ctx context.Context) (contract.Snapshot, error) {
		return contract.Snapshot{}, boom
	})
	req.ErrorIs(s.Refresh(context.Background()), boom)
}
