package workers

import (
	"alumni-chat/domain/chat"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	mu    sync.Mutex
	calls []chat.MarkSeenCommand
	err   error
}

func (f *fakeMarker) MarkSeen(_ context.Context, viewerID, peerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, chat.MarkSeenCommand{ViewerID: viewerID, PeerID: peerID})
	return 1, f.err
}

func (f *fakeMarker) Calls() []chat.MarkSeenCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.MarkSeenCommand{}, f.calls...)
}

func TestSeenWorker_Drains_Queue_On_Close(t *testing.T) {
	req := require.New(t)
	marker := &fakeMarker{}
	worker := NewSeenWorker(slog.Default(), marker, 10)

	// Given two requests queued before the worker starts
	worker.Dispatch(chat.MarkSeenCommand{ViewerID: "alice", PeerID: "bob"})
	worker.Dispatch(chat.MarkSeenCommand{ViewerID: "alice", PeerID: "carol"})
	worker.Close()

	// When the worker runs
	req.NoError(worker.Run(context.Background()))

	// Then both were handled in order
	calls := marker.Calls()
	req.Len(calls, 2)
	req.Equal("bob", calls[0].PeerID)
	req.Equal("carol", calls[1].PeerID)
}

func TestSeenWorker_Dispatch_Never_Blocks(t *testing.T) {
	req := require.New(t)
	worker := NewSeenWorker(slog.Default(), &fakeMarker{}, 1)

	done := make(chan struct{})
	go func() {
		// The second request is dropped because nobody drains the queue
		worker.Dispatch(chat.MarkSeenCommand{ViewerID: "alice", PeerID: "bob"})
		worker.Dispatch(chat.MarkSeenCommand{ViewerID: "alice", PeerID: "bob"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Dispatch blocked")
	}
	req.Len(worker.Queue(), 1)
}

func TestSeenWorker_Dispatch_After_Close_Is_Dropped(t *testing.T) {
	req := require.New(t)
	worker := NewSeenWorker(slog.Default(), &fakeMarker{}, 1)
	worker.Close()
	worker.Close()

	req.NotPanics(func() {
		worker.Dispatch(chat.MarkSeenCommand{ViewerID: "alice", PeerID: "bob"})
	})
}

func TestSeenWorker_Keeps_Running_After_Failure(t *testing.T) {
	req := require.New(t)
	marker := &fakeMarker{err: fmt.Errorf("store unavailable")}
	worker := NewSeenWorker(slog.Default(), marker, 10)

	worker.Dispatch(chat.MarkSeenCommand{ViewerID: "alice", PeerID: "bob"})
	worker.Dispatch(chat.MarkSeenCommand{ViewerID: "bob", PeerID: "alice"})
	worker.Close()

	req.NoError(worker.Run(context.Background()))
	req.Len(marker.Calls(), 2)
}
