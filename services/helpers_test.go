package services

import (
	"alumni-chat/contract"
	"alumni-chat/domain"
	"alumni-chat/domain/chat"
	"alumni-chat/infrastructure/storage"
	"alumni-chat/repositories"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func newStore(t *testing.T, clock *storage.Clock) *storage.DocumentStore {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewDocumentStore(db, testLogger(), clock, nil, nil)
}

// scriptedClock returns the given instants in order, then keeps adding a second.
func scriptedClock(instants ...time.Time) *storage.Clock {
	i := 0
	var last time.Time
	return storage.NewClock(func() time.Time {
		if i < len(instants) {
			last = instants[i]
			i++
			return last
		}
		last = last.Add(time.Second)
		return last
	})
}

func sendMessage(t *testing.T, repo repositories.IMessageRepository, from, to, text string) domain.Message {
	msg, err := repo.Append(context.Background(), chat.SendMessageCommand{SenderID: from, ReceiverID: to, Text: text})
	require.NoError(t, err)
	return msg
}

// flakyStore fails the configured operations and delegates the rest.
type flakyStore struct {
	contract.DocumentStore
	appendErr error
	updateErr error
	deleteErr error
}

func (f *flakyStore) Append(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	return f.DocumentStore.Append(ctx, collection, fields)
}

func (f *flakyStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.DocumentStore.Update(ctx, path, fields)
}

func (f *flakyStore) Delete(ctx context.Context, path string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.DocumentStore.Delete(ctx, path)
}

// interleavingStore runs onFirstUpdate once, before the first update is applied.
type interleavingStore struct {
	contract.DocumentStore
	onFirstUpdate func()
	once          sync.Once
}

func (s *interleavingStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if s.onFirstUpdate != nil {
		s.once.Do(s.onFirstUpdate)
	}
	return s.DocumentStore.Update(ctx, path, fields)
}
