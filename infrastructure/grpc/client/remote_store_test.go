package client

import (
	"alumni-chat/auth"
	"alumni-chat/contract"
	"alumni-chat/domain/chat"
	"alumni-chat/domain/event"
	"alumni-chat/errors"
	"alumni-chat/infrastructure/grpc/server"
	"alumni-chat/infrastructure/storage"
	"alumni-chat/repositories"
	"alumni-chat/runtime"
	"alumni-chat/runtime/workers"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const secret = "test-secret"

// startServer serves a Badger backed store over an in-memory listener and
// returns a client connection authenticated as userID. An empty userID gives
// an anonymous connection.
func startServer(t *testing.T, userID string) *grpc.ClientConn {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	changes := make(chan event.DomainEvent, 64)
	registry := runtime.NewRegistry()
	store := storage.NewDocumentStore(db, slog.Default(), nil, changes, registry)
	fanout := workers.NewEventFanout(slog.Default(), changes, registry, time.Second)
	go func() { _ = fanout.Run(ctx) }()

	tokens := auth.NewTokenManager(secret, time.Hour)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(tokens.UnaryInterceptor()),
		grpc.ChainStreamInterceptor(tokens.StreamInterceptor()),
	)
	server.NewDocumentServer(slog.Default(), store, nil).Register(srv)

	listener := bufconn.Listen(1024 * 1024)
	go func() { _ = srv.Serve(listener) }()
	t.Cleanup(srv.Stop)

	opts := []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if userID != "" {
		token, err := tokens.GenerateToken(userID, nil)
		require.NoError(t, err)
		opts = append(opts, grpc.WithPerRPCCredentials(auth.BearerCredentials{Token: token, Insecure: true}))
	}
	conn, err := grpc.NewClient("passthrough:///bufnet", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRemoteStore_Round_Trip(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewRemoteStore(slog.Default(), startServer(t, "alice"))

	// Append resolves the server timestamp on the server side
	id, err := store.Append(ctx, "testimonials", map[string]any{
		"name":      "Priya",
		"ratings":   []int{4},
		"timestamp": contract.ServerTimestamp,
	})
	req.NoError(err)
	req.NotEmpty(id)

	doc, err := store.Get(ctx, contract.JoinPath("testimonials", id))
	req.NoError(err)
	req.Equal("Priya", doc.String("name"))
	req.Equal([]int{4}, doc.Ints("ratings"))
	req.Positive(doc.Millis("timestamp"))

	req.NoError(store.Update(ctx, doc.Path, map[string]any{"ratings": []int{4, 5}}))
	req.NoError(store.Set(ctx, "users/alice", map[string]any{"name": "Alice"}))

	docs, err := store.Query(ctx, contract.Query{
		Collection: "testimonials",
		Filters:    []contract.Filter{contract.Where("name", contract.OpEqual, "Priya")},
	})
	req.NoError(err)
	req.Len(docs, 1)
	req.Equal([]int{4, 5}, docs[0].Ints("ratings"))

	req.NoError(store.Delete(ctx, doc.Path))
	_, err = store.Get(ctx, doc.Path)
	req.ErrorIs(err, errors.ErrNotFound)

	// Without a searcher the server answers with no results
	found, err := store.Search(ctx, "testimonials", "Priya", 5)
	req.NoError(err)
	req.Empty(found)
}

func TestRemoteStore_Errors_Map_Back(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	anonymous := NewRemoteStore(slog.Default(), startServer(t, ""))
	_, err := anonymous.Get(ctx, "users/alice")
	req.ErrorIs(err, errors.ErrNoSession)

	store := NewRemoteStore(slog.Default(), startServer(t, "alice"))
	_, err = store.Append(ctx, "users/alice", map[string]any{"name": "x"})
	req.ErrorIs(err, errors.ErrValidationRejected)
	err = store.Update(ctx, "users/nobody", map[string]any{"name": "x"})
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRemoteStore_Messages_Through_Repository(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(NewRemoteStore(slog.Default(), startServer(t, "alice")))

	sent, err := messages.Append(ctx, chat.SendMessageCommand{SenderID: "alice", ReceiverID: "bob", Text: "hello over the wire"})
	req.NoError(err)

	history, err := messages.History(ctx, "alice_bob")
	req.NoError(err)
	req.Equal([]string{sent.ID}, []string{history[0].ID})
	req.Equal("alice_bob", history[0].ConversationID)
}

func TestRemoteStore_Subscribe(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store := NewRemoteStore(slog.Default(), startServer(t, "alice"))

	snapshots, err := store.Subscribe(ctx, "broadcast_messages")
	req.NoError(err)

	// The first snapshot is the current content
	first := <-snapshots
	req.Empty(first.Documents)

	_, err = store.Append(ctx, "broadcast_messages", map[string]any{"text": "welcome"})
	req.NoError(err)

	req.Eventually(func() bool {
		select {
		case s := <-snapshots:
			return len(s.Documents) == 1 && s.Documents[0].String("text") == "welcome"
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)
}
