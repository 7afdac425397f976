package services

import (
	"alumni-chat/errors"
	"alumni-chat/repositories"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnreadTracker_Three_Messages_Then_Seen_Then_One_More(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(newStore(t, nil))
	tracker := NewUnreadTracker(testLogger(), messages, UnreadDirectional)

	// Given alice sends three messages to bob
	for i := 0; i < 3; i++ {
		sendMessage(t, messages, "alice", "bob", fmt.Sprintf("message %d", i))
	}

	// Then bob has three unread messages from alice
	count, err := tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(3, count)
	// And alice has none from bob
	count, err = tracker.Count(ctx, "alice", "bob")
	req.NoError(err)
	req.Equal(0, count)

	// When bob opens the conversation
	marked, err := tracker.MarkSeen(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(3, marked)

	// Then nothing is unread
	count, err = tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(0, count)

	// When alice sends one more
	sendMessage(t, messages, "alice", "bob", "one more")

	// Then exactly one is unread
	count, err = tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(1, count)
}

func TestUnreadTracker_MarkSeen_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(newStore(t, nil))
	tracker := NewUnreadTracker(testLogger(), messages, UnreadDirectional)

	sendMessage(t, messages, "alice", "bob", "hi")
	sendMessage(t, messages, "bob", "alice", "hello")

	_, err := tracker.MarkSeen(ctx, "bob", "alice")
	req.NoError(err)
	_, err = tracker.MarkSeen(ctx, "bob", "alice")
	req.NoError(err)

	count, err := tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(0, count)

	// Marking only touches the viewer's inbound messages
	count, err = tracker.Count(ctx, "alice", "bob")
	req.NoError(err)
	req.Equal(1, count)
}

func TestUnreadTracker_Count_Grows_Without_Marking(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(newStore(t, nil))
	tracker := NewUnreadTracker(testLogger(), messages, UnreadDirectional)

	previous := 0
	for i := 0; i < 5; i++ {
		sendMessage(t, messages, "alice", "bob", "ping")
		// Messages the other way never change bob's count
		sendMessage(t, messages, "bob", "alice", "pong")

		count, err := tracker.Count(ctx, "bob", "alice")
		req.NoError(err)
		req.GreaterOrEqual(count, previous)
		req.Equal(i+1, count)
		previous = count
	}
}

func TestUnreadTracker_Receiver_Mode_Follows_Addressee(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(newStore(t, nil))
	tracker := NewUnreadTracker(testLogger(), messages, UnreadReceiver)

	// Given bob sends two messages to alice
	sendMessage(t, messages, "bob", "alice", "one")
	sendMessage(t, messages, "bob", "alice", "two")

	// Then the count of bob's row for alice looks at messages addressed to alice
	count, err := tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(2, count)

	// When alice opens the conversation
	_, err = tracker.MarkSeen(ctx, "alice", "bob")
	req.NoError(err)

	count, err = tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(0, count)
}

func TestUnreadTracker_Receiver_Mode_Counts_Every_Sender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(newStore(t, nil))
	tracker := NewUnreadTracker(testLogger(), messages, UnreadReceiver)

	// Given carol, not bob, sends two messages to alice
	sendMessage(t, messages, "carol", "alice", "one")
	sendMessage(t, messages, "carol", "alice", "two")

	// Then bob's row for alice counts them, whatever conversation they are in
	count, err := tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(2, count)

	// When alice reads carol's messages
	_, err = tracker.MarkSeen(ctx, "alice", "carol")
	req.NoError(err)

	count, err = tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(0, count)
}

func TestUnreadTracker_MarkSeen_Leaves_Later_Messages_Unread(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	inner := newStore(t, nil)
	store := &interleavingStore{DocumentStore: inner}
	messages := repositories.NewMessageRepository(store)
	tracker := NewUnreadTracker(testLogger(), messages, UnreadDirectional)

	sendMessage(t, messages, "alice", "bob", "one")
	sendMessage(t, messages, "alice", "bob", "two")

	// Given alice sends another message while bob's messages are being marked
	store.onFirstUpdate = func() {
		sendMessage(t, repositories.NewMessageRepository(inner), "alice", "bob", "three")
	}

	marked, err := tracker.MarkSeen(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(2, marked)

	// Then the late message is still unread
	count, err := tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(1, count)

	// And the next mark catches up
	_, err = tracker.MarkSeen(ctx, "bob", "alice")
	req.NoError(err)
	count, err = tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(0, count)
}

func TestUnreadTracker_Counts(t *testing.T) {
	req := require.New(t)
	messages := repositories.NewMessageRepository(newStore(t, nil))
	tracker := NewUnreadTracker(testLogger(), messages, "")

	sendMessage(t, messages, "alice", "bob", "hi")
	sendMessage(t, messages, "carol", "bob", "hi")
	sendMessage(t, messages, "carol", "bob", "still there?")

	counts, err := tracker.Counts(context.Background(), "bob", []string{"alice", "carol", "dave"})
	req.NoError(err)
	req.Equal(map[string]int{"alice": 1, "carol": 2, "dave": 0}, counts)
}

func TestUnreadTracker_MarkSeen_Is_Best_Effort(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := &flakyStore{DocumentStore: newStore(t, nil)}
	messages := repositories.NewMessageRepository(store)
	tracker := NewUnreadTracker(testLogger(), messages, UnreadDirectional)

	sendMessage(t, messages, "alice", "bob", "one")
	sendMessage(t, messages, "alice", "bob", "two")

	// Given every update fails
	store.updateErr = fmt.Errorf("%w: timeout", errors.ErrStoreUnavailable)

	marked, err := tracker.MarkSeen(ctx, "bob", "alice")

	// Then each failure was attempted and reported, nothing is marked
	req.ErrorIs(err, errors.ErrStoreUnavailable)
	req.Equal(0, marked)
	count, err := tracker.Count(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(2, count)
}

func TestParseUnreadMode(t *testing.T) {
	req := require.New(t)

	mode, err := ParseUnreadMode("")
	req.NoError(err)
	req.Equal(UnreadDirectional, mode)
	mode, err = ParseUnreadMode("receiver")
	req.NoError(err)
	req.Equal(UnreadReceiver, mode)
	_, err = ParseUnreadMode("sideways")
	req.Error(err)
}
