package services

import (
	"alumni-chat/auth"
	"alumni-chat/contract"
	"alumni-chat/domain"
	"alumni-chat/domain/chat"
	"alumni-chat/errors"
	"alumni-chat/mocks"
	"alumni-chat/repositories"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newChat(t *testing.T, messages repositories.IMessageRepository, deps ChatSessionDeps) *ChatSession {
	if deps.Log == nil {
		deps.Log = testLogger()
	}
	deps.Messages = messages
	s, err := NewChatSession(auth.NewSession("alice"), "bob", deps)
	require.NoError(t, err)
	return s
}

func TestChatSession_Requires_A_Session(t *testing.T) {
	req := require.New(t)

	_, err := NewChatSession(auth.Session{}, "bob", ChatSessionDeps{Log: testLogger()})

	req.ErrorIs(err, errors.ErrNoSession)
}

func TestChatSession_Open_Dispatches_Mark_Seen_And_Loads(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	seen := mocks.NewMockSeenDispatcher(ctrl)
	messages := repositories.NewMessageRepository(newStore(t, nil))
	sendMessage(t, messages, "bob", "alice", "hi alice")
	sendMessage(t, messages, "alice", "bob", "hi bob")

	var dispatched chat.MarkSeenCommand
	seen.EXPECT().Dispatch(gomock.Any()).Do(func(cmd chat.MarkSeenCommand) {
		dispatched = cmd
	}).Times(1)

	s := newChat(t, messages, ChatSessionDeps{Seen: seen})
	req.Equal(StateLoading, s.State())

	// When the conversation is opened
	req.NoError(s.Open(context.Background()))

	// Then bob's messages to alice are to be marked, and history is newest first
	req.Equal("alice", dispatched.ViewerID)
	req.Equal("bob", dispatched.PeerID)
	req.Equal(StateReady, s.State())
	got := s.Messages()
	req.Len(got, 2)
	req.Equal("hi bob", got[0].Text)
	req.Equal("hi alice", got[1].Text)
	req.Equal("alice_bob", s.ConversationID())
}

func TestChatSession_Send(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(newStore(t, nil))
	s := newChat(t, messages, ChatSessionDeps{})
	req.NoError(s.Open(ctx))

	// Blank drafts are ignored
	s.SetDraft("   ")
	req.Equal(StateReady, s.State())
	req.NoError(s.Send(ctx))
	req.Empty(s.Messages())

	// A real draft is trimmed, stored and cleared
	s.SetDraft("  hello bob ")
	req.Equal(StateComposing, s.State())
	req.NoError(s.Send(ctx))

	req.Equal("", s.Draft())
	req.Equal(StateReady, s.State())
	req.Len(s.Messages(), 1)
	history, err := messages.History(ctx, "alice_bob")
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("hello bob", history[0].Text)
	req.Equal("alice", history[0].SenderID)
	req.Equal("bob", history[0].ReceiverID)
}

func TestChatSession_Send_Failure_Keeps_Draft(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := &flakyStore{DocumentStore: newStore(t, nil)}
	var logged bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logged, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := newChat(t, repositories.NewMessageRepository(store), ChatSessionDeps{Log: log})
	req.NoError(s.Open(ctx))

	// Given the store refuses writes
	store.appendErr = fmt.Errorf("%w: offline", errors.ErrStoreUnavailable)
	s.SetDraft("are you there?")

	err := s.Send(ctx)

	// Then the error surfaces and the draft is still there
	req.ErrorIs(err, errors.ErrStoreUnavailable)
	req.Equal("are you there?", s.Draft())
	req.Equal(StateComposing, s.State())
	req.Empty(s.Messages())
	// And reporting it is left to the caller
	req.NotContains(logged.String(), "level=WARN")
	req.NotContains(logged.String(), "level=ERROR")
}

func TestChatSession_Edit_Selected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(newStore(t, nil))
	original := sendMessage(t, messages, "alice", "bob", "helo")
	s := newChat(t, messages, ChatSessionDeps{})
	req.NoError(s.Open(ctx))

	req.ErrorIs(s.EditSelected(ctx, "hello"), errors.ErrNoSelection)
	req.ErrorIs(s.Select("unknown"), errors.ErrNotFound)

	req.NoError(s.Select(original.ID))
	selected, ok := s.Selected()
	req.True(ok)
	req.Equal("helo", selected.Text)

	// Blank text leaves the message alone
	req.NoError(s.EditSelected(ctx, "  "))
	req.Equal("helo", s.Messages()[0].Text)

	req.NoError(s.EditSelected(ctx, "hello"))

	// Then text changes, everything else does not, and editing mode ends
	_, ok = s.Selected()
	req.False(ok)
	history, err := messages.History(ctx, "alice_bob")
	req.NoError(err)
	req.Equal("hello", history[0].Text)
	req.Equal(original.ID, history[0].ID)
	req.Equal(original.CreatedAt, history[0].CreatedAt)
	req.Equal(original.SenderID, history[0].SenderID)
	req.False(s.IsPending(original.ID))
}

func TestChatSession_Edit_Failure_Reverts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := &flakyStore{DocumentStore: newStore(t, nil)}
	messages := repositories.NewMessageRepository(store)
	original := sendMessage(t, messages, "alice", "bob", "first version")
	s := newChat(t, messages, ChatSessionDeps{})
	req.NoError(s.Open(ctx))
	req.NoError(s.Select(original.ID))

	store.updateErr = fmt.Errorf("%w: offline", errors.ErrStoreUnavailable)

	err := s.EditSelected(ctx, "second version")

	req.ErrorIs(err, errors.ErrStoreUnavailable)
	req.Equal("first version", s.Messages()[0].Text)
	req.False(s.IsPending(original.ID))
	// Editing mode is kept so the user can retry
	_, ok := s.Selected()
	req.True(ok)
}

func TestChatSession_Delete_Selected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(newStore(t, nil))
	keep := sendMessage(t, messages, "bob", "alice", "keep me")
	drop := sendMessage(t, messages, "alice", "bob", "drop me")
	s := newChat(t, messages, ChatSessionDeps{})
	req.NoError(s.Open(ctx))

	req.ErrorIs(s.DeleteSelected(ctx), errors.ErrNoSelection)
	req.NoError(s.Select(drop.ID))
	req.NoError(s.DeleteSelected(ctx))

	req.Len(s.Messages(), 1)
	req.Equal(keep.ID, s.Messages()[0].ID)
	history, err := messages.History(ctx, "alice_bob")
	req.NoError(err)
	req.Len(history, 1)
	req.ErrorIs(s.Select(drop.ID), errors.ErrNotFound)
}

func TestChatSession_Delete_Failure_Restores(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := &flakyStore{DocumentStore: newStore(t, nil)}
	messages := repositories.NewMessageRepository(store)
	msg := sendMessage(t, messages, "alice", "bob", "still here")
	s := newChat(t, messages, ChatSessionDeps{})
	req.NoError(s.Open(ctx))
	req.NoError(s.Select(msg.ID))

	store.deleteErr = fmt.Errorf("%w: offline", errors.ErrStoreUnavailable)

	err := s.DeleteSelected(ctx)

	req.ErrorIs(err, errors.ErrStoreUnavailable)
	req.Len(s.Messages(), 1)
	req.Equal("still here", s.Messages()[0].Text)
	req.False(s.IsPending(msg.ID))
}

func TestChatSession_Timeline_Splits_At_Midnight(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	lateEvening := time.Date(2024, 3, 9, 23, 58, 0, 0, time.UTC)
	clock := scriptedClock(
		lateEvening,
		lateEvening.Add(time.Minute),
		lateEvening.Add(3*time.Minute),
	)
	messages := repositories.NewMessageRepository(newStore(t, clock))
	sendMessage(t, messages, "alice", "bob", "good night")
	sendMessage(t, messages, "bob", "alice", "night")
	sendMessage(t, messages, "alice", "bob", "it's tomorrow")
	s := newChat(t, messages, ChatSessionDeps{Location: time.UTC})
	req.NoError(s.Open(ctx))

	items := s.Timeline()

	// separator, 2 messages, separator, 1 message
	req.Len(items, 5)
	req.True(items[0].Separator)
	req.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), items[0].Day)
	req.Equal("good night", items[1].Message.Text)
	req.Equal("night", items[2].Message.Text)
	req.True(items[3].Separator)
	req.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), items[3].Day)
	req.Equal("it's tomorrow", items[4].Message.Text)
}

func TestChatSession_Search_Falls_Back_To_History(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	messages := repositories.NewMessageRepository(newStore(t, nil))
	sendMessage(t, messages, "alice", "bob", "Reunion on Friday")
	sendMessage(t, messages, "bob", "alice", "which venue?")
	sendMessage(t, messages, "alice", "bob", "the reunion hall")
	s := newChat(t, messages, ChatSessionDeps{})
	req.NoError(s.Open(ctx))

	found, err := s.Search(ctx, "REUNION", 0)
	req.NoError(err)
	req.Len(found, 2)
	req.Equal("the reunion hall", found[0].Text)

	found, err = s.Search(ctx, "reunion", 1)
	req.NoError(err)
	req.Len(found, 1)

	found, err = s.Search(ctx, " ", 0)
	req.NoError(err)
	req.Empty(found)
}

func TestChatSession_Search_Uses_Searcher(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	searcher := mocks.NewMockTextSearcher(ctrl)
	store := newStore(t, nil)
	messages := repositories.NewMessageRepository(store)
	msg := sendMessage(t, messages, "alice", "bob", "career fair")
	s := newChat(t, messages, ChatSessionDeps{Searcher: searcher})

	doc, err := store.Get(context.Background(), contract.JoinPath(repositories.ConversationCollection("alice_bob"), msg.ID))
	req.NoError(err)
	searcher.EXPECT().
		Search(gomock.Any(), "messages/alice_bob/messages", "fair", 10).
		Return([]contract.Document{doc}, nil)

	found, err := s.Search(context.Background(), "fair", 10)

	req.NoError(err)
	req.Equal([]domain.Message{msg}, found)
}
