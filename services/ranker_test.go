package services

import (
	"alumni-chat/auth"
	"alumni-chat/domain"
	"alumni-chat/errors"
	"alumni-chat/mocks"
	"alumni-chat/repositories"
	"context"
	"fmt"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func ids(rows []RankedPeer) []string {
	return lo.Map(rows, func(r RankedPeer, _ int) string { return r.User.ID })
}

func TestRank_Stable_Partition(t *testing.T) {
	req := require.New(t)
	peers := []domain.User{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}
	counts := map[string]int{"b": 1, "d": 7, "e": 2}

	rows := Rank(peers, counts)

	// Unread first in input order, then the rest in input order
	req.Equal([]string{"b", "d", "e", "a", "c"}, ids(rows))
	req.Equal(7, rows[1].Unread)
}

func TestRank_Nothing_Unread_Keeps_Order(t *testing.T) {
	req := require.New(t)
	peers := []domain.User{{ID: "c"}, {ID: "a"}, {ID: "b"}}

	req.Equal([]string{"c", "a", "b"}, ids(Rank(peers, nil)))
	req.Empty(Rank(nil, nil))
}

func TestInboxService_Inbox(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newStore(t, nil)
	users := repositories.NewUserRepository(store)
	messages := repositories.NewMessageRepository(store)
	inbox := NewInboxService(testLogger(), users, NewUnreadTracker(testLogger(), messages, UnreadDirectional))

	for _, u := range []domain.User{
		{ID: "u1", Name: "Alice"}, {ID: "u2", Name: "Bob"}, {ID: "u3", Name: "Carol"},
	} {
		req.NoError(users.Save(ctx, u))
	}
	// Given carol wrote to alice
	sendMessage(t, messages, "u3", "u1", "hello")

	rows, err := inbox.Inbox(ctx, auth.NewSession("u1"))
	req.NoError(err)

	// Then alice does not see herself and carol comes first
	req.Equal([]string{"u3", "u2"}, ids(rows))
	req.Equal(1, rows[0].Unread)

	_, err = inbox.Inbox(ctx, auth.Session{})
	req.ErrorIs(err, errors.ErrNoSession)
}

func TestInboxService_Inbox_Keeps_Listing_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	messages := repositories.NewMessageRepository(newStore(t, nil))
	inbox := NewInboxService(testLogger(), users, NewUnreadTracker(testLogger(), messages, UnreadDirectional))

	users.EXPECT().List(gomock.Any()).Return([]domain.User{
		{ID: "u4"}, {ID: "u1"}, {ID: "u2"}, {ID: "u3"},
	}, nil)
	// Given u2 and u4 wrote to u1
	sendMessage(t, messages, "u2", "u1", "hi")
	sendMessage(t, messages, "u4", "u1", "hello")

	rows, err := inbox.Inbox(ctx, auth.NewSession("u1"))

	// Then writers come first in listing order, then the rest
	req.NoError(err)
	req.Equal([]string{"u4", "u2", "u3"}, ids(rows))
}

func TestInboxService_Inbox_User_List_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	messages := repositories.NewMessageRepository(newStore(t, nil))
	inbox := NewInboxService(testLogger(), users, NewUnreadTracker(testLogger(), messages, UnreadDirectional))

	users.EXPECT().List(gomock.Any()).Return(nil, fmt.Errorf("%w: timeout", errors.ErrStoreUnavailable))

	_, err := inbox.Inbox(context.Background(), auth.NewSession("u1"))

	req.ErrorIs(err, errors.ErrStoreUnavailable)
}
