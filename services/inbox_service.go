package services

import (
	"alumni-chat/auth"
	"alumni-chat/domain"
	"alumni-chat/repositories"
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

// InboxService builds the conversation list of the signed-in user.
type InboxService struct {
	log     *slog.Logger
	users   repositories.IUserRepository
	tracker *UnreadTracker
}

func NewInboxService(log *slog.Logger, users repositories.IUserRepository, tracker *UnreadTracker) *InboxService {
	return &InboxService{log: log, users: users, tracker: tracker}
}

// Inbox lists every other user with their unread count, unread first.
func (s *InboxService) Inbox(ctx context.Context, session auth.Session) ([]RankedPeer, error) {
	viewerID, err := session.RequireUserID()
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load conversation list: %w", err)
	}
	peers := lo.Filter(users, func(u domain.User, _ int) bool { return u.ID != viewerID })
	peerIDs := lo.Map(peers, func(u domain.User, _ int) string { return u.ID })

	counts, err := s.tracker.Counts(ctx, viewerID, peerIDs)
	if err != nil {
		return nil, err
	}
	s.log.Debug("Conversation list loaded", "viewer_id", viewerID, "peers", len(peers))
	return Rank(peers, counts), nil
}
