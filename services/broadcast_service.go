package services

import (
	"alumni-chat/auth"
	"alumni-chat/domain"
	"alumni-chat/moderation"
	"alumni-chat/observability"
	"alumni-chat/repositories"
	"context"
	"fmt"
	"log/slog"
)

// BroadcastService is the room shared by every member. It has no read tracking.
type BroadcastService struct {
	log       *slog.Logger
	broadcast *repositories.BroadcastRepository
	users     repositories.IUserRepository
	censor    Censor
}

func NewBroadcastService(log *slog.Logger, broadcast *repositories.BroadcastRepository,
	users repositories.IUserRepository, censor Censor) *BroadcastService {
	return &BroadcastService{log: log, broadcast: broadcast, users: users, censor: censor}
}

// Post publishes text under the sender's profile name. Blank text is ignored
// and returns an empty id.
func (s *BroadcastService) Post(ctx context.Context, session auth.Session, text string) (string, error) {
	senderID, err := session.RequireUserID()
	if err != nil {
		return "", err
	}
	normalized, ok := domain.NormalizeText(text)
	if !ok {
		return "", nil
	}
	sender, err := s.users.Get(ctx, senderID)
	if err != nil {
		return "", fmt.Errorf("load sender profile: %w", err)
	}
	censored := normalized
	if s.censor != nil {
		var found []string
		censored, found = s.censor.Censor(normalized)
		observability.CensoredWords.Add(float64(len(found)))
	}
	return s.broadcast.Post(ctx, domain.BroadcastMessage{
		Text:                 censored,
		Lang:                 moderation.DetectLanguage(normalized),
		SenderID:             senderID,
		SenderName:           sender.Name,
		SenderRegisterNumber: sender.RegisterNumber,
	})
}

// List returns the latest messages, newest first.
func (s *BroadcastService) List(ctx context.Context, limit int) ([]domain.BroadcastMessage, error) {
	return s.broadcast.List(ctx, limit)
}
