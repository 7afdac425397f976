package repositories

import (
	"alumni-chat/contract"
	"alumni-chat/domain"
	"context"
	"fmt"

	"github.com/samber/lo"
)

const BroadcastCollection = "broadcast_messages"

type BroadcastRepository struct {
	store contract.DocumentStore
}

func NewBroadcastRepository(store contract.DocumentStore) *BroadcastRepository {
	return &BroadcastRepository{store: store}
}

func (r *BroadcastRepository) Post(ctx context.Context, m domain.BroadcastMessage) (string, error) {
	id, err := r.store.Append(ctx, BroadcastCollection, map[string]any{
		"text":                 m.Text,
		"lang":                 m.Lang,
		"senderId":             m.SenderID,
		"senderName":           m.SenderName,
		"senderRegisterNumber": m.SenderRegisterNumber,
		"timestamp":            contract.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("post broadcast: %w", err)
	}
	return id, nil
}

// List returns the latest messages of the room, newest first. limit <= 0 means all.
func (r *BroadcastRepository) List(ctx context.Context, limit int) ([]domain.BroadcastMessage, error) {
	docs, err := r.store.Query(ctx, contract.Query{
		Collection: BroadcastCollection,
		OrderBy:    "timestamp",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list broadcast: %w", err)
	}
	return lo.Map(docs, func(doc contract.Document, _ int) domain.BroadcastMessage {
		return domain.BroadcastMessage{
			ID:                   doc.ID,
			Text:                 doc.String("text"),
			Lang:                 doc.String("lang"),
			SenderID:             doc.String("senderId"),
			SenderName:           doc.String("senderName"),
			SenderRegisterNumber: doc.String("senderRegisterNumber"),
			CreatedAt:            doc.Time("timestamp"),
		}
	}), nil
}
