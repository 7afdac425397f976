package services

import (
	"alumni-chat/domain"
	"alumni-chat/observability"
	"alumni-chat/repositories"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"
)

// UnreadMode selects which messages an unread count looks at.
type UnreadMode string

const (
	// UnreadDirectional counts the peer's messages to the viewer created after the
	// most recent lastSeen marker in that direction.
	UnreadDirectional UnreadMode = "directional"
	// UnreadReceiver counts the messages addressed to the peer created after the
	// lastSeen of the latest such message.
	UnreadReceiver UnreadMode = "receiver"
)

func ParseUnreadMode(s string) (UnreadMode, error) {
	switch UnreadMode(s) {
	case "", UnreadDirectional:
		return UnreadDirectional, nil
	case UnreadReceiver:
		return UnreadReceiver, nil
	default:
		return "", fmt.Errorf("unknown unread mode %q", s)
	}
}

// UnreadTracker computes unread counts on demand; nothing is stored.
type UnreadTracker struct {
	log      *slog.Logger
	messages repositories.IMessageRepository
	mode     UnreadMode
}

func NewUnreadTracker(log *slog.Logger, messages repositories.IMessageRepository, mode UnreadMode) *UnreadTracker {
	if mode == "" {
		mode = UnreadDirectional
	}
	return &UnreadTracker{log: log, messages: messages, mode: mode}
}

// Count returns how many messages viewer has not seen from peer. Two reads:
// the marker, then the count.
func (t *UnreadTracker) Count(ctx context.Context, viewerID, peerID string) (int, error) {
	if t.mode == UnreadReceiver {
		return t.countAddressed(ctx, peerID)
	}
	conversationID := domain.ConversationID(viewerID, peerID)
	filter := repositories.MessageFilter{SenderID: peerID, ReceiverID: viewerID}

	marker, found, err := t.messages.LatestSeen(ctx, conversationID, filter)
	if err != nil {
		return 0, fmt.Errorf("read unread marker of %s: %w", conversationID, err)
	}
	count, err := t.messages.CountAfter(ctx, conversationID, filter, lastSeenMillis(marker, found))
	if err != nil {
		return 0, fmt.Errorf("count unread of %s: %w", conversationID, err)
	}
	return count, nil
}

// countAddressed looks at every message sent to peerID, whoever sent it.
func (t *UnreadTracker) countAddressed(ctx context.Context, peerID string) (int, error) {
	marker, found, err := t.messages.LatestAddressed(ctx, peerID)
	if err != nil {
		return 0, fmt.Errorf("read unread marker of %s: %w", peerID, err)
	}
	count, err := t.messages.CountAddressedAfter(ctx, peerID, lastSeenMillis(marker, found))
	if err != nil {
		return 0, fmt.Errorf("count unread of %s: %w", peerID, err)
	}
	return count, nil
}

func lastSeenMillis(marker domain.Message, found bool) int64 {
	if !found || marker.LastSeen == nil {
		return 0
	}
	return marker.LastSeen.UnixMilli()
}

// Counts runs Count for every peer, one after the other.
func (t *UnreadTracker) Counts(ctx context.Context, viewerID string, peerIDs []string) (map[string]int, error) {
	start := time.Now()
	defer func() {
		observability.UnreadCountDuration.Observe(time.Since(start).Seconds())
	}()

	counts := make(map[string]int, len(peerIDs))
	for _, peerID := range peerIDs {
		count, err := t.Count(ctx, viewerID, peerID)
		if err != nil {
			return nil, err
		}
		counts[peerID] = count
	}
	return counts, nil
}

// MarkSeen stamps every message the peer sent to the viewer with the same
// watermark: the createdAt of the newest one found. A message stored after the
// lookup is newer than the watermark and stays unread.
// Each update is independent: a failed one is logged and the others still run.
// It returns how many messages were stamped.
func (t *UnreadTracker) MarkSeen(ctx context.Context, viewerID, peerID string) (int, error) {
	conversationID := domain.ConversationID(viewerID, peerID)
	inbound, err := t.messages.Find(ctx, conversationID,
		repositories.MessageFilter{SenderID: peerID, ReceiverID: viewerID})
	if err != nil {
		return 0, fmt.Errorf("find messages to mark in %s: %w", conversationID, err)
	}
	if len(inbound) == 0 {
		return 0, nil
	}
	watermark := inbound[len(inbound)-1].CreatedAt

	marked := 0
	var failures []error
	for _, m := range inbound {
		if err := t.messages.MarkSeen(ctx, conversationID, m.ID, watermark); err != nil {
			t.log.Warn("Could not mark message as seen",
				"conversation_id", conversationID, "message_id", m.ID, "error", err)
			failures = append(failures, err)
			continue
		}
		marked++
	}
	return marked, goerrors.Join(failures...)
}
