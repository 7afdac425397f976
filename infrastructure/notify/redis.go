package notify

import (
	"alumni-chat/contract"
	"alumni-chat/domain/event"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	inboxChannelPrefix = "alumni:inbox:"
	BroadcastChannel   = "alumni:broadcast"
)

var _ contract.EventSink = (*RedisNotifier)(nil)

// Publisher is the part of *redis.Client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Notification is the JSON payload pushed to other processes, such as a push
// gateway, when a message lands.
type Notification struct {
	Kind           string `json:"kind"`
	ConversationID string `json:"conversationId,omitempty"`
	MessageID      string `json:"messageId"`
	SenderID       string `json:"senderId"`
	Text           string `json:"text"`
	At             int64  `json:"at"`
}

// InboxChannel is the channel a user's clients listen on.
func InboxChannel(userID string) string {
	return inboxChannelPrefix + userID
}

// RedisNotifier publishes new direct and broadcast messages on Redis pub/sub.
// Edits, deletes and seen markers are not announced.
type RedisNotifier struct {
	log       *slog.Logger
	publisher Publisher
}

func NewRedisNotifier(log *slog.Logger, publisher Publisher) *RedisNotifier {
	return &RedisNotifier{log: log, publisher: publisher}
}

// NewRedisClient connects to url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func (n *RedisNotifier) Consume(ctx context.Context, e event.DomainEvent) error {
	changed, ok := e.(event.DocumentChanged)
	if !ok || changed.Kind != event.Added {
		return nil
	}
	channel, notification, ok := route(changed)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.publisher.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish on %s: %w", channel, err)
	}
	n.log.Debug("Notification published", "channel", channel, "message_id", changed.ID)
	return nil
}

func route(changed event.DocumentChanged) (string, Notification, bool) {
	str := func(field string) string {
		s, _ := changed.Fields[field].(string)
		return s
	}
	notification := Notification{
		MessageID: changed.ID,
		SenderID:  str("senderId"),
		Text:      str("text"),
		At:        changed.At.UnixMilli(),
	}
	switch {
	case changed.Group() == "messages" && strings.Count(changed.Collection, "/") == 2:
		receiverID := str("receiverId")
		if receiverID == "" {
			return "", Notification{}, false
		}
		notification.Kind = "message"
		notification.ConversationID = strings.Split(changed.Collection, "/")[1]
		return InboxChannel(receiverID), notification, true
	case changed.Collection == "broadcast_messages":
		notification.Kind = "broadcast"
		return BroadcastChannel, notification, true
	default:
		return "", Notification{}, false
	}
}
