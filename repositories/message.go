package repositories

import (
	"alumni-chat/contract"
	"alumni-chat/domain"
	"alumni-chat/domain/chat"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	MessagesCollection = "messages"

	FieldText       = "text"
	FieldSenderID   = "senderId"
	FieldReceiverID = "receiverId"
	FieldCreatedAt  = "createdAt"
	FieldLastSeen   = "lastSeen"
)

type IMessageRepository interface {
	Append(ctx context.Context, cmd chat.SendMessageCommand) (domain.Message, error)
	History(ctx context.Context, conversationID string) ([]domain.Message, error)
	Addressed(ctx context.Context, receiverID string) ([]domain.Message, error)
	LatestAddressed(ctx context.Context, receiverID string) (domain.Message, bool, error)
	CountAddressedAfter(ctx context.Context, receiverID string, after int64) (int, error)
	LatestSeen(ctx context.Context, conversationID string, filter MessageFilter) (domain.Message, bool, error)
	CountAfter(ctx context.Context, conversationID string, filter MessageFilter, after int64) (int, error)
	Find(ctx context.Context, conversationID string, filter MessageFilter) ([]domain.Message, error)
	EditText(ctx context.Context, conversationID, id, text string) error
	MarkSeen(ctx context.Context, conversationID, id string, seenAt time.Time) error
	Delete(ctx context.Context, conversationID, id string) error
}

// MessageFilter narrows a conversation to one direction. Empty fields match anything.
type MessageFilter struct {
	SenderID   string
	ReceiverID string
}

func (f MessageFilter) filters() []contract.Filter {
	var res []contract.Filter
	if f.SenderID != "" {
		res = append(res, contract.Where(FieldSenderID, contract.OpEqual, f.SenderID))
	}
	if f.ReceiverID != "" {
		res = append(res, contract.Where(FieldReceiverID, contract.OpEqual, f.ReceiverID))
	}
	return res
}

// MessageRepository maps conversations onto "messages/{conversationID}/messages".
type MessageRepository struct {
	store contract.DocumentStore
}

func NewMessageRepository(store contract.DocumentStore) *MessageRepository {
	return &MessageRepository{store: store}
}

// ConversationCollection is the collection holding the messages of one conversation.
func ConversationCollection(conversationID string) string {
	return contract.JoinPath(MessagesCollection, conversationID) + "/" + MessagesCollection
}

// Append writes a new message. The store assigns the id and createdAt,
// so the returned message is read back from the store.
func (r *MessageRepository) Append(ctx context.Context, cmd chat.SendMessageCommand) (domain.Message, error) {
	conversationID := cmd.ConversationID()
	collection := ConversationCollection(conversationID)
	id, err := r.store.Append(ctx, collection, map[string]any{
		FieldText:       cmd.Text,
		FieldSenderID:   cmd.SenderID,
		FieldReceiverID: cmd.ReceiverID,
		FieldCreatedAt:  contract.ServerTimestamp,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message to %s: %w", conversationID, err)
	}
	doc, err := r.store.Get(ctx, contract.JoinPath(collection, id))
	if err != nil {
		return domain.Message{}, fmt.Errorf("read back message %s: %w", id, err)
	}
	return ToMessage(doc), nil
}

// History returns every message of the conversation, newest first.
func (r *MessageRepository) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	return r.query(ctx, contract.Query{
		Collection: ConversationCollection(conversationID),
		OrderBy:    FieldCreatedAt,
		Descending: true,
	})
}

// Addressed returns the messages sent to receiverID across every conversation.
func (r *MessageRepository) Addressed(ctx context.Context, receiverID string) ([]domain.Message, error) {
	return r.query(ctx, contract.Query{
		Collection: MessagesCollection,
		Group:      true,
		Filters:    []contract.Filter{contract.Where(FieldReceiverID, contract.OpEqual, receiverID)},
		OrderBy:    FieldCreatedAt,
		Descending: true,
	})
}

// LatestAddressed returns the newest message sent to receiverID in any conversation.
func (r *MessageRepository) LatestAddressed(ctx context.Context, receiverID string) (domain.Message, bool, error) {
	return r.first(ctx, contract.Query{
		Collection: MessagesCollection,
		Group:      true,
		Filters:    []contract.Filter{contract.Where(FieldReceiverID, contract.OpEqual, receiverID)},
		OrderBy:    FieldCreatedAt,
		Descending: true,
		Limit:      1,
	})
}

// CountAddressedAfter counts the messages sent to receiverID in any conversation
// created strictly after the epoch millis.
func (r *MessageRepository) CountAddressedAfter(ctx context.Context, receiverID string, after int64) (int, error) {
	docs, err := r.store.Query(ctx, contract.Query{
		Collection: MessagesCollection,
		Group:      true,
		Filters: []contract.Filter{
			contract.Where(FieldReceiverID, contract.OpEqual, receiverID),
			contract.Where(FieldCreatedAt, contract.OpGreater, after),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count messages to %s: %w", receiverID, err)
	}
	return len(docs), nil
}

// LatestSeen returns the matching message with the most recent lastSeen marker.
func (r *MessageRepository) LatestSeen(ctx context.Context, conversationID string, filter MessageFilter) (domain.Message, bool, error) {
	return r.first(ctx, contract.Query{
		Collection: ConversationCollection(conversationID),
		Filters:    append(filter.filters(), contract.Where(FieldLastSeen, contract.OpGreater, 0)),
		OrderBy:    FieldLastSeen,
		Descending: true,
		Limit:      1,
	})
}

// CountAfter counts the matching messages created strictly after the epoch millis.
func (r *MessageRepository) CountAfter(ctx context.Context, conversationID string, filter MessageFilter, after int64) (int, error) {
	docs, err := r.store.Query(ctx, contract.Query{
		Collection: ConversationCollection(conversationID),
		Filters:    append(filter.filters(), contract.Where(FieldCreatedAt, contract.OpGreater, after)),
	})
	if err != nil {
		return 0, fmt.Errorf("count messages of %s: %w", conversationID, err)
	}
	return len(docs), nil
}

func (r *MessageRepository) Find(ctx context.Context, conversationID string, filter MessageFilter) ([]domain.Message, error) {
	return r.query(ctx, contract.Query{
		Collection: ConversationCollection(conversationID),
		Filters:    filter.filters(),
		OrderBy:    FieldCreatedAt,
	})
}

// EditText replaces the text only: sender, receiver and createdAt are left untouched.
func (r *MessageRepository) EditText(ctx context.Context, conversationID, id, text string) error {
	path := contract.JoinPath(ConversationCollection(conversationID), id)
	if err := r.store.Update(ctx, path, map[string]any{FieldText: text}); err != nil {
		return fmt.Errorf("edit message %s: %w", id, err)
	}
	return nil
}

// MarkSeen stamps lastSeen with seenAt.
func (r *MessageRepository) MarkSeen(ctx context.Context, conversationID, id string, seenAt time.Time) error {
	path := contract.JoinPath(ConversationCollection(conversationID), id)
	if err := r.store.Update(ctx, path, map[string]any{FieldLastSeen: seenAt.UnixMilli()}); err != nil {
		return fmt.Errorf("mark message %s as seen: %w", id, err)
	}
	return nil
}

func (r *MessageRepository) Delete(ctx context.Context, conversationID, id string) error {
	path := contract.JoinPath(ConversationCollection(conversationID), id)
	if err := r.store.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return nil
}

func (r *MessageRepository) query(ctx context.Context, q contract.Query) ([]domain.Message, error) {
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return lo.Map(docs, func(doc contract.Document, _ int) domain.Message {
		return ToMessage(doc)
	}), nil
}

func (r *MessageRepository) first(ctx context.Context, q contract.Query) (domain.Message, bool, error) {
	messages, err := r.query(ctx, q)
	if err != nil {
		return domain.Message{}, false, err
	}
	if len(messages) == 0 {
		return domain.Message{}, false, nil
	}
	return messages[0], true, nil
}

// ToMessage maps a stored document. The conversation id is the parent segment
// of the collection path.
func ToMessage(doc contract.Document) domain.Message {
	msg := domain.Message{
		ID:             doc.ID,
		ConversationID: conversationOf(doc.Collection()),
		Text:           doc.String(FieldText),
		SenderID:       doc.String(FieldSenderID),
		ReceiverID:     doc.String(FieldReceiverID),
		CreatedAt:      doc.Time(FieldCreatedAt),
	}
	if doc.Has(FieldLastSeen) {
		msg.LastSeen = lo.ToPtr(doc.Time(FieldLastSeen))
	}
	return msg
}

func conversationOf(collection string) string {
	segments := strings.Split(collection, "/")
	if len(segments) != 3 {
		return ""
	}
	return segments[1]
}
