package chat

import (
	"alumni-chat/domain"
	"time"
)

type Command interface {
	ConversationID() string
}

// SendMessageCommand carries a direct message before the store assigns its id
// and creation time.
type SendMessageCommand struct {
	SenderID   string
	ReceiverID string
	Text       string
}

func (c SendMessageCommand) ConversationID() string {
	return domain.ConversationID(c.SenderID, c.ReceiverID)
}

// MarkSeenCommand asks for the peer's messages to the viewer to be stamped as seen.
type MarkSeenCommand struct {
	ViewerID    string
	PeerID      string
	RequestedAt time.Time
}

func (c MarkSeenCommand) ConversationID() string {
	return domain.ConversationID(c.ViewerID, c.PeerID)
}
