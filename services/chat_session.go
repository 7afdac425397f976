package services

import (
	"alumni-chat/auth"
	"alumni-chat/contract"
	"alumni-chat/domain"
	"alumni-chat/domain/chat"
	"alumni-chat/errors"
	"alumni-chat/observability"
	"alumni-chat/repositories"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

type SessionState string

const (
	StateLoading   SessionState = "loading"
	StateReady     SessionState = "ready"
	StateComposing SessionState = "composing"
	StateSending   SessionState = "sending"
)

type pendingKind int

const (
	settled pendingKind = iota
	pendingEdit
	pendingDelete
)

type cachedMessage struct {
	message domain.Message
	// previous is what to restore when the pending write fails
	previous domain.Message
	pending  pendingKind
}

// ChatSessionDeps groups the collaborators of a chat screen.
type ChatSessionDeps struct {
	Log      *slog.Logger
	Messages repositories.IMessageRepository
	Seen     contract.SeenDispatcher
	// Searcher is optional; without it search scans the loaded history
	Searcher contract.TextSearcher
	Location *time.Location
}

// ChatSession drives one open conversation between the signed-in user and a peer.
// It is safe for concurrent use: store calls run without holding the lock.
type ChatSession struct {
	log      *slog.Logger
	messages repositories.IMessageRepository
	seen     contract.SeenDispatcher
	searcher contract.TextSearcher
	loc      *time.Location

	viewerID       string
	peerID         string
	conversationID string

	mu       sync.Mutex
	state    SessionState
	draft    string
	selected string
	cache    map[string]*cachedMessage
}

func NewChatSession(session auth.Session, peerID string, deps ChatSessionDeps) (*ChatSession, error) {
	viewerID, err := session.RequireUserID()
	if err != nil {
		return nil, err
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &ChatSession{
		log:            deps.Log,
		messages:       deps.Messages,
		seen:           deps.Seen,
		searcher:       deps.Searcher,
		loc:            loc,
		viewerID:       viewerID,
		peerID:         peerID,
		conversationID: domain.ConversationID(viewerID, peerID),
		state:          StateLoading,
		cache:          make(map[string]*cachedMessage),
	}, nil
}

func (s *ChatSession) ConversationID() string {
	return s.conversationID
}

func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open asks for the peer's messages to be marked as seen, without waiting,
// then loads the history.
func (s *ChatSession) Open(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	if s.seen != nil {
		s.seen.Dispatch(chat.MarkSeenCommand{ViewerID: s.viewerID, PeerID: s.peerID, RequestedAt: time.Now().UTC()})
	}
	return s.Reload(ctx)
}

// Reload replaces the local view with what the store holds.
func (s *ChatSession) Reload(ctx context.Context) error {
	history, err := s.messages.History(ctx, s.conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLoading {
		s.state = StateReady
	}
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", s.conversationID, err)
	}
	s.cache = make(map[string]*cachedMessage, len(history))
	for _, m := range history {
		s.cache[m.ID] = &cachedMessage{message: m}
	}
	s.log.Debug("Conversation loaded", "conversation_id", s.conversationID, "messages", len(history))
	if _, ok := s.cache[s.selected]; !ok {
		s.selected = ""
	}
	return nil
}

// Messages is the local view, newest first. Messages being deleted are hidden.
func (s *ChatSession) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesLocked()
}

func (s *ChatSession) messagesLocked() []domain.Message {
	visible := lo.Filter(lo.Values(s.cache), func(c *cachedMessage, _ int) bool {
		return c.pending != pendingDelete
	})
	res := lo.Map(visible, func(c *cachedMessage, _ int) domain.Message { return c.message })
	slices.SortFunc(res, func(a, b domain.Message) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return res
}

// Timeline is the chronological view with day separators in the session location.
func (s *ChatSession) Timeline() []domain.TimelineItem {
	return domain.BuildTimeline(s.Messages(), s.loc)
}

func (s *ChatSession) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *ChatSession) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
	if s.state == StateSending || s.state == StateLoading {
		return
	}
	if _, ok := domain.NormalizeText(text); ok {
		s.state = StateComposing
	} else {
		s.state = StateReady
	}
}

// Send appends the draft. A blank draft is silently ignored. On failure the
// draft is kept so the user can try again.
func (s *ChatSession) Send(ctx context.Context) error {
	s.mu.Lock()
	text, ok := domain.NormalizeText(s.draft)
	if !ok || s.state == StateSending {
		s.mu.Unlock()
		return nil
	}
	s.state = StateSending
	s.mu.Unlock()

	msg, err := s.messages.Append(ctx, chat.SendMessageCommand{
		SenderID:   s.viewerID,
		ReceiverID: s.peerID,
		Text:       text,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateComposing
		return fmt.Errorf("send message: %w", err)
	}
	s.draft = ""
	s.state = StateReady
	s.cache[msg.ID] = &cachedMessage{message: msg}
	observability.MessagesSent.Inc()
	s.log.Debug("Message sent", "conversation_id", s.conversationID, "message_id", msg.ID)
	return nil
}

// Select marks a loaded message as the target of the next edit or delete.
func (s *ChatSession) Select(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cache[messageID]
	if !ok || c.pending == pendingDelete {
		return fmt.Errorf("%w: %s", errors.ErrNotFound, messageID)
	}
	s.selected = messageID
	return nil
}

func (s *ChatSession) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
}

// Selected returns the message in editing mode, if any.
func (s *ChatSession) Selected() (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cache[s.selected]
	if !ok {
		return domain.Message{}, false
	}
	return c.message, true
}

// IsPending reports whether a write on the message is still in flight.
func (s *ChatSession) IsPending(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cache[messageID]
	return ok && c.pending != settled
}

// EditSelected replaces the text of the selected message. The new text shows
// immediately and is reverted if the store refuses it. Blank text is ignored.
func (s *ChatSession) EditSelected(ctx context.Context, text string) error {
	normalized, ok := domain.NormalizeText(text)

	s.mu.Lock()
	c, found := s.cache[s.selected]
	if !found {
		s.mu.Unlock()
		return errors.ErrNoSelection
	}
	if !ok {
		s.mu.Unlock()
		return nil
	}
	id := s.selected
	c.previous = c.message
	c.message.Text = normalized
	c.pending = pendingEdit
	s.mu.Unlock()

	err := s.messages.EditText(ctx, s.conversationID, id, normalized)

	s.mu.Lock()
	defer s.mu.Unlock()
	current, stillCached := s.cache[id]
	if err != nil {
		if stillCached && current == c {
			c.message = c.previous
			c.pending = settled
		}
		return fmt.Errorf("edit reverted: %w", err)
	}
	if stillCached && current == c {
		c.pending = settled
	}
	if s.selected == id {
		s.selected = ""
	}
	return nil
}

// DeleteSelected removes the selected message. It disappears from the view
// immediately and comes back if the store refuses the delete.
func (s *ChatSession) DeleteSelected(ctx context.Context) error {
	s.mu.Lock()
	c, found := s.cache[s.selected]
	if !found {
		s.mu.Unlock()
		return errors.ErrNoSelection
	}
	id := s.selected
	c.pending = pendingDelete
	s.selected = ""
	s.mu.Unlock()

	err := s.messages.Delete(ctx, s.conversationID, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	current, stillCached := s.cache[id]
	if err != nil {
		if stillCached && current == c {
			c.pending = settled
		}
		return fmt.Errorf("delete reverted: %w", err)
	}
	if stillCached && current == c {
		delete(s.cache, id)
	}
	return nil
}

// Search finds messages of this conversation containing terms.
func (s *ChatSession) Search(ctx context.Context, terms string, limit int) ([]domain.Message, error) {
	observability.SearchQueries.Inc()
	if s.searcher == nil {
		needle := strings.ToLower(strings.TrimSpace(terms))
		found := lo.Filter(s.Messages(), func(m domain.Message, _ int) bool {
			return needle != "" && strings.Contains(strings.ToLower(m.Text), needle)
		})
		if limit > 0 && len(found) > limit {
			found = found[:limit]
		}
		return found, nil
	}
	docs, err := s.searcher.Search(ctx, repositories.ConversationCollection(s.conversationID), terms, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.conversationID, err)
	}
	return lo.Map(docs, func(doc contract.Document, _ int) domain.Message {
		return repositories.ToMessage(doc)
	}), nil
}
