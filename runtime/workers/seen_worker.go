package workers

import (
	"alumni-chat/contract"
	"alumni-chat/domain/chat"
	"alumni-chat/observability"
	"context"
	"log/slog"
	"sync"
)

var _ contract.SeenDispatcher = (*SeenWorker)(nil)

// SeenMarker stamps the messages a viewer received from a peer.
type SeenMarker interface {
	MarkSeen(ctx context.Context, viewerID, peerID string) (int, error)
}

// SeenWorker runs mark-as-seen requests off the caller's path.
// Opening a conversation only enqueues; nobody waits for the stamps.
type SeenWorker struct {
	log    *slog.Logger
	marker SeenMarker

	mu     sync.Mutex
	closed bool
	queue  chan chat.MarkSeenCommand
}

func NewSeenWorker(log *slog.Logger, marker SeenMarker, bufferSize int) *SeenWorker {
	return &SeenWorker{
		log:    log,
		marker: marker,
		queue:  make(chan chat.MarkSeenCommand, bufferSize),
	}
}

// Dispatch never blocks. When the queue is full or closed the request is dropped:
// the next open of the conversation asks again.
func (w *SeenWorker) Dispatch(cmd chat.MarkSeenCommand) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Debug("Seen worker closed, dropping request", "conversation_id", cmd.ConversationID())
		return
	}
	select {
	case w.queue <- cmd:
	default:
		observability.SeenCommandsDropped.Inc()
		w.log.Warn("Seen queue full, dropping request", "conversation_id", cmd.ConversationID())
	}
}

// Close stops accepting requests. Run drains what is queued, then returns.
func (w *SeenWorker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
}

func (w *SeenWorker) Queue() chan chat.MarkSeenCommand {
	return w.queue
}

func (w *SeenWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping seen worker")
			return nil
		case cmd, ok := <-w.queue:
			if !ok {
				w.log.Debug("Seen queue drained")
				return nil
			}
			marked, err := w.marker.MarkSeen(ctx, cmd.ViewerID, cmd.PeerID)
			if err != nil {
				// Best effort: the markers that did land are kept
				w.log.Warn("Mark as seen failed", "conversation_id", cmd.ConversationID(), "error", err)
			}
			if marked > 0 {
				observability.MessagesMarkedSeen.Add(float64(marked))
				w.log.Debug("Messages marked as seen", "conversation_id", cmd.ConversationID(), "count", marked)
			}
		}
	}
}
