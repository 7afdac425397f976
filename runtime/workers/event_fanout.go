package workers

import (
	"alumni-chat/contract"
	"alumni-chat/domain/event"
	"alumni-chat/observability"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EventFanout broadcasts document changes to multiple in-process consumers.
//
// Permanent sinks (search index, notifier, metrics) receive every event.
// Live subscribers are looked up in the registry by the collection of the event.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries. EventFanout is not a message broker.
// Each sink gets its own goroutine bounded by sinkTimeout, so a slow sink
// never stalls the store.
type EventFanout struct {
	log            *slog.Logger
	changes        <-chan event.DomainEvent
	permanentSinks []contract.EventSink
	registry       contract.IRegistry
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, changes <-chan event.DomainEvent,
	registry contract.IRegistry, sinkTimeout time.Duration, permanentSinks ...contract.EventSink) *EventFanout {
	return &EventFanout{
		log:            log,
		changes:        changes,
		permanentSinks: permanentSinks,
		registry:       registry,
		sinkTimeout:    sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.changes:
			if !ok {
				w.log.Debug("Change channel closed, stopping fanout")
				return nil
			}
			w.Fanout(evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout One goroutine for each sink
func (w *EventFanout) Fanout(evt event.DomainEvent) {
	sinks := append([]contract.EventSink{}, w.permanentSinks...)
	if w.registry != nil {
		sinks = append(sinks, w.registry.GetSinksForCollection(evt.CollectionPath())...)
	}
	for _, sink := range sinks {
		go w.consume(sink, evt)
	}
}

func (w *EventFanout) consume(sink contract.EventSink, evt event.DomainEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(ctx, evt); err != nil {
		name := fmt.Sprintf("%T", sink)
		observability.SinkErrors.WithLabelValues(name).Inc()
		w.log.Warn("Sink failed to consume event", "sink", name,
			"collection", evt.CollectionPath(), "error", err)
	}
}
