//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"alumni-chat/domain/chat"
	"alumni-chat/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks live subscribers per collection.
type IRegistry interface {
	GetSinksForCollection(collection string) []EventSink
	Subscribe(subscriberID string, collection string, sink EventSink)
	Unsubscribe(subscriberID string, collection string)
}

// DocumentStore is the hosted document database seen by every component.
// Implemented by the embedded Badger store and by the gRPC remote client.
type DocumentStore interface {
	// Append creates a document with a generated id in collection.
	// Any field equal to ServerTimestamp is replaced by the store clock.
	Append(ctx context.Context, collection string, fields map[string]any) (string, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// Set creates or replaces the document at path.
	Set(ctx context.Context, path string, fields map[string]any) error
	// Update merges the named fields into an existing document.
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	Get(ctx context.Context, path string) (Document, error)
	// Subscribe yields a snapshot of collection immediately and after every change,
	// until ctx is done.
	Subscribe(ctx context.Context, collection string) (<-chan Snapshot, error)
}

// TextSearcher runs full-text queries over the "text" field of a collection.
type TextSearcher interface {
	Search(ctx context.Context, collection, terms string, limit int) ([]Document, error)
}

// SeenDispatcher hands mark-as-seen requests to a background worker.
type SeenDispatcher interface {
	Dispatch(cmd chat.MarkSeenCommand)
}
