package storage

import (
	"alumni-chat/contract"
	"alumni-chat/domain/event"
	"alumni-chat/errors"
	"alumni-chat/observability"
	"alumni-chat/sink"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var _ contract.DocumentStore = (*DocumentStore)(nil)

const (
	docPrefix   = "doc:"
	groupPrefix = "grp:"
)

// DocumentStore is a collection/document database on top of BadgerDB.
//
// Keys:
//   - "doc:{collection}/{id}" holds the fields, marshalled as a protobuf Struct.
//   - "grp:{group}:{collection}/{id}" is an empty index entry so collection-group
//     queries ("every messages sub-collection") avoid a full scan.
//
// Every successful write is published on changes (when set) for the event fanout.
type DocumentStore struct {
	db       *badger.DB
	log      *slog.Logger
	clock    *Clock
	changes  chan<- event.DomainEvent
	registry contract.IRegistry

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewDocumentStore wires the store. changes and registry may be nil: writes are
// then not published and subscriptions only receive their initial snapshot.
func NewDocumentStore(db *badger.DB, log *slog.Logger, clock *Clock,
	changes chan<- event.DomainEvent, registry contract.IRegistry) *DocumentStore {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &DocumentStore{
		db:       db,
		log:      log,
		clock:    clock,
		changes:  changes,
		registry: registry,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (s *DocumentStore) newID(ms int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(uint64(ms), s.entropy).String()
}

func (s *DocumentStore) Append(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := contract.ValidateCollection(collection); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	now := s.clock.NowMillis()
	id := s.newID(now)
	path := contract.JoinPath(collection, id)
	resolved := resolveSentinels(fields, now)
	data, err := encode(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrValidationRejected, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(docKey(path), data); err != nil {
			return err
		}
		return txn.Set(groupKey(contract.GroupOf(collection), path), []byte{})
	})
	if err != nil {
		return "", unavailable(err)
	}

	s.publish(event.DocumentChanged{
		Kind:       event.Added,
		Collection: collection,
		ID:         id,
		Fields:     contract.NormalizeFields(resolved),
		At:         time.UnixMilli(now).UTC(),
	})
	return id, nil
}

func (s *DocumentStore) Get(ctx context.Context, path string) (contract.Document, error) {
	if _, _, err := contract.SplitPath(path); err != nil {
		return contract.Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return contract.Document{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	var doc contract.Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDocument(txn, path)
		return err
	})
	if err != nil {
		return contract.Document{}, unavailable(err)
	}
	return doc, nil
}

// Set creates or replaces a document under a caller-chosen id, such as a user id.
func (s *DocumentStore) Set(ctx context.Context, path string, fields map[string]any) error {
	collection, id, err := contract.SplitPath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	now := s.clock.NowMillis()
	resolved := resolveSentinels(fields, now)
	data, err := encode(resolved)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidationRejected, err)
	}

	kind := event.Added
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(path)); err == nil {
			kind = event.Modified
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(docKey(path), data); err != nil {
			return err
		}
		return txn.Set(groupKey(contract.GroupOf(collection), path), []byte{})
	})
	if err != nil {
		return unavailable(err)
	}

	s.publish(event.DocumentChanged{
		Kind:       kind,
		Collection: collection,
		ID:         id,
		Fields:     contract.NormalizeFields(resolved),
		At:         time.UnixMilli(now).UTC(),
	})
	return nil
}

func (s *DocumentStore) Update(ctx context.Context, path string, fields map[string]any) error {
	collection, id, err := contract.SplitPath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	now := s.clock.NowMillis()
	resolved := resolveSentinels(fields, now)

	var merged map[string]any
	err = s.db.Update(func(txn *badger.Txn) error {
		current, err := readDocument(txn, path)
		if err != nil {
			return err
		}
		merged = current.Fields
		for k, v := range resolved {
			merged[k] = v
		}
		data, err := encode(merged)
		if err != nil {
			return fmt.Errorf("%w: %v", errors.ErrValidationRejected, err)
		}
		return txn.Set(docKey(path), data)
	})
	if err != nil {
		return unavailable(err)
	}

	s.publish(event.DocumentChanged{
		Kind:       event.Modified,
		Collection: collection,
		ID:         id,
		Fields:     contract.NormalizeFields(merged),
		At:         time.UnixMilli(now).UTC(),
	})
	return nil
}

// Delete removes a document. Deleting an absent document is not an error.
func (s *DocumentStore) Delete(ctx context.Context, path string) error {
	collection, id, err := contract.SplitPath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	existed := false
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(path)); err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		existed = true
		if err := txn.Delete(docKey(path)); err != nil {
			return err
		}
		return txn.Delete(groupKey(contract.GroupOf(collection), path))
	})
	if err != nil {
		return unavailable(err)
	}
	if existed {
		s.publish(event.DocumentChanged{
			Kind:       event.Removed,
			Collection: collection,
			ID:         id,
			At:         time.UnixMilli(s.clock.NowMillis()).UTC(),
		})
	}
	return nil
}

// Query scans the collection (or the collection group index), then filters,
// orders and limits in memory.
func (s *DocumentStore) Query(ctx context.Context, q contract.Query) ([]contract.Document, error) {
	if q.Group {
		if q.Collection == "" || strings.Contains(q.Collection, "/") {
			return nil, fmt.Errorf("%w: group %q", errors.ErrInvalidPath, q.Collection)
		}
	} else if err := contract.ValidateCollection(q.Collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	var docs []contract.Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if q.Group {
			docs, err = scanGroup(txn, q.Collection, q.Filters)
		} else {
			docs, err = scanCollection(txn, q.Collection, q.Filters)
		}
		return err
	})
	if err != nil {
		return nil, unavailable(err)
	}

	docs = order(docs, q.OrderBy, q.Descending)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// Subscribe registers a SnapshotSink for collection. The channel is closed once
// ctx is done.
func (s *DocumentStore) Subscribe(ctx context.Context, collection string) (<-chan contract.Snapshot, error) {
	if err := contract.ValidateCollection(collection); err != nil {
		return nil, err
	}
	load := func(ctx context.Context) (contract.Snapshot, error) {
		docs, err := s.Query(ctx, contract.Query{Collection: collection})
		if err != nil {
			return contract.Snapshot{}, err
		}
		return contract.Snapshot{Collection: collection, Documents: docs, At: time.Now().UTC()}, nil
	}

	snapshotSink := sink.NewSnapshotSink(load)
	if err := snapshotSink.Refresh(ctx); err != nil {
		return nil, err
	}

	subscriberID := uuid.NewString()
	if s.registry != nil {
		s.registry.Subscribe(subscriberID, collection, snapshotSink)
	}
	go func() {
		<-ctx.Done()
		if s.registry != nil {
			s.registry.Unsubscribe(subscriberID, collection)
		}
		snapshotSink.Close()
		s.log.Debug("Subscription closed", "collection", collection, "subscriber_id", subscriberID)
	}()
	return snapshotSink.Snapshots(), nil
}

// publish never blocks a write: when the fanout is behind, the event is dropped.
func (s *DocumentStore) publish(e event.DocumentChanged) {
	if s.changes == nil {
		return
	}
	select {
	case s.changes <- e:
	default:
		observability.ChangesDropped.Inc()
		s.log.Warn("Change channel full, dropping event", "path", e.Path(), "kind", e.Kind)
	}
}

func readDocument(txn *badger.Txn, path string) (contract.Document, error) {
	item, err := txn.Get(docKey(path))
	if err != nil {
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return contract.Document{}, fmt.Errorf("%w: %s", errors.ErrNotFound, path)
		}
		return contract.Document{}, unavailable(err)
	}
	var fields map[string]any
	err = item.Value(func(val []byte) error {
		fields, err = decode(val)
		return err
	})
	if err != nil {
		return contract.Document{}, err
	}
	_, id, _ := contract.SplitPath(path)
	return contract.Document{ID: id, Path: path, Fields: fields}, nil
}

func scanCollection(txn *badger.Txn, collection string, filters []contract.Filter) ([]contract.Document, error) {
	prefix := []byte(docPrefix + collection + "/")
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var docs []contract.Document
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		rest := string(item.Key()[len(prefix):])
		// Documents of sub-collections share the prefix
		if strings.Contains(rest, "/") {
			continue
		}
		var fields map[string]any
		err := item.Value(func(val []byte) error {
			var err error
			fields, err = decode(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		doc := contract.Document{ID: rest, Path: collection + "/" + rest, Fields: fields}
		if matches(doc, filters) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func scanGroup(txn *badger.Txn, group string, filters []contract.Filter) ([]contract.Document, error) {
	prefix := []byte(groupPrefix + group + ":")
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	var paths []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		paths = append(paths, string(it.Item().Key()[len(prefix):]))
	}

	var docs []contract.Document
	for _, path := range paths {
		doc, err := readDocument(txn, path)
		if err != nil {
			if goerrors.Is(err, errors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if matches(doc, filters) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func docKey(path string) []byte {
	return []byte(docPrefix + path)
}

func groupKey(group, path string) []byte {
	return []byte(groupPrefix + group + ":" + path)
}

func unavailable(err error) error {
	if goerrors.Is(err, errors.ErrNotFound) || goerrors.Is(err, errors.ErrValidationRejected) ||
		goerrors.Is(err, errors.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
}
