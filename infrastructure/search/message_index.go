package search

import (
	"alumni-chat/contract"
	"alumni-chat/domain/event"
	"alumni-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blugelabs/bluge"
	blugesearch "github.com/blugelabs/bluge/search"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	fieldCollection = "collection"
	fieldPath       = "path"
	fieldText       = "text"
	fieldCreatedAt  = "createdAt"
	fieldSource     = "_source"
)

var (
	_ contract.EventSink    = (*MessageIndex)(nil)
	_ contract.TextSearcher = (*MessageIndex)(nil)
)

// MessageIndex keeps a full-text index of every document of a collection group.
// It is fed by the fanout and answers TextSearcher queries.
type MessageIndex struct {
	log    *slog.Logger
	writer *bluge.Writer
	group  string

	mu sync.Mutex
	// applied remembers the time of the last change per path, the fanout
	// does not keep events in order.
	applied map[string]time.Time
}

func NewMessageIndex(log *slog.Logger, writer *bluge.Writer, group string) *MessageIndex {
	return &MessageIndex{log: log, writer: writer, group: group, applied: make(map[string]time.Time)}
}

func (i *MessageIndex) Consume(_ context.Context, e event.DomainEvent) error {
	changed, ok := e.(event.DocumentChanged)
	if !ok || changed.Group() != i.group {
		return nil
	}
	path := changed.Path()

	i.mu.Lock()
	defer i.mu.Unlock()
	if last, seen := i.applied[path]; seen && changed.At.Before(last) {
		i.log.Debug("Skipping stale change", "path", path)
		return nil
	}
	i.applied[path] = changed.At

	if changed.Kind == event.Removed {
		if err := i.writer.Delete(bluge.Identifier(path)); err != nil {
			return fmt.Errorf("unindex %s: %w", path, err)
		}
		return nil
	}
	doc, err := toBlugeDocument(changed)
	if err != nil {
		return err
	}
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index %s: %w", path, err)
	}
	return nil
}

// Search returns the documents of collection matching every term, newest first.
func (i *MessageIndex) Search(ctx context.Context, collection, terms string, limit int) ([]contract.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: open index reader: %v", errors.ErrStoreUnavailable, err)
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(collection).SetField(fieldCollection)).
		AddMust(bluge.NewMatchQuery(terms).SetField(fieldText).SetOperator(bluge.MatchQueryOperatorAnd))
	request := bluge.NewTopNSearch(limit, query).SortBy([]string{"-" + fieldCreatedAt})

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	var docs []contract.Document
	match, err := matches.Next()
	for err == nil && match != nil {
		doc, decodeErr := fromMatch(match)
		if decodeErr != nil {
			return nil, decodeErr
		}
		docs = append(docs, doc)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterate results of %s: %w", collection, err)
	}
	return docs, nil
}

func toBlugeDocument(changed event.DocumentChanged) (*bluge.Document, error) {
	source, err := structpb.NewStruct(changed.Fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", changed.Path(), err)
	}
	data, err := proto.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", changed.Path(), err)
	}
	text, _ := changed.Fields[fieldText].(string)

	doc := bluge.NewDocument(changed.Path()).
		AddField(bluge.NewKeywordField(fieldCollection, changed.Collection)).
		AddField(bluge.NewKeywordField(fieldPath, changed.Path()).StoreValue()).
		AddField(bluge.NewTextField(fieldText, text)).
		AddField(bluge.NewNumericField(fieldCreatedAt, createdAt(changed.Fields)).Sortable()).
		AddField(bluge.NewStoredOnlyField(fieldSource, data))
	return doc, nil
}

func createdAt(fields map[string]any) float64 {
	switch v := fields[fieldCreatedAt].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func fromMatch(match *blugesearch.DocumentMatch) (contract.Document, error) {
	var (
		path   string
		source []byte
	)
	err := match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case fieldPath:
			path = string(value)
		case fieldSource:
			source = append([]byte(nil), value...)
		}
		return true
	})
	if err != nil {
		return contract.Document{}, fmt.Errorf("read stored fields: %w", err)
	}
	_, id, err := contract.SplitPath(path)
	if err != nil {
		return contract.Document{}, err
	}
	var s structpb.Struct
	if err := proto.Unmarshal(source, &s); err != nil {
		return contract.Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return contract.Document{ID: id, Path: path, Fields: s.AsMap()}, nil
}
