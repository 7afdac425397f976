package contract

import (
	"alumni-chat/errors"
	"fmt"
	"strings"
	"time"
)

// ServerTimestamp is a sentinel field value. The store substitutes it with its
// own clock (epoch milliseconds) when the write is applied.
const ServerTimestamp = "__server_timestamp__"

type Operator string

const (
	OpEqual   Operator = "=="
	OpGreater Operator = ">"
)

type Filter struct {
	Field string
	Op    Operator
	Value any
}

func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query selects documents of a single collection, or of every collection sharing
// the same last path segment when Group is set.
type Query struct {
	Collection string
	Group      bool
	Filters    []Filter
	OrderBy    string
	Descending bool
	// Limit <= 0 means unlimited
	Limit int
}

type Document struct {
	ID     string
	Path   string
	Fields map[string]any
}

// Collection returns the collection path the document lives in.
func (d Document) Collection() string {
	collection, _, _ := SplitPath(d.Path)
	return collection
}

func (d Document) Has(field string) bool {
	_, ok := d.Fields[field]
	return ok
}

func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Millis reads a numeric field. Numbers decoded from the store are float64.
func (d Document) Millis(field string) int64 {
	switch v := d.Fields[field].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func (d Document) Time(field string) time.Time {
	return time.UnixMilli(d.Millis(field)).UTC()
}

// Ints reads a list of numbers such as testimonial ratings.
func (d Document) Ints(field string) []int {
	raw, ok := d.Fields[field].([]any)
	if !ok {
		return nil
	}
	res := make([]int, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			res = append(res, int(f))
		}
	}
	return res
}

type Snapshot struct {
	Collection string
	Documents  []Document
	At         time.Time
}

// JoinPath builds "collection/id".
func JoinPath(collection, id string) string {
	return collection + "/" + id
}

// SplitPath splits a document path into its collection and id.
// Collection paths have an odd number of segments, document paths an even one.
func SplitPath(path string) (collection, id string, err error) {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || len(segments)%2 != 0 || hasEmpty(segments) {
		return "", "", fmt.Errorf("%w: %q", errors.ErrInvalidPath, path)
	}
	i := strings.LastIndex(path, "/")
	return path[:i], path[i+1:], nil
}

// ValidateCollection checks a collection path such as "users" or "messages/a_b/messages".
func ValidateCollection(collection string) error {
	segments := strings.Split(collection, "/")
	if len(segments)%2 != 1 || hasEmpty(segments) {
		return fmt.Errorf("%w: %q is not a collection", errors.ErrInvalidPath, collection)
	}
	return nil
}

// GroupOf returns the last segment of a collection path.
func GroupOf(collection string) string {
	if i := strings.LastIndex(collection, "/"); i >= 0 {
		return collection[i+1:]
	}
	return collection
}

func hasEmpty(segments []string) bool {
	for _, s := range segments {
		if s == "" {
			return true
		}
	}
	return false
}

// NormalizeFields converts the Go values a protobuf Struct does not accept,
// such as []int, into their generic form.
func NormalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []int:
		list := make([]any, len(val))
		for i, n := range val {
			list[i] = n
		}
		return list
	case []string:
		list := make([]any, len(val))
		for i, s := range val {
			list[i] = s
		}
		return list
	case map[string]any:
		return NormalizeFields(val)
	default:
		return v
	}
}
