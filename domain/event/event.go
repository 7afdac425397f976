package event

import (
	"strings"
	"time"
)

type DomainEvent interface {
	CollectionPath() string
}

type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Removed  ChangeKind = "removed"
)

// DocumentChanged is emitted by the document store after every successful write.
// Fields holds the document after the write, nil for Removed.
type DocumentChanged struct {
	Kind       ChangeKind
	Collection string
	ID         string
	Fields     map[string]any
	At         time.Time
}

func (d DocumentChanged) CollectionPath() string {
	return d.Collection
}

// Path is the full document path, "collection/id".
func (d DocumentChanged) Path() string {
	return d.Collection + "/" + d.ID
}

// Group is the last segment of the collection path, e.g. "messages" for
// "messages/alice_bob/messages".
func (d DocumentChanged) Group() string {
	if i := strings.LastIndex(d.Collection, "/"); i >= 0 {
		return d.Collection[i+1:]
	}
	return d.Collection
}
