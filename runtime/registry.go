package runtime

import (
	"alumni-chat/contract"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[string]struct{}

type Registry struct {
	mu                sync.RWMutex
	Sessions          map[string]contract.EventSink // map subscriber -> Sink
	CollectionMembers map[string]Set                // map collection to subscribers
}

func NewRegistry() *Registry {
	return &Registry{
		Sessions:          make(map[string]contract.EventSink),
		CollectionMembers: make(map[string]Set),
	}
}

// GetSinksForCollection retrieves the sinks of every live subscriber of a collection.
// It performs a two-step lookup:
// 1. Identifies subscriber IDs watching the collection via CollectionMembers.
// 2. Resolves those IDs into actual EventSinks using the Sessions map.
//
// Returns nil if nobody watches the collection.
func (r *Registry) GetSinksForCollection(collection string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.CollectionMembers[collection]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for subscriberID := range members {
		if sink, exists := r.Sessions[subscriberID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a subscriber's sink and attaches it to a collection.
// If the collection is not watched yet, it is initialized on the fly.
func (r *Registry) Subscribe(subscriberID string, collection string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Sessions[subscriberID] = sink

	if _, ok := r.CollectionMembers[collection]; !ok {
		r.CollectionMembers[collection] = make(Set)
	}
	r.CollectionMembers[collection][subscriberID] = struct{}{}
}

// Unsubscribe removes a subscriber and cleans up empty collection sets
// to prevent memory leaks over time.
func (r *Registry) Unsubscribe(subscriberID string, collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.Sessions, subscriberID)

	if members, ok := r.CollectionMembers[collection]; ok {
		delete(members, subscriberID)

		// If no one watches the collection anymore, remove the entry entirely
		if len(members) == 0 {
			delete(r.CollectionMembers, collection)
		}
	}
}
