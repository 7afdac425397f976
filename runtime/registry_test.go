package runtime

import (
	"alumni-chat/domain/event"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Sink struct {
	name string
}

func (s Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestRegistry_Subscribe_One_Collection_One_Subscriber(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID := uuid.NewString()
	collection := "testimonials"
	sink := Sink{name: "one"}

	// Given nobody is subscribed
	req.Empty(registry.Sessions)
	req.Empty(registry.CollectionMembers)

	// When a subscriber watches a collection
	registry.Subscribe(subscriberID, collection, sink)

	// Then
	req.Len(registry.Sessions, 1)
	req.Equal(sink, registry.Sessions[subscriberID])

	req.Len(registry.CollectionMembers, 1)
	req.Contains(registry.CollectionMembers[collection], subscriberID)

	req.Len(registry.GetSinksForCollection(collection), 1)
	req.Contains(registry.GetSinksForCollection(collection), sink)
}

func TestRegistry_Subscribe_One_Collection_Multiple_Subscribers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID1 := uuid.NewString()
	subscriberID2 := uuid.NewString()
	collection := "messages/alice_bob/messages"
	sink1 := Sink{name: "one"}
	sink2 := Sink{name: "two"}

	// When subscribers watch a collection
	registry.Subscribe(subscriberID1, collection, sink1)
	registry.Subscribe(subscriberID2, collection, sink2)

	// Then
	req.Len(registry.Sessions, 2)
	req.Len(registry.CollectionMembers[collection], 2)

	req.Len(registry.GetSinksForCollection(collection), 2)
	req.Contains(registry.GetSinksForCollection(collection), sink1)
	req.Nil(registry.GetSinksForCollection("messages/alice_carol/messages"))
}

func TestRegistry_UnSubscribe_One_Collection_One_Subscriber(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID := uuid.NewString()
	collection := "testimonials"

	// Given a subscriber watches a collection
	registry.Subscribe(subscriberID, collection, Sink{})

	// When the subscriber leaves
	registry.Unsubscribe(subscriberID, collection)

	// Then no subscriber is left
	// And the collection entry doesn't exist anymore
	req.Empty(registry.Sessions)
	req.Empty(registry.CollectionMembers)
	req.Nil(registry.GetSinksForCollection(collection))
}

func TestRegistry_UnSubscribe_One_Collection_Multiple_Subscribers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID1 := uuid.NewString()
	subscriberID2 := uuid.NewString()
	collection := "testimonials"
	sink1 := Sink{name: "one"}
	sink2 := Sink{name: "two"}

	registry.Subscribe(subscriberID1, collection, sink1)
	registry.Subscribe(subscriberID2, collection, sink2)

	// When a subscriber leaves
	registry.Unsubscribe(subscriberID1, collection)

	// Then only one subscriber is left
	req.Len(registry.Sessions, 1)
	req.Len(registry.CollectionMembers[collection], 1)

	req.Len(registry.GetSinksForCollection(collection), 1)
	req.Contains(registry.GetSinksForCollection(collection), sink2)
}
