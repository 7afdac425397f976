// Package domain contains core concepts of the alumni network.
// This file defines how two participants resolve to a single conversation.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"slices"
	"strings"
)

// ConversationSeparator joins the two participant ids of a conversation key.
const ConversationSeparator = "_"

// ConversationID derives the key shared by both participants of a two-party
// conversation. The ids are sorted so ConversationID(a, b) == ConversationID(b, a).
// A self-conversation (a == b) is valid and yields "a_a".
func ConversationID(a, b string) string {
	ids := []string{a, b}
	slices.Sort(ids)
	return strings.Join(ids, ConversationSeparator)
}
