// Package domain contains core concepts of the alumni network.
// This file defines direct messages and their day-grouped presentation.
package domain

import (
	"slices"
	"strings"
	"time"
)

// Message is one entry of a two-party conversation.
// ID, SenderID, ReceiverID and CreatedAt never change after creation.
type Message struct {
	ID             string
	ConversationID string
	Text           string
	SenderID       string
	ReceiverID     string
	CreatedAt      time.Time
	// LastSeen is written on the receiver's inbound messages when the
	// receiver opens the conversation. Nil until then.
	LastSeen *time.Time
}

// NormalizeText trims a message body. ok is false when nothing is left to send.
func NormalizeText(text string) (normalized string, ok bool) {
	normalized = strings.TrimSpace(text)
	return normalized, normalized != ""
}

// TimelineItem is either a day separator or a message.
type TimelineItem struct {
	Separator bool
	Day       time.Time
	Message   Message
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// BuildTimeline turns a newest-first history into a chronological timeline.
// A separator precedes the first message and every message whose calendar day
// differs from the message right before it.
func BuildTimeline(newestFirst []Message, loc *time.Location) []TimelineItem {
	if loc == nil {
		loc = time.Local
	}
	chronological := slices.Clone(newestFirst)
	slices.Reverse(chronological)

	items := make([]TimelineItem, 0, len(chronological)*2)
	for i, m := range chronological {
		if i == 0 || !SameDay(chronological[i-1].CreatedAt, m.CreatedAt, loc) {
			y, mo, d := m.CreatedAt.In(loc).Date()
			items = append(items, TimelineItem{
				Separator: true,
				Day:       time.Date(y, mo, d, 0, 0, 0, 0, loc),
			})
		}
		items = append(items, TimelineItem{Message: m})
	}
	return items
}
