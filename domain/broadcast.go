package domain

import "time"

// BroadcastMessage is posted to the room shared by every member.
// Broadcast has no read tracking.
type BroadcastMessage struct {
	ID                   string
	Text                 string
	Lang                 string
	SenderID             string
	SenderName           string
	SenderRegisterNumber string
	CreatedAt            time.Time
}

// UsernameHue derives a stable display hue in [0, 360) from a user id.
func UsernameHue(userID string) int {
	sum := 0
	for _, r := range userID {
		sum += int(r)
	}
	return sum % 360
}
