package services

import (
	"alumni-chat/domain"

	"github.com/samber/lo"
)

// RankedPeer is one row of the conversation list.
type RankedPeer struct {
	User   domain.User
	Unread int
}

// Rank moves the peers with unread messages to the front. Inside each group the
// input order is kept; counts are not used beyond zero or not.
func Rank(peers []domain.User, counts map[string]int) []RankedPeer {
	rows := lo.Map(peers, func(u domain.User, _ int) RankedPeer {
		return RankedPeer{User: u, Unread: counts[u.ID]}
	})
	unread := lo.Filter(rows, func(r RankedPeer, _ int) bool { return r.Unread > 0 })
	read := lo.Filter(rows, func(r RankedPeer, _ int) bool { return r.Unread == 0 })
	return append(unread, read...)
}
