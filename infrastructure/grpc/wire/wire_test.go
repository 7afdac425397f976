package wire

import (
	"alumni-chat/contract"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQuery_Survives_The_Wire(t *testing.T) {
	req := require.New(t)
	q := contract.Query{
		Collection: "messages",
		Group:      true,
		Filters: []contract.Filter{
			contract.Where("receiverId", contract.OpEqual, "bob"),
			contract.Where("createdAt", contract.OpGreater, float64(1000)),
		},
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      5,
	}

	s, err := Request(QueryValue(q))
	req.NoError(err)

	req.Equal(q, QueryFrom(s))
}

func TestSnapshot_Survives_The_Wire(t *testing.T) {
	req := require.New(t)
	snapshot := contract.Snapshot{
		Collection: "testimonials",
		At:         time.UnixMilli(1700000000000).UTC(),
		Documents: []contract.Document{{
			ID:     "t1",
			Path:   "testimonials/t1",
			Fields: map[string]any{"name": "Priya", "ratings": []any{float64(5)}},
		}},
	}

	s, err := Request(SnapshotValue(snapshot))
	req.NoError(err)

	req.Equal(snapshot, SnapshotFrom(s))
}

func TestFullMethod(t *testing.T) {
	require.Equal(t, "/alumni.v1.DocumentService/Append", FullMethod(MethodAppend))
}
