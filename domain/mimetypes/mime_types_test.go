package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		expected MIME
		want     bool
	}{
		{"PNG", "image/png", ImagePNG, true},
		{"JPEG", "image/jpeg", ImageJPEG, true},
		{"WEBP", "image/webp", ImageWEBP, true},
		{"GIF", "image/gif", ImageGIF, true},
		{"Parameters are ignored", "image/png; charset=binary", ImagePNG, true},

		// Fallback / mismatch
		{"Mismatch", "image/gif", ImagePNG, false},
		{"Unknown type", "application/octet-stream", ImageJPEG, false},
		{"Invalid MIME", "not a mime", ImagePNG, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Matches(tt.detected, tt.expected)
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestMatchesAny(t *testing.T) {
	req := require.New(t)

	m, ok := MatchesAny("image/webp", ProfileImages)
	req.True(ok)
	req.Equal(ImageWEBP, m)

	m, ok = MatchesAny("image/gif", ProfileImages)
	req.False(ok)
	req.Equal(Unknown, m)
}
