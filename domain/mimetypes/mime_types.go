package mimetypes

import "mime"

type MIME string

const (
	Unknown   MIME = "unknown"
	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageWEBP MIME = "image/webp"
	ImageGIF  MIME = "image/gif"
)

// ProfileImages are the formats accepted for testimonial photos.
var ProfileImages = []MIME{ImageJPEG, ImagePNG, ImageWEBP}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// MatchesAny returns the first accepted type the detected one matches.
func MatchesAny(detected string, accepted []MIME) (MIME, bool) {
	for _, expected := range accepted {
		if m, ok := Matches(detected, expected); ok {
			return m, true
		}
	}
	return Unknown, false
}
