package domain

import (
	"time"

	"github.com/samber/lo"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Testimonial is an alumni story posted on the board.
type Testimonial struct {
	ID             string
	Name           string
	Email          string
	GraduationYear string
	Designation    string
	Company        string
	LinkedIn       string
	RollNo         string
	Message        string
	Lang           string
	Ratings        []int
	PhotoID        string
	CreatedAt      time.Time
}

// AverageRating is the arithmetic mean of all ratings, 0 when unrated.
func (t Testimonial) AverageRating() float64 {
	if len(t.Ratings) == 0 {
		return 0
	}
	return float64(lo.Sum(t.Ratings)) / float64(len(t.Ratings))
}

func ValidRating(stars int) bool {
	return stars >= MinRating && stars <= MaxRating
}
