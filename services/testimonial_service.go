package services

import (
	"alumni-chat/auth"
	"alumni-chat/domain"
	"alumni-chat/domain/mimetypes"
	"alumni-chat/errors"
	"alumni-chat/moderation"
	"alumni-chat/observability"
	"alumni-chat/repositories"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// Censor replaces forbidden words and reports which ones were found.
type Censor interface {
	Censor(original string) (string, []string)
}

// TestimonialForm is what an alumnus fills in to post a testimonial. Every field is required.
type TestimonialForm struct {
	Name           string `validate:"required,max=100"`
	Email          string `validate:"required,email"`
	GraduationYear string `validate:"required,numeric,len=4"`
	Designation    string `validate:"required,max=100"`
	Company        string `validate:"required,max=100"`
	LinkedIn       string `validate:"required"`
	RollNo         string `validate:"required,max=32"`
	Message        string `validate:"required,max=2000"`
}

type TestimonialService struct {
	log           *slog.Logger
	testimonials  repositories.ITestimonialRepository
	images        *repositories.ImageRepository
	censor        Censor
	maxPhotoBytes int

	// ratings are read-modify-write
	rateMu sync.Mutex
}

func NewTestimonialService(log *slog.Logger, testimonials repositories.ITestimonialRepository,
	images *repositories.ImageRepository, censor Censor, maxPhotoBytes int) *TestimonialService {
	return &TestimonialService{
		log:           log,
		testimonials:  testimonials,
		images:        images,
		censor:        censor,
		maxPhotoBytes: maxPhotoBytes,
	}
}

// Add validates and posts a testimonial. The message is censored and its language detected.
func (s *TestimonialService) Add(ctx context.Context, form TestimonialForm) (string, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Message = strings.TrimSpace(form.Message)
	if err := auth.Validate(form); err != nil {
		return "", err
	}
	message := form.Message
	if s.censor != nil {
		var found []string
		message, found = s.censor.Censor(message)
		if len(found) > 0 {
			observability.CensoredWords.Add(float64(len(found)))
			s.log.Info("Testimonial censored", "words", len(found))
		}
	}
	return s.testimonials.Add(ctx, domain.Testimonial{
		Name:           form.Name,
		Email:          form.Email,
		GraduationYear: form.GraduationYear,
		Designation:    form.Designation,
		Company:        form.Company,
		LinkedIn:       form.LinkedIn,
		RollNo:         form.RollNo,
		Message:        message,
		Lang:           moderation.DetectLanguage(form.Message),
	})
}

func (s *TestimonialService) Get(ctx context.Context, id string) (domain.Testimonial, error) {
	return s.testimonials.Get(ctx, id)
}

func (s *TestimonialService) List(ctx context.Context) ([]domain.Testimonial, error) {
	return s.testimonials.List(ctx)
}

// Watch yields the board after every change until ctx is done.
func (s *TestimonialService) Watch(ctx context.Context) (<-chan []domain.Testimonial, error) {
	return s.testimonials.Watch(ctx)
}

// Rate appends a star rating and returns the new average.
func (s *TestimonialService) Rate(ctx context.Context, id string, stars int) (float64, error) {
	if !domain.ValidRating(stars) {
		return 0, fmt.Errorf("%w: got %d", errors.ErrInvalidRating, stars)
	}
	s.rateMu.Lock()
	defer s.rateMu.Unlock()

	t, err := s.testimonials.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	t.Ratings = append(slices.Clone(t.Ratings), stars)
	if err := s.testimonials.SetRatings(ctx, id, t.Ratings); err != nil {
		return 0, err
	}
	return t.AverageRating(), nil
}

// AttachPhoto stores a jpeg, png or webp picture and links it to the testimonial.
func (s *TestimonialService) AttachPhoto(ctx context.Context, id string, data []byte) (string, error) {
	if len(data) == 0 || (s.maxPhotoBytes > 0 && len(data) > s.maxPhotoBytes) {
		return "", fmt.Errorf("%w: %d bytes", errors.ErrUnsupportedImage, len(data))
	}
	detected := mimetype.Detect(data)
	mime, ok := mimetypes.MatchesAny(detected.String(), mimetypes.ProfileImages)
	if !ok {
		return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedImage, detected.String())
	}
	if _, err := s.testimonials.Get(ctx, id); err != nil {
		return "", err
	}
	imageID, err := s.images.Save(ctx, string(mime), data)
	if err != nil {
		return "", err
	}
	if err := s.testimonials.SetPhoto(ctx, id, imageID); err != nil {
		return "", err
	}
	return imageID, nil
}
