package repositories

import (
	"alumni-chat/contract"
	"alumni-chat/domain"
	"context"
	"fmt"

	"github.com/samber/lo"
)

const TestimonialsCollection = "testimonials"

type ITestimonialRepository interface {
	Add(ctx context.Context, t domain.Testimonial) (string, error)
	Get(ctx context.Context, id string) (domain.Testimonial, error)
	List(ctx context.Context) ([]domain.Testimonial, error)
	SetRatings(ctx context.Context, id string, ratings []int) error
	SetPhoto(ctx context.Context, id, photoID string) error
	Watch(ctx context.Context) (<-chan []domain.Testimonial, error)
}

type TestimonialRepository struct {
	store contract.DocumentStore
}

func NewTestimonialRepository(store contract.DocumentStore) *TestimonialRepository {
	return &TestimonialRepository{store: store}
}

func (r *TestimonialRepository) Add(ctx context.Context, t domain.Testimonial) (string, error) {
	id, err := r.store.Append(ctx, TestimonialsCollection, map[string]any{
		"name":           t.Name,
		"email":          t.Email,
		"graduationYear": t.GraduationYear,
		"designation":    t.Designation,
		"company":        t.Company,
		"linkedin":       t.LinkedIn,
		"rollNo":         t.RollNo,
		"message":        t.Message,
		"lang":           t.Lang,
		"ratings":        []int{},
		"timestamp":      contract.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("add testimonial: %w", err)
	}
	return id, nil
}

func (r *TestimonialRepository) Get(ctx context.Context, id string) (domain.Testimonial, error) {
	doc, err := r.store.Get(ctx, contract.JoinPath(TestimonialsCollection, id))
	if err != nil {
		return domain.Testimonial{}, fmt.Errorf("get testimonial %s: %w", id, err)
	}
	return toTestimonial(doc), nil
}

// List returns the board, newest first.
func (r *TestimonialRepository) List(ctx context.Context) ([]domain.Testimonial, error) {
	docs, err := r.store.Query(ctx, contract.Query{
		Collection: TestimonialsCollection,
		OrderBy:    "timestamp",
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	return toTestimonials(docs), nil
}

func (r *TestimonialRepository) SetRatings(ctx context.Context, id string, ratings []int) error {
	err := r.store.Update(ctx, contract.JoinPath(TestimonialsCollection, id), map[string]any{"ratings": ratings})
	if err != nil {
		return fmt.Errorf("rate testimonial %s: %w", id, err)
	}
	return nil
}

func (r *TestimonialRepository) SetPhoto(ctx context.Context, id, photoID string) error {
	err := r.store.Update(ctx, contract.JoinPath(TestimonialsCollection, id), map[string]any{"photoId": photoID})
	if err != nil {
		return fmt.Errorf("attach photo to testimonial %s: %w", id, err)
	}
	return nil
}

// Watch yields the whole board again after every change, until ctx is done.
func (r *TestimonialRepository) Watch(ctx context.Context) (<-chan []domain.Testimonial, error) {
	snapshots, err := r.store.Subscribe(ctx, TestimonialsCollection)
	if err != nil {
		return nil, fmt.Errorf("watch testimonials: %w", err)
	}
	out := make(chan []domain.Testimonial)
	go func() {
		defer close(out)
		for snapshot := range snapshots {
			board := toTestimonials(snapshot.Documents)
			select {
			case out <- board:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func toTestimonials(docs []contract.Document) []domain.Testimonial {
	return lo.Map(docs, func(doc contract.Document, _ int) domain.Testimonial {
		return toTestimonial(doc)
	})
}

func toTestimonial(doc contract.Document) domain.Testimonial {
	return domain.Testimonial{
		ID:             doc.ID,
		Name:           doc.String("name"),
		Email:          doc.String("email"),
		GraduationYear: doc.String("graduationYear"),
		Designation:    doc.String("designation"),
		Company:        doc.String("company"),
		LinkedIn:       doc.String("linkedin"),
		RollNo:         doc.String("rollNo"),
		Message:        doc.String("message"),
		Lang:           doc.String("lang"),
		Ratings:        doc.Ints("ratings"),
		PhotoID:        doc.String("photoId"),
		CreatedAt:      doc.Time("timestamp"),
	}
}
