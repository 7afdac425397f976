//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"alumni-chat/contract"
	"alumni-chat/domain"
	"context"
	"fmt"

	"github.com/samber/lo"
)

const UsersCollection = "users"

type IUserRepository interface {
	Get(ctx context.Context, userID string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Save(ctx context.Context, user domain.User) error
}

type UserRepository struct {
	store contract.DocumentStore
}

func NewUserRepository(store contract.DocumentStore) *UserRepository {
	return &UserRepository{store: store}
}

func (u *UserRepository) Get(ctx context.Context, userID string) (domain.User, error) {
	doc, err := u.store.Get(ctx, contract.JoinPath(UsersCollection, userID))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return toUser(doc), nil
}

// List returns every user ordered by name.
func (u *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	docs, err := u.store.Query(ctx, contract.Query{Collection: UsersCollection, OrderBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return lo.Map(docs, func(doc contract.Document, _ int) domain.User {
		return toUser(doc)
	}), nil
}

// Save writes the whole profile under the user id.
func (u *UserRepository) Save(ctx context.Context, user domain.User) error {
	err := u.store.Set(ctx, contract.JoinPath(UsersCollection, user.ID), map[string]any{
		"name":           user.Name,
		"registerNumber": user.RegisterNumber,
		"email":          user.Email,
		"role":           string(user.Role),
		"gender":         user.Gender,
		"department":     user.Department,
		"batch":          user.Batch,
		"phone":          user.Phone,
	})
	if err != nil {
		return fmt.Errorf("save user %s: %w", user.ID, err)
	}
	return nil
}

func toUser(doc contract.Document) domain.User {
	return domain.User{
		ID:             doc.ID,
		Name:           doc.String("name"),
		RegisterNumber: doc.String("registerNumber"),
		Email:          doc.String("email"),
		Role:           domain.Role(doc.String("role")),
		Gender:         doc.String("gender"),
		Department:     doc.String("department"),
		Batch:          doc.String("batch"),
		Phone:          doc.String("phone"),
	}
}
