package auth

import (
	"alumni-chat/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ProfileForm is what a user may change on their own profile.
type ProfileForm struct {
	Name           string `validate:"required,max=100"`
	RegisterNumber string `validate:"required,alphanum,max=32"`
	Email          string `validate:"omitempty,email"`
	Role           string `validate:"omitempty,oneof=alumni student"`
	Gender         string `validate:"omitempty,max=20"`
	Department     string `validate:"omitempty,max=100"`
	Batch          string `validate:"omitempty,numeric,len=4"`
	Phone          string `validate:"omitempty,e164"`
}

func ValidateProfile(form ProfileForm) error {
	return Validate(form)
}

// Validate checks any struct carrying validator tags and wraps failures
// as ErrValidationRejected.
func Validate(form any) error {
	if err := validate.Struct(form); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidationRejected, err)
	}
	return nil
}
