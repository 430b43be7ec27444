package service

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pmstore/pmstore-api/internal/apperr"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("maxbytes", maxBytes)
	})
	return validate
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=5,maxbytes=72"`
}

// maxBytes bounds the UTF-8 length of a string. The builtin max counts runes,
// and bcrypt rejects anything over 72 bytes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
}

type ProductInput struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required"`
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
}

// validateCredentials runs struct validation and turns every failing field
// into the client-facing message for it, in declaration order.
func validateCredentials(in any) error {
	err := validatorInstance().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("validate input", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.Validation("Validation failed", msgs...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		return "Name is required"
	case "Email":
		return "Valid email is required"
	case "Password":
		switch fe.Tag() {
		case "min":
			return "Password must be at least 5 characters"
		case "maxbytes":
			return "Password must be at most 72 bytes"
		}
		return "Password is required"
	default:
		return fe.Field() + " is invalid"
	}
}

func validateProduct(in *ProductInput) error {
	if err := validatorInstance().Struct(in); err != nil {
		return apperr.Validation("Name and type are required fields")
	}
	return nil
}
