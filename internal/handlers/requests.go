package handlers

import (
	"github.com/go-playground/validator/v10"

	"github.com/nfrund/durian/internal/forms"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// AuthFormRequest is the body of every auth form post. Field rules live in
// the form schema; binding only collects the values.
type AuthFormRequest struct {
	ViewID          string `form:"view_id"`
	Name            string `form:"name"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirmPassword"`
}

// Fields converts the request into controller fields. Fields the form does
// not own are dropped by the controller.
func (r AuthFormRequest) Fields() forms.Fields {
	return forms.Fields{
		forms.FieldName:            r.Name,
		forms.FieldEmail:           r.Email,
		forms.FieldPassword:        r.Password,
		forms.FieldConfirmPassword: r.ConfirmPassword,
	}
}

// SocialRequest is the body of a social sign-in button press. The typed
// fields ride along so the form keeps them if the call fails.
type SocialRequest struct {
	AuthFormRequest
	Provider string `form:"provider" validate:"required,oneof=github google"`
}

// CommandSearchRequest is the palette search query.
type CommandSearchRequest struct {
	Query string `query:"q" validate:"max=200"`
}
