package forms

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Schema validates the fields of one form.
type Schema interface {
	Kind() Kind
	FieldNames() []string
	Validate(fields Fields) ValidationResult
}

type signInForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type signUpForm struct {
	Name            string `form:"name" validate:"required"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

// messages maps field → failed tag → user-facing message. The "" entry is the
// fallback for tags without their own message.
var messages = map[string]map[string]string{
	FieldName:     {"": "name is required"},
	FieldEmail:    {"": "invalid email"},
	FieldPassword: {"": "a password is required"},
	FieldConfirmPassword: {
		"required": "password confirmation is required",
		"eqfield":  "passwords don't match",
		"":         "password confirmation is required",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type schema struct {
	kind   Kind
	fields []string
	build  func(Fields) any
}

func (s *schema) Kind() Kind { return s.kind }

func (s *schema) FieldNames() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *schema) Validate(fields Fields) ValidationResult {
	res := ValidationResult{Valid: true, FieldErrors: map[string]string{}}
	err := validate.Struct(s.build(fields))
	if err == nil {
		return res
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only reachable on a programming error in the form structs.
		panic(err)
	}
	res.Valid = false
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := res.FieldErrors[field]; seen {
			continue
		}
		res.FieldErrors[field] = message(field, fe.Tag())
	}
	return res
}

func message(field, tag string) string {
	byTag := messages[field]
	if msg, ok := byTag[tag]; ok {
		return msg
	}
	if msg, ok := byTag[""]; ok {
		return msg
	}
	return field + " is invalid"
}

var (
	signInSchema = &schema{
		kind:   KindSignIn,
		fields: []string{FieldEmail, FieldPassword},
		build: func(f Fields) any {
			return &signInForm{Email: f[FieldEmail], Password: f[FieldPassword]}
		},
	}
	signUpSchema = &schema{
		kind:   KindSignUp,
		fields: []string{FieldName, FieldEmail, FieldPassword, FieldConfirmPassword},
		build: func(f Fields) any {
			return &signUpForm{
				Name:            f[FieldName],
				Email:           f[FieldEmail],
				Password:        f[FieldPassword],
				ConfirmPassword: f[FieldConfirmPassword],
			}
		},
	}
)

// SignIn returns the sign-in schema: email and password.
func SignIn() Schema { return signInSchema }

// SignUp returns the sign-up schema: name, email, password and a matching
// confirmation.
func SignUp() Schema { return signUpSchema }

// SchemaFor returns the schema for kind.
func SchemaFor(kind Kind) (Schema, bool) {
	switch kind {
	case KindSignIn:
		return signInSchema, true
	case KindSignUp:
		return signUpSchema, true
	default:
		return nil, false
	}
}
