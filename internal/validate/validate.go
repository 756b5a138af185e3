// Package validate holds the request validators. Validation always runs
// before any service or persistence call, so a rejected request never
// partially applies a mutation.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// CategoryForm is the payload for creating or renaming a category.
type CategoryForm struct {
	Name string `validate:"required,max=50"`
}

// ReceiptUpload is the metadata of an uploaded receipt file.
type ReceiptUpload struct {
	Filename  string `validate:"required,max=255"`
	MediaType string `validate:"max=255"`
}

// LoginForm is a submitted credential payload.
type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Struct validates any of the form types above and returns a single
// human-readable message describing the first batch of failures.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
