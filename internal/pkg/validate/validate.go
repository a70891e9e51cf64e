// internal/pkg/validate/validate.go
package validate

import (
	"fmt"
	"strings"

	apierrors "journal-notifier/internal/common/errors"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// Struct validates the given struct using its validate tags. Failures come
// back as a VALIDATION_FAILED error whose details list every field that did
// not pass, so handlers can hand the result straight to the response mapping.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return apierrors.NewValidationError(strings.Join(msgs, "; "))
}
