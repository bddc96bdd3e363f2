package dto

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a payload's struct tags and flattens validation errors
// into a single field=tag message
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make([]string, 0, len(validationErrors))
	for _, ve := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s=%s", ve.Namespace(), ve.Tag()))
	}
	return fmt.Errorf("invalid payload: %s", strings.Join(fields, ", "))
}
