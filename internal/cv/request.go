package cv

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// GenerationRequest is the caller input for one CV generation.
type GenerationRequest struct {
	Prompt         string `json:"prompt" validate:"required,max=20000"`
	Language       string `json:"language,omitempty" validate:"max=64"`
	TargetJobTitle string `json:"targetJobTitle,omitempty" validate:"max=200"`
	TargetIndustry string `json:"targetIndustry,omitempty" validate:"max=200"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalized returns a copy with surrounding whitespace removed from every field.
func (r GenerationRequest) Normalized() GenerationRequest {
	return GenerationRequest{
		Prompt:         strings.TrimSpace(r.Prompt),
		Language:       strings.TrimSpace(r.Language),
		TargetJobTitle: strings.TrimSpace(r.TargetJobTitle),
		TargetIndustry: strings.TrimSpace(r.TargetIndustry),
	}
}

// Validate checks the normalized request and reports the first violation as
// *InvalidRequestError.
func (r GenerationRequest) Validate() error {
	err := validate.Struct(r.Normalized())
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return &InvalidRequestError{Field: first.Field(), Rule: first.Tag()}
	}

	return &InvalidRequestError{Rule: err.Error()}
}
