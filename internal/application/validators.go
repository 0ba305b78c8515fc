package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-panel/internal/domain"
)

// validate is shared by every service. Validator instances cache struct
// metadata and are safe for concurrent use.
var validate = NewValidator()

// NewValidator returns a validator with the panel's custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterPanelValidators(v); err != nil {
		// Registration only fails for empty tags or nil functions.
		panic(err)
	}
	return v
}

// RegisterPanelValidators registers the custom validation functions used in
// record and configuration struct tags:
//
//   - rubric: the field names a supported rating schema.
//   - position: the field names one of the four election positions.
func RegisterPanelValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("rubric", validateRubric); err != nil {
		return fmt.Errorf("failed to register rubric validator: %w", err)
	}
	if err := v.RegisterValidation("position", validatePosition); err != nil {
		return fmt.Errorf("failed to register position validator: %w", err)
	}
	return nil
}

func validateRubric(fl validator.FieldLevel) bool {
	return domain.Schema(fl.Field().String()).Validate() == nil
}

func validatePosition(fl validator.FieldLevel) bool {
	return domain.Position(fl.Field().String()).Valid()
}

// validateRecord validates a record against its struct tags and converts
// validator failures into a *domain.ValidationError naming entity.
func validateRecord(entity string, record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %s: %w", entity, err)
	}

	verr := domain.NewValidationError(entity)
	for _, fe := range fieldErrs {
		verr.AddError(describeFieldError(fe))
	}
	return verr
}

// describeFieldError renders a validator failure the way a form would.
func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "position":
		return fmt.Sprintf("%s %q is not a known position", field, fe.Value())
	case "rubric":
		return fmt.Sprintf("%s %q is not a known rubric", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
