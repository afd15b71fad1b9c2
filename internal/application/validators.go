package application

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-jury/infrastructure/llm"
)

// RegisterGameValidators registers the custom tags used by GameConfig:
// semver, modelformat and jurorref. isKind reports whether a juror kind has
// a registered factory.
func RegisterGameValidators(v *validator.Validate, isKind func(string) bool) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}

	if err := v.RegisterValidation("modelformat", validateModelFormat); err != nil {
		return fmt.Errorf("failed to register modelformat validator: %w", err)
	}

	jurorRef := func(fl validator.FieldLevel) bool {
		return isKind != nil && isKind(fl.Field().String())
	}
	if err := v.RegisterValidation("jurorref", jurorRef); err != nil {
		return fmt.Errorf("failed to register jurorref validator: %w", err)
	}

	return nil
}

// validateModelFormat accepts "provider/model" strings with both parts
// non-empty. The empty string is accepted; pair with required to reject it.
func validateModelFormat(fl validator.FieldLevel) bool {
	model := fl.Field().String()
	if model == "" {
		return true
	}
	_, _, err := llm.SplitModelSpec(model)
	return err == nil
}

// validateSemver validates X.Y.Z where X, Y and Z are non-negative integers.
func validateSemver(fl validator.FieldLevel) bool {
	parts := strings.Split(fl.Field().String(), ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return false
		}
	}
	return true
}
