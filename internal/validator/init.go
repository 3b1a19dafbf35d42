package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)

func init() {
	// Initialize validation
	validate = validator.New(validator.WithRequiredStructEnabled())

	// "username" restricts login names to a single printable token so they can
	// be echoed back on the wire and used as redis keys.
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

func GetValidator() *validator.Validate {
	return validate
}
