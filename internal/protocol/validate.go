package protocol

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/mousetrap/internal/common"
)

var validate = validator.New()

// ValidateField rejects empty values and values that contain the field
// separator.
func ValidateField(v string) error {
	if v == "" {
		return common.ErrEmptyField
	}
	if strings.Contains(v, common.FieldSeparator) {
		return common.ErrReservedSeparator
	}
	return nil
}

// ValidateEmail checks that email is a well-formed address usable as a field.
func ValidateEmail(email string) error {
	if err := ValidateField(email); err != nil {
		return err
	}
	if err := validate.Var(email, "email"); err != nil {
		return common.ErrInvalidEmail
	}
	return nil
}

// ValidateCredentials checks a user name / password pair.
func ValidateCredentials(userName, password string) error {
	if err := ValidateField(userName); err != nil {
		return err
	}
	return ValidateField(password)
}

// ValidateRegistration checks everything REGISA carries.
func ValidateRegistration(userName, password, email string) error {
	if err := ValidateCredentials(userName, password); err != nil {
		return err
	}
	return ValidateEmail(email)
}
