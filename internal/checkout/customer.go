package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"foodhub/internal/models"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)

const minPhoneDigits = 10

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register phone validation: %v", err))
	}
	return v
}

// ValidPhone accepts digits, spaces, dashes, plus signs and parentheses as
// long as the number carries at least ten digits.
func ValidPhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// ValidateCustomer trims every field and checks the checkout form rules. The
// returned details are the trimmed ones.
func ValidateCustomer(v *validator.Validate, details models.CustomerDetails) (models.CustomerDetails, error) {
	details = models.CustomerDetails{
		FullName: strings.TrimSpace(details.FullName),
		Email:    strings.TrimSpace(details.Email),
		Phone:    strings.TrimSpace(details.Phone),
		Address:  strings.TrimSpace(details.Address),
		City:     strings.TrimSpace(details.City),
		ZipCode:  strings.TrimSpace(details.ZipCode),
	}

	err := v.Struct(details)
	if err == nil {
		return details, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return details, err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = validationMessage(fe)
	}
	return details, &ValidationError{Fields: fields}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	}
	return "is invalid"
}
