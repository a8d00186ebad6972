package validator

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	rowLetterRgx = regexp.MustCompile(`^[A-Z]$`)
	maxPrice     = decimal.NewFromInt(10000)
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_id", validateSeatID)
	validator.RegisterValidation("row_letters", validateRowLetters)
	validator.RegisterValidation("price", validatePrice)

	return validator
}

// validateSeatID accepts ids in any case; the engine normalizes them.
func validateSeatID(fl validator.FieldLevel) bool {
	return domain.IsWellFormedSeatID(domain.NormalizeSeatID(fl.Field().String()))
}

func validateRowLetters(fl validator.FieldLevel) bool {
	rows, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}

	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if !rowLetterRgx.MatchString(row) {
			return false
		}
		if _, dup := seen[row]; dup {
			return false
		}
		seen[row] = struct{}{}
	}

	return true
}

func validatePrice(fl validator.FieldLevel) bool {
	price, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}

	return !price.IsNegative() && price.LessThanOrEqual(maxPrice) && price.Exponent() >= -2
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", err.Param())
		}
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", err.Param())
		}
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", err.Param())
		}
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", err.Param())
		}
		return fmt.Sprintf("must be at most %s", err.Param())
	case "unique":
		return "must not contain duplicates"
	case "seat_id":
		return "must be a row letter followed by a seat number, e.g. B5"
	case "row_letters":
		return "must be distinct single upper-case row letters"
	case "price":
		return "must be a non-negative amount with at most two decimal places"
	default:
		return "is invalid"
	}
}
