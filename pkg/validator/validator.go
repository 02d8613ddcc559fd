package validator

import (
	"context"
	"errors"
	"regexp"

	"github.com/go-playground/validator"
)

var (
	global    *validator.Validate
	dateRegex = regexp.MustCompile(`^\d{1,2}\.\d{1,2}$`)
)

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrUnknownValidation  = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("shortdate", validateShortDate)
	_ = v.RegisterValidation("regselect", validateSelected)
	_ = v.RegisterValidation("gender", validateGender)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

// validateShortDate checks the "DD.MM" race date form.
func validateShortDate(fl validator.FieldLevel) bool {
	return dateRegex.MatchString(fl.Field().String())
}

// validateSelected checks the tri-state registration marker.
func validateSelected(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "none", "black", "green":
		return true
	}
	return false
}

func validateGender(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "male", "female":
		return true
	}
	return false
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = ErrFieldRequired
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	case "shortdate":
		msg = "Date must be in DD.MM form"
	case "regselect":
		msg = "Selected must be none, black or green"
	case "gender":
		msg = "Gender must be male or female"
	case "url":
		msg = ErrInvalidFormat
	default:
		msg = ErrUnknownValidation
	}
	return errors.New(msg + ": " + ve.Namespace())
}
