package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apierrors "deliverystats/internal/errors"
)

// QueryValidator validates decoded query parameter structs. Field names in
// messages come from the `query` struct tag.
type QueryValidator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewQueryValidator creates a validator with the report parameter rules
// registered: yyyymm, yyyymmdd and variety.
func NewQueryValidator(logger *slog.Logger) *QueryValidator {
	v := validator.New()

	v.RegisterValidation("yyyymm", layoutValidator("200601"))
	v.RegisterValidation("yyyymmdd", layoutValidator("20060102"))
	v.RegisterValidation("variety", isVariety)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &QueryValidator{
		validator: v,
		logger:    logger.With(slog.String("component", "query_validator")),
	}
}

// Var validates a single value against a tag expression, reporting failures
// under field
func (m *QueryValidator) Var(field string, value interface{}, tag string) error {
	if err := m.validator.Var(value, tag); err != nil {
		return m.convert(err, field)
	}
	return nil
}

// ValidateStruct validates a struct and returns an APIError listing every
// failed field
func (m *QueryValidator) ValidateStruct(v interface{}) error {
	if err := m.validator.Struct(v); err != nil {
		return m.convert(err, "")
	}
	return nil
}

func (m *QueryValidator) convert(err error, field string) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		if field != "" {
			return apierrors.InvalidParameterError(field, err)
		}
		return apierrors.NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error())
	}

	var validationErrors []apierrors.ValidationError
	for _, fe := range fieldErrs {
		name := fe.Field()
		if field != "" {
			name = field
		}
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   name,
			Message: formatValidationError(name, fe),
		})
	}
	m.logger.Debug("query validation failed", slog.Int("errors", len(validationErrors)))
	return apierrors.NewValidationErrors(validationErrors)
}

// formatValidationError formats validation error messages
func formatValidationError(field string, err validator.FieldError) string {
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "yyyymm":
		return fmt.Sprintf("%s must be a month in YYYYMM form", field)
	case "yyyymmdd":
		return fmt.Sprintf("%s must be a day in YYYYMMDD form", field)
	case "variety":
		return fmt.Sprintf("%s must be a variety code of 1 to 4 letters", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func layoutValidator(layout string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != len(layout) {
			return false
		}
		_, err := time.Parse(layout, s)
		return err == nil
	}
}

// isVariety accepts exchange variety codes such as "a", "m" or "SR"
func isVariety(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < 1 || len(s) > 4 {
		return false
	}
	for _, ch := range s {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')) {
			return false
		}
	}
	return true
}
