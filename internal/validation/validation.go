// Package validation gates recipe drafts before they reach storage.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/timmy/recipebox/internal/domain"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared, fully registered validator instance.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("notblank", notBlank)
		_ = v.RegisterValidation("isodate", isoDate)
		v.RegisterStructValidation(instructionRules, domain.Instruction{})
		validate = v
	})
	return validate
}

// Validate checks a draft against the recipe schema.
// It returns a *domain.ValidationError listing every violation, or nil.
// The draft is never modified.
func Validate(draft *domain.RecipeDraft) error {
	if draft == nil {
		return &domain.ValidationError{Violations: []domain.FieldViolation{{
			Field: "", Rule: "required", Message: "recipe is missing",
		}}}
	}
	err := Validator().Struct(draft)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate recipe: %w", err)
	}
	violations := make([]domain.FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fieldPath(fe.Namespace())
		violations = append(violations, domain.FieldViolation{
			Field:   field,
			Rule:    fe.Tag(),
			Message: message(field, fe),
		})
	}
	return &domain.ValidationError{Violations: violations}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return strings.ToLower(fld.Name)
	}
	return name
}

// fieldPath drops the leading struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "notblank":
		return field + " must not be blank"
	case "http_url":
		return field + " must be an absolute http(s) URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "isodate":
		return field + " must be an ISO date"
	case "oneof_instruction":
		return field + " must be either a step or a section"
	case "min_order":
		return field + " order must be 1 or greater"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(field.String()) != ""
}

func isoDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

// instructionRules enforces the two legal instruction shapes.
func instructionRules(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(domain.Instruction)
	if !ok {
		return
	}
	switch {
	case (in.Step == nil) == (in.Section == nil):
		sl.ReportError(in, "step", "Step", "oneof_instruction", "")
	case in.Step != nil:
		reportStep(sl, *in.Step, "step", "Step")
	default:
		if in.Section.Order < 1 {
			sl.ReportError(in.Section.Order, "order", "Order", "min_order", "")
		}
		for i, st := range in.Section.Steps {
			reportStep(sl, st, fmt.Sprintf("steps[%d]", i), fmt.Sprintf("Steps[%d]", i))
		}
	}
}

func reportStep(sl validator.StructLevel, st domain.Step, name, structName string) {
	if strings.TrimSpace(st.Text) == "" {
		sl.ReportError(st.Text, name+".text", structName+".Text", "notblank", "")
	}
	if st.Order < 1 {
		sl.ReportError(st.Order, name+".order", structName+".Order", "min_order", "")
	}
}
