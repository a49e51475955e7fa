package buyers

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/leadintake/pkg/models"
)

var phoneDigits = regexp.MustCompile(`^\d{10,15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report errors under the JSON field name so the field->message map
	// binds directly to form fields.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("phonedigits", func(fl validator.FieldLevel) bool {
		return phoneDigits.MatchString(fl.Field().String())
	})

	return v
}

// FieldError is a single validation failure attached to a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every violation found in a submitted buyer.
// It keeps the ordered list (a CSV row needs multiple simultaneous
// messages) and exposes a field->message map for UI binding.
type ValidationErrors struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
	}
	return fmt.Sprintf("validation failed: %d invalid fields", len(e.Fields))
}

// Map returns the first message recorded for each field.
func (e *ValidationErrors) Map() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, fe := range e.Fields {
		if _, ok := m[fe.Field]; !ok {
			m[fe.Field] = fe.Message
		}
	}
	return m
}

// Messages returns all violations as "field: message" strings, in the
// order they were collected.
func (e *ValidationErrors) Messages() []string {
	out := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		out[i] = fe.Field + ": " + fe.Message
	}
	return out
}

func (e *ValidationErrors) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Validate checks a submitted buyer against all field and cross-field
// rules. On success it returns a normalized copy: empty email treated as
// absent, BHK cleared for non-residential property types, status defaulted
// to New. All violations are collected, not just the first.
func Validate(in models.BuyerInput) (*models.BuyerInput, error) {
	normalized := in

	// Empty string email means "not provided".
	normalized.Email = strings.TrimSpace(normalized.Email)

	// BHK only applies to residential property types. Anything submitted
	// for a Plot/Office/Retail row is dropped, not rejected.
	if !models.IsResidential(normalized.PropertyType) {
		normalized.BHK = ""
	}

	if normalized.Status == "" {
		normalized.Status = models.StatusNew
	}
	if normalized.Tags == nil {
		normalized.Tags = []string{}
	}

	verrs := &ValidationErrors{}

	if err := validate.Struct(normalized); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, fmt.Errorf("buyer validation: %w", err)
		}
		for _, fe := range fieldErrs {
			verrs.add(fe.Field(), fieldMessage(fe))
		}
	}

	if models.IsResidential(normalized.PropertyType) && normalized.BHK == "" {
		verrs.add("bhk", "BHK is required for Apartment and Villa property types")
	}

	if normalized.BudgetMin != nil && normalized.BudgetMax != nil && *normalized.BudgetMax < *normalized.BudgetMin {
		verrs.add("budgetMax", "Maximum budget must be greater than or equal to minimum budget")
	}

	if len(verrs.Fields) > 0 {
		return nil, verrs
	}

	return &normalized, nil
}

// fieldMessage translates a validator failure into the consumer-facing
// message for that field.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "fullName":
		return "Full name must be between 2 and 80 characters"
	case "phone":
		return "Phone must be 10-15 digits"
	case "email":
		return "Invalid email address"
	case "city":
		return "Invalid city"
	case "propertyType":
		return "Invalid property type"
	case "bhk":
		return "Invalid BHK value"
	case "purpose":
		return "Invalid purpose"
	case "budgetMin", "budgetMax":
		return "Budget must be a positive integer"
	case "timeline":
		return "Invalid timeline"
	case "source":
		return "Invalid source"
	case "status":
		return "Invalid status"
	case "notes":
		return "Notes cannot exceed 1000 characters"
	default:
		return fmt.Sprintf("Invalid value for %s", fe.Field())
	}
}
