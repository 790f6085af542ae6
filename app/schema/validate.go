package schema

import (
	"fmt"
	"regexp"
	"strings"
)

var alphanumeric = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// FieldError describes a single violated constraint. Value is a safe
// description of the offending input; for secret fields it only ever
// describes length or type, never content.
type FieldError struct {
	Field      string
	Constraint string
	Value      string
}

func (e FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Constraint)
	}
	return fmt.Sprintf("%s: %s (got %s)", e.Field, e.Constraint, e.Value)
}

// ValidationError carries every constraint violated by a record. The
// validator does not short-circuit, so callers see the full list in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks a parsed JSON object against the intake record contract and
// returns the normalized record, or a *ValidationError listing every violated
// constraint. Unrecognized top-level fields are ignored; unrecognized fields
// under Customer are preserved in Details.
func Validate(raw map[string]any) (*Record, error) {
	var errs []FieldError

	nested, hasNested := raw[fieldCustomer].(map[string]any)
	flatID, hasFlatID := nonNull(raw, fieldCustomerID)
	flatCard, hasFlatCard := nonNull(raw, cardNumberField)
	hasFlat := hasFlatID && hasFlatCard

	switch {
	case !hasNested && !hasFlat:
		errs = append(errs, FieldError{
			Field:      fieldCustomer,
			Constraint: "missing customer identity: provide CustomerID and CustomerCardNumber directly, or a nested Customer object",
		})
	case hasNested && hasFlat:
		errs = append(errs, FieldError{
			Field:      fieldCustomer,
			Constraint: "ambiguous structure: exactly one customer representation allowed",
		})
	}

	rec := &Record{OperatorID: validateOperatorID(raw, &errs)}
	if md, ok := raw[fieldMetadata].(map[string]any); ok {
		rec.Metadata = md
	}

	// Validate the chosen branch only when exactly one shape is present.
	if hasNested != hasFlat {
		if hasNested {
			rec.Customer = nestedIdentity(nested, &errs)
		} else {
			rec.Customer = flatIdentity(flatID, flatCard, &errs)
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return rec, nil
}

// nonNull reports whether key is present with a non-null value.
func nonNull(raw map[string]any, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func validateOperatorID(raw map[string]any, errs *[]FieldError) string {
	v, ok := nonNull(raw, fieldOperatorID)
	if !ok {
		*errs = append(*errs, FieldError{Field: fieldOperatorID, Constraint: "required"})
		return ""
	}
	s, ok := v.(string)
	if !ok {
		*errs = append(*errs, FieldError{
			Field:      fieldOperatorID,
			Constraint: "must be a string",
			Value:      fmt.Sprintf("%T", v),
		})
		return ""
	}
	if len(s) < 5 {
		*errs = append(*errs, FieldError{
			Field:      fieldOperatorID,
			Constraint: "must be at least 5 characters",
			Value:      fmt.Sprintf("%d characters", len(s)),
		})
	}
	if s != "" && !alphanumeric.MatchString(s) {
		*errs = append(*errs, FieldError{
			Field:      fieldOperatorID,
			Constraint: "must contain only alphanumeric characters",
			Value:      fmt.Sprintf("%q", s),
		})
	}
	return s
}

func flatIdentity(id, card any, errs *[]FieldError) CustomerIdentity {
	return CustomerIdentity{
		Structure:  StructureFlat,
		ID:         validateCustomerID(fieldCustomerID, id, errs),
		CardNumber: validateCardNumber(cardNumberField, card, errs),
	}
}

func nestedIdentity(customer map[string]any, errs *[]FieldError) CustomerIdentity {
	ident := CustomerIdentity{Structure: StructureNested}

	if v, ok := nonNull(customer, fieldCustomerID); ok {
		ident.ID = validateCustomerID(fieldCustomer+"."+fieldCustomerID, v, errs)
	} else {
		*errs = append(*errs, FieldError{Field: fieldCustomer + "." + fieldCustomerID, Constraint: "required"})
	}

	if v, ok := nonNull(customer, cardNumberField); ok {
		ident.CardNumber = validateCardNumber(fieldCustomer+"."+cardNumberField, v, errs)
	} else {
		*errs = append(*errs, FieldError{Field: fieldCustomer + "." + cardNumberField, Constraint: "required"})
	}

	if v, ok := nonNull(customer, fieldCustomerDetails); ok {
		details, ok := v.(map[string]any)
		if !ok {
			*errs = append(*errs, FieldError{
				Field:      fieldCustomer + "." + fieldCustomerDetails,
				Constraint: "must be an object",
				Value:      fmt.Sprintf("%T", v),
			})
		} else {
			ident.Details = details
		}
	}

	return ident
}

func validateCustomerID(field string, v any, errs *[]FieldError) string {
	s, ok := v.(string)
	if !ok {
		*errs = append(*errs, FieldError{
			Field:      field,
			Constraint: "must be a string",
			Value:      fmt.Sprintf("%T", v),
		})
		return ""
	}
	if len(s) < 7 {
		*errs = append(*errs, FieldError{
			Field:      field,
			Constraint: "must be at least 7 characters",
			Value:      fmt.Sprintf("%d characters", len(s)),
		})
	}
	return s
}

// validateCardNumber never places card content in the error, only its length.
func validateCardNumber(field string, v any, errs *[]FieldError) string {
	s, ok := v.(string)
	if !ok {
		*errs = append(*errs, FieldError{
			Field:      field,
			Constraint: "must be a string",
			Value:      fmt.Sprintf("%T", v),
		})
		return ""
	}
	if len(s) != 16 {
		*errs = append(*errs, FieldError{
			Field:      field,
			Constraint: "must be exactly 16 characters",
			Value:      fmt.Sprintf("%d characters", len(s)),
		})
	}
	return s
}
