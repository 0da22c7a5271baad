package validation

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"lab-manager/internal/model"
)

// Length limits for free-text fields
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 4000
)

// Errors maps a form field to its validation message.
type Errors map[string]string

// Error joins the messages in field order so output is stable.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, len(fields))
	for i, field := range fields {
		msgs[i] = e[field]
	}
	return strings.Join(msgs, "; ")
}

// ValidateRequired checks if a string field is not empty
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateMaxLength checks a field against a rune limit
func ValidateMaxLength(fieldName, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s cannot exceed %d characters", fieldName, max)
	}
	return nil
}

// ValidateComputerName validates computer name
func ValidateComputerName(name string) error {
	if err := ValidateRequired("computer name", name); err != nil {
		return err
	}
	return ValidateMaxLength("computer name", name, MaxNameLength)
}

// ValidateStatus validates a computer or component status
func ValidateStatus(status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status: %q", status)
	}
	return nil
}

// ValidateComputerInput validates the fields of the computer form
func ValidateComputerInput(name string, status model.Status) Errors {
	errs := Errors{}
	if err := ValidateComputerName(name); err != nil {
		errs["name"] = err.Error()
	}
	if err := ValidateStatus(status); err != nil {
		errs["status"] = err.Error()
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// IncidentInput is the raw incident form as submitted.
type IncidentInput struct {
	StudentName string
	GroupName   string
	ComponentID string
	Description string
	ReportedBy  string
}

// ValidateIncidentInput validates the five required incident fields and
// returns the parsed component id.
func ValidateIncidentInput(in IncidentInput) (uuid.UUID, Errors) {
	errs := Errors{}

	text := []struct {
		field, label, value string
		max                 int
	}{
		{"student_name", "student name", in.StudentName, MaxNameLength},
		{"group_name", "group", in.GroupName, MaxNameLength},
		{"description", "description", in.Description, MaxDescriptionLength},
		{"reported_by", "reporter", in.ReportedBy, MaxNameLength},
	}
	for _, f := range text {
		if err := ValidateRequired(f.label, f.value); err != nil {
			errs[f.field] = err.Error()
			continue
		}
		if err := ValidateMaxLength(f.label, f.value, f.max); err != nil {
			errs[f.field] = err.Error()
		}
	}

	var componentID uuid.UUID
	if err := ValidateRequired("component", in.ComponentID); err != nil {
		errs["component_id"] = err.Error()
	} else if id, err := uuid.Parse(in.ComponentID); err != nil {
		errs["component_id"] = fmt.Sprintf("invalid component id: %s", in.ComponentID)
	} else {
		componentID = id
	}

	if len(errs) == 0 {
		return componentID, nil
	}
	return uuid.Nil, errs
}
