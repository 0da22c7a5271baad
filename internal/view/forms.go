package view

import (
	"net/url"

	"lab-manager/internal/model"
	"lab-manager/pkg/validation"
)

// ComputerForm is the state of the modal create/update form.
type ComputerForm struct {
	// ID is empty for a new computer.
	ID     string
	Name   string
	Status model.Status
	// Error is shown in the red banner above the fields.
	Error string
}

// NewComputerForm returns a blank form for a new computer.
func NewComputerForm() *ComputerForm {
	return &ComputerForm{Status: model.StatusOperational}
}

// EditComputerForm returns a form pre-populated with c.
func EditComputerForm(c model.Computer) *ComputerForm {
	return &ComputerForm{ID: c.ID.String(), Name: c.Name, Status: c.Status}
}

// ComputerFormFromValues reads a submitted form. id is empty when creating.
func ComputerFormFromValues(id string, values url.Values) *ComputerForm {
	return &ComputerForm{
		ID:     id,
		Name:   values.Get("name"),
		Status: model.Status(values.Get("status")),
	}
}

// Editing reports whether the form updates an existing computer.
func (f *ComputerForm) Editing() bool {
	return f.ID != ""
}

// Action is the URL the form posts to.
func (f *ComputerForm) Action() string {
	if f.Editing() {
		return "/computers/" + f.ID
	}
	return "/computers"
}

// Statuses lists the selectable statuses.
func (f *ComputerForm) Statuses() []model.Status {
	return model.Statuses()
}

// IncidentForm holds the five incident intake fields.
type IncidentForm struct {
	StudentName string
	GroupName   string
	ComponentID string
	Description string
	ReportedBy  string
}

// IncidentFormFromValues reads a submitted incident form.
func IncidentFormFromValues(values url.Values) IncidentForm {
	return IncidentForm{
		StudentName: values.Get("student_name"),
		GroupName:   values.Get("group_name"),
		ComponentID: values.Get("component_id"),
		Description: values.Get("description"),
		ReportedBy:  values.Get("reported_by"),
	}
}

// Input converts the form for validation.
func (f IncidentForm) Input() validation.IncidentInput {
	return validation.IncidentInput{
		StudentName: f.StudentName,
		GroupName:   f.GroupName,
		ComponentID: f.ComponentID,
		Description: f.Description,
		ReportedBy:  f.ReportedBy,
	}
}
