package view

import "lab-manager/internal/model"

// Page names accepted by Renderer.Render.
const (
	PageDashboard     = "dashboard"
	PageDetails       = "details"
	PageConfirmDelete = "confirm_delete"
	PageNotFound      = "not_found"
)

// DashboardPage is the computer grid, optionally with the form open.
// LoadFailed hides both the grid and the empty state.
type DashboardPage struct {
	Computers  []model.Computer
	LoadFailed bool
	Form       *ComputerForm
}

// DetailsPage is one computer with its components and incident log.
type DetailsPage struct {
	Computer   model.Computer
	Components []model.Component
	Incidents  []model.Incident
	Form       IncidentForm
}

// ConfirmDeletePage asks before a computer is deleted.
type ConfirmDeletePage struct {
	Computer model.Computer
}

// NotFoundPage is rendered for unknown computers.
type NotFoundPage struct{}
