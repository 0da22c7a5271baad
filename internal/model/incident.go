package model

import (
	"time"

	"github.com/google/uuid"
)

// Incident is an append-only problem report filed against one component.
type Incident struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ComputerID  uuid.UUID `json:"computer_id" db:"computer_id"`
	ComponentID uuid.UUID `json:"component_id" db:"component_id"`
	StudentName string    `json:"student_name" db:"student_name"`
	GroupName   string    `json:"group_name" db:"group_name"`
	Description string    `json:"description" db:"description"`
	ReportedBy  string    `json:"reported_by" db:"reported_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IncidentColumns are the columns selected for an Incident.
var IncidentColumns = []string{"id", "computer_id", "component_id", "student_name", "group_name", "description", "reported_by", "created_at"}
