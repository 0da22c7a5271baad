package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ComponentType identifies which part of a computer a component is.
type ComponentType string

const (
	ComponentMonitor  ComponentType = "monitor"
	ComponentPC       ComponentType = "pc"
	ComponentKeyboard ComponentType = "keyboard"
	ComponentMouse    ComponentType = "mouse"
	ComponentNetwork  ComponentType = "network"
)

// Valid reports whether t is a known component type.
func (t ComponentType) Valid() bool {
	switch t {
	case ComponentMonitor, ComponentPC, ComponentKeyboard, ComponentMouse, ComponentNetwork:
		return true
	}
	return false
}

// Label is the uppercased type shown in the incident form.
func (t ComponentType) Label() string {
	return strings.ToUpper(string(t))
}

// Component is a sub-part of a computer. Components are provisioned outside
// this application and are read-only here.
type Component struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	ComputerID uuid.UUID     `json:"computer_id" db:"computer_id"`
	Type       ComponentType `json:"type" db:"type"`
	Status     Status        `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// ComponentColumns are the columns selected for a Component.
var ComponentColumns = []string{"id", "computer_id", "type", "status", "created_at", "updated_at"}
