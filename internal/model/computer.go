package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the health status shared by computers and components.
type Status string

const (
	StatusOperational    Status = "operational"
	StatusNonOperational Status = "non_operational"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusOperational || s == StatusNonOperational
}

// Operational reports whether s is StatusOperational.
func (s Status) Operational() bool {
	return s == StatusOperational
}

// Label returns the display label used in forms.
func (s Status) Label() string {
	switch s {
	case StatusOperational:
		return "Operativo"
	case StatusNonOperational:
		return "No Operativo"
	default:
		return string(s)
	}
}

// Statuses lists the statuses in the order the forms offer them.
func Statuses() []Status {
	return []Status{StatusOperational, StatusNonOperational}
}

// Computer represents a lab workstation.
type Computer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ComputerColumns are the columns selected for a Computer.
var ComputerColumns = []string{"id", "name", "status", "created_at", "updated_at"}
