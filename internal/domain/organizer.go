package domain

import (
	"context"
	"time"
)

// Organizer owns events. Only accredited organizers may publish.
type Organizer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	IsAccredited bool      `json:"is_accredited"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OrganizerRepository defines the accreditation lookup surface the lifecycle
// engine consumes.
type OrganizerRepository interface {
	GetByID(ctx context.Context, id string) (*Organizer, error)
	SetAccredited(ctx context.Context, id string, accredited bool) (*Organizer, error)
}
