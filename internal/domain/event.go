package domain

import (
	"context"
	"time"
)

// EventFormat describes how an event is held.
type EventFormat string

const (
	FormatOnline  EventFormat = "ONLINE"
	FormatOffline EventFormat = "OFFLINE"
	FormatHybrid  EventFormat = "HYBRID"
)

// EventStatus is the lifecycle state of an event.
// SCHEDULED -> ONGOING -> COMPLETED is driven by time; CANCELLED is set only
// by an explicit cancel and is terminal.
type EventStatus string

const (
	StatusScheduled EventStatus = "SCHEDULED"
	StatusOngoing   EventStatus = "ONGOING"
	StatusCompleted EventStatus = "COMPLETED"
	StatusCancelled EventStatus = "CANCELLED"
)

// Event represents a published event.
type Event struct {
	ID                   string      `json:"id"`
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	Format               EventFormat `json:"format"`
	Status               EventStatus `json:"status"`
	StartDate            time.Time   `json:"start_date"`
	EndDate              time.Time   `json:"end_date"`
	RegistrationDeadline *time.Time  `json:"registration_deadline,omitempty"`
	Duration             *int        `json:"duration,omitempty"`
	Address              *string     `json:"address,omitempty"`
	Latitude             *float64    `json:"latitude,omitempty"`
	Longitude            *float64    `json:"longitude,omitempty"`
	Capacity             *int        `json:"capacity,omitempty"`
	ParticipantsCount    int         `json:"participants_count"`
	OrganizerID          string      `json:"organizer_id"`
	TagIDs               []string    `json:"tag_ids,omitempty"`
	CoverImageID         *string     `json:"cover_image_id,omitempty"`
	GalleryImageIDs      []string    `json:"gallery_image_ids,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// IsFull reports whether the event has reached its capacity. Events without a
// capacity are never full.
func (e *Event) IsFull() bool {
	return e.Capacity != nil && e.ParticipantsCount >= *e.Capacity
}

// RegistrationOpenAt reports whether a join attempt at the given time falls
// inside the registration window: up to the registration deadline when one is
// set, otherwise up to the event end.
func (e *Event) RegistrationOpenAt(now time.Time) bool {
	if e.RegistrationDeadline != nil {
		return !now.After(*e.RegistrationDeadline)
	}
	return !now.After(e.EndDate)
}

// ListParams holds the query shape for listing events.
type ListParams struct {
	Query string `json:"query,omitempty"`
	Take  int    `json:"take,omitempty"`
	Skip  int    `json:"skip,omitempty"`
}

// SearchFilters holds the query shape for searching events.
type SearchFilters struct {
	Query  string   `json:"query,omitempty"`
	TagIDs []string `json:"tag_ids,omitempty"`
}

// UpdateEventParams carries a partial update. Nil fields are left untouched.
// ParticipantsCount and Status are deliberately absent: the counter moves only
// inside the join/leave transaction and the status only through cancel or
// reconciliation, so a concurrent update can never clobber either.
type UpdateEventParams struct {
	Title                *string
	Description          *string
	Format               *EventFormat
	StartDate            *time.Time
	EndDate              *time.Time
	RegistrationDeadline *time.Time
	Duration             *int
	Address              *string
	Latitude             *float64
	Longitude            *float64
	Capacity             *int
}

// CreateEventParams carries the fields for creating an event.
type CreateEventParams struct {
	Title                string
	Description          string
	Format               EventFormat
	StartDate            time.Time
	EndDate              time.Time
	RegistrationDeadline *time.Time
	Duration             *int
	Address              *string
	Latitude             *float64
	Longitude            *float64
	Capacity             *int
	TagIDs               []string
	CoverImage           *MediaUpload
	GalleryImages        []MediaUpload
}

// EventRepository defines the interface for event storage.
// Join and Leave run the check-then-act counter mutation as a single
// transaction scoped to the event row.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, params ListParams) ([]*Event, error)
	Search(ctx context.Context, filters SearchFilters) ([]*Event, error)
	ListByOrganizerID(ctx context.Context, organizerID string) ([]*Event, error)
	ListByTagID(ctx context.Context, tagID string) ([]*Event, error)
	// ListActive returns all non-cancelled events, for status reconciliation.
	ListActive(ctx context.Context) ([]*Event, error)
	Update(ctx context.Context, id string, params UpdateEventParams) (*Event, error)
	// UpdateStatus writes the status column only.
	UpdateStatus(ctx context.Context, id string, status EventStatus) error
	Delete(ctx context.Context, id string) error
	AttachTags(ctx context.Context, eventID string, tagIDs []string) error
	Join(ctx context.Context, eventID, participantID string) error
	Leave(ctx context.Context, eventID, participantID string) error
}

// EventService defines the lifecycle and participation operations exposed to
// the delivery layer.
type EventService interface {
	CreateEvent(ctx context.Context, organizerID string, params CreateEventParams) (*Event, error)
	UpdateEvent(ctx context.Context, eventID string, params UpdateEventParams, cover *MediaUpload, gallery []MediaUpload) (*Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	CancelEvent(ctx context.Context, eventID string) (*Event, error)
	JoinEvent(ctx context.Context, eventID, userID string) error
	LeaveEvent(ctx context.Context, eventID, userID string) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListEvents(ctx context.Context, params ListParams) ([]*Event, error)
	SearchEvents(ctx context.Context, filters SearchFilters) ([]*Event, error)
	EventsByOrganizer(ctx context.Context, organizerID string) ([]*Event, error)
	EventsByTag(ctx context.Context, tagID string) ([]*Event, error)
	GetParticipants(ctx context.Context, eventID string) ([]*EventParticipant, error)
	// ReconcileStatuses re-derives the status of every non-cancelled event and
	// returns how many events actually changed.
	ReconcileStatuses(ctx context.Context) (int, error)
	AccreditOrganizer(ctx context.Context, organizerID string) (*Organizer, error)
	SetParticipantVisibility(ctx context.Context, userID string, visibility Visibility) (*Participant, error)
}

// EventCache is a best-effort read-through cache for event reads. The store is
// always the source of truth: implementations never surface failures, they
// log and move on.
type EventCache interface {
	GetEvent(ctx context.Context, id string) (*Event, bool)
	SetEvent(ctx context.Context, event *Event)
	GetList(ctx context.Context, params ListParams) ([]*Event, bool)
	SetList(ctx context.Context, params ListParams, events []*Event)
	GetSearch(ctx context.Context, filters SearchFilters) ([]*Event, bool)
	SetSearch(ctx context.Context, filters SearchFilters, events []*Event)
	GetByOrganizer(ctx context.Context, organizerID string) ([]*Event, bool)
	SetByOrganizer(ctx context.Context, organizerID string, events []*Event)
	GetByTag(ctx context.Context, tagID string) ([]*Event, bool)
	SetByTag(ctx context.Context, tagID string, events []*Event)
	InvalidateEvent(ctx context.Context, eventID string)
	// InvalidateLists drops every list and search entry; their key space is
	// unbounded so they are treated as a wildcard class.
	InvalidateLists(ctx context.Context)
	InvalidateOrganizer(ctx context.Context, organizerID string)
	InvalidateTags(ctx context.Context, tagIDs []string)
	// InvalidateAllTags drops every tag-scoped aggregate, for mutations where
	// the affected tag set is not known.
	InvalidateAllTags(ctx context.Context)
}
