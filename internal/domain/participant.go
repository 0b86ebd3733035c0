package domain

import (
	"context"
	"time"
)

// Visibility governs whether a third party may see a participant's event history.
type Visibility string

const (
	VisibilityPublic      Visibility = "PUBLIC"
	VisibilityFriendsOnly Visibility = "FRIENDS_ONLY"
	VisibilityPrivate     Visibility = "PRIVATE"
)

// Participant is a user's registration identity, distinct from the user
// account itself. One participant per user.
type Participant struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ParticipationStatus is the state of a join record.
type ParticipationStatus string

const ParticipationGoing ParticipationStatus = "GOING"

// EventParticipant is the join record tying a participant to an event. At most
// one record exists per (event, participant) pair; leaving deletes it.
type EventParticipant struct {
	EventID       string              `json:"event_id"`
	ParticipantID string              `json:"participant_id"`
	Status        ParticipationStatus `json:"status"`
	Visibility    Visibility          `json:"visibility,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ParticipantRepository defines storage for participants and their join records.
type ParticipantRepository interface {
	Create(ctx context.Context, p *Participant) error
	GetByUserID(ctx context.Context, userID string) (*Participant, error)
	ChangeVisibility(ctx context.Context, id string, visibility Visibility) (*Participant, error)
	GetJoinRecord(ctx context.Context, eventID, participantID string) (*EventParticipant, error)
	ListByEventID(ctx context.Context, eventID string) ([]*EventParticipant, error)
}
