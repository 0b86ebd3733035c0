package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Business failures belong to one of three classes; specific
// errors wrap their class so callers can match either with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	// ErrNotAccredited is returned when an organizer without accreditation tries to create an event.
	ErrNotAccredited = fmt.Errorf("%w: organizer is not accredited", ErrForbidden)
	// ErrRegistrationClosed is returned when a join attempt arrives after the registration window.
	ErrRegistrationClosed = fmt.Errorf("%w: registration on the event is closed", ErrForbidden)
	// ErrEventFull is returned when a join attempt would exceed the event capacity.
	ErrEventFull = fmt.Errorf("%w: event is full", ErrForbidden)
	// ErrAlreadyJoined is returned when a join record already exists for the (event, participant) pair.
	ErrAlreadyJoined = fmt.Errorf("%w: already registered on this event", ErrConflict)
	// ErrNotJoined is returned when leaving an event the participant never joined.
	ErrNotJoined = fmt.Errorf("%w: not a participant of this event", ErrNotFound)
)
