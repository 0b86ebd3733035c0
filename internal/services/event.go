package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventsphere/internal/domain"
)

type eventService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	organizerRepo   domain.OrganizerRepository
	tagRepo         domain.TagRepository
	media           domain.MediaStorage
	cache           domain.EventCache
	logger          *slog.Logger
	now             func() time.Time
	contextTimeout  time.Duration
}

func NewEventService(
	eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	organizerRepo domain.OrganizerRepository,
	tagRepo domain.TagRepository,
	media domain.MediaStorage,
	cache domain.EventCache,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		organizerRepo:   organizerRepo,
		tagRepo:         tagRepo,
		media:           media,
		cache:           cache,
		logger:          logger,
		now:             time.Now,
		contextTimeout:  timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, organizerID string, params domain.CreateEventParams) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	organizer, err := s.organizerRepo.GetByID(ctx, organizerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get organizer: %w", err)
	}
	if !organizer.IsAccredited {
		return nil, domain.ErrNotAccredited
	}
	if params.EndDate.Before(params.StartDate) {
		return nil, domain.ErrInvalidInput
	}

	now := s.now()
	event := &domain.Event{
		Title:                params.Title,
		Description:          params.Description,
		Format:               params.Format,
		Status:               domain.ResolveStatus(now, params.StartDate, params.EndDate, domain.StatusScheduled),
		StartDate:            params.StartDate,
		EndDate:              params.EndDate,
		RegistrationDeadline: params.RegistrationDeadline,
		Duration:             params.Duration,
		Address:              params.Address,
		Latitude:             params.Latitude,
		Longitude:            params.Longitude,
		Capacity:             params.Capacity,
		ParticipantsCount:    0,
		OrganizerID:          organizerID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if len(params.TagIDs) > 0 {
		// Unknown tag ids are dropped silently, not an error.
		existing, err := s.tagRepo.FilterExisting(ctx, params.TagIDs)
		if err != nil {
			return nil, fmt.Errorf("filter tags: %w", err)
		}
		if len(existing) > 0 {
			if err := s.eventRepo.AttachTags(ctx, event.ID, existing); err != nil {
				return nil, fmt.Errorf("attach tags: %w", err)
			}
		}
	}

	if params.CoverImage != nil {
		if _, err := s.media.UploadCover(ctx, event.ID, *params.CoverImage); err != nil {
			return nil, fmt.Errorf("upload cover image: %w", err)
		}
	}
	if len(params.GalleryImages) > 0 {
		if _, err := s.media.UploadGallery(ctx, event.ID, params.GalleryImages); err != nil {
			return nil, fmt.Errorf("upload gallery images: %w", err)
		}
	}

	created, err := s.eventRepo.GetByID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("reload event: %w", err)
	}

	s.cache.InvalidateLists(ctx)
	s.cache.InvalidateOrganizer(ctx, organizerID)
	s.cache.InvalidateTags(ctx, created.TagIDs)
	s.logger.Info("event created", "event_id", created.ID, "organizer_id", organizerID)
	return created, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID string, params domain.UpdateEventParams, cover *domain.MediaUpload, gallery []domain.MediaUpload) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	if cover != nil {
		if event.CoverImageID != nil {
			if err := s.media.DeleteCover(ctx, eventID); err != nil {
				return nil, fmt.Errorf("delete cover image: %w", err)
			}
		}
		if _, err := s.media.UploadCover(ctx, eventID, *cover); err != nil {
			return nil, fmt.Errorf("upload cover image: %w", err)
		}
	}
	if len(gallery) > 0 {
		if _, err := s.media.ReplaceGallery(ctx, eventID, gallery); err != nil {
			return nil, fmt.Errorf("replace gallery images: %w", err)
		}
	}

	if _, err := s.eventRepo.Update(ctx, eventID, params); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	updated, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("reload event: %w", err)
	}

	s.invalidateEventScoped(ctx, updated)
	s.logger.Info("event updated", "event_id", eventID)
	return updated, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}

	// Media associations go first; join records cascade with the row.
	if event.CoverImageID != nil {
		if err := s.media.DeleteCover(ctx, eventID); err != nil {
			return fmt.Errorf("delete cover image: %w", err)
		}
	}
	if len(event.GalleryImageIDs) > 0 {
		if err := s.media.DeleteGallery(ctx, eventID); err != nil {
			return fmt.Errorf("delete gallery images: %w", err)
		}
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}

	s.invalidateEventScoped(ctx, event)
	s.logger.Info("event deleted", "event_id", eventID)
	return nil
}

func (s *eventService) CancelEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.Status == domain.StatusCancelled {
		// Re-cancelling is a no-op, not an error.
		return event, nil
	}

	if err := s.eventRepo.UpdateStatus(ctx, eventID, domain.StatusCancelled); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("cancel event: %w", err)
	}
	event.Status = domain.StatusCancelled

	s.invalidateEventScoped(ctx, event)
	s.logger.Info("event cancelled", "event_id", eventID)
	return event, nil
}

func (s *eventService) JoinEvent(ctx context.Context, eventID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	// Read from the store, not the cache: the registration window and
	// capacity pre-check must see current state.
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}

	if !event.RegistrationOpenAt(s.now()) {
		return domain.ErrRegistrationClosed
	}
	if event.IsFull() {
		return domain.ErrEventFull
	}

	participant, err := s.resolveParticipant(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.participantRepo.GetJoinRecord(ctx, eventID, participant.ID); err == nil {
		return domain.ErrAlreadyJoined
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get join record: %w", err)
	}

	// The authoritative capacity and duplicate checks run inside the store
	// transaction under the event-row lock; the checks above only fail fast.
	if err := s.eventRepo.Join(ctx, eventID, participant.ID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound),
			errors.Is(err, domain.ErrEventFull),
			errors.Is(err, domain.ErrAlreadyJoined):
			return err
		}
		return fmt.Errorf("join event: %w", err)
	}

	s.invalidateEventScoped(ctx, event)
	s.logger.Info("participant joined event", "event_id", eventID, "participant_id", participant.ID)
	return nil
}

func (s *eventService) LeaveEvent(ctx context.Context, eventID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}

	participant, err := s.participantRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get participant: %w", err)
	}

	if err := s.eventRepo.Leave(ctx, eventID, participant.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("leave event: %w", err)
	}

	s.invalidateEventScoped(ctx, event)
	s.logger.Info("participant left event", "event_id", eventID, "participant_id", participant.ID)
	return nil
}

func (s *eventService) resolveParticipant(ctx context.Context, userID string) (*domain.Participant, error) {
	participant, err := s.participantRepo.GetByUserID(ctx, userID)
	if err == nil {
		return participant, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	now := s.now()
	participant = &domain.Participant{
		UserID:     userID,
		Visibility: domain.VisibilityPublic,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		return nil, fmt.Errorf("create participant: %w", err)
	}
	return participant, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event, ok := s.cache.GetEvent(ctx, eventID); ok {
		return event, nil
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	s.cache.SetEvent(ctx, event)
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, params domain.ListParams) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if events, ok := s.cache.GetList(ctx, params); ok {
		return events, nil
	}
	events, err := s.eventRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	s.cache.SetList(ctx, params, events)
	return events, nil
}

func (s *eventService) SearchEvents(ctx context.Context, filters domain.SearchFilters) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if events, ok := s.cache.GetSearch(ctx, filters); ok {
		return events, nil
	}
	events, err := s.eventRepo.Search(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	s.cache.SetSearch(ctx, filters, events)
	return events, nil
}

func (s *eventService) EventsByOrganizer(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if events, ok := s.cache.GetByOrganizer(ctx, organizerID); ok {
		return events, nil
	}
	events, err := s.eventRepo.ListByOrganizerID(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("list events by organizer: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	s.cache.SetByOrganizer(ctx, organizerID, events)
	return events, nil
}

func (s *eventService) EventsByTag(ctx context.Context, tagID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if events, ok := s.cache.GetByTag(ctx, tagID); ok {
		return events, nil
	}
	// An unknown tag is NotFound outright, distinct from a known tag that
	// currently has no events.
	if _, err := s.tagRepo.GetByID(ctx, tagID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	events, err := s.eventRepo.ListByTagID(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("list events by tag: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	s.cache.SetByTag(ctx, tagID, events)
	return events, nil
}

func (s *eventService) GetParticipants(ctx context.Context, eventID string) ([]*domain.EventParticipant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	participants, err := s.participantRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	if len(participants) == 0 {
		return nil, domain.ErrNotFound
	}
	return participants, nil
}

// ReconcileStatuses re-derives every non-cancelled event's status from the
// current time. Only events that crossed a boundary since the last run are
// written, which bounds write amplification; each update is independent and
// idempotent, so aborting mid-sweep is safe.
func (s *eventService) ReconcileStatuses(ctx context.Context) (int, error) {
	events, err := s.eventRepo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active events: %w", err)
	}

	now := s.now()
	changed := 0
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		status := domain.ResolveStatus(now, event.StartDate, event.EndDate, event.Status)
		if status == event.Status {
			continue
		}
		// Status-only write: a concurrent join/leave on the same row keeps
		// its counter update.
		if err := s.eventRepo.UpdateStatus(ctx, event.ID, status); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Deleted since the sweep started; nothing to reconcile.
				continue
			}
			return changed, fmt.Errorf("update status for event %s: %w", event.ID, err)
		}
		changed++
		s.cache.InvalidateEvent(ctx, event.ID)
		s.cache.InvalidateOrganizer(ctx, event.OrganizerID)
	}
	if changed > 0 {
		s.cache.InvalidateLists(ctx)
		// ListActive rows carry no tag ids, so the tag aggregates are purged
		// as a class rather than per event.
		s.cache.InvalidateAllTags(ctx)
	}
	s.logger.Info("event statuses reconciled", "checked", len(events), "changed", changed)
	return changed, nil
}

func (s *eventService) AccreditOrganizer(ctx context.Context, organizerID string) (*domain.Organizer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	organizer, err := s.organizerRepo.SetAccredited(ctx, organizerID, true)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("accredit organizer: %w", err)
	}

	s.cache.InvalidateOrganizer(ctx, organizerID)
	s.cache.InvalidateLists(ctx)
	s.logger.Info("organizer accredited", "organizer_id", organizerID)
	return organizer, nil
}

func (s *eventService) SetParticipantVisibility(ctx context.Context, userID string, visibility domain.Visibility) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	participant, err := s.participantRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}

	updated, err := s.participantRepo.ChangeVisibility(ctx, participant.ID, visibility)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("change visibility: %w", err)
	}
	s.logger.Info("participant visibility changed", "participant_id", updated.ID, "visibility", visibility)
	return updated, nil
}

// invalidateEventScoped drops every cache entry a mutation of this event can
// have gone stale: the item key, the unbounded list/search classes, and the
// organizer- and tag-scoped aggregates. Called only after the store write
// committed.
func (s *eventService) invalidateEventScoped(ctx context.Context, event *domain.Event) {
	s.cache.InvalidateEvent(ctx, event.ID)
	s.cache.InvalidateLists(ctx)
	s.cache.InvalidateOrganizer(ctx, event.OrganizerID)
	s.cache.InvalidateTags(ctx, event.TagIDs)
}
