package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"eventsphere/internal/domain"
)

const eventColumns = `id, title, description, format, status, start_date, end_date,
		registration_deadline, duration, address, latitude, longitude, capacity,
		participants_count, organizer_id, cover_image_id, created_at, updated_at`

// maxTxAttempts bounds the retry loop around the join/leave transactions.
const maxTxAttempts = 3

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, format, status, start_date, end_date,
			registration_deadline, duration, address, latitude, longitude, capacity,
			participants_count, organizer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Format, e.Status, e.StartDate, e.EndDate,
		e.RegistrationDeadline, e.Duration, e.Address, e.Latitude, e.Longitude,
		e.Capacity, e.ParticipantsCount, e.OrganizerID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var (
		deadline sql.NullTime
		duration sql.NullInt64
		address  sql.NullString
		lat, lng sql.NullFloat64
		capacity sql.NullInt64
		coverID  sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Format, &e.Status, &e.StartDate, &e.EndDate,
		&deadline, &duration, &address, &lat, &lng, &capacity,
		&e.ParticipantsCount, &e.OrganizerID, &coverID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		e.RegistrationDeadline = &deadline.Time
	}
	if duration.Valid {
		d := int(duration.Int64)
		e.Duration = &d
	}
	if address.Valid {
		e.Address = &address.String
	}
	if lat.Valid {
		e.Latitude = &lat.Float64
	}
	if lng.Valid {
		e.Longitude = &lng.Float64
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	if coverID.Valid {
		e.CoverImageID = &coverID.String
	}
	return e, nil
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if e.TagIDs, err = r.eventTagIDs(ctx, id); err != nil {
		return nil, err
	}
	if e.GalleryImageIDs, err = r.galleryImageIDs(ctx, id); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) eventTagIDs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT tag_id FROM event_tags WHERE event_id = $1 ORDER BY tag_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *eventRepository) galleryImageIDs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT media_id FROM event_media WHERE event_id = $1 ORDER BY position`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *eventRepository) List(ctx context.Context, params domain.ListParams) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	args := []any{}
	n := 1
	if params.Query != "" {
		query += fmt.Sprintf(" WHERE title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%'", n, n)
		args = append(args, params.Query)
		n++
	}
	query += " ORDER BY start_date"
	if params.Take > 0 {
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, params.Take)
		n++
	}
	if params.Skip > 0 {
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, params.Skip)
	}
	return r.queryEvents(ctx, query, args...)
}

func (r *eventRepository) Search(ctx context.Context, filters domain.SearchFilters) ([]*domain.Event, error) {
	var clauses []string
	args := []any{}
	n := 1
	if filters.Query != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", n, n))
		args = append(args, filters.Query)
		n++
	}
	if len(filters.TagIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf(
			"id IN (SELECT event_id FROM event_tags WHERE tag_id = ANY($%d))", n))
		args = append(args, pq.Array(filters.TagIDs))
	}
	query := `SELECT ` + eventColumns + ` FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_date"
	return r.queryEvents(ctx, query, args...)
}

func (r *eventRepository) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1 ORDER BY start_date`
	return r.queryEvents(ctx, query, organizerID)
}

func (r *eventRepository) ListByTagID(ctx context.Context, tagID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE id IN (SELECT event_id FROM event_tags WHERE tag_id = $1)
		ORDER BY start_date`
	return r.queryEvents(ctx, query, tagID)
}

func (r *eventRepository) ListActive(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE status <> $1 ORDER BY start_date`
	return r.queryEvents(ctx, query, domain.StatusCancelled)
}

// Update builds a SET clause from the non-nil fields only. It never touches
// participants_count or status, so it cannot race with join/leave or
// reconciliation writes on the same row.
func (r *eventRepository) Update(ctx context.Context, id string, params domain.UpdateEventParams) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if params.Title != nil {
		add("title", *params.Title)
	}
	if params.Description != nil {
		add("description", *params.Description)
	}
	if params.Format != nil {
		add("format", *params.Format)
	}
	if params.StartDate != nil {
		add("start_date", *params.StartDate)
	}
	if params.EndDate != nil {
		add("end_date", *params.EndDate)
	}
	if params.RegistrationDeadline != nil {
		add("registration_deadline", *params.RegistrationDeadline)
	}
	if params.Duration != nil {
		add("duration", *params.Duration)
	}
	if params.Address != nil {
		add("address", *params.Address)
	}
	if params.Latitude != nil {
		add("latitude", *params.Latitude)
	}
	if params.Longitude != nil {
		add("longitude", *params.Longitude)
	}
	if params.Capacity != nil {
		add("capacity", *params.Capacity)
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE events SET %s WHERE id = $%d RETURNING `+eventColumns,
		strings.Join(setClauses, ", "), n)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, status domain.EventStatus) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	// Join records, tag links and media links cascade via foreign keys.
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) AttachTags(ctx context.Context, eventID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		_, err := r.DB.ExecContext(ctx,
			`INSERT INTO event_tags (event_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			eventID, tagID)
		if err != nil {
			return err
		}
	}
	return nil
}

// Join inserts the join record and increments participants_count in one
// transaction. The event row is locked first, so the capacity check and the
// counter write cannot interleave with a concurrent join or leave.
func (r *eventRepository) Join(ctx context.Context, eventID, participantID string) error {
	return r.withRetry(ctx, "join event", func() error {
		return r.join(ctx, eventID, participantID)
	})
}

func (r *eventRepository) join(ctx context.Context, eventID, participantID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var capacity sql.NullInt64
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT capacity, participants_count FROM events WHERE id = $1 FOR UPDATE`,
		eventID).Scan(&capacity, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if capacity.Valid && count >= int(capacity.Int64) {
		return domain.ErrEventFull
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO event_participants (event_id, participant_id, status, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		eventID, participantID, domain.ParticipationGoing)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyJoined
		}
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE events SET participants_count = participants_count + 1, updated_at = NOW() WHERE id = $1`,
		eventID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Leave deletes the join record and decrements participants_count in one
// transaction under the same event-row lock as Join. The counter never goes
// below zero.
func (r *eventRepository) Leave(ctx context.Context, eventID, participantID string) error {
	return r.withRetry(ctx, "leave event", func() error {
		return r.leave(ctx, eventID, participantID)
	})
}

func (r *eventRepository) leave(ctx context.Context, eventID, participantID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT true FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM event_participants WHERE event_id = $1 AND participant_id = $2`,
		eventID, participantID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotJoined
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE events SET participants_count = GREATEST(participants_count - 1, 0), updated_at = NOW() WHERE id = $1`,
		eventID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// withRetry reruns the transaction on serialization failures, deadlocks and
// dropped connections, with bounded attempts. Business errors abort
// immediately; exhaustion surfaces as an infrastructure error.
func (r *eventRepository) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return fmt.Errorf("%s: transaction failed after %d attempts: %w", op, maxTxAttempts, err)
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return errors.Is(err, driver.ErrBadConn)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
