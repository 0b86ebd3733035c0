package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventsphere/internal/domain"
)

type participantRepository struct {
	DB *sql.DB
}

func NewParticipantRepository(db *sql.DB) domain.ParticipantRepository {
	return &participantRepository{
		DB: db,
	}
}

func (r *participantRepository) Create(ctx context.Context, p *domain.Participant) error {
	query := `
		INSERT INTO participants (user_id, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, p.UserID, p.Visibility, p.CreatedAt, p.UpdatedAt).
		Scan(&p.ID)
}

func (r *participantRepository) GetByUserID(ctx context.Context, userID string) (*domain.Participant, error) {
	query := `
		SELECT id, user_id, visibility, created_at, updated_at
		FROM participants
		WHERE user_id = $1
	`
	p := &domain.Participant{}
	err := r.DB.QueryRowContext(ctx, query, userID).
		Scan(&p.ID, &p.UserID, &p.Visibility, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *participantRepository) ChangeVisibility(ctx context.Context, id string, visibility domain.Visibility) (*domain.Participant, error) {
	query := `
		UPDATE participants SET visibility = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, user_id, visibility, created_at, updated_at
	`
	p := &domain.Participant{}
	err := r.DB.QueryRowContext(ctx, query, visibility, id).
		Scan(&p.ID, &p.UserID, &p.Visibility, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *participantRepository) GetJoinRecord(ctx context.Context, eventID, participantID string) (*domain.EventParticipant, error) {
	query := `
		SELECT event_id, participant_id, status, created_at
		FROM event_participants
		WHERE event_id = $1 AND participant_id = $2
	`
	ep := &domain.EventParticipant{}
	err := r.DB.QueryRowContext(ctx, query, eventID, participantID).
		Scan(&ep.EventID, &ep.ParticipantID, &ep.Status, &ep.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return ep, nil
}

func (r *participantRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.EventParticipant, error) {
	query := `
		SELECT ep.event_id, ep.participant_id, ep.status, p.visibility, ep.created_at
		FROM event_participants ep
		JOIN participants p ON p.id = ep.participant_id
		WHERE ep.event_id = $1
		ORDER BY ep.created_at
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*domain.EventParticipant, 0)
	for rows.Next() {
		ep := &domain.EventParticipant{}
		if err := rows.Scan(&ep.EventID, &ep.ParticipantID, &ep.Status, &ep.Visibility, &ep.CreatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, ep)
	}
	return participants, rows.Err()
}
