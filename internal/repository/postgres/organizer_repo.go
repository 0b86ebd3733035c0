package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventsphere/internal/domain"
)

type organizerRepository struct {
	DB *sql.DB
}

func NewOrganizerRepository(db *sql.DB) domain.OrganizerRepository {
	return &organizerRepository{
		DB: db,
	}
}

func (r *organizerRepository) GetByID(ctx context.Context, id string) (*domain.Organizer, error) {
	query := `
		SELECT id, name, is_accredited, created_at, updated_at
		FROM organizers
		WHERE id = $1
	`
	o := &domain.Organizer{}
	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&o.ID, &o.Name, &o.IsAccredited, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *organizerRepository) SetAccredited(ctx context.Context, id string, accredited bool) (*domain.Organizer, error) {
	query := `
		UPDATE organizers SET is_accredited = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, name, is_accredited, created_at, updated_at
	`
	o := &domain.Organizer{}
	err := r.DB.QueryRowContext(ctx, query, accredited, id).
		Scan(&o.ID, &o.Name, &o.IsAccredited, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}
