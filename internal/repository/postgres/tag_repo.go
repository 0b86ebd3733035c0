package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventsphere/internal/domain"
)

type tagRepository struct {
	DB *sql.DB
}

func NewTagRepository(db *sql.DB) domain.TagRepository {
	return &tagRepository{
		DB: db,
	}
}

func (r *tagRepository) GetByID(ctx context.Context, id string) (*domain.Tag, error) {
	query := `SELECT id, name FROM tags WHERE id = $1`
	t := &domain.Tag{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *tagRepository) FilterExisting(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM tags WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve input order, drop unknown ids and duplicates.
	var existing []string
	seen := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		existing = append(existing, id)
	}
	return existing, nil
}
