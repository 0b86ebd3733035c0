package postgres

import (
	"context"
	"database/sql"

	"eventsphere/internal/domain"
)

type mediaRepository struct {
	DB *sql.DB
}

func NewMediaRepository(db *sql.DB) domain.MediaRepository {
	return &mediaRepository{
		DB: db,
	}
}

func (r *mediaRepository) Create(ctx context.Context, m *domain.Media) error {
	query := `
		INSERT INTO media (url, filename, type, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, m.URL, m.Filename, m.Type, m.CreatedAt).Scan(&m.ID)
}

func (r *mediaRepository) AttachCover(ctx context.Context, eventID, mediaID string) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE events SET cover_image_id = $1, updated_at = NOW() WHERE id = $2`,
		mediaID, eventID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *mediaRepository) AttachGalleryImage(ctx context.Context, eventID, mediaID string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO event_media (event_id, media_id, position)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM event_media WHERE event_id = $1))`,
		eventID, mediaID)
	return err
}

func (r *mediaRepository) ListByEvent(ctx context.Context, eventID string, mediaType domain.MediaType) ([]*domain.Media, error) {
	var query string
	switch mediaType {
	case domain.MediaTypeCover:
		query = `
			SELECT m.id, m.url, m.filename, m.type, m.created_at
			FROM media m
			JOIN events e ON e.cover_image_id = m.id
			WHERE e.id = $1
		`
	default:
		query = `
			SELECT m.id, m.url, m.filename, m.type, m.created_at
			FROM media m
			JOIN event_media em ON em.media_id = m.id
			WHERE em.event_id = $1
			ORDER BY em.position
		`
	}
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	media := make([]*domain.Media, 0)
	for rows.Next() {
		m := &domain.Media{}
		if err := rows.Scan(&m.ID, &m.URL, &m.Filename, &m.Type, &m.CreatedAt); err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

func (r *mediaRepository) DeleteByEvent(ctx context.Context, eventID string, mediaType domain.MediaType) error {
	if mediaType == domain.MediaTypeCover {
		_, err := r.DB.ExecContext(ctx, `
			DELETE FROM media WHERE id = (SELECT cover_image_id FROM events WHERE id = $1)
		`, eventID)
		return err
	}
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM media WHERE id IN (SELECT media_id FROM event_media WHERE event_id = $1)
	`, eventID)
	return err
}
