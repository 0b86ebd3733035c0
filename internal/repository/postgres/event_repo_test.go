package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"eventsphere/internal/domain"
)

var eventCols = []string{
	"id", "title", "description", "format", "status", "start_date", "end_date",
	"registration_deadline", "duration", "address", "latitude", "longitude", "capacity",
	"participants_count", "organizer_id", "cover_image_id", "created_at", "updated_at",
}

func eventRow(id string, status domain.EventStatus, capacity any, count int) *sqlmock.Rows {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(eventCols).AddRow(
		id, "GopherCon", "a conference", "OFFLINE", string(status),
		now, now.Add(6*time.Hour), nil, nil, nil, nil, nil, capacity,
		count, "org-1", nil, now, now,
	)
}

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	event := &domain.Event{
		Title:       "GopherCon",
		Description: "a conference",
		Format:      domain.FormatOffline,
		Status:      domain.StatusScheduled,
		StartDate:   now,
		EndDate:     now.Add(6 * time.Hour),
		OrganizerID: "org-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	mock.ExpectQuery(`INSERT INTO events`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))

	repo := NewEventRepository(db)
	require.NoError(t, repo.Create(ctx, event))
	require.Equal(t, "ev-1", event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("success with tags and gallery", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM events WHERE id = \$1`).
			WithArgs("ev-1").
			WillReturnRows(eventRow("ev-1", domain.StatusScheduled, 100, 3))
		mock.ExpectQuery(`SELECT tag_id FROM event_tags`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"tag_id"}).AddRow("tag-1").AddRow("tag-2"))
		mock.ExpectQuery(`SELECT media_id FROM event_media`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"media_id"}).AddRow("media-1"))

		repo := NewEventRepository(db)
		got, err := repo.GetByID(ctx, "ev-1")
		require.NoError(t, err)
		require.Equal(t, "ev-1", got.ID)
		require.NotNil(t, got.Capacity)
		require.Equal(t, 100, *got.Capacity)
		require.Equal(t, 3, got.ParticipantsCount)
		require.Equal(t, []string{"tag-1", "tag-2"}, got.TagIDs)
		require.Equal(t, []string{"media-1"}, got.GalleryImageIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM events WHERE id = \$1`).
			WithArgs("ev-missing").
			WillReturnError(sql.ErrNoRows)

		repo := NewEventRepository(db)
		_, err = repo.GetByID(ctx, "ev-missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_Update_PartialFields(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	title := "New title"
	capacity := 50
	// Only the supplied columns appear in the SET clause; in particular
	// participants_count and status are never written by Update.
	mock.ExpectQuery(`UPDATE events SET updated_at = NOW\(\), title = \$1, capacity = \$2 WHERE id = \$3 RETURNING`).
		WithArgs(title, capacity, "ev-1").
		WillReturnRows(eventRow("ev-1", domain.StatusScheduled, capacity, 3))

	repo := NewEventRepository(db)
	got, err := repo.Update(ctx, "ev-1", domain.UpdateEventParams{Title: &title, Capacity: &capacity})
	require.NoError(t, err)
	require.Equal(t, "ev-1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Update_NoFieldsFetchesCurrentRow(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM events WHERE id = \$1`).
		WithArgs("ev-1").
		WillReturnRows(eventRow("ev-1", domain.StatusScheduled, nil, 0))
	mock.ExpectQuery(`SELECT tag_id FROM event_tags`).
		WillReturnRows(sqlmock.NewRows([]string{"tag_id"}))
	mock.ExpectQuery(`SELECT media_id FROM event_media`).
		WillReturnRows(sqlmock.NewRows([]string{"media_id"}))

	repo := NewEventRepository(db)
	got, err := repo.Update(ctx, "ev-1", domain.UpdateEventParams{})
	require.NoError(t, err)
	require.Equal(t, "ev-1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE events SET status = \$1, updated_at = NOW\(\) WHERE id = \$2`).
			WithArgs(string(domain.StatusOngoing), "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewEventRepository(db)
		require.NoError(t, repo.UpdateStatus(ctx, "ev-1", domain.StatusOngoing))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE events SET status = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewEventRepository(db)
		require.ErrorIs(t, repo.UpdateStatus(ctx, "ev-missing", domain.StatusOngoing), domain.ErrNotFound)
	})
}

func TestEventRepository_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, participants_count FROM events WHERE id = \$1 FOR UPDATE`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "participants_count"}).AddRow(10, 4))
		mock.ExpectExec(`INSERT INTO event_participants`).
			WithArgs("ev-1", "p-1", string(domain.ParticipationGoing)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE events SET participants_count = participants_count \+ 1`).
			WithArgs("ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewEventRepository(db)
		require.NoError(t, repo.Join(ctx, "ev-1", "p-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event full", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, participants_count FROM events WHERE id = \$1 FOR UPDATE`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "participants_count"}).AddRow(5, 5))
		mock.ExpectRollback()

		repo := NewEventRepository(db)
		err = repo.Join(ctx, "ev-1", "p-1")
		require.ErrorIs(t, err, domain.ErrEventFull)
		require.ErrorIs(t, err, domain.ErrForbidden)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unbounded capacity never full", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, participants_count FROM events WHERE id = \$1 FOR UPDATE`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "participants_count"}).AddRow(nil, 100000))
		mock.ExpectExec(`INSERT INTO event_participants`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE events SET participants_count = participants_count \+ 1`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewEventRepository(db)
		require.NoError(t, repo.Join(ctx, "ev-1", "p-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate join is a conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, participants_count FROM events WHERE id = \$1 FOR UPDATE`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "participants_count"}).AddRow(10, 4))
		mock.ExpectExec(`INSERT INTO event_participants`).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		repo := NewEventRepository(db)
		err = repo.Join(ctx, "ev-1", "p-1")
		require.ErrorIs(t, err, domain.ErrAlreadyJoined)
		require.ErrorIs(t, err, domain.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, participants_count FROM events WHERE id = \$1 FOR UPDATE`).
			WithArgs("ev-missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		repo := NewEventRepository(db)
		require.ErrorIs(t, repo.Join(ctx, "ev-missing", "p-1"), domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure is retried", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		// First attempt deadlocks on the row lock; second succeeds.
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, participants_count FROM events WHERE id = \$1 FOR UPDATE`).
			WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, participants_count FROM events WHERE id = \$1 FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "participants_count"}).AddRow(10, 4))
		mock.ExpectExec(`INSERT INTO event_participants`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE events SET participants_count = participants_count \+ 1`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewEventRepository(db)
		require.NoError(t, repo.Join(ctx, "ev-1", "p-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_Leave(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT true FROM events WHERE id = \$1 FOR UPDATE`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"true"}).AddRow(true))
		mock.ExpectExec(`DELETE FROM event_participants WHERE event_id = \$1 AND participant_id = \$2`).
			WithArgs("ev-1", "p-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE events SET participants_count = GREATEST\(participants_count - 1, 0\)`).
			WithArgs("ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewEventRepository(db)
		require.NoError(t, repo.Leave(ctx, "ev-1", "p-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no join record", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT true FROM events WHERE id = \$1 FOR UPDATE`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"true"}).AddRow(true))
		mock.ExpectExec(`DELETE FROM event_participants`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		repo := NewEventRepository(db)
		err = repo.Leave(ctx, "ev-1", "p-1")
		require.ErrorIs(t, err, domain.ErrNotJoined)
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT true FROM events WHERE id = \$1 FOR UPDATE`).
			WithArgs("ev-missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		repo := NewEventRepository(db)
		require.ErrorIs(t, repo.Leave(ctx, "ev-missing", "p-1"), domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).
			WithArgs("ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewEventRepository(db)
		require.NoError(t, repo.Delete(ctx, "ev-1"))
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).
			WithArgs("ev-missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewEventRepository(db)
		require.ErrorIs(t, repo.Delete(ctx, "ev-missing"), domain.ErrNotFound)
	})
}

func TestEventRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := eventRow("ev-1", domain.StatusScheduled, nil, 0).
		AddRow("ev-2", "Meetup", "small one", "ONLINE", "ONGOING",
			time.Now(), time.Now().Add(time.Hour), nil, nil, nil, nil, nil, nil,
			1, "org-2", nil, time.Now(), time.Now())
	mock.ExpectQuery(`FROM events WHERE status <> \$1`).
		WithArgs(string(domain.StatusCancelled)).
		WillReturnRows(rows)

	repo := NewEventRepository(db)
	events, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
