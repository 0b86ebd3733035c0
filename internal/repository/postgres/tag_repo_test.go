package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsphere/internal/domain"
)

func TestTagRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTagRepository(db)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, name FROM tags WHERE id = \$1`).
			WithArgs("tag-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("tag-1", "music"))

		tag, err := repo.GetByID(context.Background(), "tag-1")
		require.NoError(t, err)
		assert.Equal(t, "music", tag.Name)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, name FROM tags WHERE id = \$1`).
			WithArgs("tag-ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		_, err := repo.GetByID(context.Background(), "tag-ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepository_FilterExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTagRepository(db)

	t.Run("drops unknown ids and preserves input order", func(t *testing.T) {
		input := []string{"tag-2", "tag-ghost", "tag-1"}
		mock.ExpectQuery(`SELECT id FROM tags WHERE id = ANY\(\$1\)`).
			WithArgs(pq.Array(input)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tag-1").AddRow("tag-2"))

		existing, err := repo.FilterExisting(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, []string{"tag-2", "tag-1"}, existing)
	})

	t.Run("deduplicates", func(t *testing.T) {
		input := []string{"tag-1", "tag-1"}
		mock.ExpectQuery(`SELECT id FROM tags WHERE id = ANY\(\$1\)`).
			WithArgs(pq.Array(input)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tag-1"))

		existing, err := repo.FilterExisting(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, []string{"tag-1"}, existing)
	})

	t.Run("empty input skips the query", func(t *testing.T) {
		existing, err := repo.FilterExisting(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, existing)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
