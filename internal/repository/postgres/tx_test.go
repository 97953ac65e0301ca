package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/metrics"
	"github.com/Outercircl-dev/backend/internal/repository"
	"github.com/Outercircl-dev/backend/internal/repository/postgres"
)

const lockActivityQuery = `SELECT id, host_id, max_participants, is_public, status FROM activities WHERE id = \$1 FOR UPDATE`

var activityColumns = []string{"id", "host_id", "max_participants", "is_public", "status"}

func lockActivity(ctx context.Context, tx repository.Tx) error {
	_, err := tx.Activities().GetForUpdate(ctx, activityID)
	return err
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := postgres.NewStore(db, postgres.TxConfig{MaxAttempts: 3}, nil)

		mock.ExpectBegin()
		mock.ExpectQuery(lockActivityQuery).WithArgs(activityID).
			WillReturnRows(sqlmock.NewRows(activityColumns).AddRow(activityID, "host-1", 2, true, "published"))
		mock.ExpectCommit()

		assert.NoError(t, store.WithinTx(ctx, lockActivity))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Retries serialization failures", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		m := metrics.NewWithRegistry(prometheus.NewRegistry())
		store := postgres.NewStore(db, postgres.TxConfig{MaxAttempts: 3}, m)

		mock.ExpectBegin()
		mock.ExpectQuery(lockActivityQuery).WithArgs(activityID).WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectQuery(lockActivityQuery).WithArgs(activityID).
			WillReturnRows(sqlmock.NewRows(activityColumns).AddRow(activityID, "host-1", 2, true, "published"))
		mock.ExpectCommit()

		assert.NoError(t, store.WithinTx(ctx, lockActivity))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.TxRetriesTotal))
	})

	t.Run("Retries a commit that lost a race", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := postgres.NewStore(db, postgres.TxConfig{MaxAttempts: 2}, nil)

		mock.ExpectBegin()
		mock.ExpectQuery(lockActivityQuery).WithArgs(activityID).
			WillReturnRows(sqlmock.NewRows(activityColumns).AddRow(activityID, "host-1", 2, true, "published"))
		mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40P01"})
		mock.ExpectBegin()
		mock.ExpectQuery(lockActivityQuery).WithArgs(activityID).
			WillReturnRows(sqlmock.NewRows(activityColumns).AddRow(activityID, "host-1", 2, true, "published"))
		mock.ExpectCommit()

		assert.NoError(t, store.WithinTx(ctx, lockActivity))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Surfaces conflict after exhausting retries", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		m := metrics.NewWithRegistry(prometheus.NewRegistry())
		store := postgres.NewStore(db, postgres.TxConfig{MaxAttempts: 2}, m)

		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectQuery(lockActivityQuery).WithArgs(activityID).WillReturnError(&pq.Error{Code: "40P01"})
			mock.ExpectRollback()
		}

		err = store.WithinTx(ctx, lockActivity)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.TxConflictsTotal))
	})

	t.Run("Does not retry domain errors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := postgres.NewStore(db, postgres.TxConfig{MaxAttempts: 3}, nil)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return domain.BadRequest("hosts cannot join their own activity")
		})
		assert.ErrorIs(t, err, domain.ErrBadRequest)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing activity is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := postgres.NewStore(db, postgres.TxConfig{MaxAttempts: 3}, nil)

		mock.ExpectBegin()
		mock.ExpectQuery(lockActivityQuery).WithArgs(activityID).WillReturnRows(sqlmock.NewRows(activityColumns))
		mock.ExpectRollback()

		err = store.WithinTx(ctx, lockActivity)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, postgres.IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, postgres.IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, postgres.IsRetryable(&pq.Error{Code: "23503"}))
	assert.False(t, postgres.IsRetryable(errors.New("connection reset")))
	assert.False(t, postgres.IsRetryable(nil))
}
