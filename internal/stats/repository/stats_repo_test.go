package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsRepository_Recompute(t *testing.T) {
	ctx := context.Background()

	t.Run("doer", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE profiles`).
			WithArgs("d-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewStatsRepository(db).RecomputeDoer(ctx, "d-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("supervisor", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE profiles`).
			WithArgs("s-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewStatsRepository(db).RecomputeSupervisor(ctx, "s-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure propagates", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE profiles`).
			WillReturnError(context.DeadlineExceeded)

		assert.Error(t, NewStatsRepository(db).RecomputeDoer(ctx, "d-1"))
	})
}
