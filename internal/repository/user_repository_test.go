package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIsProvider(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepositoryWithDB(mock)
	mock.ExpectQuery("SELECT EXISTS").WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.IsProvider(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepositoryWithDB(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT u.id").WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "email", "provider", "created_at", "updated_at", "avatar_id", "avatar_name", "avatar_path",
		}).AddRow(int64(3), "Bruno", "bruno@example.com", true, now, now, nil, nil, nil))

	user, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Bruno", user.Name)
	assert.True(t, user.Provider)
	assert.Nil(t, user.Avatar)

	mock.ExpectQuery("SELECT u.id").WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}
