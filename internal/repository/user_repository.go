package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/appointment-service/internal/domain"
)

// UserRepository answers identity and role questions about users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	IsProvider(ctx context.Context, id int64) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{db: pool}
}

// NewUserRepositoryWithDB allows injecting a mock pool for tests.
func NewUserRepositoryWithDB(db DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT u.id, u.name, u.email, u.provider, u.created_at, u.updated_at,
               f.id, f.name, f.path
        FROM users u
        LEFT JOIN files f ON f.id = u.avatar_id
        WHERE u.id=$1`

	var (
		user       domain.User
		avatarID   *int64
		avatarName *string
		avatarPath *string
	)
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Provider,
		&user.CreatedAt,
		&user.UpdatedAt,
		&avatarID,
		&avatarName,
		&avatarPath,
	); err != nil {
		return nil, err
	}
	user.Avatar = avatarFrom(avatarID, avatarName, avatarPath)
	return &user, nil
}

func (r *userRepository) IsProvider(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1 AND provider=true)`

	var ok bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`

	var ok bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func avatarFrom(id *int64, name, path *string) *domain.File {
	if id == nil || path == nil {
		return nil
	}
	file := &domain.File{ID: *id, Path: *path}
	if name != nil {
		file.Name = *name
	}
	return file
}
