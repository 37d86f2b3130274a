package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/appointment-service/internal/domain"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// activeSlotConstraint is the partial unique index over (provider_id, date) for rows without canceled_at.
const activeSlotConstraint = "appointments_active_slot"

// AppointmentRepository is the appointment ledger and its availability index.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) error
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	SlotOccupied(ctx context.Context, providerID int64, hourStart time.Time) (bool, error)
	ListActiveByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Appointment, error)
	// MarkCanceled stamps canceled_at and queues mail in one transaction. It
	// reports false when the appointment was already canceled.
	MarkCanceled(ctx context.Context, id int64, now time.Time, mail *domain.Mail) (bool, error)
}

type appointmentRepository struct {
	db DB
}

// NewAppointmentRepository instantiates repository.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{db: pool}
}

// NewAppointmentRepositoryWithDB allows injecting a mock pool for tests.
func NewAppointmentRepositoryWithDB(db DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *domain.Appointment) error {
	const query = `
        INSERT INTO appointments (user_id, provider_id, date, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$4)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		appt.UserID,
		appt.ProviderID,
		appt.Date,
		appt.CreatedAt,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if isUniqueViolation(err, activeSlotConstraint) {
		return apperrors.ErrSlotTaken
	}
	return err
}

func (r *appointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	const query = `
        SELECT a.id, a.user_id, a.provider_id, a.date, a.canceled_at, a.created_at, a.updated_at,
               p.name, p.email, u.name, u.email
        FROM appointments a
        JOIN users p ON p.id = a.provider_id
        JOIN users u ON u.id = a.user_id
        WHERE a.id=$1`

	var (
		appt     domain.Appointment
		provider domain.User
		user     domain.User
	)
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&appt.ID,
		&appt.UserID,
		&appt.ProviderID,
		&appt.Date,
		&appt.CanceledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
		&provider.Name,
		&provider.Email,
		&user.Name,
		&user.Email,
	); err != nil {
		return nil, err
	}
	provider.ID, provider.Provider = appt.ProviderID, true
	user.ID = appt.UserID
	appt.Provider = &provider
	appt.User = &user
	return &appt, nil
}

func (r *appointmentRepository) SlotOccupied(ctx context.Context, providerID int64, hourStart time.Time) (bool, error) {
	const query = `
        SELECT EXISTS(
            SELECT 1 FROM appointments
            WHERE provider_id=$1 AND date=$2 AND canceled_at IS NULL
        )`

	var taken bool
	if err := r.db.QueryRow(ctx, query, providerID, hourStart).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

func (r *appointmentRepository) ListActiveByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Appointment, error) {
	const query = `
        SELECT a.id, a.user_id, a.provider_id, a.date, a.created_at, a.updated_at,
               p.name, f.id, f.name, f.path
        FROM appointments a
        JOIN users p ON p.id = a.provider_id
        LEFT JOIN files f ON f.id = p.avatar_id
        WHERE a.user_id=$1 AND a.canceled_at IS NULL
        ORDER BY a.date ASC
        LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Appointment{}
	for rows.Next() {
		var (
			appt       domain.Appointment
			provider   domain.User
			avatarID   *int64
			avatarName *string
			avatarPath *string
		)
		if err := rows.Scan(
			&appt.ID,
			&appt.UserID,
			&appt.ProviderID,
			&appt.Date,
			&appt.CreatedAt,
			&appt.UpdatedAt,
			&provider.Name,
			&avatarID,
			&avatarName,
			&avatarPath,
		); err != nil {
			return nil, err
		}
		provider.ID, provider.Provider = appt.ProviderID, true
		provider.Avatar = avatarFrom(avatarID, avatarName, avatarPath)
		appt.Provider = &provider
		result = append(result, appt)
	}
	return result, rows.Err()
}

func (r *appointmentRepository) MarkCanceled(ctx context.Context, id int64, now time.Time, mail *domain.Mail) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE appointments SET canceled_at=$1, updated_at=$1
        WHERE id=$2 AND canceled_at IS NULL`
	cmd, err := tx.Exec(ctx, query, now, id)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		return false, nil
	}

	if mail != nil {
		if _, err := insertOutbox(ctx, tx, *mail); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit cancel: %w", err)
	}
	return true, nil
}
