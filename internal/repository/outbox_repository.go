package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/appointment-service/internal/domain"
)

// OutboxEntry is a claimed mail waiting for delivery.
type OutboxEntry struct {
	ID        uuid.UUID
	Mail      domain.Mail
	Attempts  int
	CreatedAt time.Time
}

// MailOutboxRepository persists mail that must be sent after a committed write.
type MailOutboxRepository interface {
	Enqueue(ctx context.Context, mail domain.Mail) (uuid.UUID, error)
	// Claim leases up to limit pending entries that have been attempted fewer
	// than maxAttempts times, incrementing their attempt counter.
	Claim(ctx context.Context, limit int32, maxAttempts int, lease time.Duration) ([]OutboxEntry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	MarkAttemptFailed(ctx context.Context, id uuid.UUID, cause string, final bool) error
	// Release returns a claimed entry that was never sent, refunding its attempt.
	Release(ctx context.Context, id uuid.UUID) error
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type mailOutboxRepository struct {
	db DB
}

// NewMailOutboxRepository instantiates repository.
func NewMailOutboxRepository(pool *pgxpool.Pool) MailOutboxRepository {
	return &mailOutboxRepository{db: pool}
}

// NewMailOutboxRepositoryWithDB allows injecting a mock pool for tests.
func NewMailOutboxRepositoryWithDB(db DB) MailOutboxRepository {
	return &mailOutboxRepository{db: db}
}

func (r *mailOutboxRepository) Enqueue(ctx context.Context, mail domain.Mail) (uuid.UUID, error) {
	return insertOutbox(ctx, r.db, mail)
}

func insertOutbox(ctx context.Context, exec execer, mail domain.Mail) (uuid.UUID, error) {
	payload, err := json.Marshal(mail)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal mail: %w", err)
	}
	id := uuid.New()
	const query = `
        INSERT INTO mail_outbox (id, template, payload)
        VALUES ($1,$2,$3)`
	if _, err := exec.Exec(ctx, query, id, mail.Template, payload); err != nil {
		return uuid.Nil, fmt.Errorf("insert mail outbox: %w", err)
	}
	return id, nil
}

func (r *mailOutboxRepository) Claim(ctx context.Context, limit int32, maxAttempts int, lease time.Duration) ([]OutboxEntry, error) {
	const query = `
        UPDATE mail_outbox SET attempts = attempts + 1, locked_until = NOW() + $3::interval
        WHERE id IN (
            SELECT id FROM mail_outbox
            WHERE delivered_at IS NULL AND failed_at IS NULL AND attempts < $2
              AND (locked_until IS NULL OR locked_until < NOW())
            ORDER BY created_at
            LIMIT $1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, payload, attempts, created_at`

	rows, err := r.db.Query(ctx, query, limit, maxAttempts, lease.String())
	if err != nil {
		return nil, fmt.Errorf("claim mail outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var (
			entry   OutboxEntry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &payload, &entry.Attempts, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mail outbox: %w", err)
		}
		if err := json.Unmarshal(payload, &entry.Mail); err != nil {
			return nil, fmt.Errorf("decode mail outbox %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *mailOutboxRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE mail_outbox SET delivered_at=NOW(), locked_until=NULL, last_error=NULL
        WHERE id=$1 AND delivered_at IS NULL`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark mail delivered: %w", err)
	}
	return nil
}

func (r *mailOutboxRepository) MarkAttemptFailed(ctx context.Context, id uuid.UUID, cause string, final bool) error {
	query := `UPDATE mail_outbox SET last_error=$2, locked_until=NULL WHERE id=$1`
	if final {
		query = `UPDATE mail_outbox SET last_error=$2, locked_until=NULL, failed_at=NOW() WHERE id=$1`
	}
	if _, err := r.db.Exec(ctx, query, id, cause); err != nil {
		return fmt.Errorf("mark mail attempt failed: %w", err)
	}
	return nil
}

func (r *mailOutboxRepository) Release(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE mail_outbox SET attempts = GREATEST(attempts - 1, 0), locked_until=NULL
        WHERE id=$1 AND delivered_at IS NULL AND failed_at IS NULL`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("release mail outbox: %w", err)
	}
	return nil
}
