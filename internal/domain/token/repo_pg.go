package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG returns a Postgres-backed action token repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const tokenCols = `id, appointment_id, kind, token, status, expires_at, used_at, created_at`

func scanToken(row pgx.Row) (*ActionToken, error) {
	var t ActionToken
	err := row.Scan(&t.ID, &t.AppointmentID, &t.Kind, &t.Token, &t.Status,
		&t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) Create(ctx context.Context, t *ActionToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	t.CreatedAt = time.Now().UTC()

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO action_tokens (id, appointment_id, kind, token, status, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.AppointmentID, t.Kind, t.Token, t.Status, t.ExpiresAt, t.UsedAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert action token: %w", err)
	}
	return nil
}

func (r *repoPG) GetByToken(ctx context.Context, token string) (*ActionToken, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+tokenCols+` FROM action_tokens WHERE token = $1`, token)
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get action token: %w", err)
	}
	return t, nil
}

func (r *repoPG) Consume(ctx context.Context, token string, kind Kind, now time.Time) (*ActionToken, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE action_tokens
		SET status = 'used', used_at = $3
		WHERE token = $1 AND kind = $2 AND status = 'active' AND expires_at > $3
		RETURNING `+tokenCols,
		token, kind, now)
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("consume action token: %w", err)
	}
	return t, nil
}

func (r *repoPG) ExpireForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE action_tokens SET status = 'expired'
		WHERE appointment_id = $1 AND status = 'active'`,
		appointmentID)
	if err != nil {
		return fmt.Errorf("expire action tokens: %w", err)
	}
	return nil
}

func (r *repoPG) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*ActionToken, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+tokenCols+` FROM action_tokens WHERE appointment_id = $1 ORDER BY created_at`,
		appointmentID)
	if err != nil {
		return nil, fmt.Errorf("list action tokens: %w", err)
	}
	defer rows.Close()

	var list []*ActionToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action token: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
