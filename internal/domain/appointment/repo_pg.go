package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// NewRepoPG returns a Postgres-backed appointment repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const appointmentCols = `id, clinic_id, doctor_id, service_id, patient_id,
	start_time, end_time, channel, contact_name, contact_phone, contact_email,
	notes, status, actual_start, actual_end, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.ClinicID, &a.DoctorID, &a.ServiceID, &a.PatientID,
		&a.StartTime, &a.EndTime, &a.Channel, &a.ContactName, &a.ContactPhone,
		&a.ContactEmail, &a.Notes, &a.Status, &a.ActualStart, &a.ActualEnd,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlotTaken
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (
			id, clinic_id, doctor_id, service_id, patient_id,
			start_time, end_time, channel, contact_name, contact_phone,
			contact_email, notes, status, actual_start, actual_end,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.ClinicID, a.DoctorID, a.ServiceID, a.PatientID,
		a.StartTime, a.EndTime, a.Channel, a.ContactName, a.ContactPhone,
		a.ContactEmail, a.Notes, a.Status, a.ActualStart, a.ActualEnd,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", mapWriteErr(err))
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET
			start_time = $2, end_time = $3, patient_id = $4, notes = $5,
			status = $6, actual_start = $7, actual_end = $8, updated_at = $9
		WHERE id = $1`,
		a.ID, a.StartTime, a.EndTime, a.PatientID, a.Notes,
		a.Status, a.ActualStart, a.ActualEnd, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", mapWriteErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error) {
	where := []string{"clinic_id = $1"}
	args := []any{params.ClinicID}

	if params.DoctorID != nil {
		args = append(args, *params.DoctorID)
		where = append(where, fmt.Sprintf("doctor_id = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.From != nil {
		args = append(args, *params.From)
		where = append(where, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if params.To != nil {
		args = append(args, *params.To)
		where = append(where, fmt.Sprintf("start_time < $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE `+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE `+cond+
			fmt.Sprintf(` ORDER BY start_time LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search appointments: %w", err)
	}
	defer rows.Close()

	list, err := collectAppointments(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *repoPG) FindConflicting(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE doctor_id = $1
		  AND status NOT IN ('cancelled', 'no_show')
		  AND start_time < $3 AND $2 < end_time
		  AND id <> $4
		ORDER BY start_time`,
		doctorID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find conflicting appointments: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *repoPG) ListActiveIntervals(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	return r.FindConflicting(ctx, doctorID, from, to, uuid.Nil)
}

func (r *repoPG) ListOverdue(ctx context.Context, before time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE status IN ('pending', 'confirmed')
		  AND start_time < $1
		ORDER BY start_time`,
		before)
	if err != nil {
		return nil, fmt.Errorf("list overdue appointments: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *repoPG) CountByStatus(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID, from, to time.Time) (map[Status]int, error) {
	q := `
		SELECT status, COUNT(*) FROM appointments
		WHERE clinic_id = $1 AND start_time >= $2 AND start_time < $3`
	args := []any{clinicID, from, to}
	if doctorID != nil {
		args = append(args, *doctorID)
		q += ` AND doctor_id = $4`
	}
	q += ` GROUP BY status`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("count appointments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	var list []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
