package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Window Repository ===========

type windowRepoPG struct{ pool *pgxpool.Pool }

func NewWindowRepoPG(pool *pgxpool.Pool) WindowRepository { return &windowRepoPG{pool: pool} }

func (r *windowRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const windowCols = `id, doctor_id, clinic_id, day_of_week, start_minute, end_minute,
	slot_size_minutes, active, effective_from, effective_to, created_at, updated_at`

func (r *windowRepoPG) scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	err := row.Scan(&w.ID, &w.DoctorID, &w.ClinicID, &w.DayOfWeek, &w.StartMinute, &w.EndMinute,
		&w.SlotSizeMinutes, &w.Active, &w.EffectiveFrom, &w.EffectiveTo, &w.CreatedAt, &w.UpdatedAt)
	return &w, err
}

func (r *windowRepoPG) Create(ctx context.Context, w *Window) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_availability (id, doctor_id, clinic_id, day_of_week,
			start_minute, end_minute, slot_size_minutes, active, effective_from, effective_to)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		w.ID, w.DoctorID, w.ClinicID, w.DayOfWeek,
		w.StartMinute, w.EndMinute, w.SlotSizeMinutes, w.Active, w.EffectiveFrom, w.EffectiveTo)
	return err
}

func (r *windowRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Window, error) {
	w, err := r.scanWindow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+windowCols+` FROM doctor_availability WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return w, nil
}

func (r *windowRepoPG) Update(ctx context.Context, w *Window) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor_availability SET day_of_week=$2, start_minute=$3, end_minute=$4,
			slot_size_minutes=$5, active=$6, effective_from=$7, effective_to=$8, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.DayOfWeek, w.StartMinute, w.EndMinute,
		w.SlotSizeMinutes, w.Active, w.EffectiveFrom, w.EffectiveTo)
	return err
}

func (r *windowRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor_availability SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *windowRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Window, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctor_availability WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+windowCols+` FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY day_of_week ASC, start_minute ASC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Window
	for rows.Next() {
		w, err := r.scanWindow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, nil
}

func (r *windowRepoPG) ListForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]*Window, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+windowCols+` FROM doctor_availability
		WHERE doctor_id = $1 AND day_of_week = $2 AND active
		ORDER BY start_minute ASC`, doctorID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Window
	for rows.Next() {
		w, err := r.scanWindow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, nil
}

// =========== TimeOff Repository ===========

type timeOffRepoPG struct{ pool *pgxpool.Pool }

func NewTimeOffRepoPG(pool *pgxpool.Pool) TimeOffRepository { return &timeOffRepoPG{pool: pool} }

func (r *timeOffRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const timeOffCols = `id, doctor_id, clinic_id, start_time, end_time, reason, created_at, updated_at`

func (r *timeOffRepoPG) scanTimeOff(row pgx.Row) (*TimeOff, error) {
	var t TimeOff
	err := row.Scan(&t.ID, &t.DoctorID, &t.ClinicID, &t.StartTime, &t.EndTime,
		&t.Reason, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *timeOffRepoPG) Create(ctx context.Context, t *TimeOff) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_time_off (id, doctor_id, clinic_id, start_time, end_time, reason)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.DoctorID, t.ClinicID, t.StartTime, t.EndTime, t.Reason)
	return err
}

func (r *timeOffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TimeOff, error) {
	t, err := r.scanTimeOff(r.conn(ctx).QueryRow(ctx,
		`SELECT `+timeOffCols+` FROM doctor_time_off WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return t, nil
}

func (r *timeOffRepoPG) Update(ctx context.Context, t *TimeOff) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor_time_off SET start_time=$2, end_time=$3, reason=$4, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.StartTime, t.EndTime, t.Reason)
	return err
}

func (r *timeOffRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor_time_off WHERE id = $1`, id)
	return err
}

func (r *timeOffRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*TimeOff, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctor_time_off WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+timeOffCols+` FROM doctor_time_off
		WHERE doctor_id = $1
		ORDER BY start_time DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*TimeOff
	for rows.Next() {
		t, err := r.scanTimeOff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

func (r *timeOffRepoPG) ListIntersecting(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*TimeOff, error) {
	// Half-open interval intersection: start < to AND from < end.
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+timeOffCols+` FROM doctor_time_off
		WHERE doctor_id = $1 AND start_time < $3 AND $2 < end_time
		ORDER BY start_time ASC`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TimeOff
	for rows.Next() {
		t, err := r.scanTimeOff(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}
