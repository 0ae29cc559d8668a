package slots

import (
	"context"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/db"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/outbox"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"

	"github.com/jackc/pgx/v5"
)

// ActiveCountSQL counts appointments holding capacity on the slot aliased s.
// Appointments snapshot their times, so matching is by date and interval.
const ActiveCountSQL = `(
	SELECT count(*) FROM appointments a
	WHERE a.appointment_date = s.slot_date
		AND a.start_minute = s.start_minute
		AND a.end_minute = s.end_minute
		AND a.status <> 'CANCELLED'
)`

const slotColumns = `s.id::text, s.slot_date::text, s.start_minute, s.end_minute, s.capacity, s.is_available, s.created_at`

type PostgresRepository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewRepository(pool *db.Pool, events *outbox.Repository) *PostgresRepository {
	return &PostgresRepository{pool: pool, events: events}
}

func (r *PostgresRepository) Create(ctx context.Context, slot Slot) (Slot, error) {
	var created Slot
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = insertSlot(ctx, tx, slot)
		return err
	})
	if err != nil {
		return Slot{}, mapWriteError(err)
	}
	return created, nil
}

func (r *PostgresRepository) ListByDateRange(ctx context.Context, startDate, endDate string) ([]Slot, error) {
	start, err := optionalDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := optionalDate(endDate)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		WHERE ($1::date IS NULL OR s.slot_date >= $1::date)
			AND ($2::date IS NULL OR s.slot_date <= $2::date)
		ORDER BY s.slot_date ASC, s.start_minute ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Slot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, slot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *PostgresRepository) GetByDateTime(ctx context.Context, date string, startMinute int) (Slot, error) {
	day, err := time.Parse(schedule.DateLayout, date)
	if err != nil {
		return Slot{}, schedule.ErrInvalidDate
	}
	slot, err := scanSlot(r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		WHERE s.slot_date = $1 AND s.start_minute = $2
	`, day, startMinute))
	if err != nil {
		if db.IsNotFound(err) {
			return Slot{}, ErrNotFound
		}
		return Slot{}, err
	}
	return slot, nil
}

func (r *PostgresRepository) DeleteByDate(ctx context.Context, date string) (int64, error) {
	day, err := time.Parse(schedule.DateLayout, date)
	if err != nil {
		return 0, schedule.ErrInvalidDate
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM slots WHERE slot_date = $1`, day)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) ReplaceForDate(ctx context.Context, date string, items []Slot) ([]Slot, error) {
	day, err := time.Parse(schedule.DateLayout, date)
	if err != nil {
		return nil, schedule.ErrInvalidDate
	}

	created := make([]Slot, 0, len(items))
	err = r.pool.InTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM slots WHERE slot_date = $1`, day)
		if err != nil {
			return err
		}
		for _, item := range items {
			slot, err := insertSlot(ctx, tx, item)
			if err != nil {
				return err
			}
			created = append(created, slot)
		}

		evt, err := outbox.NewEvent(outbox.AggregateSlotDate, date, outbox.TypeSlotsReplaced, map[string]interface{}{
			"date":    date,
			"removed": tag.RowsAffected(),
			"slots":   created,
		})
		if err != nil {
			return err
		}
		return r.events.Insert(ctx, tx, evt)
	})
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertSlot(ctx context.Context, tx pgx.Tx, slot Slot) (Slot, error) {
	day, err := time.Parse(schedule.DateLayout, slot.Date)
	if err != nil {
		return Slot{}, schedule.ErrInvalidDate
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO slots (id, slot_date, start_minute, end_minute, capacity, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, slot.ID, day, slot.StartMinute, slot.EndMinute, slot.Capacity, slot.IsAvailable, slot.CreatedAt)
	if err != nil {
		return Slot{}, err
	}
	// Appointments already holding this interval keep counting against it.
	if err := RefreshAvailability(ctx, tx, day, slot.StartMinute, slot.EndMinute); err != nil {
		return Slot{}, err
	}
	return scanSlot(tx.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		WHERE s.id = $1
	`, slot.ID))
}

// RefreshAvailability recomputes is_available for the slot matching the
// given snapshot from its capacity and active appointment count.
func RefreshAvailability(ctx context.Context, tx pgx.Tx, date time.Time, startMinute, endMinute int) error {
	_, err := tx.Exec(ctx, `
		UPDATE slots s
		SET is_available = s.capacity > `+ActiveCountSQL+`
		WHERE s.slot_date = $1 AND s.start_minute = $2 AND s.end_minute = $3
	`, date, startMinute, endMinute)
	return err
}

// LockByID loads a slot and holds its row lock until tx ends.
func LockByID(ctx context.Context, tx pgx.Tx, id string) (Slot, error) {
	slot, err := scanSlot(tx.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		WHERE s.id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return Slot{}, ErrNotFound
		}
		return Slot{}, err
	}
	return slot, nil
}

func scanSlot(row pgx.Row) (Slot, error) {
	var slot Slot
	if err := row.Scan(
		&slot.ID,
		&slot.Date,
		&slot.StartMinute,
		&slot.EndMinute,
		&slot.Capacity,
		&slot.IsAvailable,
		&slot.CreatedAt,
	); err != nil {
		return Slot{}, err
	}
	return slot.WithClocks(), nil
}

func optionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := time.Parse(schedule.DateLayout, value)
	if err != nil {
		return nil, schedule.ErrInvalidDate
	}
	return &day, nil
}

func mapWriteError(err error) error {
	if db.IsExclusionViolation(err) {
		return ErrOverlap
	}
	if db.IsCheckViolation(err) {
		return ErrInvalidCapacity
	}
	return err
}
