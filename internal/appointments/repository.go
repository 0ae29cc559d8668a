package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/db"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/outbox"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"

	"github.com/jackc/pgx/v5"
)

const appointmentColumns = `id::text, appointment_date::text, start_minute, end_minute, name, email, phone, note, status, created_at, updated_at`

type PostgresRepository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewRepository(pool *db.Pool, events *outbox.Repository) *PostgresRepository {
	return &PostgresRepository{pool: pool, events: events}
}

// Reserve locks the slot row, counts the appointments holding it and inserts
// the appointment returned by build, all in one transaction.
func (r *PostgresRepository) Reserve(ctx context.Context, slotID string, build func(slot slots.Slot, active int) (Appointment, error)) (Appointment, error) {
	var created Appointment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		slot, err := slots.LockByID(ctx, tx, slotID)
		if err != nil {
			return err
		}
		day, err := time.Parse(schedule.DateLayout, slot.Date)
		if err != nil {
			return err
		}

		var active int
		if err := tx.QueryRow(ctx, `
			SELECT count(*) FROM appointments
			WHERE appointment_date = $1 AND start_minute = $2 AND end_minute = $3 AND status <> 'CANCELLED'
		`, day, slot.StartMinute, slot.EndMinute).Scan(&active); err != nil {
			return err
		}

		appt, err := build(slot, active)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO appointments (id, appointment_date, start_minute, end_minute, name, email, phone, note, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, appt.ID, day, appt.StartMinute, appt.EndMinute, appt.Name, appt.Email, appt.Phone, appt.Note, string(appt.Status), appt.CreatedAt, appt.UpdatedAt)
		if err != nil {
			return err
		}

		if err := slots.RefreshAvailability(ctx, tx, day, slot.StartMinute, slot.EndMinute); err != nil {
			return err
		}
		if err := r.writeEvent(ctx, tx, appt); err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return Appointment{}, err
	}
	return created, nil
}

// Transition locks the appointment, applies mutate and persists the result.
// Slot availability is recomputed when the status moves in or out of
// CANCELLED.
func (r *PostgresRepository) Transition(ctx context.Context, id string, mutate func(*Appointment) error) (Appointment, error) {
	var updated Appointment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		current, err := scanAppointment(tx.QueryRow(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE id = $1
			FOR UPDATE
		`, id))
		if err != nil {
			if db.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		next := current
		if err := mutate(&next); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE appointments
			SET name = $2, email = $3, phone = $4, note = $5, status = $6, updated_at = $7
			WHERE id = $1
		`, id, next.Name, next.Email, next.Phone, next.Note, string(next.Status), next.UpdatedAt)
		if err != nil {
			return err
		}

		if next.Status != current.Status {
			if current.Status.HoldsCapacity() != next.Status.HoldsCapacity() {
				day, err := time.Parse(schedule.DateLayout, next.Date)
				if err != nil {
					return err
				}
				if err := slots.RefreshAvailability(ctx, tx, day, next.StartMinute, next.EndMinute); err != nil {
					return err
				}
			}
			if err := r.writeEvent(ctx, tx, next); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return Appointment{}, err
	}
	return updated, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, err
	}
	return appt, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Appointment, error) {
	where, args, err := filterToSQL(filter)
	if err != nil {
		return nil, err
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM appointments
		%s
		ORDER BY appointment_date DESC, start_minute DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *PostgresRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	where, args, err := filterToSQL(filter)
	if err != nil {
		return 0, err
	}
	var total int64
	err = r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments `+where, args...).Scan(&total)
	return total, err
}

func (r *PostgresRepository) SlotLoads(ctx context.Context, startDate, endDate string) ([]SlotLoad, error) {
	start, err := time.Parse(schedule.DateLayout, startDate)
	if err != nil {
		return nil, schedule.ErrInvalidDate
	}
	end, err := time.Parse(schedule.DateLayout, endDate)
	if err != nil {
		return nil, schedule.ErrInvalidDate
	}

	rows, err := r.pool.Query(ctx, `
		SELECT s.id::text, s.slot_date::text, s.start_minute, s.end_minute, s.capacity, `+slots.ActiveCountSQL+`
		FROM slots s
		WHERE s.slot_date >= $1 AND s.slot_date <= $2
		ORDER BY s.slot_date ASC, s.start_minute ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := make([]SlotLoad, 0)
	for rows.Next() {
		var load SlotLoad
		var active int64
		if err := rows.Scan(&load.SlotID, &load.Date, &load.StartMinute, &load.EndMinute, &load.Capacity, &active); err != nil {
			return nil, err
		}
		load.Active = int(active)
		loads = append(loads, load)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return loads, nil
}

func (r *PostgresRepository) writeEvent(ctx context.Context, tx pgx.Tx, appt Appointment) error {
	evt, err := outbox.NewEvent(outbox.AggregateAppointment, appt.ID, EventType(appt.Status), appt)
	if err != nil {
		return err
	}
	return r.events.Insert(ctx, tx, evt)
}

// EventType names the lifecycle event emitted when an appointment enters status.
func EventType(status Status) string {
	switch status {
	case StatusBooked:
		return outbox.TypeAppointmentBooked
	case StatusCancelled:
		return outbox.TypeAppointmentCancelled
	case StatusCompleted:
		return outbox.TypeAppointmentCompleted
	default:
		return outbox.TypeAppointmentPending
	}
}

func filterToSQL(filter ListFilter) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.StartDate != "" {
		day, err := time.Parse(schedule.DateLayout, filter.StartDate)
		if err != nil {
			return "", nil, schedule.ErrInvalidDate
		}
		add("appointment_date >= $%d", day)
	}
	if filter.EndDate != "" {
		day, err := time.Parse(schedule.DateLayout, filter.EndDate)
		if err != nil {
			return "", nil, schedule.ErrInvalidDate
		}
		add("appointment_date <= $%d", day)
	}
	if filter.AppointmentID != "" {
		add("id = $%d", filter.AppointmentID)
	}
	if filter.Email != "" {
		add("lower(email) = $%d", filter.Email)
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var appt Appointment
	var status string
	if err := row.Scan(
		&appt.ID,
		&appt.Date,
		&appt.StartMinute,
		&appt.EndMinute,
		&appt.Name,
		&appt.Email,
		&appt.Phone,
		&appt.Note,
		&status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return Appointment{}, err
	}
	appt.Status = Status(status)
	return appt.WithClocks(), nil
}
