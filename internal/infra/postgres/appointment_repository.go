package postgres

import (
	"context"
	"fmt"

	"cogscreen-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AppointmentRepository stores bookings in Postgres.
type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Create(ctx context.Context, a domain.Appointment) error {
	var notes *string
	if a.NotesEnc != "" {
		notes = &a.NotesEnc
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO appointments (id, patient_id, doctor_id, slot_iso, notes_enc, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.PatientID, a.DoctorID, a.SlotISO, notes, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string) ([]domain.Appointment, error) {
	return r.list(ctx, `patient_id`, patientID)
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID string) ([]domain.Appointment, error) {
	return r.list(ctx, `doctor_id`, doctorID)
}

// column is one of the two fixed owner columns, never caller input.
func (r *AppointmentRepository) list(ctx context.Context, column, id string) ([]domain.Appointment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, patient_id, doctor_id, slot_iso, COALESCE(notes_enc, ''), created_at FROM appointments WHERE `+column+`=$1 ORDER BY slot_iso ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Appointment, 0)
	for rows.Next() {
		var a domain.Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.SlotISO, &a.NotesEnc, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
