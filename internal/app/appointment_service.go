package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"cogscreen-service/internal/domain"
)

// AppointmentView is an appointment with notes decrypted for display.
type AppointmentView struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	DoctorID  string    `json:"doctorId"`
	SlotISO   string    `json:"slotIso"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AppointmentService books and lists patient/doctor appointments.
type AppointmentService struct {
	appointments AppointmentRepository
	users        UserRepository
	sealer       Sealer
	now          func() time.Time
}

func NewAppointmentService(appointments AppointmentRepository, users UserRepository, sealer Sealer) *AppointmentService {
	return &AppointmentService{appointments: appointments, users: users, sealer: sealer, now: time.Now}
}

// Book creates an appointment for patientID with a doctor account.
func (s *AppointmentService) Book(ctx context.Context, patientID, doctorID, slotISO, notes string) (AppointmentView, error) {
	slotISO = strings.TrimSpace(slotISO)
	if slotISO == "" {
		return AppointmentView{}, &domain.ValidationError{Field: "slotIso", Reason: "required"}
	}
	doctor, err := s.users.GetByID(ctx, doctorID)
	if errors.Is(err, domain.ErrUserNotFound) || (err == nil && doctor.Role != domain.RoleDoctor) {
		return AppointmentView{}, domain.ErrDoctorNotFound
	}
	if err != nil {
		return AppointmentView{}, err
	}

	appt := domain.Appointment{
		ID:        uuid.NewString(),
		PatientID: patientID,
		DoctorID:  doctorID,
		SlotISO:   slotISO,
		CreatedAt: s.now().UTC(),
	}
	if notes != "" {
		if appt.NotesEnc, err = seal(s.sealer, notes); err != nil {
			return AppointmentView{}, err
		}
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return AppointmentView{}, err
	}
	return s.view(appt), nil
}

// List returns the caller's appointments ordered by slot.
func (s *AppointmentService) List(ctx context.Context, userID string, role domain.Role) ([]AppointmentView, error) {
	var (
		appts []domain.Appointment
		err   error
	)
	if role == domain.RolePatient {
		appts, err = s.appointments.ListByPatient(ctx, userID)
	} else {
		appts, err = s.appointments.ListByDoctor(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	out := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, s.view(a))
	}
	return out, nil
}

func (s *AppointmentService) view(a domain.Appointment) AppointmentView {
	notes, err := unseal(s.sealer, a.NotesEnc)
	if err != nil {
		notes = "(notes unavailable)"
	}
	return AppointmentView{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		SlotISO:   a.SlotISO,
		Notes:     notes,
		CreatedAt: a.CreatedAt,
	}
}
