package memory

import (
	"context"
	"sort"
	"sync"

	"cogscreen-service/internal/domain"
)

// AppointmentStore is an in-memory implementation of app.AppointmentRepository.
type AppointmentStore struct {
	mu    sync.RWMutex
	appts []domain.Appointment
}

func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{}
}

func (s *AppointmentStore) Create(_ context.Context, a domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appts = append(s.appts, a)
	return nil
}

func (s *AppointmentStore) ListByPatient(_ context.Context, patientID string) ([]domain.Appointment, error) {
	return s.filter(func(a domain.Appointment) bool { return a.PatientID == patientID }), nil
}

func (s *AppointmentStore) ListByDoctor(_ context.Context, doctorID string) ([]domain.Appointment, error) {
	return s.filter(func(a domain.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (s *AppointmentStore) filter(keep func(domain.Appointment) bool) []domain.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Appointment, 0)
	for _, a := range s.appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SlotISO < out[j].SlotISO })
	return out
}
