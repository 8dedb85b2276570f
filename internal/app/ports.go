package app

import (
	"context"

	"cogscreen-service/internal/domain"
)

// ScreeningRepository persists finished assessments.
type ScreeningRepository interface {
	Create(ctx context.Context, s domain.ScreeningSession) error
	// Get returns the session only if it belongs to userID.
	Get(ctx context.Context, userID, sessionID string) (domain.ScreeningSession, error)
	// ListByUser returns the user's sessions oldest first.
	ListByUser(ctx context.Context, userID string) ([]domain.ScreeningSession, error)
	// Latest returns the user's newest session or domain.ErrSessionNotFound.
	Latest(ctx context.Context, userID string) (domain.ScreeningSession, error)
}

// ProgressRepository keeps an in-flight assessment history so a patient can resume.
type ProgressRepository interface {
	Load(ctx context.Context, userID string) ([]domain.AnsweredItem, error)
	Save(ctx context.Context, userID string, history []domain.AnsweredItem) error
	Clear(ctx context.Context, userID string) error
}

// UserRepository stores accounts.
type UserRepository interface {
	Create(ctx context.Context, u domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// AppointmentRepository stores bookings, ordered by slot.
type AppointmentRepository interface {
	Create(ctx context.Context, a domain.Appointment) error
	ListByPatient(ctx context.Context, patientID string) ([]domain.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]domain.Appointment, error)
}

// Classifier scores a transcript into a risk tier.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (domain.Prediction, error)
}

// Explainer renders markup explaining a classification.
type Explainer interface {
	Explain(ctx context.Context, transcript string) (string, error)
}

// Sealer encrypts stored text fields at rest.
type Sealer interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(token string) ([]byte, error)
}

func seal(s Sealer, plain string) (string, error) {
	if s == nil {
		return plain, nil
	}
	return s.Encrypt([]byte(plain))
}

func unseal(s Sealer, stored string) (string, error) {
	if s == nil || stored == "" {
		return stored, nil
	}
	b, err := s.Decrypt(stored)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
