package app

import (
	"context"
	"errors"
	"log"
	"time"

	"cogscreen-service/internal/domain"
)

// PatientSummary is a patient's most recent screening as shown to doctors.
type PatientSummary struct {
	Patient         domain.User         `json:"patient"`
	SessionID       string              `json:"sessionId"`
	CreatedAt       time.Time           `json:"createdAt"`
	RiskLabel       domain.RiskLabel    `json:"riskLabel"`
	RiskScore       float64             `json:"riskScore"`
	DomainScores    domain.DomainScores `json:"domainScores,omitempty"`
	ExplanationHTML string              `json:"explanationHtml"`
}

// DashboardService assembles the doctor overview.
type DashboardService struct {
	users    UserRepository
	sessions ScreeningRepository
	sealer   Sealer
}

func NewDashboardService(users UserRepository, sessions ScreeningRepository, sealer Sealer) *DashboardService {
	return &DashboardService{users: users, sessions: sessions, sealer: sealer}
}

// Latest returns one summary per patient with at least one screening.
func (d *DashboardService) Latest(ctx context.Context) ([]PatientSummary, error) {
	patients, err := d.users.ListByRole(ctx, domain.RolePatient)
	if err != nil {
		return nil, err
	}
	out := make([]PatientSummary, 0, len(patients))
	for _, p := range patients {
		sess, err := d.sessions.Latest(ctx, p.ID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		scores, err := decodeScores(d.sealer, sess.DomainScoresEnc)
		if err != nil {
			log.Printf("decode domain scores for session %s: %v", sess.ID, err)
		}
		out = append(out, PatientSummary{
			Patient:         p,
			SessionID:       sess.ID,
			CreatedAt:       sess.CreatedAt,
			RiskLabel:       sess.RiskLabel,
			RiskScore:       sess.RiskScore,
			DomainScores:    scores,
			ExplanationHTML: renderExplanation(d.sealer, sess.ExplanationEnc),
		})
	}
	return out, nil
}
