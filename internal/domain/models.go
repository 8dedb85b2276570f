package domain

import (
	"errors"
	"math"
	"strconv"
	"time"
)

// Domain is one of the fixed cognitive areas assessed.
type Domain string

const (
	Memory    Domain = "memory"
	Language  Domain = "language"
	Attention Domain = "attention"
	Executive Domain = "executive"
)

// Domains lists every domain in canonical order.
func Domains() []Domain {
	return []Domain{Memory, Language, Attention, Executive}
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	switch d {
	case Memory, Language, Attention, Executive:
		return true
	}
	return false
}

// Question is an immutable screening catalog entry.
type Question struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Domain Domain `json:"domain"`
}

// AnsweredItem is one record of an assessment history.
type AnsweredItem struct {
	QuestionID int     `json:"qid"`
	Question   string  `json:"question"`
	Domain     Domain  `json:"domain"`
	Answer     string  `json:"answer"`
	Score      float64 `json:"score"`
}

// NewAnsweredItem builds a history record for q, rejecting malformed values.
func NewAnsweredItem(q Question, answer string, score float64) (AnsweredItem, error) {
	item := AnsweredItem{
		QuestionID: q.ID,
		Question:   q.Text,
		Domain:     q.Domain,
		Answer:     answer,
		Score:      score,
	}
	if err := item.Validate(); err != nil {
		return AnsweredItem{}, err
	}
	return item, nil
}

// Validate rejects unknown domains, non-positive question IDs and scores outside [0,1].
func (a AnsweredItem) Validate() error {
	if a.QuestionID <= 0 {
		return invalid("qid", "must be positive, got %d", a.QuestionID)
	}
	if a.Domain == "" {
		return invalid("domain", "missing")
	}
	if !a.Domain.Valid() {
		return invalid("domain", "unknown domain %q", a.Domain)
	}
	if math.IsNaN(a.Score) || a.Score < 0 || a.Score > 1 {
		return invalid("score", "%v outside [0,1]", a.Score)
	}
	return nil
}

// ValidateHistory validates every item, reporting the first failure with its index.
func ValidateHistory(history []AnsweredItem) error {
	for i, item := range history {
		if err := item.Validate(); err != nil {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				return err
			}
			return &ValidationError{Field: "history[" + strconv.Itoa(i) + "]." + ve.Field, Reason: ve.Reason}
		}
	}
	return nil
}

// DomainScores maps every domain to its mean answer score.
type DomainScores map[Domain]float64

// RiskLabel is a classifier risk tier.
type RiskLabel string

const (
	RiskLow    RiskLabel = "low"
	RiskMedium RiskLabel = "medium"
	RiskHigh   RiskLabel = "high"
)

// RiskLabels lists the tiers in classifier output order.
func RiskLabels() []RiskLabel {
	return []RiskLabel{RiskLow, RiskMedium, RiskHigh}
}

// Prediction is the classifier output for one transcript.
type Prediction struct {
	Label         RiskLabel             `json:"label"`
	Probabilities map[RiskLabel]float64 `json:"probabilities"`
	Confidence    float64               `json:"confidence"`
}

// MaxProbability returns the largest per-label probability.
func (p Prediction) MaxProbability() float64 {
	max := 0.0
	for _, v := range p.Probabilities {
		if v > max {
			max = v
		}
	}
	return max
}

// ScreeningSession is a finished assessment as persisted. The *Enc fields hold
// ciphertext when at-rest encryption is configured and plaintext otherwise.
type ScreeningSession struct {
	ID              string
	UserID          string
	CreatedAt       time.Time
	TranscriptEnc   string
	DomainScoresEnc string
	RiskScore       float64
	RiskLabel       RiskLabel
	ExplanationEnc  string
}

// Role is an account role.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FullName     string    `json:"fullName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Appointment is a booked patient/doctor slot.
type Appointment struct {
	ID        string
	PatientID string
	DoctorID  string
	SlotISO   string
	NotesEnc  string
	CreatedAt time.Time
}

// ScreeningNotice announces a completed assessment to live doctor dashboards.
type ScreeningNotice struct {
	SessionID    string       `json:"sessionId"`
	PatientID    string       `json:"patientId"`
	RiskLabel    RiskLabel    `json:"riskLabel"`
	RiskScore    float64      `json:"riskScore"`
	DomainScores DomainScores `json:"domainScores"`
	CompletedAt  time.Time    `json:"completedAt"`
}
