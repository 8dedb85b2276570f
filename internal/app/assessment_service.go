package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"cogscreen-service/internal/adaptive"
	"cogscreen-service/internal/domain"
	"cogscreen-service/internal/observability"
)

const (
	previewLimit       = 32_000
	previewTruncated   = "...(truncated)"
	explainUnavailable = "LIME unavailable: "
)

// AssessmentService runs the adaptive screening flow for patients.
type AssessmentService struct {
	selector     *adaptive.Selector
	classifier   Classifier
	explainer    Explainer
	sessions     ScreeningRepository
	progress     ProgressRepository
	sealer       Sealer
	feed         *Feed
	metrics      *observability.Metrics
	maxPerDomain int
	now          func() time.Time
}

// AssessmentOption customizes an AssessmentService.
type AssessmentOption func(*AssessmentService)

// WithSealer encrypts stored transcripts, scores and explanations.
func WithSealer(s Sealer) AssessmentOption {
	return func(a *AssessmentService) { a.sealer = s }
}

// WithMaxPerDomain overrides the per-domain question cap.
func WithMaxPerDomain(n int) AssessmentOption {
	return func(a *AssessmentService) {
		if n > 0 {
			a.maxPerDomain = n
		}
	}
}

// WithFeed publishes completed screenings.
func WithFeed(f *Feed) AssessmentOption {
	return func(a *AssessmentService) { a.feed = f }
}

func WithMetrics(m *observability.Metrics) AssessmentOption {
	return func(a *AssessmentService) { a.metrics = m }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) AssessmentOption {
	return func(a *AssessmentService) { a.now = now }
}

func NewAssessmentService(selector *adaptive.Selector, classifier Classifier, explainer Explainer, sessions ScreeningRepository, progress ProgressRepository, opts ...AssessmentOption) *AssessmentService {
	a := &AssessmentService{
		selector:     selector,
		classifier:   classifier,
		explainer:    explainer,
		sessions:     sessions,
		progress:     progress,
		maxPerDomain: adaptive.DefaultMaxPerDomain,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MaxPerDomain reports the configured cap.
func (a *AssessmentService) MaxPerDomain() int {
	return a.maxPerDomain
}

// Next picks the next question for history. done is true once the assessment
// is complete. The history is kept as resumable progress.
func (a *AssessmentService) Next(ctx context.Context, userID string, history []domain.AnsweredItem) (q domain.Question, done bool, err error) {
	if err := domain.ValidateHistory(history); err != nil {
		return domain.Question{}, false, err
	}
	a.saveProgress(ctx, userID, history)

	q, ok := a.selector.Next(history, a.maxPerDomain)
	if !ok {
		return domain.Question{}, true, nil
	}
	a.metrics.QuestionServed(q.Domain)
	return q, false, nil
}

// Answer scores a response to a catalog question and records it in progress.
func (a *AssessmentService) Answer(ctx context.Context, userID string, questionID int, answer string) (domain.AnsweredItem, error) {
	q, ok := a.selector.Catalog().Lookup(questionID)
	if !ok {
		return domain.AnsweredItem{}, domain.ErrQuestionNotFound
	}
	item, err := domain.NewAnsweredItem(q, answer, adaptive.Score(q.Domain, answer))
	if err != nil {
		return domain.AnsweredItem{}, err
	}
	a.metrics.AnswerScored(q.Domain)

	if a.progress != nil {
		history, err := a.progress.Load(ctx, userID)
		if err != nil {
			a.metrics.CollaboratorFailed("progress")
			log.Printf("load progress for %s: %v", userID, err)
			return item, nil
		}
		for _, h := range history {
			if h.QuestionID == item.QuestionID {
				return item, nil
			}
		}
		a.saveProgress(ctx, userID, append(history, item))
	}
	return item, nil
}

// Progress returns the stored in-flight history, empty when none.
func (a *AssessmentService) Progress(ctx context.Context, userID string) ([]domain.AnsweredItem, error) {
	if a.progress == nil {
		return []domain.AnsweredItem{}, nil
	}
	history, err := a.progress.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.AnsweredItem{}
	}
	return history, nil
}

func (a *AssessmentService) saveProgress(ctx context.Context, userID string, history []domain.AnsweredItem) {
	if a.progress == nil {
		return
	}
	if err := a.progress.Save(ctx, userID, history); err != nil {
		a.metrics.CollaboratorFailed("progress")
		log.Printf("save progress for %s: %v", userID, err)
	}
}

// FinishResult is handed back when an assessment is finalized.
type FinishResult struct {
	SessionID      string                       `json:"sessionId"`
	RiskLabel      domain.RiskLabel             `json:"riskLabel"`
	RiskScore      float64                      `json:"riskScore"`
	Probabilities  map[domain.RiskLabel]float64 `json:"probabilities"`
	Confidence     float64                      `json:"confidence"`
	DomainScores   domain.DomainScores          `json:"domainScores"`
	History        []domain.AnsweredItem        `json:"history"`
	XAIPreviewHTML string                       `json:"xaiPreviewHtml"`
}

// Finish classifies the full transcript, stores the screening and returns the
// completion payload. Explanation failures never fail the call.
func (a *AssessmentService) Finish(ctx context.Context, userID string, history []domain.AnsweredItem) (FinishResult, error) {
	if len(history) == 0 {
		return FinishResult{}, domain.ErrEmptyHistory
	}
	if err := domain.ValidateHistory(history); err != nil {
		return FinishResult{}, err
	}
	transcript := Transcript(history)

	pred, err := a.classifier.Classify(ctx, transcript)
	if err != nil {
		a.metrics.CollaboratorFailed("classifier")
		return FinishResult{}, fmt.Errorf("%w: %w", domain.ErrPredictionFailed, err)
	}
	scores := adaptive.Aggregate(history)

	explanation, err := a.explainer.Explain(ctx, transcript)
	if err != nil {
		a.metrics.CollaboratorFailed("explainer")
		log.Printf("explain transcript for %s: %v", userID, err)
		explanation = explainUnavailable + err.Error()
	}

	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return FinishResult{}, fmt.Errorf("encode domain scores: %w", err)
	}
	sess := domain.ScreeningSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: a.now().UTC(),
		RiskScore: pred.MaxProbability(),
		RiskLabel: pred.Label,
	}
	if err := a.sealFields(&sess, transcript, string(scoresJSON), explanation); err != nil {
		a.metrics.CollaboratorFailed("cipher")
		return FinishResult{}, fmt.Errorf("%w: %w", domain.ErrSaveFailed, err)
	}
	if err := a.sessions.Create(ctx, sess); err != nil {
		a.metrics.CollaboratorFailed("store")
		return FinishResult{}, fmt.Errorf("%w: %w", domain.ErrSaveFailed, err)
	}

	if a.progress != nil {
		if err := a.progress.Clear(ctx, userID); err != nil {
			log.Printf("clear progress for %s: %v", userID, err)
		}
	}
	a.metrics.AssessmentCompleted(pred.Label)
	if a.feed != nil {
		a.feed.Publish(domain.ScreeningNotice{
			SessionID:    sess.ID,
			PatientID:    userID,
			RiskLabel:    sess.RiskLabel,
			RiskScore:    sess.RiskScore,
			DomainScores: scores,
			CompletedAt:  sess.CreatedAt,
		})
	}

	return FinishResult{
		SessionID:      sess.ID,
		RiskLabel:      pred.Label,
		RiskScore:      sess.RiskScore,
		Probabilities:  pred.Probabilities,
		Confidence:     pred.Confidence,
		DomainScores:   scores,
		History:        history,
		XAIPreviewHTML: preview(explanation),
	}, nil
}

func (a *AssessmentService) sealFields(sess *domain.ScreeningSession, transcript, scores, explanation string) error {
	var err error
	if sess.TranscriptEnc, err = seal(a.sealer, transcript); err != nil {
		return err
	}
	if sess.DomainScoresEnc, err = seal(a.sealer, scores); err != nil {
		return err
	}
	if sess.ExplanationEnc, err = seal(a.sealer, explanation); err != nil {
		return err
	}
	return nil
}

// Explanation returns the stored explanation markup for one of the user's sessions.
func (a *AssessmentService) Explanation(ctx context.Context, userID, sessionID string) (string, error) {
	sess, err := a.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	return renderExplanation(a.sealer, sess.ExplanationEnc), nil
}

// RiskPoint is one entry of a patient's risk trend.
type RiskPoint struct {
	T     time.Time        `json:"t"`
	Score float64          `json:"score"`
	Label domain.RiskLabel `json:"label"`
}

// RiskHistory returns the user's risk scores oldest first.
func (a *AssessmentService) RiskHistory(ctx context.Context, userID string) ([]RiskPoint, error) {
	sessions, err := a.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	series := make([]RiskPoint, 0, len(sessions))
	for _, s := range sessions {
		series = append(series, RiskPoint{T: s.CreatedAt, Score: s.RiskScore, Label: s.RiskLabel})
	}
	return series, nil
}

// Transcript renders history as alternating question and answer lines.
func Transcript(history []domain.AnsweredItem) string {
	lines := make([]string, 0, len(history))
	for _, h := range history {
		lines = append(lines, "Q: "+h.Question+"\nA: "+h.Answer)
	}
	return strings.Join(lines, "\n")
}

// preview keeps markup under previewLimit characters whole and otherwise
// cuts it at that many characters.
func preview(html string) string {
	if utf8.RuneCountInString(html) < previewLimit {
		return html
	}
	n := 0
	for i := range html {
		if n == previewLimit {
			return html[:i] + previewTruncated
		}
		n++
	}
	return html + previewTruncated
}

func renderExplanation(s Sealer, stored string) string {
	html, err := unseal(s, stored)
	if err != nil {
		return "<p><em>Explanation unavailable: " + err.Error() + "</em></p>"
	}
	if html == "" {
		return "<p><em>No explanation available for this session.</em></p>"
	}
	return html
}

func decodeScores(s Sealer, stored string) (domain.DomainScores, error) {
	raw, err := unseal(s, stored)
	if err != nil {
		return nil, err
	}
	var scores domain.DomainScores
	if err := json.Unmarshal([]byte(raw), &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// IsNotFound reports whether err means a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrSessionNotFound) ||
		errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrQuestionNotFound)
}
