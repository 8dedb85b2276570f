package postgres

import (
	"context"
	"errors"
	"fmt"

	"cogscreen-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ScreeningRepository stores finished screenings in Postgres.
type ScreeningRepository struct {
	pool *pgxpool.Pool
}

func NewScreeningRepository(pool *pgxpool.Pool) *ScreeningRepository {
	return &ScreeningRepository{pool: pool}
}

const screeningColumns = `id, user_id, created_at, raw_text_enc, domain_scores_enc, risk_score, risk_label, explanation_enc`

func (r *ScreeningRepository) Create(ctx context.Context, s domain.ScreeningSession) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO screening_sessions (`+screeningColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.CreatedAt, s.TranscriptEnc, s.DomainScoresEnc, s.RiskScore, string(s.RiskLabel), s.ExplanationEnc)
	if err != nil {
		return fmt.Errorf("insert screening session: %w", err)
	}
	return nil
}

func (r *ScreeningRepository) Get(ctx context.Context, userID, sessionID string) (domain.ScreeningSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+screeningColumns+` FROM screening_sessions WHERE id=$1 AND user_id=$2`, sessionID, userID)
	return scanScreening(row)
}

func (r *ScreeningRepository) ListByUser(ctx context.Context, userID string) ([]domain.ScreeningSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+screeningColumns+` FROM screening_sessions WHERE user_id=$1 ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list screening sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ScreeningSession, 0)
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ScreeningRepository) Latest(ctx context.Context, userID string) (domain.ScreeningSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+screeningColumns+` FROM screening_sessions WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
	return scanScreening(row)
}

func scanScreening(row pgx.Row) (domain.ScreeningSession, error) {
	var (
		s     domain.ScreeningSession
		label string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.TranscriptEnc, &s.DomainScoresEnc, &s.RiskScore, &label, &s.ExplanationEnc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScreeningSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.ScreeningSession{}, fmt.Errorf("scan screening session: %w", err)
	}
	s.RiskLabel = domain.RiskLabel(label)
	return s, nil
}
