package classifier

import (
	"context"

	"cogscreen-service/internal/domain"
)

// Unconfigured stands in when no inference service URL is set. It never
// invents a prediction: every call fails with ErrUnavailable, so finishing an
// assessment reports a prediction failure instead of storing a risk tier.
type Unconfigured struct{}

func (Unconfigured) Classify(_ context.Context, _ string) (domain.Prediction, error) {
	return domain.Prediction{}, ErrUnavailable
}

func (Unconfigured) Explain(_ context.Context, _ string) (string, error) {
	return "", ErrUnavailable
}
