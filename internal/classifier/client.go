// Package classifier talks to the external risk classifier and explanation
// service. The model itself runs out of process; this package only speaks
// its JSON contract.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cogscreen-service/internal/domain"
)

// ErrUnavailable is returned when no inference service is configured.
var ErrUnavailable = errors.New("classifier unavailable")

// DefaultExplainFeatures matches the explanation depth shown to doctors.
const DefaultExplainFeatures = 12

// Client calls the inference service over HTTP.
type Client struct {
	baseURL  string
	features int
	client   *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		features: DefaultExplainFeatures,
		client:   &http.Client{Timeout: timeout},
	}
}

type textRequest struct {
	Text        string `json:"text"`
	NumFeatures int    `json:"num_features,omitempty"`
}

type classifyResponse struct {
	Label         domain.RiskLabel             `json:"label"`
	Probabilities map[domain.RiskLabel]float64 `json:"probabilities"`
	Confidence    float64                      `json:"confidence"`
}

type explainResponse struct {
	HTML string `json:"html"`
}

// Classify scores a transcript into a risk tier.
func (c *Client) Classify(ctx context.Context, transcript string) (domain.Prediction, error) {
	var out classifyResponse
	if err := c.post(ctx, "/classify", textRequest{Text: transcript}, &out); err != nil {
		return domain.Prediction{}, err
	}
	if out.Label == "" || len(out.Probabilities) == 0 {
		return domain.Prediction{}, fmt.Errorf("classifier response missing label or probabilities")
	}
	pred := domain.Prediction{
		Label:         out.Label,
		Probabilities: out.Probabilities,
		Confidence:    out.Confidence,
	}
	if pred.Confidence == 0 {
		pred.Confidence = pred.Probabilities[pred.Label]
	}
	return pred, nil
}

// Explain returns renderable markup highlighting the transcript features
// behind the prediction.
func (c *Client) Explain(ctx context.Context, transcript string) (string, error) {
	var out explainResponse
	if err := c.post(ctx, "/explain", textRequest{Text: transcript, NumFeatures: c.features}, &out); err != nil {
		return "", err
	}
	return out.HTML, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("inference %s status %d: %s", path, res.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
