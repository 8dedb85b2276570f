package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cogscreen-service/internal/domain"
)

func TestClientClassifyAndExplain(t *testing.T) {
	var gotFeatures int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if !strings.Contains(req.Text, "Q: ") {
			t.Errorf("unexpected text %q", req.Text)
		}
		switch r.URL.Path {
		case "/classify":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"label":         "medium",
				"probabilities": map[string]float64{"low": 0.2, "medium": 0.5, "high": 0.3},
			})
		case "/explain":
			gotFeatures = req.NumFeatures
			_ = json.NewEncoder(w).Encode(map[string]string{"html": "<div>weights</div>"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	pred, err := c.Classify(context.Background(), "Q: a\nA: b")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if pred.Label != domain.RiskMedium || pred.Confidence != 0.5 {
		t.Fatalf("unexpected prediction %+v", pred)
	}

	html, err := c.Explain(context.Background(), "Q: a\nA: b")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if html != "<div>weights</div>" || gotFeatures != DefaultExplainFeatures {
		t.Fatalf("unexpected explain result %q features=%d", html, gotFeatures)
	}
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Classify(context.Background(), "Q: a\nA: b")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestUnconfiguredNeverPredicts(t *testing.T) {
	pred, err := Unconfigured{}.Classify(context.Background(), "anything")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if pred.Label != "" || len(pred.Probabilities) != 0 {
		t.Fatalf("expected an empty prediction, got %+v", pred)
	}
	if _, err := (Unconfigured{}).Explain(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
