package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNewAnsweredItemRejectsMalformed(t *testing.T) {
	cases := []struct {
		name  string
		q     Question
		score float64
		field string
	}{
		{"missing domain", Question{ID: 1, Text: "x"}, 0.5, "domain"},
		{"unknown domain", Question{ID: 1, Text: "x", Domain: "mood"}, 0.5, "domain"},
		{"zero id", Question{ID: 0, Text: "x", Domain: Memory}, 0.5, "qid"},
		{"score above one", Question{ID: 1, Text: "x", Domain: Memory}, 1.2, "score"},
		{"negative score", Question{ID: 1, Text: "x", Domain: Memory}, -0.1, "score"},
		{"nan score", Question{ID: 1, Text: "x", Domain: Memory}, math.NaN(), "score"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAnsweredItem(tc.q, "answer", tc.score)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, ve.Field)
			}
		})
	}
}

func TestNewAnsweredItemCopiesQuestion(t *testing.T) {
	q := Question{ID: 3, Text: "Count backwards from 20 to 1.", Domain: Attention}
	item, err := NewAnsweredItem(q, "20 19 18", 0.8)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	if item.QuestionID != 3 || item.Question != q.Text || item.Domain != Attention || item.Score != 0.8 {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestValidateHistoryReportsIndex(t *testing.T) {
	history := []AnsweredItem{
		{QuestionID: 1, Domain: Memory, Score: 0.7},
		{QuestionID: 2, Domain: Language, Score: 3},
	}
	err := ValidateHistory(history)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Field != "history[1].score" {
		t.Fatalf("unexpected field %q", ve.Field)
	}
	if !IsValidation(err) {
		t.Fatalf("IsValidation should match")
	}
}

func TestPredictionMaxProbability(t *testing.T) {
	p := Prediction{Probabilities: map[RiskLabel]float64{RiskLow: 0.2, RiskMedium: 0.5, RiskHigh: 0.3}}
	if got := p.MaxProbability(); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}
