// Package adaptive implements the adaptive screening flow: the question
// catalog, heuristic answer scoring, per-domain aggregation and the
// next-question selection policy. Every operation is a pure function of its
// inputs; callers own the assessment history.
package adaptive

import (
	"fmt"

	"cogscreen-service/internal/domain"
)

// Catalog is a read-only set of screening questions.
type Catalog struct {
	questions []domain.Question
	byID      map[int]int
}

// NewCatalog validates and indexes questions. IDs must be unique and positive.
func NewCatalog(questions []domain.Question) (*Catalog, error) {
	c := &Catalog{
		questions: make([]domain.Question, 0, len(questions)),
		byID:      make(map[int]int, len(questions)),
	}
	for _, q := range questions {
		if q.ID <= 0 {
			return nil, fmt.Errorf("question id %d must be positive", q.ID)
		}
		if !q.Domain.Valid() {
			return nil, fmt.Errorf("question %d: unknown domain %q", q.ID, q.Domain)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		c.byID[q.ID] = len(c.questions)
		c.questions = append(c.questions, q)
	}
	return c, nil
}

var defaultQuestions = []domain.Question{
	{ID: 1, Text: "What did you have for breakfast today?", Domain: domain.Memory},
	{ID: 2, Text: "Please repeat the phrase: 'Blue river mountain'.", Domain: domain.Language},
	{ID: 3, Text: "Count backwards from 20 to 1.", Domain: domain.Attention},
	{ID: 4, Text: "If you had 15 apples and gave away 7, how many remain?", Domain: domain.Executive},
	{ID: 5, Text: "What day of the week is it today?", Domain: domain.Memory},
	{ID: 6, Text: "Name as many animals as you can in 30 seconds.", Domain: domain.Language},
	{ID: 7, Text: "Subtract 7 from 100 repeatedly (say first three results).", Domain: domain.Attention},
	{ID: 8, Text: "Plan: You have a doctor visit at 3 PM and a bus at 2:40 PM. What do you do?", Domain: domain.Executive},
}

// DefaultCatalog returns the built-in screening bank, two questions per domain.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultQuestions)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns every question in catalog order.
func (c *Catalog) All() []domain.Question {
	out := make([]domain.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// ByDomain returns the questions tagged with d, in catalog order.
func (c *Catalog) ByDomain(d domain.Domain) []domain.Question {
	var out []domain.Question
	for _, q := range c.questions {
		if q.Domain == d {
			out = append(out, q)
		}
	}
	return out
}

// Contains reports whether id is in the catalog.
func (c *Catalog) Contains(id int) bool {
	_, ok := c.byID[id]
	return ok
}

// Lookup returns the question with the given id.
func (c *Catalog) Lookup(id int) (domain.Question, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.Question{}, false
	}
	return c.questions[idx], true
}

// Len reports the number of questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}
