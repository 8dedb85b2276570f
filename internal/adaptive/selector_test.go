package adaptive

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogscreen-service/internal/domain"
)

// sequenceSource replays fixed draws, clamped into range.
type sequenceSource struct {
	draws []int
	calls int
}

func (s *sequenceSource) Intn(n int) int {
	v := 0
	if len(s.draws) > 0 {
		v = s.draws[s.calls%len(s.draws)]
	}
	s.calls++
	return v % n
}

func answered(q domain.Question, score float64) domain.AnsweredItem {
	return domain.AnsweredItem{QuestionID: q.ID, Question: q.Text, Domain: q.Domain, Answer: "x", Score: score}
}

func mustLookup(t *testing.T, c *Catalog, id int) domain.Question {
	t.Helper()
	q, ok := c.Lookup(id)
	require.True(t, ok, "question %d", id)
	return q
}

func TestNextEmptyHistoryPicksCatalogQuestion(t *testing.T) {
	catalog := DefaultCatalog()
	sel := NewSelector(catalog, &sequenceSource{})

	q, ok := sel.Next(nil, DefaultMaxPerDomain)
	require.True(t, ok)
	assert.True(t, catalog.Contains(q.ID))
	// all domains tie at (0, 0); stable ordering keeps memory first
	assert.Equal(t, domain.Memory, q.Domain)
}

func TestNextCompletesWhenEveryDomainCapped(t *testing.T) {
	catalog := DefaultCatalog()
	var history []domain.AnsweredItem
	for i, q := range catalog.All() {
		history = append(history, answered(q, float64(i%3)*0.3))
	}
	sel := NewSelector(catalog, rand.New(rand.NewSource(1)))

	_, ok := sel.Next(history, 2)
	assert.False(t, ok)
}

func TestNextCompletesWhenCountsMeetCapRegardlessOfIDs(t *testing.T) {
	catalog := DefaultCatalog()
	var history []domain.AnsweredItem
	id := 100
	for _, d := range domain.Domains() {
		for i := 0; i < 3; i++ {
			history = append(history, domain.AnsweredItem{QuestionID: id, Domain: d, Score: 0.2})
			id++
		}
	}
	_, ok := NewSelector(catalog, nil).Next(history, 3)
	assert.False(t, ok)
}

func TestNextPrefersWeakestDomain(t *testing.T) {
	catalog := DefaultCatalog()
	history := []domain.AnsweredItem{
		answered(mustLookup(t, catalog, 1), 0.7), // memory
		answered(mustLookup(t, catalog, 2), 0.6), // language
		answered(mustLookup(t, catalog, 3), 0.2), // attention
		answered(mustLookup(t, catalog, 4), 0.8), // executive
	}
	q, ok := NewSelector(catalog, &sequenceSource{}).Next(history, 2)
	require.True(t, ok)
	assert.Equal(t, 7, q.ID)
}

func TestNextTieBreaksByFewerAnswers(t *testing.T) {
	catalog := DefaultCatalog()
	// memory and language both average 0.6; memory has two answers at cap 3,
	// language one, so language must come first.
	history := []domain.AnsweredItem{
		answered(mustLookup(t, catalog, 1), 0.6),
		answered(mustLookup(t, catalog, 5), 0.6),
		answered(mustLookup(t, catalog, 2), 0.6),
		answered(mustLookup(t, catalog, 3), 0.8),
		answered(mustLookup(t, catalog, 4), 0.8),
	}
	q, ok := NewSelector(catalog, &sequenceSource{}).Next(history, 3)
	require.True(t, ok)
	assert.Equal(t, domain.Language, q.Domain)
	assert.Equal(t, 6, q.ID)
}

func TestNextSkipsCappedWeakestDomain(t *testing.T) {
	catalog, err := NewCatalog([]domain.Question{
		{ID: 1, Text: "m1", Domain: domain.Memory},
		{ID: 2, Text: "m2", Domain: domain.Memory},
		{ID: 3, Text: "m3", Domain: domain.Memory},
		{ID: 4, Text: "l1", Domain: domain.Language},
		{ID: 5, Text: "l2", Domain: domain.Language},
	})
	require.NoError(t, err)
	history := []domain.AnsweredItem{
		answered(mustLookup(t, catalog, 1), 0.2),
		answered(mustLookup(t, catalog, 2), 0.2),
		answered(mustLookup(t, catalog, 4), 0.8),
	}

	q, ok := NewSelector(catalog, &sequenceSource{}).Next(history, 2)
	require.True(t, ok)
	assert.Equal(t, 5, q.ID, "memory scores lower and has m3 left, but is capped")
}

func TestNextFallsThroughExhaustedDomain(t *testing.T) {
	catalog, err := NewCatalog([]domain.Question{
		{ID: 1, Text: "m1", Domain: domain.Memory},
		{ID: 2, Text: "e1", Domain: domain.Executive},
	})
	require.NoError(t, err)
	// memory sorts first and is under cap but has nothing left to ask;
	// language and attention have no questions at all.
	history := []domain.AnsweredItem{
		answered(mustLookup(t, catalog, 1), 0.2),
		{QuestionID: 50, Domain: domain.Language, Score: 0.9},
		{QuestionID: 51, Domain: domain.Attention, Score: 0.9},
		{QuestionID: 52, Domain: domain.Executive, Score: 0.9},
	}

	q, ok := NewSelector(catalog, &sequenceSource{}).Next(history, 5)
	require.True(t, ok)
	assert.Equal(t, 2, q.ID)
}

func TestNextUsesRandomSourceAmongCandidates(t *testing.T) {
	catalog := DefaultCatalog()
	q, ok := NewSelector(catalog, &sequenceSource{draws: []int{1}}).Next(nil, 2)
	require.True(t, ok)
	assert.Equal(t, 5, q.ID, "second memory question")
}

func TestNextNeverRepeatsAskedQuestion(t *testing.T) {
	catalog := DefaultCatalog()
	sel := NewSelector(catalog, rand.New(rand.NewSource(42)))

	for run := 0; run < 50; run++ {
		var history []domain.AnsweredItem
		for {
			q, ok := sel.Next(history, DefaultMaxPerDomain)
			if !ok {
				break
			}
			for _, h := range history {
				require.NotEqual(t, h.QuestionID, q.ID, "question %d repeated", q.ID)
			}
			history = append(history, answered(q, Score(q.Domain, "some answer 12 today")))
		}
		assert.Len(t, history, catalog.Len())
		counts := map[domain.Domain]int{}
		for _, h := range history {
			counts[h.Domain]++
		}
		for _, d := range domain.Domains() {
			assert.LessOrEqual(t, counts[d], DefaultMaxPerDomain)
		}
	}
}

func TestNextZeroCapCompletesImmediately(t *testing.T) {
	_, ok := NewSelector(DefaultCatalog(), nil).Next(nil, 0)
	assert.False(t, ok)
}
