package adaptive

import (
	"sort"

	"cogscreen-service/internal/domain"
)

// DefaultMaxPerDomain is the per-assessment answer cap for each domain.
const DefaultMaxPerDomain = 2

// Selector picks the next unasked question, favouring the weakest domain.
type Selector struct {
	catalog *Catalog
	rnd     RandomSource
}

// NewSelector builds a selector over catalog. A nil rnd uses DefaultSource.
func NewSelector(catalog *Catalog, rnd RandomSource) *Selector {
	if rnd == nil {
		rnd = DefaultSource()
	}
	return &Selector{catalog: catalog, rnd: rnd}
}

// Catalog returns the catalog the selector draws from.
func (s *Selector) Catalog() *Catalog {
	return s.catalog
}

// Next returns the next question to ask. ok is false when the assessment is
// complete: every domain is at maxPerDomain or has no unasked question left.
func (s *Selector) Next(history []domain.AnsweredItem, maxPerDomain int) (q domain.Question, ok bool) {
	asked := make(map[int]struct{}, len(history))
	for _, item := range history {
		asked[item.QuestionID] = struct{}{}
	}
	scores := Aggregate(history)
	counts := domainCounts(history)

	order := domain.Domains()
	// Lowest score first; fewer answers breaks ties so an under-tested domain
	// is not starved. Stable, so remaining ties keep canonical order.
	sort.SliceStable(order, func(i, j int) bool {
		si, sj := scores[order[i]], scores[order[j]]
		if si != sj {
			return si < sj
		}
		return counts[order[i]] < counts[order[j]]
	})

	for _, d := range order {
		if counts[d] >= maxPerDomain {
			continue
		}
		var candidates []domain.Question
		for _, c := range s.catalog.ByDomain(d) {
			if _, seen := asked[c.ID]; !seen {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		return candidates[s.rnd.Intn(len(candidates))], true
	}
	return domain.Question{}, false
}
