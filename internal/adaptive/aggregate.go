package adaptive

import "cogscreen-service/internal/domain"

// Aggregate averages history scores per domain. The result always holds every
// domain; domains without answers score 0. Items with an unrecognized domain
// are ignored.
func Aggregate(history []domain.AnsweredItem) domain.DomainScores {
	sums := make(map[domain.Domain]float64, 4)
	counts := domainCounts(history)
	for _, item := range history {
		if item.Domain.Valid() {
			sums[item.Domain] += item.Score
		}
	}

	scores := make(domain.DomainScores, 4)
	for _, d := range domain.Domains() {
		if n := counts[d]; n > 0 {
			scores[d] = sums[d] / float64(n)
		} else {
			scores[d] = 0
		}
	}
	return scores
}

func domainCounts(history []domain.AnsweredItem) map[domain.Domain]int {
	counts := make(map[domain.Domain]int, 4)
	for _, d := range domain.Domains() {
		counts[d] = 0
	}
	for _, item := range history {
		if item.Domain.Valid() {
			counts[item.Domain]++
		}
	}
	return counts
}
