package app

import (
	"sync"

	"cogscreen-service/internal/domain"
)

// Feed fans completed screenings out to live doctor dashboards.
type Feed struct {
	mu          sync.Mutex
	subscribers map[chan domain.ScreeningNotice]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[chan domain.ScreeningNotice]struct{})}
}

// Subscribe returns a channel of notices. The caller must invoke cancel to avoid leaks.
func (f *Feed) Subscribe() (<-chan domain.ScreeningNotice, func()) {
	ch := make(chan domain.ScreeningNotice, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers n to every subscriber without blocking. A full subscriber
// loses its oldest pending notice.
func (f *Feed) Publish(n domain.ScreeningNotice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- n:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- n
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
