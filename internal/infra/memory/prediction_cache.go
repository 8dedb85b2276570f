package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"cogscreen-service/internal/classifier"
	"cogscreen-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Classifier produces a risk prediction for a transcript.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (domain.Prediction, error)
}

// PredictionCache memoizes classifier output per transcript with a TTL so a
// retried finish does not rerun inference.
type PredictionCache struct {
	inner Classifier
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPrediction
}

type cachedPrediction struct {
	pred      domain.Prediction
	expiresAt time.Time
}

func NewPredictionCache(inner Classifier, ttl time.Duration) *PredictionCache {
	return &PredictionCache{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedPrediction),
	}
}

func (c *PredictionCache) Classify(ctx context.Context, transcript string) (domain.Prediction, error) {
	key := classifier.TranscriptKey(transcript)
	if pred, ok := c.lookup(key); ok {
		return pred, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if pred, ok := c.lookup(key); ok {
			return pred, nil
		}
		pred, err := c.inner.Classify(ctx, transcript)
		if err != nil {
			return domain.Prediction{}, err
		}
		c.mu.Lock()
		c.cache[key] = cachedPrediction{pred: pred, expiresAt: c.clock().Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return pred, nil
	})
	if err != nil {
		return domain.Prediction{}, err
	}
	return result.(domain.Prediction), nil
}

func (c *PredictionCache) lookup(key string) (domain.Prediction, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		return entry.pred, true
	}
	return domain.Prediction{}, false
}

func (c *PredictionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
