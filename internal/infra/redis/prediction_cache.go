package redis

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"cogscreen-service/internal/domain"
	"cogscreen-service/internal/classifier"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const probPrefix = "p:"

// Classifier produces a risk prediction for a transcript.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (domain.Prediction, error)
}

// PredictionCache caches classifier output in Redis (hash per transcript) and
// falls back to the wrapped classifier on a miss.
// Layout: HSET prediction:{sha256} label {label} confidence {c} p:{label} {prob}...
type PredictionCache struct {
	client *redis.Client
	inner  Classifier
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewPredictionCache(client *redis.Client, inner Classifier, ttl time.Duration) *PredictionCache {
	return &PredictionCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PredictionCache) Classify(ctx context.Context, transcript string) (domain.Prediction, error) {
	key := c.key(classifier.TranscriptKey(transcript))

	if pred, ok := c.cached(ctx, key); ok {
		return pred, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pred, ok := c.cached(ctx, key); ok {
			return pred, nil
		}

		pred, err := c.inner.Classify(ctx, transcript)
		if err != nil {
			return domain.Prediction{}, err
		}

		fields := map[string]interface{}{
			"label":      string(pred.Label),
			"confidence": pred.Confidence,
		}
		for label, p := range pred.Probabilities {
			fields[probPrefix+string(label)] = p
		}
		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key, fields)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		// best-effort: a failed write only costs a future recompute
		_, _ = pipe.Exec(ctx)

		return pred, nil
	})
	if err != nil {
		return domain.Prediction{}, err
	}
	return result.(domain.Prediction), nil
}

func (c *PredictionCache) cached(ctx context.Context, key string) (domain.Prediction, bool) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return domain.Prediction{}, false
	}
	return predictionFromHash(fields)
}

func predictionFromHash(fields map[string]string) (domain.Prediction, bool) {
	label := fields["label"]
	if label == "" {
		return domain.Prediction{}, false
	}
	pred := domain.Prediction{
		Label:         domain.RiskLabel(label),
		Probabilities: make(map[domain.RiskLabel]float64),
	}
	if c, err := strconv.ParseFloat(fields["confidence"], 64); err == nil {
		pred.Confidence = c
	}
	for k, v := range fields {
		if !strings.HasPrefix(k, probPrefix) {
			continue
		}
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.Prediction{}, false
		}
		pred.Probabilities[domain.RiskLabel(strings.TrimPrefix(k, probPrefix))] = p
	}
	if len(pred.Probabilities) == 0 {
		return domain.Prediction{}, false
	}
	return pred, true
}

func (c *PredictionCache) key(hash string) string {
	return "prediction:" + hash
}

func (c *PredictionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
