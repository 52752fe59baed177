package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/infra/memory"
)

// QuestionBank caches the question catalog in Redis and falls back to a
// loader on cache miss, so several engine instances share one warm copy.
// Questions are stored as: HSET {prefix}:catalog {questionID} {json}
type QuestionBank struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	prefix string
	sf     singleflight.Group
}

func NewQuestionBank(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		prefix: "questions",
	}
}

func (b *QuestionBank) Question(ctx context.Context, id string) (domain.Question, error) {
	raw, err := b.client.HGet(ctx, b.catalogKey(), id).Result()
	if err == nil {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return domain.Question{}, fmt.Errorf("decode question %s: %w", id, err)
		}
		return q, nil
	}
	catalog, err := b.Catalog(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	return catalog.Find(id)
}

func (b *QuestionBank) RandomQuestion(ctx context.Context, exclude string) (domain.Question, error) {
	catalog, err := b.Catalog(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	return catalog.Random(exclude)
}

func (b *QuestionBank) SampleTitles(ctx context.Context, exclude string, n int) ([]string, error) {
	catalog, err := b.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.SampleTitles(exclude, n), nil
}

// Catalog returns the cached catalog, filling Redis from the loader on a miss.
func (b *QuestionBank) Catalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := b.fromCache(ctx); ok {
		return catalog, nil
	}

	ch := b.sf.DoChan(b.catalogKey(), func() (interface{}, error) {
		// Joined callers share this load, so one caller's cancellation must not fail the rest.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), memory.LoadTimeout)
		defer cancel()

		// Re-check cache in case another goroutine filled it.
		if catalog, ok := b.fromCache(ctx); ok {
			return catalog, nil
		}

		catalog, err := b.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}
		if len(catalog) == 0 {
			return catalog, nil
		}

		fields := make(map[string]interface{}, len(catalog))
		for _, q := range catalog {
			data, err := json.Marshal(q)
			if err != nil {
				return nil, fmt.Errorf("encode question %s: %w", q.ID, err)
			}
			fields[q.ID] = data
		}
		pipe := b.client.TxPipeline()
		pipe.Del(ctx, b.catalogKey())
		pipe.HSet(ctx, b.catalogKey(), fields)
		if ttl := b.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, b.catalogKey(), ttl)
		}
		// best-effort: a failed fill just means the next call loads again
		_, _ = pipe.Exec(ctx)

		return catalog, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(domain.Catalog), nil
	}
}

func (b *QuestionBank) fromCache(ctx context.Context) (domain.Catalog, bool) {
	raw, err := b.client.HGetAll(ctx, b.catalogKey()).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	catalog := make(domain.Catalog, 0, len(raw))
	for _, v := range raw {
		var q domain.Question
		if err := json.Unmarshal([]byte(v), &q); err != nil {
			return nil, false
		}
		catalog = append(catalog, q)
	}
	return catalog, true
}

func (b *QuestionBank) catalogKey() string {
	return b.prefix + ":catalog"
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
