package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"quiz-session-engine/internal/domain"
)

// LoadTimeout bounds a shared catalog load.
const LoadTimeout = 30 * time.Second

// CatalogLoader fetches the full question catalog from a backing store.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (domain.Catalog, error)
}

// QuestionBank caches the catalog with a TTL to avoid repeated DB hits.
type QuestionBank struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu        sync.RWMutex
	catalog   domain.Catalog
	expiresAt time.Time
	loaded    bool
}

func NewQuestionBank(loader CatalogLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
	}
}

func (b *QuestionBank) Question(ctx context.Context, id string) (domain.Question, error) {
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

// Catalog returns the cached catalog, loading it once per TTL. The load is
// shared by every concurrent caller, so it runs detached from any single
// caller's cancellation and is bounded by LoadTimeout instead.
func (b *QuestionBank) Catalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := b.cached(); ok {
		return catalog, nil
	}

	ch := b.sf.DoChan("catalog", func() (interface{}, error) {
		if catalog, ok := b.cached(); ok {
			return catalog, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()
		now := b.clock()
		catalog, err := b.loader.LoadCatalog(loadCtx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.catalog = catalog
		b.expiresAt = now.Add(ttlWithJitter(b.ttl))
		b.loaded = true
		b.mu.Unlock()
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

func (b *QuestionBank) cached() (domain.Catalog, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.loaded {
		return nil, false
	}
	// A non-positive TTL caches forever.
	if b.ttl > 0 && !b.expiresAt.After(b.clock()) {
		return nil, false
	}
	return b.catalog, true
}

// StaticCatalogLoader is a simple loader backed by an in-memory slice (useful for tests/demos).
type StaticCatalogLoader struct {
	catalog domain.Catalog
}

func NewStaticCatalogLoader(questions []domain.Question) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalog: domain.Catalog(questions)}
}

func (l *StaticCatalogLoader) LoadCatalog(context.Context) (domain.Catalog, error) {
	return l.catalog, nil
}

// FileCatalogLoader reads a YAML file with a top-level "questions" list on every load.
type FileCatalogLoader struct {
	path string
}

func NewFileCatalogLoader(path string) *FileCatalogLoader {
	return &FileCatalogLoader{path: path}
}

func (l *FileCatalogLoader) LoadCatalog(context.Context) (domain.Catalog, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	var doc struct {
		Questions []domain.Question `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse question file: %w", err)
	}
	return domain.Catalog(doc.Questions), nil
}

// add up to 10% jitter to spread expirations
func ttlWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(rand.Int63n(jitterMax+1))
}
