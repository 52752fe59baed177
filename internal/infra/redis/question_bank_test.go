package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/infra/memory"
)

func TestQuestionBankCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(sampleQuestions())}
	bank := NewQuestionBank(client, loader, time.Minute)

	catalog, err := bank.Catalog(context.Background())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(catalog) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(catalog))
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("questions:catalog") {
		t.Fatalf("expected catalog hash in redis")
	}

	// Second call should hit cache, loader not incremented.
	q, err := bank.Question(context.Background(), "q3")
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q.Title != "Green" || q.Artist != "Forest" {
		t.Fatalf("unexpected question %+v", q)
	}
	titles, err := bank.SampleTitles(context.Background(), "Green", 3)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(titles) != 3 {
		t.Fatalf("expected 3 titles, got %v", titles)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
}

func TestQuestionBankReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(sampleQuestions())}
	bank := NewQuestionBank(newClient(mr), loader, time.Minute)

	if _, err := bank.RandomQuestion(context.Background(), ""); err != nil {
		t.Fatalf("random: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := bank.RandomQuestion(context.Background(), ""); err != nil {
		t.Fatalf("random: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.count())
	}
}

func TestQuestionBankUnknownQuestion(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	bank := NewQuestionBank(newClient(mr), memory.NewStaticCatalogLoader(sampleQuestions()), time.Minute)
	if _, err := bank.Question(context.Background(), "nope"); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	memory.CatalogLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.CatalogLoader.LoadCatalog(ctx)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Title: "Blue", Artist: "Ocean", Media: "blue.mp3"},
		{ID: "q2", Title: "Red", Artist: "Fire", Media: "red.mp3"},
		{ID: "q3", Title: "Green", Artist: "Forest", Media: "green.mp3"},
		{ID: "q4", Title: "Gold", Artist: "Sun", Media: "gold.mp3"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

type blockingLoader struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *blockingLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	l.once.Do(func() { close(l.entered) })
	select {
	case <-l.release:
		return domain.Catalog(sampleQuestions()), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestQuestionBankSharedLoadSurvivesCallerCancel(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &blockingLoader{entered: make(chan struct{}), release: make(chan struct{})}
	bank := NewQuestionBank(newClient(mr), loader, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := bank.Catalog(ctx)
		first <- err
	}()
	<-loader.entered

	second := make(chan error, 1)
	go func() {
		_, err := bank.RandomQuestion(context.Background(), "")
		second <- err
	}()

	cancel()
	if err := <-first; err != context.Canceled {
		t.Fatalf("expected cancelled caller to see context.Canceled, got %v", err)
	}
	close(loader.release)
	if err := <-second; err != nil {
		t.Fatalf("second caller must not inherit the first caller's cancellation: %v", err)
	}
	if !mr.Exists("questions:catalog") {
		t.Fatalf("expected the shared load to fill the cache")
	}
}
