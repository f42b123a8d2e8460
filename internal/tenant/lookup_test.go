package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/storegate/internal/cache"
	"github.com/dropDatabas3/storegate/internal/store/core"
)

// countingRepo cuenta lecturas al datastore.
type countingRepo struct {
	mu      sync.Mutex
	hits    int
	tenants map[string]*core.Tenant
}

func (r *countingRepo) GetBySlug(_ context.Context, slug string) (*core.Tenant, error) {
	r.mu.Lock()
	r.hits++
	t, ok := r.tenants[slug]
	r.mu.Unlock()
	if !ok {
		return nil, core.ErrNotFound
	}
	return t, nil
}

func (r *countingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits
}

func newCountingRepo() *countingRepo {
	return &countingRepo{tenants: map[string]*core.Tenant{
		"acme": {ID: "t-1", Slug: "acme", BusinessName: "Acme Imports", IsActive: true},
		"off":  {ID: "t-2", Slug: "off", IsActive: false},
	}}
}

func TestLookup_CachesHits(t *testing.T) {
	repo := newCountingRepo()
	c := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	l := NewLookup(repo, c, time.Minute)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		got, err := l.GetBySlug(ctx, "acme")
		if err != nil {
			t.Fatalf("GetBySlug: %v", err)
		}
		if got.ID != "t-1" {
			t.Fatalf("got tenant %q", got.ID)
		}
	}
	if hits := repo.count(); hits != 1 {
		t.Fatalf("datastore hits = %d, want 1", hits)
	}
}

func TestLookup_CachesMisses(t *testing.T) {
	repo := newCountingRepo()
	c := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	l := NewLookup(repo, c, time.Minute)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := l.GetBySlug(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	}
	if hits := repo.count(); hits != 1 {
		t.Fatalf("datastore hits = %d, want 1 (misses cached)", hits)
	}
}

func TestLookup_InactiveTenantIsNotFound(t *testing.T) {
	l := NewLookup(newCountingRepo(), nil, time.Minute)

	if _, err := l.GetBySlug(context.Background(), "off"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound for inactive tenant, got %v", err)
	}
}

func TestLookup_InvalidSlugShortCircuits(t *testing.T) {
	repo := newCountingRepo()
	l := NewLookup(repo, nil, time.Minute)

	if _, err := l.GetBySlug(context.Background(), "NOT VALID"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if repo.count() != 0 {
		t.Fatalf("invalid slug must not reach the datastore")
	}
}

func TestLookup_WorksWithoutCache(t *testing.T) {
	repo := newCountingRepo()
	l := NewLookup(repo, nil, time.Minute)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := l.GetBySlug(ctx, "acme"); err != nil {
			t.Fatalf("GetBySlug: %v", err)
		}
	}
	if hits := repo.count(); hits != 3 {
		t.Fatalf("datastore hits = %d, want 3 without cache", hits)
	}
}

func TestLookup_Invalidate(t *testing.T) {
	repo := newCountingRepo()
	c := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	l := NewLookup(repo, c, time.Minute)

	ctx := context.Background()
	if _, err := l.GetBySlug(ctx, "acme"); err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	l.Invalidate(ctx, "acme")
	if _, err := l.GetBySlug(ctx, "acme"); err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if hits := repo.count(); hits != 2 {
		t.Fatalf("datastore hits = %d, want 2 after invalidation", hits)
	}
}
