package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/core"
	"backoffice/internal/ports"

	"golang.org/x/sync/singleflight"
)

// Taxonomy resolves category names, creating unknown ones on demand.
// Categories are append-only; concurrent creates of one name in this process
// share a single repository round trip, and the repository's uniqueness
// guarantee covers other processes.
type Taxonomy struct {
	repo  ports.CategoryRepository
	known *cache.LRUCache[core.Category]
	group singleflight.Group
}

const (
	knownCategoriesSize = 512
	knownCategoriesTTL  = 10 * time.Minute
)

func NewTaxonomy(repo ports.CategoryRepository) *Taxonomy {
	return &Taxonomy{
		repo:  repo,
		known: cache.NewLRUCache[core.Category](knownCategoriesSize, knownCategoriesTTL),
	}
}

// Cache exposes the known-name cache so it can be registered for cleanup.
func (t *Taxonomy) Cache() *cache.LRUCache[core.Category] { return t.known }

func (t *Taxonomy) List(ctx context.Context) ([]core.Category, error) {
	cats, err := t.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		t.known.Set(c.Name, c)
	}
	return cats, nil
}

type ensureResult struct {
	category core.Category
	created  bool
}

// Ensure returns the category named name, creating it when missing.
func (t *Taxonomy) Ensure(ctx context.Context, name string) (core.Category, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, false, core.NewValidationError("category", "name must not be empty")
	}
	if len(name) > 100 {
		return core.Category{}, false, core.NewValidationError("category", "name too long (max 100 characters)")
	}
	if c, ok := t.known.Get(name); ok {
		return c, false, nil
	}

	v, err, _ := t.group.Do(name, func() (any, error) {
		exists, err := t.repo.Exists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("check category %q: %w", name, err)
		}
		if exists {
			return ensureResult{category: core.Category{Name: name}}, nil
		}
		c, err := t.repo.Create(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("create category %q: %w", name, err)
		}
		slog.InfoContext(ctx, "Category created", "category", c.Name)
		return ensureResult{category: c, created: true}, nil
	})
	if err != nil {
		return core.Category{}, false, err
	}
	res := v.(ensureResult)
	t.known.Set(res.category.Name, res.category)
	return res.category, res.created, nil
}

// CreateCategory is idempotent: an existing name is returned unchanged.
func (t *Taxonomy) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	c, _, err := t.Ensure(ctx, name)
	return c, err
}
