package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Conversly/storefront/internal/category"
	"github.com/Conversly/storefront/internal/notify"
	"github.com/Conversly/storefront/internal/remote"
	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultRelatedLimit    = 14
	DefaultBestSellerLimit = 20
	defaultFetchBackoff    = time.Second
	fetchFailedMessage     = "Failed to fetch products"
)

// ErrSuperseded is returned by Fetch when a newer Fetch started before this
// one finished; its result was discarded.
var ErrSuperseded = errors.New("product fetch superseded")

// Lister loads the full product list.
type Lister interface {
	ListProducts(ctx context.Context) ([]types.Product, error)
}

// Catalog caches the product list fetched once at start-up. Every query is
// a pure filter over the cached slice.
type Catalog struct {
	client   Lister
	notifier notify.Notifier

	mu         sync.RWMutex
	products   []types.Product
	byID       map[string]int
	generation uint64
	loadedAt   time.Time
}

func New(client Lister, notifier notify.Notifier) *Catalog {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Catalog{
		client:   client,
		notifier: notifier,
		products: []types.Product{},
		byID:     map[string]int{},
	}
}

// Fetch loads the product list. Transport failures are retried up to
// retries times, the wait doubling after each attempt; a rejection from the
// backend is reported at once. A Fetch overtaken by a newer one returns
// ErrSuperseded and leaves the cache alone.
func (c *Catalog) Fetch(ctx context.Context, retries int, backoff time.Duration) error {
	if retries < 0 {
		retries = 0
	}
	if backoff <= 0 {
		backoff = defaultFetchBackoff
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	delay := backoff
	for attempt := 0; ; attempt++ {
		products, err := c.client.ListProducts(ctx)
		if err == nil {
			return c.install(gen, products)
		}

		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			c.notifier.Error(remote.Message(err, fetchFailedMessage))
			return fmt.Errorf("failed to fetch products: %w", err)
		}
		if attempt >= retries {
			utils.Zlog.Error("Giving up on product fetch",
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			c.notifier.Error(fetchFailedMessage)
			return fmt.Errorf("failed to fetch products after %d attempts: %w", attempt+1, err)
		}

		utils.Zlog.Warn("Product fetch failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if c.stale(gen) {
			return ErrSuperseded
		}
		delay *= 2
	}
}

func (c *Catalog) stale(gen uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return gen != c.generation
}

func (c *Catalog) install(gen uint64, products []types.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		utils.Zlog.Debug("Discarding stale product list", zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	c.setLocked(products)
	utils.Zlog.Info("Product catalog loaded", zap.Int("products", len(c.products)))
	return nil
}

// Replace installs products directly and invalidates any fetch in flight.
func (c *Catalog) Replace(products []types.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.setLocked(products)
}

func (c *Catalog) setLocked(products []types.Product) {
	if products == nil {
		products = []types.Product{}
	}
	c.products = products
	c.byID = make(map[string]int, len(products))
	for i, p := range products {
		if _, dup := c.byID[p.ID]; !dup {
			c.byID[p.ID] = i
		}
	}
	c.loadedAt = time.Now().UTC()
}

func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Products returns the cached list in backend order.
func (c *Catalog) Products() []types.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.Product(nil), c.products...)
}

func (c *Catalog) Get(id string) (types.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return types.Product{}, false
	}
	return c.products[i], true
}

// OfferPrice lets the cart price its entries.
func (c *Catalog) OfferPrice(id string) (decimal.Decimal, bool) {
	p, ok := c.Get(id)
	if !ok {
		return decimal.Zero, false
	}
	return p.OfferPrice, true
}

func (c *Catalog) filter(keep func(types.Product) bool, limit int) []types.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []types.Product{}
	for _, p := range c.products {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// ByCategory returns the products whose category label slugifies to slug.
// An empty slug returns everything.
func (c *Catalog) ByCategory(slug string) []types.Product {
	return c.Query(slug, "")
}

// Search matches query against product names, case-insensitively.
func (c *Catalog) Search(query string) []types.Product {
	return c.Query("", query)
}

// Query applies both narrowings at once: the category slug and the name
// text. An empty argument does not narrow.
func (c *Catalog) Query(slug, query string) []types.Product {
	slug = strings.ToLower(strings.TrimSpace(slug))
	query = strings.ToLower(strings.TrimSpace(query))
	return c.filter(func(p types.Product) bool {
		if slug != "" && category.Slugify(p.Category) != slug {
			return false
		}
		return query == "" || strings.Contains(strings.ToLower(p.Name), query)
	}, 0)
}

// Related lists other products of the same category, up to limit
// (DefaultRelatedLimit when limit <= 0). An unknown id has no relations.
func (c *Catalog) Related(id string, limit int) []types.Product {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	p, ok := c.Get(id)
	if !ok {
		return []types.Product{}
	}
	return c.filter(func(other types.Product) bool {
		return other.Category == p.Category && other.ID != p.ID
	}, limit)
}

// BestSellers returns the first limit products (DefaultBestSellerLimit when
// limit <= 0).
func (c *Catalog) BestSellers(limit int) []types.Product {
	if limit <= 0 {
		limit = DefaultBestSellerLimit
	}
	return c.filter(func(types.Product) bool { return true }, limit)
}

// CategoryLink is a storefront category derived from product labels.
type CategoryLink struct {
	Text string `json:"text"`
	Path string `json:"path"`
}

// CategoryLinks lists the distinct product categories in first-seen order,
// keyed by slug.
func (c *Catalog) CategoryLinks() []CategoryLink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	links := []CategoryLink{}
	for _, p := range c.products {
		path := category.Slugify(p.Category)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		links = append(links, CategoryLink{Text: p.Category, Path: path})
	}
	return links
}
