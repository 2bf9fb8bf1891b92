package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Conversly/storefront/internal/notify"
	"github.com/Conversly/storefront/internal/remote"
	"github.com/Conversly/storefront/internal/types"
	"github.com/shopspring/decimal"
)

type listerFunc func(ctx context.Context) ([]types.Product, error)

func (f listerFunc) ListProducts(ctx context.Context) ([]types.Product, error) {
	return f(ctx)
}

func product(id, name, cat, offer string) types.Product {
	price := decimal.RequireFromString(offer)
	return types.Product{ID: id, Name: name, Category: cat, Price: price, OfferPrice: price}
}

func transportErr() error {
	return fmt.Errorf("%w: GET /api/product/list: connection refused", remote.ErrTransport)
}

func TestFetchRetriesTransportFailures(t *testing.T) {
	calls := 0
	c := New(listerFunc(func(context.Context) ([]types.Product, error) {
		calls++
		if calls < 3 {
			return nil, transportErr()
		}
		return []types.Product{product("p1", "Frame", "Eyewear", "99")}, nil
	}), nil)

	if err := c.Fetch(context.Background(), 3, time.Millisecond); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if _, ok := c.Get("p1"); !ok {
		t.Fatal("product not cached")
	}
}

func TestFetchGivesUpAndNotifies(t *testing.T) {
	calls := 0
	feed := notify.NewFeed(0)
	c := New(listerFunc(func(context.Context) ([]types.Product, error) {
		calls++
		return nil, transportErr()
	}), feed)

	err := c.Fetch(context.Background(), 2, time.Millisecond)
	if !errors.Is(err, remote.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 1 attempt + 2 retries", calls)
	}
	notices := feed.Drain()
	if len(notices) != 1 || notices[0].Message != "Failed to fetch products" {
		t.Fatalf("unexpected notices %+v", notices)
	}
}

func TestFetchBackoffDoubles(t *testing.T) {
	var stamps []time.Time
	c := New(listerFunc(func(context.Context) ([]types.Product, error) {
		stamps = append(stamps, time.Now())
		return nil, transportErr()
	}), nil)

	_ = c.Fetch(context.Background(), 2, 20*time.Millisecond)
	if len(stamps) != 3 {
		t.Fatalf("got %d attempts", len(stamps))
	}
	if gap := stamps[1].Sub(stamps[0]); gap < 20*time.Millisecond {
		t.Fatalf("first wait %s shorter than backoff", gap)
	}
	if gap := stamps[2].Sub(stamps[1]); gap < 40*time.Millisecond {
		t.Fatalf("second wait %s should have doubled", gap)
	}
}

func TestFetchBackendRejectionIsNotRetried(t *testing.T) {
	calls := 0
	feed := notify.NewFeed(0)
	c := New(listerFunc(func(context.Context) ([]types.Product, error) {
		calls++
		return nil, &remote.APIError{Status: 200, Message: "Catalog offline"}
	}), feed)

	if err := c.Fetch(context.Background(), 3, time.Millisecond); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if n := feed.Drain(); len(n) != 1 || n[0].Message != "Catalog offline" {
		t.Fatalf("unexpected notices %+v", n)
	}
}

func TestFetchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(listerFunc(func(context.Context) ([]types.Product, error) {
		cancel()
		return nil, transportErr()
	}), nil)

	if err := c.Fetch(ctx, 5, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	first := true
	var mu sync.Mutex

	c := New(listerFunc(func(context.Context) ([]types.Product, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			once.Do(func() { close(entered) })
			<-release
			return []types.Product{product("old", "Old", "X", "1")}, nil
		}
		return []types.Product{product("new", "New", "X", "1")}, nil
	}), nil)

	errc := make(chan error, 1)
	go func() { errc <- c.Fetch(context.Background(), 0, time.Millisecond) }()
	<-entered

	if err := c.Fetch(context.Background(), 0, time.Millisecond); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if _, ok := c.Get("old"); ok {
		t.Fatal("stale result overwrote the cache")
	}
	if _, ok := c.Get("new"); !ok {
		t.Fatal("fresh result missing")
	}
}

func ids(products []types.Product) []string {
	out := []string{}
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestQueries(t *testing.T) {
	c := New(nil, nil)
	c.Replace([]types.Product{
		product("1", "Round Frame", "Eye Wear", "100"),
		product("2", "Square Frame", "Eye Wear", "80"),
		product("3", "Hard Case", "Accessories", "40"),
		product("4", "Aviator frame", "Eye Wear", "120"),
	})

	if got := ids(c.ByCategory("eye-wear")); !reflect.DeepEqual(got, []string{"1", "2", "4"}) {
		t.Fatalf("ByCategory = %v", got)
	}
	if got := ids(c.ByCategory("")); len(got) != 4 {
		t.Fatalf("empty slug should list all, got %v", got)
	}
	if got := ids(c.Search("FRAME")); !reflect.DeepEqual(got, []string{"1", "2", "4"}) {
		t.Fatalf("Search = %v", got)
	}
	if got := ids(c.Query("eye-wear", "square")); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("Query = %v", got)
	}
	if got := ids(c.Query("accessories", "frame")); len(got) != 0 {
		t.Fatalf("Query across categories = %v", got)
	}
	if got := ids(c.Related("1", 0)); !reflect.DeepEqual(got, []string{"2", "4"}) {
		t.Fatalf("Related = %v", got)
	}
	if got := ids(c.Related("1", 1)); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("Related limit = %v", got)
	}
	if got := c.Related("missing", 0); len(got) != 0 {
		t.Fatalf("Related of unknown = %v", got)
	}
	if got := ids(c.BestSellers(2)); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("BestSellers = %v", got)
	}

	links := c.CategoryLinks()
	want := []CategoryLink{{Text: "Eye Wear", Path: "eye-wear"}, {Text: "Accessories", Path: "accessories"}}
	if !reflect.DeepEqual(links, want) {
		t.Fatalf("CategoryLinks = %+v", links)
	}

	price, ok := c.OfferPrice("3")
	if !ok || !price.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("OfferPrice = %s, %v", price, ok)
	}
	if _, ok := c.OfferPrice("nope"); ok {
		t.Fatal("unknown product should have no price")
	}
}

func TestRelatedDefaultLimit(t *testing.T) {
	var products []types.Product
	for i := 0; i < 30; i++ {
		products = append(products, product(fmt.Sprintf("p%d", i), "Item", "Bulk", "1"))
	}
	c := New(nil, nil)
	c.Replace(products)

	if got := len(c.Related("p0", 0)); got != DefaultRelatedLimit {
		t.Fatalf("Related = %d items, want %d", got, DefaultRelatedLimit)
	}
	if got := len(c.BestSellers(0)); got != DefaultBestSellerLimit {
		t.Fatalf("BestSellers = %d items, want %d", got, DefaultBestSellerLimit)
	}
}
