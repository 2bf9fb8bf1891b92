package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/Conversly/storefront/internal/loaders"
	"github.com/Conversly/storefront/internal/notify"
	"github.com/Conversly/storefront/internal/types"
	"github.com/shopspring/decimal"
)

type priceMap map[string]string

func (p priceMap) OfferPrice(id string) (decimal.Decimal, bool) {
	v, ok := p[id]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.RequireFromString(v), true
}

func newTestStore(t *testing.T, prices priceMap) (*Store, loaders.Store, *notify.Feed) {
	t.Helper()
	kv := loaders.NewMemoryStore()
	feed := notify.NewFeed(0)
	return NewStore(kv, prices, feed), kv, feed
}

func TestAmountAndCount(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, priceMap{"A": "100", "B": "50"})

	_ = s.Add(ctx, "A")
	_ = s.Add(ctx, "A")
	_ = s.Add(ctx, "B")

	if got := s.Amount(); !got.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("Amount = %s, want 250", got)
	}
	if got := s.Count(); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
}

func TestAddAddRemove(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, nil)

	_ = s.Add(ctx, "X")
	_ = s.Add(ctx, "X")
	_ = s.Remove(ctx, "X")

	if got := s.Quantity("X"); got != 1 {
		t.Fatalf("Quantity(X) = %d, want 1", got)
	}
	_ = s.Remove(ctx, "X")
	if _, ok := s.Items()["X"]; ok {
		t.Fatal("X should be removed at zero")
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s, _, feed := newTestStore(t, nil)

	if err := s.Remove(context.Background(), "Y"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(s.Items()) != 0 || s.Version() != 0 {
		t.Fatalf("cart changed: %v version %d", s.Items(), s.Version())
	}
	if feed.Pending() != 0 {
		t.Fatal("no-op remove should not notify")
	}
}

func TestConcurrentRemovesOfLastUnit(t *testing.T) {
	ctx := context.Background()
	s, _, feed := newTestStore(t, nil)
	_ = s.Add(ctx, "X")
	feed.Drain()
	changes := 0
	s.OnChange(func(Change) { changes++ })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Remove(ctx, "X")
		}()
	}
	wg.Wait()

	if s.Quantity("X") != 0 {
		t.Fatalf("quantity = %d", s.Quantity("X"))
	}
	if s.Version() != 2 {
		t.Fatalf("Version = %d, want 2", s.Version())
	}
	if changes != 1 {
		t.Fatalf("listeners ran %d times, want 1", changes)
	}
	if n := feed.Drain(); len(n) != 1 || n[0].Message != "Removed from cart" {
		t.Fatalf("notices = %+v", n)
	}
}

func TestUpdateNonPositiveDeletes(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, nil)

	_ = s.Update(ctx, "A", 4)
	if s.Quantity("A") != 4 {
		t.Fatalf("Quantity = %d", s.Quantity("A"))
	}
	for _, qty := range []int{0, -3} {
		_ = s.Update(ctx, "A", 4)
		_ = s.Update(ctx, "A", qty)
		if _, ok := s.Items()["A"]; ok {
			t.Fatalf("Update(A, %d) left an entry", qty)
		}
	}
}

func TestAmountTruncatesAndSkipsUnknown(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, priceMap{"A": "0.335", "B": "33.339"})

	if !s.Amount().IsZero() {
		t.Fatal("empty cart should total zero")
	}

	_ = s.Update(ctx, "A", 3)
	_ = s.Add(ctx, "ghost")
	if got := s.Amount(); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("Amount = %s, want 1 (1.005 truncated)", got)
	}

	_ = s.Update(ctx, "A", 0)
	_ = s.Add(ctx, "B")
	if got := s.Amount(); !got.Equal(decimal.RequireFromString("33.33")) {
		t.Fatalf("Amount = %s, want 33.33", got)
	}

	_ = s.Update(ctx, "B", 0)
	if !s.Amount().IsZero() {
		t.Fatal("a cart of unknown products should total zero")
	}
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t, nil)
	_ = s.Update(ctx, "A", 2)
	_ = s.Add(ctx, "B")

	reloaded := NewStore(kv, nil, nil)
	reloaded.Load(ctx)
	items := reloaded.Items()
	if items["A"] != 2 || items["B"] != 1 || len(items) != 2 {
		t.Fatalf("reloaded cart = %v", items)
	}
}

func TestLoadCorruptOrInvalid(t *testing.T) {
	ctx := context.Background()
	tests := map[string]string{
		"not json":       `{"A":`,
		"wrong shape":    `["A","B"]`,
		"bad quantities": `{"A":0,"B":-2}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			kv := loaders.NewMemoryStore()
			_ = kv.Set(ctx, loaders.KeyCartItems, []byte(raw))
			s := NewStore(kv, nil, nil)
			s.Load(ctx)
			if len(s.Items()) != 0 {
				t.Fatalf("expected empty cart, got %v", s.Items())
			}
		})
	}
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	s, _, feed := newTestStore(t, nil)

	_ = s.Add(ctx, "A")
	_ = s.Update(ctx, "A", 3)
	_ = s.Remove(ctx, "A")

	got := feed.Drain()
	want := []string{"Added to cart", "Cart updated", "Removed from cart"}
	if len(got) != len(want) {
		t.Fatalf("got %d notices", len(got))
	}
	for i, n := range got {
		if n.Message != want[i] || n.Level != types.NoticeSuccess {
			t.Fatalf("notice %d = %+v", i, n)
		}
	}
}

type failingStore struct {
	loaders.Store
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestPersistFailureKeepsLocalChange(t *testing.T) {
	s := NewStore(failingStore{loaders.NewMemoryStore()}, nil, nil)

	err := s.Add(context.Background(), "A")
	if err == nil {
		t.Fatal("expected persist error")
	}
	if s.Quantity("A") != 1 {
		t.Fatal("local mutation should stand when persisting fails")
	}
}

func TestSeedAndClear(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, nil)
	var origins []Origin
	s.OnChange(func(c Change) { origins = append(origins, c.Origin) })

	_ = s.Add(ctx, "local")
	_ = s.Seed(ctx, types.CartItems{"A": 2, "B": 0})
	items := s.Items()
	if len(items) != 1 || items["A"] != 2 {
		t.Fatalf("seeded cart = %v", items)
	}
	_ = s.Clear(ctx)
	if len(s.Items()) != 0 {
		t.Fatal("Clear left entries")
	}
	_ = s.Reset(ctx)

	want := []Origin{OriginLocal, OriginServer, OriginLocal, OriginServer}
	if len(origins) != len(want) {
		t.Fatalf("origins = %v", origins)
	}
	for i := range want {
		if origins[i] != want[i] {
			t.Fatalf("origins = %v, want %v", origins, want)
		}
	}
	if s.Version() != 4 {
		t.Fatalf("Version = %d, want 4", s.Version())
	}
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	s, _, _ := newTestStore(t, nil)
	ids := []string{"A", "B", "C"}

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		if rng.Intn(2) == 0 {
			_ = s.Add(ctx, id)
		} else {
			_ = s.Remove(ctx, id)
		}

		sum := 0
		for pid, qty := range s.Items() {
			if qty <= 0 {
				t.Fatalf("step %d: %s has quantity %d", i, pid, qty)
			}
			sum += qty
		}
		if s.Count() != sum {
			t.Fatalf("step %d: Count %d != sum %d", i, s.Count(), sum)
		}
	}
}
