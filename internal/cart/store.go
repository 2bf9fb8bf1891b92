package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Conversly/storefront/internal/loaders"
	"github.com/Conversly/storefront/internal/notify"
	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceLookup resolves the offer price of a cached product.
type PriceLookup interface {
	OfferPrice(productID string) (decimal.Decimal, bool)
}

// Origin tells listeners who produced a cart change.
type Origin int

const (
	// OriginLocal is a shopper mutation; it must reach the backend.
	OriginLocal Origin = iota
	// OriginServer is the cart handed over by the backend at login.
	OriginServer
)

// Change is published after every persisted mutation.
type Change struct {
	Items   types.CartItems
	Version uint64
	Origin  Origin
}

// Store is the shopper's cart: product id to quantity, persisted to the
// local state store after every mutation. Quantities are always positive;
// a mutation that would leave zero or less removes the entry.
type Store struct {
	kv       loaders.Store
	prices   PriceLookup
	notifier notify.Notifier

	mu        sync.Mutex
	items     types.CartItems
	version   uint64
	listeners []func(Change)
}

func NewStore(kv loaders.Store, prices PriceLookup, notifier notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Store{
		kv:       kv,
		prices:   prices,
		notifier: notifier,
		items:    types.CartItems{},
	}
}

// OnChange registers fn to be called after each mutation, outside the lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Load replaces the in-memory cart with the persisted one. A missing or
// unreadable record leaves the cart empty.
func (s *Store) Load(ctx context.Context) {
	items := types.CartItems{}

	raw, err := s.kv.Get(ctx, loaders.KeyCartItems)
	switch {
	case errors.Is(err, loaders.ErrNotFound):
	case err != nil:
		utils.Zlog.Warn("Failed to read persisted cart, starting empty", zap.Error(err))
	default:
		if err := json.Unmarshal(raw, &items); err != nil {
			utils.Zlog.Warn("Persisted cart is corrupt, starting empty", zap.Error(err))
			items = types.CartItems{}
		}
	}

	s.mu.Lock()
	s.items = sanitize(items)
	s.mu.Unlock()

	utils.Zlog.Info("Cart loaded", zap.Int("entries", len(items)))
}

// Add increments productID by one, creating it at one.
func (s *Store) Add(ctx context.Context, productID string) error {
	_, err := s.mutate(ctx, OriginLocal, func(items types.CartItems) bool {
		items[productID]++
		return true
	})
	if err == nil {
		s.notifier.Success("Added to cart")
	}
	return err
}

// Update sets productID to exactly quantity. Zero or less removes it.
func (s *Store) Update(ctx context.Context, productID string, quantity int) error {
	_, err := s.mutate(ctx, OriginLocal, func(items types.CartItems) bool {
		if quantity <= 0 {
			delete(items, productID)
			return true
		}
		items[productID] = quantity
		return true
	})
	if err == nil {
		s.notifier.Success("Cart updated")
	}
	return err
}

// Remove decrements productID by one and drops it at zero. Removing a
// product that is not in the cart changes nothing: no version, no notice.
func (s *Store) Remove(ctx context.Context, productID string) error {
	changed, err := s.mutate(ctx, OriginLocal, func(items types.CartItems) bool {
		qty, ok := items[productID]
		if !ok {
			return false
		}
		if qty <= 1 {
			delete(items, productID)
		} else {
			items[productID]--
		}
		return true
	})
	if changed && err == nil {
		s.notifier.Success("Removed from cart")
	}
	return err
}

// Seed replaces the cart with the one the backend returned at login. The
// backend already holds it, so listeners see OriginServer.
func (s *Store) Seed(ctx context.Context, items types.CartItems) error {
	clean := sanitize(items.Clone())
	_, err := s.mutate(ctx, OriginServer, func(cur types.CartItems) bool {
		for id := range cur {
			delete(cur, id)
		}
		for id, qty := range clean {
			cur[id] = qty
		}
		return true
	})
	return err
}

// Clear empties the cart, e.g. after an order is placed.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.mutate(ctx, OriginLocal, emptyAll)
	return err
}

// Reset empties the cart without telling the backend. Used when the
// session ends.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.mutate(ctx, OriginServer, emptyAll)
	return err
}

func emptyAll(items types.CartItems) bool {
	for id := range items {
		delete(items, id)
	}
	return true
}

// mutate applies fn and persists the result under one lock, so readers
// never observe a state that was not written. When fn reports no change
// nothing is bumped, persisted or announced. The in-memory change stands
// even when persisting fails.
func (s *Store) mutate(ctx context.Context, origin Origin, fn func(types.CartItems) bool) (bool, error) {
	s.mu.Lock()
	if !fn(s.items) {
		s.mu.Unlock()
		return false, nil
	}
	s.items = sanitize(s.items)
	s.version++
	change := Change{Items: s.items.Clone(), Version: s.version, Origin: origin}
	err := s.persistLocked(ctx)
	listeners := append(([]func(Change))(nil), s.listeners...)
	s.mu.Unlock()

	if err != nil {
		utils.Zlog.Error("Failed to persist cart",
			zap.Uint64("version", change.Version),
			zap.Error(err))
		err = fmt.Errorf("failed to persist cart: %w", err)
	}

	for _, fn := range listeners {
		fn(change)
	}
	return true, err
}

func (s *Store) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(s.items)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, loaders.KeyCartItems, raw)
}

// Items returns a copy of the cart.
func (s *Store) Items() types.CartItems {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

func (s *Store) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[productID]
}

func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Count returns the total number of units in the cart.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, qty := range s.items {
		total += qty
	}
	return total
}

// Amount returns the sum of quantity times offer price, truncated to two
// decimal places. Products missing from the catalog contribute nothing.
func (s *Store) Amount() decimal.Decimal {
	items := s.Items()
	total := decimal.Zero
	if s.prices == nil {
		return total
	}
	for id, qty := range items {
		price, ok := s.prices.OfferPrice(id)
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return total.Truncate(2)
}

func sanitize(items types.CartItems) types.CartItems {
	if items == nil {
		return types.CartItems{}
	}
	for id, qty := range items {
		if qty <= 0 || id == "" {
			delete(items, id)
		}
	}
	return items
}
