package app

import (
	"context"
	"fmt"

	"github.com/Conversly/storefront/internal/cart"
	"github.com/Conversly/storefront/internal/catalog"
	"github.com/Conversly/storefront/internal/category"
	"github.com/Conversly/storefront/internal/checkout"
	"github.com/Conversly/storefront/internal/config"
	"github.com/Conversly/storefront/internal/loaders"
	"github.com/Conversly/storefront/internal/notify"
	"github.com/Conversly/storefront/internal/remote"
	"github.com/Conversly/storefront/internal/session"
	"github.com/Conversly/storefront/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App is the storefront state, built once at start-up and handed to
// whatever serves the shopper.
type App struct {
	Config     *config.Config
	Store      loaders.Store
	Client     *remote.Client
	Notices    *notify.Feed
	Catalog    *catalog.Catalog
	Categories *category.Directory
	Editor     *category.Editor
	Cart       *cart.Store
	Syncer     *cart.Syncer
	Session    *session.Session
	Checkout   *checkout.Service
}

// New opens the configured state store and wires every component.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	kv, err := loaders.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	a, err := NewWithStore(cfg, kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStore wires the components on top of an already opened store.
func NewWithStore(cfg *config.Config, kv loaders.Store) (*App, error) {
	taxRate := checkout.DefaultTaxRate
	if cfg.TaxRate != "" {
		rate, err := decimal.NewFromString(cfg.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("invalid TAX_RATE %q: %w", cfg.TaxRate, err)
		}
		taxRate = rate
	}

	client := remote.New(cfg.BackendURL, cfg.RequestTimeout)
	feed := notify.NewFeed(0)
	products := catalog.New(client, feed)
	store := cart.NewStore(kv, products, feed)
	syncer := cart.NewSyncer(client, feed, cfg.CartSyncDebounce, cfg.CartSyncRetries)
	store.OnChange(syncer.Observe)
	sess := session.New(client, kv, store, syncer, feed)
	svc := checkout.NewService(client, store, products, sess, feed, taxRate, cfg.Currency)
	store.OnChange(svc.Observe)

	dir := category.NewDirectory(client)

	return &App{
		Config:     cfg,
		Store:      kv,
		Client:     client,
		Notices:    feed,
		Catalog:    products,
		Categories: dir,
		Editor:     category.NewEditor(dir, client, feed),
		Cart:       store,
		Syncer:     syncer,
		Session:    sess,
		Checkout:   svc,
	}, nil
}

// Start loads persisted state and then runs the start-up round trips
// concurrently: who-am-I (when a token survived), the seller check, the
// product list and the category list. None of them is fatal.
func (a *App) Start(ctx context.Context) error {
	a.Cart.Load(ctx)
	hasToken := a.Session.Restore(ctx)
	a.Syncer.Start()

	g, gctx := errgroup.WithContext(ctx)
	if hasToken {
		g.Go(func() error {
			if err := a.Session.FetchUser(gctx); err != nil {
				utils.Zlog.Info("Restored token was not accepted", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		a.Session.FetchSeller(gctx)
		return nil
	})
	g.Go(func() error {
		err := a.Catalog.Fetch(gctx, a.Config.ProductFetchRetries, a.Config.ProductFetchBackoff)
		if err != nil {
			utils.Zlog.Warn("Product catalog unavailable", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if err := a.Categories.Refresh(gctx); err != nil {
			utils.Zlog.Warn("Category list unavailable", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	utils.Zlog.Info("Storefront state ready",
		zap.Bool("authenticated", a.Session.IsAuthenticated()),
		zap.Bool("seller", a.Session.IsSeller()),
		zap.Int("products", len(a.Catalog.Products())),
		zap.Int("cartItems", a.Cart.Count()))
	return ctx.Err()
}

// Close flushes pending cart changes and releases the state store.
func (a *App) Close(ctx context.Context) error {
	a.Syncer.Stop(ctx)
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("failed to close state store: %w", err)
	}
	return nil
}
