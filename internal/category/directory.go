package category

import (
	"context"
	"fmt"
	"sync"

	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"go.uber.org/zap"
)

// Lister loads the flat category list.
type Lister interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
}

// Directory keeps the most recently fetched category list and the forest
// built from it. The forest is rebuilt on every refresh.
type Directory struct {
	client Lister

	mu      sync.RWMutex
	records []types.Category
	forest  []*Node
	report  Report
	picker  *Picker
}

func NewDirectory(client Lister) *Directory {
	d := &Directory{client: client}
	d.install(nil)
	return d
}

// Refresh fetches the category list. On failure the previous forest stays.
func (d *Directory) Refresh(ctx context.Context) error {
	records, err := d.client.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	d.install(records)
	utils.Zlog.Info("Category tree rebuilt",
		zap.Int("records", len(records)),
		zap.Int("roots", len(d.Forest())))
	return nil
}

// Load installs records without a backend round trip.
func (d *Directory) Load(records []types.Category) {
	d.install(records)
}

func (d *Directory) install(records []types.Category) {
	forest := Build(records)
	report := Inspect(records)
	picker := NewPickerFromForest(forest)

	d.mu.Lock()
	d.records = append([]types.Category(nil), records...)
	d.forest = forest
	d.report = report
	d.picker = picker
	d.mu.Unlock()
}

func (d *Directory) Records() []types.Category {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]types.Category(nil), d.records...)
}

func (d *Directory) Forest() []*Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.forest
}

func (d *Directory) Report() Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.report
}

func (d *Directory) Picker() *Picker {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.picker
}
