package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Conversly/storefront/internal/notify"
	"github.com/Conversly/storefront/internal/remote"
	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"go.uber.org/zap"
)

var (
	ErrNameRequired  = errors.New("category name is required")
	ErrUnknownParent = errors.New("selected parent is not a valid main or sub category")
	ErrUnknownID     = errors.New("category not found")
	ErrParentLoop    = errors.New("a category cannot be placed under itself")
)

// Writer sends seller category changes to the backend.
type Writer interface {
	AddCategory(ctx context.Context, in types.CategoryInput) (*remote.CategoryResult, error)
	EditCategory(ctx context.Context, id string, in types.CategoryInput) (*remote.CategoryResult, error)
	DeleteCategory(ctx context.Context, id string) (*remote.CategoryResult, error)
}

// Draft is what the seller filled in on the category form. MainID and
// SubID are the picker selections; an empty Path is derived from Name.
type Draft struct {
	Name    string `json:"name" binding:"required"`
	Path    string `json:"path"`
	BgColor string `json:"bgColor"`
	Image   string `json:"image"`
	MainID  string `json:"mainId"`
	SubID   string `json:"subId"`
}

// Editor turns picker drafts into backend writes and rebuilds the
// directory after each accepted change.
type Editor struct {
	dir      *Directory
	client   Writer
	notifier notify.Notifier
}

func NewEditor(dir *Directory, client Writer, notifier notify.Notifier) *Editor {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Editor{dir: dir, client: client, notifier: notifier}
}

// Input validates d against the current picker and builds the record the
// backend expects.
func (e *Editor) Input(d Draft) (types.CategoryInput, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return types.CategoryInput{}, ErrNameRequired
	}
	path := Slugify(d.Path)
	if path == "" {
		path = Slugify(name)
	}

	p := e.dir.Picker()
	if d.MainID != "" {
		if level, ok := p.Level(d.MainID); !ok || level != 0 {
			return types.CategoryInput{}, fmt.Errorf("%w: %s", ErrUnknownParent, d.MainID)
		}
	}
	if d.SubID != "" {
		if d.MainID == "" || !containsID(p.Subs(d.MainID), d.SubID) {
			return types.CategoryInput{}, fmt.Errorf("%w: %s", ErrUnknownParent, d.SubID)
		}
	}

	return types.CategoryInput{
		Text:    name,
		Path:    path,
		BgColor: d.BgColor,
		Image:   d.Image,
		Parent:  p.Parent(d.MainID, d.SubID),
	}, nil
}

func (e *Editor) Add(ctx context.Context, d Draft) (*types.CategoryInput, error) {
	in, err := e.Input(d)
	if err != nil {
		e.notifier.Error(err.Error())
		return nil, err
	}
	res, err := e.client.AddCategory(ctx, in)
	if err != nil {
		e.notifier.Error(remote.Message(err, "Category add failed"))
		return nil, fmt.Errorf("failed to add category %s: %w", in.Path, err)
	}
	e.accepted(ctx, "Category added", res)
	return &in, nil
}

// Edit rewrites id. Moving a category under itself or one of its own
// descendants is refused locally.
func (e *Editor) Edit(ctx context.Context, id string, d Draft) (*types.CategoryInput, error) {
	node := Find(e.dir.Forest(), id)
	if node == nil {
		e.notifier.Error("Update failed")
		return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	in, err := e.Input(d)
	if err != nil {
		e.notifier.Error(err.Error())
		return nil, err
	}
	if in.Parent != nil && Find([]*Node{node}, *in.Parent) != nil {
		e.notifier.Error(ErrParentLoop.Error())
		return nil, ErrParentLoop
	}

	res, err := e.client.EditCategory(ctx, id, in)
	if err != nil {
		e.notifier.Error(remote.Message(err, "Update failed"))
		return nil, fmt.Errorf("failed to edit category %s: %w", id, err)
	}
	e.accepted(ctx, "Category updated successfully", res)
	return &in, nil
}

func (e *Editor) Delete(ctx context.Context, id string) error {
	if Find(e.dir.Forest(), id) == nil {
		e.notifier.Error("Delete failed")
		return fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	res, err := e.client.DeleteCategory(ctx, id)
	if err != nil {
		e.notifier.Error(remote.Message(err, "Delete failed"))
		return fmt.Errorf("failed to delete category %s: %w", id, err)
	}
	e.accepted(ctx, "Category deleted", res)
	return nil
}

// accepted notifies and refreshes. A failed refresh keeps the old forest;
// the write itself already succeeded.
func (e *Editor) accepted(ctx context.Context, fallback string, res *remote.CategoryResult) {
	msg := fallback
	if res != nil && res.Message != "" {
		msg = res.Message
	}
	e.notifier.Success(msg)
	if err := e.dir.Refresh(ctx); err != nil {
		utils.Zlog.Warn("Category list refresh after write failed", zap.Error(err))
	}
}

func containsID(nodes []*Node, id string) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
