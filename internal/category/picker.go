package category

import (
	"strings"

	"github.com/Conversly/storefront/internal/types"
)

// Picker backs the three-step main/sub/child category selector used when
// creating categories and products. It works on the built forest, so an
// orphan shows up as a main category just as it does in navigation.
type Picker struct {
	forest []*Node
	byID   map[string]*Node
	level  map[string]int
}

func NewPicker(records []types.Category) *Picker {
	return NewPickerFromForest(Build(records))
}

func NewPickerFromForest(forest []*Node) *Picker {
	p := &Picker{
		forest: forest,
		byID:   make(map[string]*Node),
		level:  make(map[string]int),
	}
	Walk(forest, func(n *Node, level int) bool {
		p.byID[n.ID] = n
		p.level[n.ID] = level
		return true
	})
	return p
}

func (p *Picker) Forest() []*Node {
	return p.forest
}

// Mains returns the root categories.
func (p *Picker) Mains() []*Node {
	return p.forest
}

// Subs returns the children of a main category. An unknown id or an id
// that is not a main category yields an empty list.
func (p *Picker) Subs(mainID string) []*Node {
	return p.childrenAt(mainID, 0)
}

// Children returns the children of a sub category.
func (p *Picker) Children(subID string) []*Node {
	return p.childrenAt(subID, 1)
}

func (p *Picker) childrenAt(id string, level int) []*Node {
	n, ok := p.byID[id]
	if !ok || p.level[id] != level {
		return []*Node{}
	}
	return n.Children
}

// Level reports the depth of id in the forest.
func (p *Picker) Level(id string) (int, bool) {
	l, ok := p.level[id]
	return l, ok
}

// Parent resolves the parent a new category gets from the picker state:
// the sub category when one is chosen, else the main category, else none.
func (p *Picker) Parent(mainID, subID string) *string {
	switch {
	case subID != "":
		return &subID
	case mainID != "":
		return &mainID
	default:
		return nil
	}
}

// Search narrows one picker column by a case-insensitive name match.
func Search(nodes []*Node, term string) []*Node {
	term = strings.ToLower(strings.TrimSpace(term))
	out := []*Node{}
	for _, n := range nodes {
		if term == "" || strings.Contains(strings.ToLower(n.Text), term) {
			out = append(out, n)
		}
	}
	return out
}
