package category

import (
	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"go.uber.org/zap"
)

// Node is a category record plus its children, as rendered by navigation
// and the admin tree. Roots never carry a parent, including orphans and
// records promoted to break a loop.
type Node struct {
	ID       string  `json:"_id"`
	Text     string  `json:"text"`
	Path     string  `json:"path"`
	BgColor  string  `json:"bgColor,omitempty"`
	Image    string  `json:"image,omitempty"`
	Parent   *string `json:"parent,omitempty"`
	Children []*Node `json:"children"`
}

func newNode(c types.Category) *Node {
	return &Node{
		ID:       c.ID,
		Text:     c.Text,
		Path:     c.Path,
		BgColor:  c.BgColor,
		Image:    c.Image,
		Parent:   c.Parent,
		Children: []*Node{},
	}
}

// Report describes the irregularities Build tolerated.
type Report struct {
	// Orphans are records whose parent id matched no record.
	Orphans []string `json:"orphans"`
	// Cycles lists each ancestry loop in first-seen order; the first id of
	// each loop was promoted to a root.
	Cycles [][]string `json:"cycles"`
	// Duplicates are ids seen more than once; only the first record is kept.
	Duplicates []string `json:"duplicates"`
}

func (r Report) Clean() bool {
	return len(r.Orphans) == 0 && len(r.Cycles) == 0 && len(r.Duplicates) == 0
}

type analysis struct {
	order    []string
	records  map[string]types.Category
	parentOf map[string]string
	promoted map[string]bool
	report   Report
}

func analyze(records []types.Category) *analysis {
	a := &analysis{
		records:  make(map[string]types.Category, len(records)),
		parentOf: make(map[string]string, len(records)),
		promoted: make(map[string]bool),
		report:   Report{Orphans: []string{}, Cycles: [][]string{}, Duplicates: []string{}},
	}
	index := make(map[string]int, len(records))

	for _, rec := range records {
		if _, seen := a.records[rec.ID]; seen {
			a.report.Duplicates = append(a.report.Duplicates, rec.ID)
			continue
		}
		index[rec.ID] = len(a.order)
		a.order = append(a.order, rec.ID)
		a.records[rec.ID] = rec
	}

	for _, id := range a.order {
		parent := a.records[id].ParentID()
		if parent == "" {
			continue
		}
		if _, ok := a.records[parent]; !ok {
			a.report.Orphans = append(a.report.Orphans, id)
			continue
		}
		a.parentOf[id] = parent
	}

	// Walk every ancestry chain once. A chain that comes back to a node
	// still on the current path is a loop; its earliest record is promoted.
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int, len(a.order))
	for _, start := range a.order {
		if state[start] != unvisited {
			continue
		}
		var path []string
		pos := make(map[string]int)
		cur := start
		for {
			if state[cur] == done {
				break
			}
			if state[cur] == onPath {
				loop := append([]string(nil), path[pos[cur]:]...)
				first := loop[0]
				for _, id := range loop[1:] {
					if index[id] < index[first] {
						first = id
					}
				}
				a.promoted[first] = true
				a.report.Cycles = append(a.report.Cycles, rotate(loop, first))
				break
			}
			state[cur] = onPath
			pos[cur] = len(path)
			path = append(path, cur)
			next, ok := a.parentOf[cur]
			if !ok {
				break
			}
			cur = next
		}
		for _, id := range path {
			state[id] = done
		}
	}
	return a
}

func rotate(loop []string, first string) []string {
	for i, id := range loop {
		if id == first {
			return append(append([]string(nil), loop[i:]...), loop[:i]...)
		}
	}
	return loop
}

// Build reconstructs the category forest from a flat list. Roots keep
// first-seen input order and so do siblings. A record whose parent cannot
// be found becomes a root, and a loop of records that are each other's
// ancestors is broken by promoting its earliest record. Build never fails.
func Build(records []types.Category) []*Node {
	a := analyze(records)

	if !a.report.Clean() {
		utils.Zlog.Warn("Category list has irregular records",
			zap.Int("orphans", len(a.report.Orphans)),
			zap.Int("cycles", len(a.report.Cycles)),
			zap.Int("duplicates", len(a.report.Duplicates)))
	}

	nodes := make(map[string]*Node, len(a.order))
	for _, id := range a.order {
		nodes[id] = newNode(a.records[id])
	}

	roots := []*Node{}
	for _, id := range a.order {
		parent, ok := a.parentOf[id]
		if ok && !a.promoted[id] {
			nodes[parent].Children = append(nodes[parent].Children, nodes[id])
			continue
		}
		nodes[id].Parent = nil
		roots = append(roots, nodes[id])
	}
	return roots
}

// Inspect reports orphans, ancestry loops and duplicate ids without
// building the forest.
func Inspect(records []types.Category) Report {
	return analyze(records).report
}

// Count returns the number of nodes in the forest.
func Count(forest []*Node) int {
	n := 0
	Walk(forest, func(*Node, int) bool {
		n++
		return true
	})
	return n
}

// Walk visits the forest depth-first in display order. Returning false
// from fn skips that node's children.
func Walk(forest []*Node, fn func(n *Node, level int) bool) {
	var visit func(nodes []*Node, level int)
	visit = func(nodes []*Node, level int) {
		for _, n := range nodes {
			if fn(n, level) {
				visit(n.Children, level+1)
			}
		}
	}
	visit(forest, 0)
}

// Find returns the node with id, or nil.
func Find(forest []*Node, id string) *Node {
	var found *Node
	Walk(forest, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}
