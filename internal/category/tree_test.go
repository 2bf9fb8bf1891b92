package category

import (
	"reflect"
	"testing"

	"github.com/Conversly/storefront/internal/types"
)

func cat(id, parent string) types.Category {
	c := types.Category{ID: id, Text: "Category " + id, Path: "c-" + id}
	if parent != "" {
		c.Parent = &parent
	}
	return c
}

func ids(nodes []*Node) []string {
	out := []string{}
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuildPromotesOrphans(t *testing.T) {
	forest := Build([]types.Category{cat("1", ""), cat("2", "1"), cat("3", "99")})

	if got := ids(forest); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Fatalf("roots = %v, want [1 3]", got)
	}
	if got := ids(forest[0].Children); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("children of 1 = %v, want [2]", got)
	}
	if len(forest[1].Children) != 0 {
		t.Fatalf("orphan should have no children, got %v", ids(forest[1].Children))
	}
}

func TestBuildKeepsEveryRecordAndFirstSeenOrder(t *testing.T) {
	records := []types.Category{
		cat("c", "a"),
		cat("a", ""),
		cat("d", "b"),
		cat("b", ""),
		cat("e", "a"),
		cat("f", "c"),
	}
	forest := Build(records)

	if Count(forest) != len(records) {
		t.Fatalf("forest has %d nodes, want %d", Count(forest), len(records))
	}
	if got := ids(forest); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("roots = %v", got)
	}
	// children of every node are exactly the records naming it as parent
	for _, rec := range records {
		n := Find(forest, rec.ID)
		if n == nil {
			t.Fatalf("record %s missing from forest", rec.ID)
		}
		want := []string{}
		for _, other := range records {
			if other.ParentID() == rec.ID {
				want = append(want, other.ID)
			}
		}
		if got := ids(n.Children); !reflect.DeepEqual(got, want) {
			t.Fatalf("children of %s = %v, want %v", rec.ID, got, want)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	forest := Build(nil)
	if forest == nil || len(forest) != 0 {
		t.Fatalf("expected empty non-nil forest, got %#v", forest)
	}
}

func TestBuildBreaksCycles(t *testing.T) {
	tests := []struct {
		name      string
		records   []types.Category
		roots     []string
		children  map[string][]string
		cycles    [][]string
		nodeCount int
	}{
		{
			name:      "self parent",
			records:   []types.Category{cat("x", "x")},
			roots:     []string{"x"},
			children:  map[string][]string{"x": {}},
			cycles:    [][]string{{"x"}},
			nodeCount: 1,
		},
		{
			name:      "three node loop",
			records:   []types.Category{cat("a", "c"), cat("b", "a"), cat("c", "b")},
			roots:     []string{"a"},
			children:  map[string][]string{"a": {"b"}, "b": {"c"}, "c": {}},
			cycles:    [][]string{{"a", "c", "b"}},
			nodeCount: 3,
		},
		{
			name:      "tail hanging off a loop",
			records:   []types.Category{cat("t", "a"), cat("a", "b"), cat("b", "a"), cat("r", "")},
			roots:     []string{"a", "r"},
			children:  map[string][]string{"a": {"t", "b"}, "b": {}},
			cycles:    [][]string{{"a", "b"}},
			nodeCount: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forest := Build(tt.records)
			if got := ids(forest); !reflect.DeepEqual(got, tt.roots) {
				t.Fatalf("roots = %v, want %v", got, tt.roots)
			}
			for id, want := range tt.children {
				if got := ids(Find(forest, id).Children); !reflect.DeepEqual(got, want) {
					t.Fatalf("children of %s = %v, want %v", id, got, want)
				}
			}
			if Count(forest) != tt.nodeCount {
				t.Fatalf("node count = %d, want %d", Count(forest), tt.nodeCount)
			}
			if got := Inspect(tt.records).Cycles; !reflect.DeepEqual(got, tt.cycles) {
				t.Fatalf("cycles = %v, want %v", got, tt.cycles)
			}
		})
	}
}

func TestBuildRootsCarryNoParent(t *testing.T) {
	forest := Build([]types.Category{cat("A", "B"), cat("B", "A"), cat("C", "gone")})

	if got := ids(forest); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("roots = %v", got)
	}
	for _, root := range forest {
		if root.Parent != nil {
			t.Fatalf("root %s still claims parent %s", root.ID, *root.Parent)
		}
	}
	if b := forest[0].Children; len(b) != 1 || b[0].Parent == nil || *b[0].Parent != "A" {
		t.Fatalf("child of A should keep its parent, got %+v", b)
	}
}

func TestInspect(t *testing.T) {
	r := Inspect([]types.Category{cat("1", ""), cat("2", "gone"), cat("1", ""), cat("3", "1")})
	if !reflect.DeepEqual(r.Orphans, []string{"2"}) {
		t.Fatalf("orphans = %v", r.Orphans)
	}
	if !reflect.DeepEqual(r.Duplicates, []string{"1"}) {
		t.Fatalf("duplicates = %v", r.Duplicates)
	}
	if len(r.Cycles) != 0 || r.Clean() {
		t.Fatalf("unexpected report %+v", r)
	}
	if !Inspect([]types.Category{cat("1", "")}).Clean() {
		t.Fatal("single root should be clean")
	}
}

func namedCat(id, text, path, parent string) types.Category {
	c := cat(id, parent)
	c.Text = text
	c.Path = path
	return c
}

func TestFilter(t *testing.T) {
	forest := Build([]types.Category{
		namedCat("1", "Men", "men", ""),
		namedCat("2", "Shirts", "shirts", "1"),
		namedCat("3", "Women", "women", ""),
		namedCat("4", "Kurtis", "kurtis", "3"),
		namedCat("5", "Formal", "formal-shirts", "2"),
	})

	got := Filter(forest, "FORMAL")
	if !reflect.DeepEqual(ids(got), []string{"1"}) {
		t.Fatalf("roots = %v", ids(got))
	}
	if ids(got[0].Children)[0] != "2" || ids(got[0].Children[0].Children)[0] != "5" {
		t.Fatal("ancestors of a match should be kept")
	}

	// "men" is a substring of "women"; a matching node keeps only matching descendants
	got = Filter(forest, "men")
	if !reflect.DeepEqual(ids(got), []string{"1", "3"}) {
		t.Fatalf("roots = %v", ids(got))
	}
	if len(got[1].Children) != 0 {
		t.Fatalf("Kurtis should be pruned, got %v", ids(got[1].Children))
	}

	// path is matched as well as text
	if got = Filter(forest, "formal-sh"); len(got) != 1 {
		t.Fatalf("path match failed: %v", ids(got))
	}

	if got = Filter(forest, "nothing"); len(got) != 0 {
		t.Fatalf("expected empty forest, got %v", ids(got))
	}

	if Count(Filter(forest, "")) != 5 {
		t.Fatal("empty term should keep everything")
	}
	if len(forest[1].Children) != 1 {
		t.Fatal("Filter modified its input")
	}
}

func TestFlattenLevels(t *testing.T) {
	forest := Build([]types.Category{cat("1", ""), cat("2", "1"), cat("3", "2"), cat("4", "3")})
	entries := Flatten(forest)

	want := []string{LevelMain, LevelSub, LevelChild, LevelChild}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries", len(entries))
	}
	for i, e := range entries {
		if e.Level != i || e.LevelName != want[i] {
			t.Fatalf("entry %d = level %d %s", i, e.Level, e.LevelName)
		}
	}
}

func TestPicker(t *testing.T) {
	p := NewPicker([]types.Category{
		namedCat("m", "Men", "men", ""),
		namedCat("s", "Shirts", "shirts", "m"),
		namedCat("s2", "Sweaters", "sweaters", "m"),
		namedCat("c", "Casual", "casual", "s"),
		namedCat("o", "Orphan", "orphan", "missing"),
	})

	if got := ids(p.Mains()); !reflect.DeepEqual(got, []string{"m", "o"}) {
		t.Fatalf("mains = %v", got)
	}
	if got := ids(p.Subs("m")); !reflect.DeepEqual(got, []string{"s", "s2"}) {
		t.Fatalf("subs = %v", got)
	}
	if got := ids(p.Children("s")); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("children = %v", got)
	}
	if len(p.Subs("s")) != 0 || len(p.Children("m")) != 0 || len(p.Subs("nope")) != 0 {
		t.Fatal("columns must only open at their own level")
	}
	if lvl, ok := p.Level("c"); !ok || lvl != 2 {
		t.Fatalf("Level(c) = %d, %v", lvl, ok)
	}

	if got := p.Parent("m", "s"); got == nil || *got != "s" {
		t.Fatalf("Parent with sub = %v", got)
	}
	if got := p.Parent("m", ""); got == nil || *got != "m" {
		t.Fatalf("Parent with main only = %v", got)
	}
	if p.Parent("", "") != nil {
		t.Fatal("no selection should mean no parent")
	}

	if got := ids(Search(p.Subs("m"), "swe")); !reflect.DeepEqual(got, []string{"s2"}) {
		t.Fatalf("search = %v", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Summer Sale 2024!":  "summer-sale-2024",
		"  Kids   Wear ":     "kids-wear",
		"Men's T-Shirts":     "mens-t-shirts",
		"Eyewear\tFrames":    "eyewear-frames",
		"":                   "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
