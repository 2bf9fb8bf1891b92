package category

import (
	"regexp"
	"strings"
)

// Level names used by the admin tree and picker.
const (
	LevelMain  = "Main"
	LevelSub   = "Sub"
	LevelChild = "Child"
)

// LevelName maps a depth to its display name. Anything deeper than a sub
// category is a child.
func LevelName(level int) string {
	switch level {
	case 0:
		return LevelMain
	case 1:
		return LevelSub
	default:
		return LevelChild
	}
}

// Entry is one row of a flattened forest.
type Entry struct {
	Node      *Node  `json:"node"`
	Level     int    `json:"level"`
	LevelName string `json:"levelName"`
}

// Flatten lists the forest in depth-first display order.
func Flatten(forest []*Node) []Entry {
	entries := []Entry{}
	Walk(forest, func(n *Node, level int) bool {
		entries = append(entries, Entry{Node: n, Level: level, LevelName: LevelName(level)})
		return true
	})
	return entries
}

// Filter returns a pruned copy of forest holding the nodes whose text or
// path contains term (case-insensitive) plus every ancestor of such a node.
// An empty term returns a full copy. The input forest is never modified.
func Filter(forest []*Node, term string) []*Node {
	term = strings.ToLower(strings.TrimSpace(term))
	out := []*Node{}
	for _, n := range forest {
		if kept := filterNode(n, term); kept != nil {
			out = append(out, kept)
		}
	}
	return out
}

func filterNode(n *Node, term string) *Node {
	children := []*Node{}
	for _, c := range n.Children {
		if kept := filterNode(c, term); kept != nil {
			children = append(children, kept)
		}
	}
	if len(children) == 0 && !matches(n, term) {
		return nil
	}
	cp := *n
	cp.Children = children
	return &cp
}

func matches(n *Node, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(n.Text), term) ||
		strings.Contains(strings.ToLower(n.Path), term)
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	slugUnsafe = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify turns a display name into a URL path segment: lowercased,
// whitespace runs collapsed to "-", everything outside [a-z0-9-] dropped.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = whitespace.ReplaceAllString(s, "-")
	return slugUnsafe.ReplaceAllString(s, "")
}
