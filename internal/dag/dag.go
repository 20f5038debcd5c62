// Package dag provides a parent-pointer graph for language classification
// trees. It supports cycle detection and ancestor/descendant walks.
package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned by walks that revisit a node.
var ErrCycle = errors.New("cycle detected")

// Node is one languoid in the graph.
type Node struct {
	// ID is the classification code.
	ID string
	// Data holds the caller's record for the node.
	Data any
}

// Graph is a directed graph whose edges point from parent to child.
type Graph struct {
	nodes    map[string]*Node
	children map[string][]string
	parents  map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddNode adds a node, or replaces the data of an existing one.
func (g *Graph) AddNode(id string, data any) {
	if n, exists := g.nodes[id]; exists {
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.children[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge links childID under parentID. Both nodes must exist.
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	if !contains(g.children[parentID], childID) {
		g.children[parentID] = append(g.children[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// GetChildren returns the children of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.children[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, c := range g.children {
		count += len(c)
	}
	return count
}

// HasCycle reports whether the graph contains a cycle, with the cycle path
// (first node repeated at the end). Nodes are visited in sorted order so the
// reported path is deterministic.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	from := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, childID := range g.children[id] {
			if !visited[childID] {
				from[childID] = id
				if dfs(childID) {
					return true
				}
			} else if onStack[childID] {
				cyclePath = []string{id}
				for curr := id; curr != childID; {
					curr = from[curr]
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append(cyclePath, childID)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// AncestorChain walks first parents from id and returns the ancestor IDs,
// nearest first. It returns ErrCycle if the walk revisits a node.
func (g *Graph) AncestorChain(id string) ([]string, error) {
	var chain []string
	visited := map[string]bool{id: true}

	for curr := id; ; {
		parents := g.parents[curr]
		if len(parents) == 0 {
			return chain, nil
		}
		next := parents[0]
		if visited[next] {
			return nil, fmt.Errorf("%w: %s revisited from %s", ErrCycle, next, id)
		}
		visited[next] = true
		chain = append(chain, next)
		curr = next
	}
}

// GetDescendants returns every node below id, sorted.
func (g *Graph) GetDescendants(id string) []string {
	return collect(id, g.children)
}

// GetRoots returns nodes with no parents.
func (g *Graph) GetRoots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func collect(id string, next map[string][]string) []string {
	seen := make(map[string]bool)

	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, n := range next[nodeID] {
			if !seen[n] {
				seen[n] = true
				mark(n)
			}
		}
	}
	mark(id)

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
