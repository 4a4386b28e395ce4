// Package graph builds a table dependency graph from lineage records.
// An edge runs from a table that is read to the table written from it.
// Unlike a model DAG, lineage graphs may contain cycles, e.g. a table
// rebuilt from itself through a staging copy.
package graph

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
)

// Node is a table in the graph.
type Node struct {
	// Name is the table name as written in SQL.
	Name string
	// Writes counts the records in which the table is a sink.
	Writes int
	// Reads counts the records in which the table is a source.
	Reads int
}

// Graph is a directed table graph.
type Graph struct {
	nodes    map[string]*Node
	edges    map[string][]string // source -> sinks
	parents  map[string][]string // sink -> sources
	selfRefs map[string]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		edges:    make(map[string][]string),
		parents:  make(map[string][]string),
		selfRefs: make(map[string]bool),
	}
}

// FromInfos builds a graph from lineage records.
func FromInfos(infos []lineage.Info) *Graph {
	g := New()
	for _, info := range infos {
		g.AddInfo(info)
	}
	return g
}

// AddInfo adds every sink of info with an edge from each of its sources.
// Tables that are only read become isolated nodes.
func (g *Graph) AddInfo(info lineage.Info) {
	for name := range info.Sources {
		g.AddNode(name).Reads++
	}
	for _, sink := range info.Sinks() {
		g.AddNode(sink).Writes++
		for _, src := range info.Lineage[sink].Sorted() {
			g.AddNode(src)
			g.AddEdge(src, sink)
		}
	}
}

// AddNode returns the node for name, creating it if needed.
func (g *Graph) AddNode(name string) *Node {
	if n, ok := g.nodes[name]; ok {
		return n
	}
	n := &Node{Name: name}
	g.nodes[name] = n
	g.edges[name] = []string{}
	g.parents[name] = []string{}
	return n
}

// AddEdge adds an edge from source to sink, creating missing nodes.
// A table feeding itself is recorded as a self reference, not an edge.
func (g *Graph) AddEdge(source, sink string) {
	g.AddNode(source)
	g.AddNode(sink)
	if source == sink {
		g.selfRefs[source] = true
		return
	}
	if !contains(g.edges[source], sink) {
		g.edges[source] = append(g.edges[source], sink)
	}
	if !contains(g.parents[sink], source) {
		g.parents[sink] = append(g.parents[sink], source)
	}
}

// Node returns the node for name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all nodes sorted by name.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Name < nodes[j].Name
	})
	return nodes
}

// Parents returns the tables read directly to write name.
func (g *Graph) Parents(name string) []string {
	return sorted(g.parents[name])
}

// Children returns the tables written directly from name.
func (g *Graph) Children(name string) []string {
	return sorted(g.edges[name])
}

// SelfReferences returns the tables written from themselves.
func (g *Graph) SelfReferences() []string {
	out := make([]string, 0, len(g.selfRefs))
	for n := range g.selfRefs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NodeCount returns the number of tables.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// Upstream returns every table name transitively reads from, up to depth
// hops away. A depth of zero or less means no limit.
func (g *Graph) Upstream(name string, depth int) []string {
	return g.reach(name, depth, g.parents)
}

// Downstream returns every table transitively written from name, up to
// depth hops away. A depth of zero or less means no limit.
func (g *Graph) Downstream(name string, depth int) []string {
	return g.reach(name, depth, g.edges)
}

func (g *Graph) reach(start string, depth int, next map[string][]string) []string {
	seen := map[string]bool{start: true}
	frontier := []string{start}
	var out []string
	for hop := 1; len(frontier) > 0 && (depth <= 0 || hop <= depth); hop++ {
		var upcoming []string
		for _, id := range frontier {
			for _, n := range next[id] {
				if seen[n] {
					continue
				}
				seen[n] = true
				out = append(out, n)
				upcoming = append(upcoming, n)
			}
		}
		frontier = upcoming
	}
	sort.Strings(out)
	return out
}

// HasCycle reports whether the graph has a cycle, and one cycle path
// starting and ending at the same table. Self references are not cycles.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range sorted(g.edges[id]) {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, n := range g.Nodes() {
		if !visited[n.Name] {
			if dfs(n.Name) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// TopologicalSort returns table names with every table after the tables
// it is built from. It fails on a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[string]bool)
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parentID := range sorted(g.parents[id]) {
			visit(parentID)
		}
		result = append(result, id)
	}

	for _, n := range g.Nodes() {
		visit(n.Name)
	}
	return result, nil
}

// Levels groups tables by distance from the base tables: level 0 holds
// tables built from nothing in the graph. It fails on a cycle.
func (g *Graph) Levels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	assigned := make(map[string]int)
	var level func(id string) int
	level = func(id string) int {
		if l, ok := assigned[id]; ok {
			return l
		}
		l := 0
		for _, parentID := range g.parents[id] {
			l = max(l, level(parentID)+1)
		}
		assigned[id] = l
		return l
	}

	maxLevel := 0
	for id := range g.nodes {
		maxLevel = max(maxLevel, level(id))
	}
	if len(g.nodes) == 0 {
		return [][]string{}, nil
	}

	levels := make([][]string, maxLevel+1)
	for id, l := range assigned {
		levels[l] = append(levels[l], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

// Roots returns the tables not written from any other table.
func (g *Graph) Roots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns the tables nothing else is written from.
func (g *Graph) Leaves() []string {
	var leaves []string
	for id := range g.nodes {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Subgraph returns a graph with only the named tables and the edges
// between them.
func (g *Graph) Subgraph(names []string) *Graph {
	sub := New()
	keep := make(map[string]bool)
	for _, name := range names {
		if n, ok := g.nodes[name]; ok {
			keep[name] = true
			*sub.AddNode(name) = *n
		}
	}
	for name := range keep {
		for _, child := range g.edges[name] {
			if keep[child] {
				sub.AddEdge(name, child)
			}
		}
		if g.selfRefs[name] {
			sub.selfRefs[name] = true
		}
	}
	return sub
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
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
