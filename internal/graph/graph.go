// Package graph implements the DependencyGraph and its Analyzer from
// spec.md §4.7: a directed graph over unit identifiers with forward and
// reverse adjacency duality, PageRank, and structural analysis (orphans,
// dead-ends, hubs, cycles, bridges).
package graph

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/store"
)

var (
	errEmptyID = errors.New("empty node id")
	errNoPath  = errors.New("no path exists")
)

type node struct {
	id   string
	typ  string
	out  map[string]string // target -> kind
	in   map[string]string // source -> kind
}

// DependencyGraph is the in-memory, mutex-guarded implementation of
// store.GraphStore. Re-registering a node recomputes both its forward
// edges and every affected reverse edge, so dependents never drift from
// the functional dual of dependencies (spec.md §3's stated invariant).
type DependencyGraph struct {
	mu        sync.RWMutex
	nodes     map[string]*node
	typeIndex map[string]map[string]struct{} // type -> set(id)
}

// New builds an empty DependencyGraph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]*node),
		typeIndex: make(map[string]map[string]struct{}),
	}
}

var _ store.GraphStore = (*DependencyGraph)(nil)

func (g *DependencyGraph) getOrCreate(id string) *node {
	n, ok := g.nodes[id]
	if !ok {
		n = &node{id: id, out: make(map[string]string), in: make(map[string]string)}
		g.nodes[id] = n
	}
	return n
}

// Register is idempotent: it replaces id's forward edges wholesale,
// removes id from whatever type bucket it previously occupied before
// adding it to the new one, and recomputes reverse edges for every
// target that gained or lost an edge from id.
func (g *DependencyGraph) Register(ctx context.Context, id, typ string, edges []store.GraphEdge) error {
	return g.register(id, typ, edges)
}

func (g *DependencyGraph) register(id, typ string, edges []store.GraphEdge) error {
	if id == "" {
		return rerr.New(rerr.KindValidation, "graph.Register", errEmptyID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.getOrCreate(id)

	for target := range n.out {
		if tn, ok := g.nodes[target]; ok {
			delete(tn.in, id)
		}
	}
	n.out = make(map[string]string, len(edges))
	for _, e := range edges {
		n.out[e.To] = e.Kind
		tn := g.getOrCreate(e.To)
		tn.in[id] = e.Kind
	}

	for t, members := range g.typeIndex {
		if t == typ {
			continue
		}
		delete(members, id)
	}
	if typ != "" {
		bucket, ok := g.typeIndex[typ]
		if !ok {
			bucket = make(map[string]struct{})
			g.typeIndex[typ] = bucket
		}
		bucket[id] = struct{}{}
	}
	n.typ = typ
	return nil
}

// DependenciesOf returns id's forward targets in sorted order.
func (g *DependencyGraph) DependenciesOf(ctx context.Context, id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, rerr.New(rerr.KindNotFound, "graph.DependenciesOf", errEmptyID)
	}
	return sortedKeys(n.out), nil
}

// DependentsOf returns ids whose forward edges target id, in sorted order.
func (g *DependencyGraph) DependentsOf(ctx context.Context, id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, rerr.New(rerr.KindNotFound, "graph.DependentsOf", errEmptyID)
	}
	return sortedKeys(n.in), nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TraverseForward performs a breadth-first walk over forward edges from
// start, bounded to maxDepth hops (0 or negative means unbounded), and
// returns visited ids in discovery order excluding start itself.
func (g *DependencyGraph) TraverseForward(ctx context.Context, start string, maxDepth int) ([]string, error) {
	return g.traverse(start, maxDepth, func(n *node) map[string]string { return n.out })
}

// TraverseReverse is TraverseForward over the reverse adjacency.
func (g *DependencyGraph) TraverseReverse(ctx context.Context, start string, maxDepth int) ([]string, error) {
	return g.traverse(start, maxDepth, func(n *node) map[string]string { return n.in })
}

func (g *DependencyGraph) traverse(start string, maxDepth int, adj func(*node) map[string]string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.nodes[start]; !ok {
		return nil, rerr.New(rerr.KindNotFound, "graph.Traverse", errEmptyID)
	}

	visited := map[string]bool{start: true}
	type frontierItem struct {
		id    string
		depth int
	}
	queue := []frontierItem{{start, 0}}
	var order []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}
		n := g.nodes[cur.id]
		for _, next := range sortedKeys(adj(n)) {
			if visited[next] {
				continue
			}
			visited[next] = true
			order = append(order, next)
			queue = append(queue, frontierItem{next, cur.depth + 1})
		}
	}
	return order, nil
}

// ShortestPath returns the sequence of ids from from to to inclusive via
// unweighted BFS over forward edges, or a not-found error if unreachable.
func (g *DependencyGraph) ShortestPath(ctx context.Context, from, to string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.nodes[from]; !ok {
		return nil, rerr.New(rerr.KindNotFound, "graph.ShortestPath", errEmptyID)
	}
	if from == to {
		return []string{from}, nil
	}

	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := g.nodes[cur]
		for _, next := range sortedKeys(n.out) {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				return reconstructPath(prev, from, to), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, rerr.New(rerr.KindNotFound, "graph.ShortestPath", errNoPath)
}

func reconstructPath(prev map[string]string, from, to string) []string {
	var path []string
	cur := to
	for cur != from {
		path = append([]string{cur}, path...)
		cur = prev[cur]
	}
	path = append([]string{from}, path...)
	return path
}

// SubgraphForTypes returns the sorted union of ids belonging to any of
// the given types.
func (g *DependencyGraph) SubgraphForTypes(ctx context.Context, types []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := make(map[string]struct{})
	for _, t := range types {
		for id := range g.typeIndex[t] {
			set[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// AffectedBy computes the iterative reverse closure from seeds: every id
// that transitively depends on any seed, reached by a reverse walk; the
// seeds themselves are not included (spec.md §4.6's
// DependencyGraph.affected_by).
func (g *DependencyGraph) AffectedBy(seeds []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	visited := make(map[string]struct{})
	seedSet := make(map[string]struct{}, len(seeds))
	queue := append([]string{}, seeds...)
	for _, s := range seeds {
		visited[s] = struct{}{}
		seedSet[s] = struct{}{}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n, ok := g.nodes[cur]
		if !ok {
			continue
		}
		for _, next := range sortedKeys(n.in) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	out := make([]string, 0, len(visited))
	for id := range visited {
		if _, isSeed := seedSet[id]; isSeed {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ToMap serializes the graph to a stable, sorted-by-id representation
// suitable for JSON encoding and diffing across runs.
func (g *DependencyGraph) ToMap() map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodesOut := make([]map[string]any, 0, len(ids))
	var edgesOut []map[string]any
	for _, id := range ids {
		n := g.nodes[id]
		nodesOut = append(nodesOut, map[string]any{"id": id, "type": n.typ})
		for _, target := range sortedKeys(n.out) {
			edgesOut = append(edgesOut, map[string]any{"from": id, "to": target, "kind": n.out[target]})
		}
	}
	return map[string]any{"nodes": nodesOut, "edges": edgesOut}
}

// FromMap rebuilds a DependencyGraph from ToMap's representation.
func FromMap(m map[string]any) *DependencyGraph {
	g := New()
	nodesRaw, _ := m["nodes"].([]map[string]any)
	for _, n := range nodesRaw {
		id, _ := n["id"].(string)
		typ, _ := n["type"].(string)
		if id != "" {
			g.getOrCreate(id).typ = typ
			if typ != "" {
				bucket, ok := g.typeIndex[typ]
				if !ok {
					bucket = make(map[string]struct{})
					g.typeIndex[typ] = bucket
				}
				bucket[id] = struct{}{}
			}
		}
	}
	edgesRaw, _ := m["edges"].([]map[string]any)
	for _, e := range edgesRaw {
		from, _ := e["from"].(string)
		to, _ := e["to"].(string)
		kind, _ := e["kind"].(string)
		if from == "" || to == "" {
			continue
		}
		fn := g.getOrCreate(from)
		fn.out[to] = kind
		tn := g.getOrCreate(to)
		tn.in[from] = kind
	}
	return g
}

// NodeCount and EdgeCount report graph size. Analyze in analysis.go
// counts edges on its own for the >10k-edge sampling threshold.
func (g *DependencyGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *DependencyGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, nd := range g.nodes {
		n += len(nd.out)
	}
	return n
}
