package graph

import (
	"math/rand"
	"sort"
)

const (
	pageRankDamping    = 0.85
	pageRankIterations = 20
	defaultHubCount    = 20
	// largeGraphEdgeThreshold is the >N=10,000-edge point past which bridge
	// detection switches from exact to sampled approximation, spec.md
	// §4.7's "for very large graphs" clause (open question 3).
	largeGraphEdgeThreshold = 10_000
	bridgeSampleSize        = 500
)

// PageRank computes node importance via the standard power-iteration
// algorithm: uniform initial distribution, teleport over all nodes,
// damping 0.85, 20 iterations — spec.md §4.7's exact parameters.
func (g *DependencyGraph) PageRank() map[string]float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	n := len(ids)
	if n == 0 {
		return map[string]float64{}
	}

	rank := make(map[string]float64, n)
	for _, id := range ids {
		rank[id] = 1.0 / float64(n)
	}

	for iter := 0; iter < pageRankIterations; iter++ {
		next := make(map[string]float64, n)
		base := (1 - pageRankDamping) / float64(n)
		for _, id := range ids {
			next[id] = base
		}

		danglingMass := 0.0
		for _, id := range ids {
			nd := g.nodes[id]
			if len(nd.out) == 0 {
				danglingMass += rank[id]
				continue
			}
			share := pageRankDamping * rank[id] / float64(len(nd.out))
			for target := range nd.out {
				if _, ok := next[target]; ok {
					next[target] += share
				}
			}
		}
		if danglingMass > 0 {
			redistribute := pageRankDamping * danglingMass / float64(n)
			for _, id := range ids {
				next[id] += redistribute
			}
		}
		rank = next
	}
	return rank
}

// StructuralReport is the output of Analyze: the node-level
// classifications and cycle/bridge findings of spec.md §4.7.
type StructuralReport struct {
	Orphans        []string
	DeadEnds       []string
	Hubs           []string
	Cycles         [][]string
	Bridges        []BridgeEdge
	BridgesSampled bool
}

// BridgeEdge is one edge whose removal increases the number of weakly
// connected components.
type BridgeEdge struct {
	From string
	To   string
}

// Analyze runs the full structural analysis of spec.md §4.7 over the
// current graph snapshot.
func (g *DependencyGraph) Analyze(hubCount int) StructuralReport {
	if hubCount <= 0 {
		hubCount = defaultHubCount
	}
	g.mu.RLock()
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var orphans, deadEnds []string
	type inDegree struct {
		id     string
		degree int
	}
	var degrees []inDegree
	for _, id := range ids {
		n := g.nodes[id]
		if len(n.out) == 0 && len(n.in) == 0 {
			orphans = append(orphans, id)
		}
		if len(n.in) == 0 {
			deadEnds = append(deadEnds, id)
		}
		degrees = append(degrees, inDegree{id, len(n.in)})
	}
	sort.Slice(degrees, func(i, j int) bool {
		if degrees[i].degree != degrees[j].degree {
			return degrees[i].degree > degrees[j].degree
		}
		return degrees[i].id < degrees[j].id
	})
	hubs := make([]string, 0, hubCount)
	for i := 0; i < len(degrees) && i < hubCount; i++ {
		hubs = append(hubs, degrees[i].id)
	}

	cycles := g.stronglyConnectedComponents(ids)
	edgeCount := 0
	for _, id := range ids {
		edgeCount += len(g.nodes[id].out)
	}

	var bridges []BridgeEdge
	sampled := edgeCount > largeGraphEdgeThreshold
	if sampled {
		bridges = g.sampledBridges(ids, bridgeSampleSize)
	} else {
		bridges = g.exactBridges(ids)
	}
	g.mu.RUnlock()

	return StructuralReport{
		Orphans:        orphans,
		DeadEnds:       deadEnds,
		Hubs:           hubs,
		Cycles:         cycles,
		Bridges:        bridges,
		BridgesSampled: sampled,
	}
}

// stronglyConnectedComponents runs Tarjan's algorithm and returns every
// SCC of size ≥ 2, plus any single node with a self-loop, per spec.md
// §4.7's cycle definition.
func (g *DependencyGraph) stronglyConnectedComponents(ids []string) [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var sccs [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		n := g.nodes[v]
		for _, w := range sortedKeys(n.out) {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var component []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			selfLoop := len(component) == 1 && g.nodes[v].out[v] != ""
			if len(component) >= 2 || selfLoop {
				sort.Strings(component)
				sccs = append(sccs, component)
			}
		}
	}

	for _, id := range ids {
		if _, seen := indices[id]; !seen {
			strongconnect(id)
		}
	}
	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

// exactBridges finds every bridge edge over the undirected skeleton using
// the classic DFS low-link bridge-finding algorithm.
func (g *DependencyGraph) exactBridges(ids []string) []BridgeEdge {
	undirected := g.undirectedSkeleton()
	disc := make(map[string]int)
	low := make(map[string]int)
	timer := 0
	var bridges []BridgeEdge

	var dfs func(u string, parent string)
	dfs = func(u string, parent string) {
		disc[u] = timer
		low[u] = timer
		timer++
		for _, v := range sortedKeys(undirected[u]) {
			if v == parent {
				continue
			}
			if _, seen := disc[v]; !seen {
				dfs(v, u)
				if low[v] < low[u] {
					low[u] = low[v]
				}
				if low[v] > disc[u] {
					bridges = append(bridges, normalizedBridge(u, v))
				}
			} else if disc[v] < low[u] {
				low[u] = disc[v]
			}
		}
	}

	for _, id := range ids {
		if _, seen := disc[id]; !seen {
			dfs(id, "")
		}
	}
	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].From != bridges[j].From {
			return bridges[i].From < bridges[j].From
		}
		return bridges[i].To < bridges[j].To
	})
	return bridges
}

// sampledBridges approximates bridge detection for graphs whose edge
// count exceeds largeGraphEdgeThreshold: it samples random edges and
// tests whether removing each drops reachability between its endpoints,
// a cheaper proxy for the exact low-link sweep. Results are reported with
// BridgesSampled=true so callers document the approximation, per spec.md
// §4.7's explicit instruction.
func (g *DependencyGraph) sampledBridges(ids []string, sampleSize int) []BridgeEdge {
	undirected := g.undirectedSkeleton()
	var edges []BridgeEdge
	for u, neighbors := range undirected {
		for v := range neighbors {
			if u < v {
				edges = append(edges, BridgeEdge{From: u, To: v})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	if len(edges) > sampleSize {
		rand.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
		edges = edges[:sampleSize]
	}

	var bridges []BridgeEdge
	for _, e := range edges {
		if !reachableWithoutEdge(undirected, e.From, e.To) {
			bridges = append(bridges, e)
		}
	}
	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].From != bridges[j].From {
			return bridges[i].From < bridges[j].From
		}
		return bridges[i].To < bridges[j].To
	})
	return bridges
}

func reachableWithoutEdge(undirected map[string]map[string]struct{}, from, to string) bool {
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true
		}
		for next := range undirected[cur] {
			if (cur == from && next == to) || (cur == to && next == from) {
				continue
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

func normalizedBridge(a, b string) BridgeEdge {
	if a < b {
		return BridgeEdge{From: a, To: b}
	}
	return BridgeEdge{From: b, To: a}
}

func (g *DependencyGraph) undirectedSkeleton() map[string]map[string]struct{} {
	skeleton := make(map[string]map[string]struct{}, len(g.nodes))
	ensure := func(id string) map[string]struct{} {
		s, ok := skeleton[id]
		if !ok {
			s = make(map[string]struct{})
			skeleton[id] = s
		}
		return s
	}
	for id, n := range g.nodes {
		ensure(id)
		for target := range n.out {
			ensure(target)
			skeleton[id][target] = struct{}{}
			skeleton[target][id] = struct{}{}
		}
	}
	return skeleton
}
