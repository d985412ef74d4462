package resolver

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrNegativeCycle indicates a negative-cost cycle in a network built from
// non-negative costs. It can only mean a construction bug; the resolve is
// halted and nothing is committed.
var ErrNegativeCycle = errors.New("negative-cost cycle in flow network: internal invariant violation")

// edge is one directed arc in the residual network. Edges are stored in
// pairs: edge i and i^1 are each other's reverse.
type edge struct {
	to   int
	cap  int
	cost int64
	flow int
}

// network is a capacitated, weighted flow network over dense node indices.
// Nodes and edges are added in a deterministic order so that equal-cost
// augmenting paths always resolve the same way.
type network struct {
	nodes int
	edges []edge
	adj   [][]int // node -> indices into edges
}

func newNetwork(nodes int) *network {
	return &network{
		nodes: nodes,
		adj:   make([][]int, nodes),
	}
}

// addNode appends a node and returns its index.
func (g *network) addNode() int {
	g.adj = append(g.adj, nil)
	g.nodes++
	return g.nodes - 1
}

// addEdge inserts a forward edge and its zero-capacity reverse. Returns the
// forward edge index.
func (g *network) addEdge(from, to, capacity int, cost int64) int {
	idx := len(g.edges)
	g.edges = append(g.edges, edge{to: to, cap: capacity, cost: cost})
	g.edges = append(g.edges, edge{to: from, cap: 0, cost: -cost})
	g.adj[from] = append(g.adj[from], idx)
	g.adj[to] = append(g.adj[to], idx+1)
	return idx
}

func (g *network) residual(e int) int {
	return g.edges[e].cap - g.edges[e].flow
}

const infCost = int64(math.MaxInt64 / 4)

// bellmanFord seeds vertex potentials from the source and verifies the
// non-negative cost invariant by detecting negative cycles.
func (g *network) bellmanFord(source int) ([]int64, error) {
	dist := make([]int64, g.nodes)
	for i := range dist {
		dist[i] = infCost
	}
	dist[source] = 0

	for pass := 0; pass < g.nodes; pass++ {
		changed := false
		for from := 0; from < g.nodes; from++ {
			if dist[from] == infCost {
				continue
			}
			for _, ei := range g.adj[from] {
				e := g.edges[ei]
				if g.residual(ei) <= 0 {
					continue
				}
				if nd := dist[from] + e.cost; nd < dist[e.to] {
					dist[e.to] = nd
					changed = true
				}
			}
		}
		if !changed {
			return dist, nil
		}
		if pass == g.nodes-1 {
			return nil, ErrNegativeCycle
		}
	}
	return dist, nil
}

// pqItem orders Dijkstra's frontier by distance, breaking ties on node
// index so the search is fully deterministic.
type pqItem struct {
	dist int64
	node int
}

type pq []pqItem

func (q pq) Len() int { return len(q) }
func (q pq) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q pq) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pq) Push(x any)        { *q = append(*q, x.(pqItem)) }
func (q *pq) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// dijkstra runs a shortest-path search over the residual network using
// reduced costs, which are non-negative given valid potentials. Returns the
// distance array and the incoming edge of each reached node.
func (g *network) dijkstra(source int, potential []int64) (dist []int64, prevEdge []int) {
	dist = make([]int64, g.nodes)
	prevEdge = make([]int, g.nodes)
	done := make([]bool, g.nodes)
	for i := range dist {
		dist[i] = infCost
		prevEdge[i] = -1
	}
	dist[source] = 0

	q := &pq{{dist: 0, node: source}}
	for q.Len() > 0 {
		item := heap.Pop(q).(pqItem)
		u := item.node
		if done[u] {
			continue
		}
		done[u] = true
		for _, ei := range g.adj[u] {
			e := g.edges[ei]
			if g.residual(ei) <= 0 || potential[e.to] == infCost {
				continue
			}
			reduced := e.cost + potential[u] - potential[e.to]
			if nd := dist[u] + reduced; nd < dist[e.to] {
				dist[e.to] = nd
				prevEdge[e.to] = ei
				heap.Push(q, pqItem{dist: nd, node: e.to})
			}
		}
	}
	return dist, prevEdge
}

// minCostFlow pushes flow from source to sink along successive shortest
// augmenting paths until none remains. The result is a minimum-cost
// integral flow for the achieved flow value. Cancellation is checked
// between augmentations, a natural suspension point.
func (g *network) minCostFlow(ctx context.Context, source, sink int) (flow int, cost int64, err error) {
	potential, err := g.bellmanFord(source)
	if err != nil {
		return 0, 0, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return flow, cost, fmt.Errorf("solve interrupted: %w", err)
		}

		dist, prevEdge := g.dijkstra(source, potential)
		if dist[sink] == infCost || prevEdge[sink] == -1 {
			return flow, cost, nil
		}

		// Refresh potentials with the new true distances
		for v := 0; v < g.nodes; v++ {
			if dist[v] != infCost && potential[v] != infCost {
				potential[v] += dist[v]
			}
		}

		// Find the bottleneck along the path
		bottleneck := math.MaxInt
		for v := sink; v != source; {
			ei := prevEdge[v]
			if r := g.residual(ei); r < bottleneck {
				bottleneck = r
			}
			v = g.edges[ei^1].to
		}

		// Augment
		for v := sink; v != source; {
			ei := prevEdge[v]
			g.edges[ei].flow += bottleneck
			g.edges[ei^1].flow -= bottleneck
			cost += int64(bottleneck) * g.edges[ei].cost
			v = g.edges[ei^1].to
		}
		flow += bottleneck
	}
}
