package planner

import "container/heap"

const unreachable = int(^uint(0) >> 1)

// frontierItem is one entry of the Dijkstra priority frontier.
type frontierItem struct {
	vertex int
	dist   int
}

// frontier is a min-heap ordered by accumulated weight, with the
// earlier vertex winning ties so traversal order is fixed.
type frontier []frontierItem

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].vertex < f[j].vertex
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(frontierItem)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// shortestPath runs Dijkstra from the given source vertex. It returns
// the distance of every vertex and, for each reached vertex, the edge
// used to enter it. All weights are non-negative so distances are final
// once a vertex is settled.
//
// Tie-breaking is deterministic and documented: when two paths reach a
// vertex at equal total weight, the one entering through the latest
// boundary point wins, so a seat is kept as long as its availability
// allows before switching. Remaining ties fall back to the fixed edge
// enumeration order (owned first, then seat name).
func shortestPath(g *coverageGraph, source int) (dist []int, prev []*edge) {
	dist = make([]int, len(g.vertices))
	prev = make([]*edge, len(g.vertices))
	for i := range dist {
		dist[i] = unreachable
	}
	dist[source] = 0

	settled := make([]bool, len(g.vertices))
	f := &frontier{{vertex: source}}
	heap.Init(f)

	for f.Len() > 0 {
		item := heap.Pop(f).(frontierItem)
		u := item.vertex
		if settled[u] {
			continue
		}
		settled[u] = true

		for i := range g.adj[u] {
			e := &g.adj[u][i]
			v := g.index[e.to]
			next := dist[u] + e.weight
			switch {
			case next < dist[v]:
				dist[v] = next
				prev[v] = e
				heap.Push(f, frontierItem{vertex: v, dist: next})
			case next == dist[v] && betterPredecessor(prev[v], e):
				prev[v] = e
			}
		}
	}
	return dist, prev
}

// betterPredecessor decides whether candidate should replace current as
// the recorded entry edge of a vertex both reach at equal cost.
func betterPredecessor(current, candidate *edge) bool {
	if current == nil {
		return true
	}
	if candidate.from != current.from {
		return candidate.from > current.from
	}
	if candidate.owned != current.owned {
		return candidate.owned
	}
	return candidate.seat < current.seat
}
