package planner

import "sort"

// edge is one bookable (or already owned) sub-interval between two
// boundary points. Weight is 1 for bookable edges and 0 for owned ones,
// so the shortest path has the fewest new segments and reuses owned
// time for free.
type edge struct {
	from   TimePoint
	to     TimePoint
	seat   Seat
	owned  bool
	weight int
}

// coverageGraph holds the boundary vertices in ascending order and the
// outgoing edges of each vertex, already sorted for deterministic
// traversal.
type coverageGraph struct {
	vertices []TimePoint
	index    map[TimePoint]int
	adj      [][]edge
}

// buildGraph constructs the coverage graph for one day. Vertices are
// the distinct endpoints of free intervals, own bookings and the window
// itself. For every seat and every pair of boundary points inside one
// of its free intervals there is exactly one edge: a free interval may
// be booked partially, so finer sub-spans are reachable too.
func buildGraph(window Interval, freeBySeat map[Seat][]Interval, own []OwnBooking) *coverageGraph {
	points := map[TimePoint]struct{}{
		window.Start: {},
		window.End:   {},
	}
	for _, free := range freeBySeat {
		for _, iv := range free {
			points[iv.Start] = struct{}{}
			points[iv.End] = struct{}{}
		}
	}
	for _, ob := range own {
		clipped := ob.Interval.Clip(window)
		if clipped.Empty() {
			continue
		}
		points[clipped.Start] = struct{}{}
		points[clipped.End] = struct{}{}
	}

	g := &coverageGraph{index: make(map[TimePoint]int, len(points))}
	for p := range points {
		g.vertices = append(g.vertices, p)
	}
	sort.Slice(g.vertices, func(i, j int) bool { return g.vertices[i] < g.vertices[j] })
	for i, p := range g.vertices {
		g.index[p] = i
	}
	g.adj = make([][]edge, len(g.vertices))

	seen := make(map[edge]struct{})
	add := func(e edge) {
		key := edge{from: e.from, to: e.to, seat: e.seat, owned: e.owned}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		i := g.index[e.from]
		g.adj[i] = append(g.adj[i], e)
	}

	seats := make([]Seat, 0, len(freeBySeat))
	for seat := range freeBySeat {
		seats = append(seats, seat)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i] < seats[j] })

	for _, seat := range seats {
		for _, iv := range freeBySeat[seat] {
			g.spanEdges(iv, func(a, b TimePoint) {
				add(edge{from: a, to: b, seat: seat, weight: 1})
			})
		}
	}
	for _, ob := range own {
		clipped := ob.Interval.Clip(window)
		if clipped.Empty() {
			continue
		}
		seat := ob.Seat
		g.spanEdges(clipped, func(a, b TimePoint) {
			add(edge{from: a, to: b, seat: seat, owned: true, weight: 0})
		})
	}

	for i := range g.adj {
		sortEdges(g.adj[i])
	}
	return g
}

// spanEdges calls fn for every ordered pair of boundary vertices inside
// the interval.
func (g *coverageGraph) spanEdges(iv Interval, fn func(a, b TimePoint)) {
	lo := sort.Search(len(g.vertices), func(i int) bool { return g.vertices[i] >= iv.Start })
	hi := sort.Search(len(g.vertices), func(i int) bool { return g.vertices[i] > iv.End })
	inside := g.vertices[lo:hi]
	for i := 0; i < len(inside); i++ {
		for j := i + 1; j < len(inside); j++ {
			fn(inside[i], inside[j])
		}
	}
}

// sortEdges fixes the edge enumeration order that the allocator's
// tie-breaking relies on: owned edges first, then lower weight, then
// farther endpoint, then seat name.
func sortEdges(edges []edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.owned != b.owned {
			return a.owned
		}
		if a.weight != b.weight {
			return a.weight < b.weight
		}
		if a.to != b.to {
			return a.to > b.to
		}
		return a.seat < b.seat
	})
}
