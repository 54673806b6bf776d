package dedupe

// unionFind is a disjoint-set over element indices, with path compression
// and union by rank. Used to take the transitive closure of the three
// equality relations during duplicate-group discovery.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// groups collects the members of each non-trivial set, preserving input
// order within a group.
func (uf *unionFind) groups() [][]int {
	members := make(map[int][]int)
	order := make([]int, 0)
	for i := range uf.parent {
		root := uf.find(i)
		if _, seen := members[root]; !seen {
			order = append(order, root)
		}
		members[root] = append(members[root], i)
	}

	var out [][]int
	for _, root := range order {
		if g := members[root]; len(g) > 1 {
			out = append(out, g)
		}
	}
	return out
}
