// Package partition assigns rows to worker ranks by tile row, the way
// splitter.go assigns blobs to peer transports, except the assignment
// here is a deterministic round-robin formula, not a hashed bucket
// choice, because the protocol depends on every process computing the
// same owner for a given tile row without any communication.
package partition

import "github.com/scottgreenup/redblue/internal/redblue/rberrors"

// Partition is the owner vector: Owner[i] is the rank that owns row i.
type Partition struct {
	Owner []uint32
}

// Build returns the owner vector for a grid of size n split into
// tiles of side t, across p total processes (rank 0 is the
// coordinator, ranks 1..p-1 are workers). owner(g) = 1 + g mod (p-1).
func Build(n, t, p int) (Partition, error) {
	if p < 2 {
		return Partition{}, rberrors.Config("need at least 2 processes (1 coordinator + >=1 worker), got %d", p)
	}
	if t <= 0 || n%t != 0 {
		return Partition{}, rberrors.Config("tile size %d does not divide grid size %d", t, n)
	}
	tileRows := n / t
	if tileRows < 1 {
		return Partition{}, rberrors.Config("grid size %d yields zero tile rows for tile size %d", n, t)
	}
	workers := p - 1
	owner := make([]uint32, n)
	for i := 0; i < n; i++ {
		g := i / t
		owner[i] = uint32(1 + g%workers)
	}
	return Partition{Owner: owner}, nil
}

// OwnerOfGroup returns the owning rank of tile-row group g, given the
// total worker count (p-1).
func OwnerOfGroup(g, workers int) uint32 {
	return uint32(1 + g%workers)
}

// Rows returns the sorted ascending row ids owned by rank.
func (p Partition) Rows(rank uint32) []uint32 {
	var rows []uint32
	for i, owner := range p.Owner {
		if owner == rank {
			rows = append(rows, uint32(i))
		}
	}
	return rows
}

// Groups returns the ascending tile-row group indices owned by rank,
// given the configured tile size.
func (p Partition) Groups(rank uint32, tileSize int) []int {
	seen := make(map[int]bool)
	var groups []int
	for i, owner := range p.Owner {
		if owner != rank {
			continue
		}
		g := i / tileSize
		if !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}
	// Groups returned in ascending id order; row ids are visited
	// ascending above so the groups already come out sorted.
	return groups
}
