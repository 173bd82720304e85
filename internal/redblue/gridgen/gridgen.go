// Package gridgen implements pseudo-random grid initialization, kept
// separate from the core simulation and consumed only through
// InitRandom. It derives a reproducible seed from a user string with
// github.com/dchest/siphash, the same keyed-hash idiom splitter.go
// uses to place a blob on a peer, and draws cells with
// golang.org/x/exp/rand.
package gridgen

import (
	"github.com/dchest/siphash"
	xrand "golang.org/x/exp/rand"

	"github.com/scottgreenup/redblue/internal/redblue/cell"
	"github.com/scottgreenup/redblue/internal/redblue/grid"
)

// just two fixed random values, the same style splitter.go's
// partition() uses for its siphash keys.
const (
	seedKey0 = uint64(0x7265645f626c7565)
	seedKey1 = uint64(0x626c75655f726564)
)

// Seed derives a uint64 PRNG seed from an arbitrary string, so that
// the same --seed flag value always reproduces the same run.
func Seed(s string) uint64 {
	return siphash.Hash(seedKey0, seedKey1, []byte(s))
}

// InitRandom builds an NxN grid with every cell drawn independently
// and uniformly from {RED, BLUE, WHITE}.
func InitRandom(n int, seed uint64) grid.Grid {
	r := xrand.New(xrand.NewSource(seed))
	g := grid.New(n)
	for i := range g.Rows {
		for c := range g.Rows[i].Cells {
			g.Rows[i].Cells[c] = cell.Cell(r.Intn(3))
		}
	}
	return g
}
