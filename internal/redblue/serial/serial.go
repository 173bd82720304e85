// Package serial implements the reference serial simulator: an
// in-process, single-threaded red-then-blue loop used to validate the
// distributed engine's result. Grounded directly on
// original_source/main.c's iteration loop (red movement, then blue
// movement, then grid_check_tiles, capped at max_iters).
package serial

import (
	"github.com/scottgreenup/redblue/internal/redblue/grid"
)

// Result is the outcome of running the serial reference to
// completion: the final grid, whether a tile crossed threshold, which
// tile if so, and how many iterations were performed.
type Result struct {
	Grid       grid.Grid
	Tile       grid.Tile
	Finished   bool
	Iterations int
}

// Run iterates at most maxIters times: red step, blue step,
// check_tiles; stops early the first time a tile crosses threshold.
// initial is not mutated; Run operates on (and returns) a clone.
func Run(initial grid.Grid, tileSize, thresholdPct, maxIters int) Result {
	g := grid.Clone(initial)
	var res Result
	for i := 0; i < maxIters; i++ {
		grid.StepRed(&g)
		grid.StepBlue(&g)
		res.Iterations = i + 1
		if tile, ok := grid.CheckTiles(g, tileSize, thresholdPct); ok {
			res.Tile = tile
			res.Finished = true
			break
		}
	}
	res.Grid = g
	return res
}
