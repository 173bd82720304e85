// Package grid implements the Grid type: the NxN toroidal collection
// of rows, its serial red/blue transition and its tile-threshold scan.
// The transition logic mirrors original_source/grid.c's grid_t
// functions one to one; check_tiles fixes the original's
// first-hit-then-keep-scanning bug.
package grid

import (
	"github.com/scottgreenup/redblue/internal/redblue/cell"
	"github.com/scottgreenup/redblue/internal/redblue/row"
)

// Grid is a square NxN collection of rows, row i always carrying id i.
type Grid struct {
	Size int
	Rows []row.Row
}

// New returns an all-White grid of the given size.
func New(size int) Grid {
	g := Grid{Size: size, Rows: make([]row.Row, size)}
	for i := range g.Rows {
		g.Rows[i] = row.Init(uint32(size))
		g.Rows[i].ID = uint32(i)
	}
	return g
}

// Clone returns a deep copy of g.
func Clone(g Grid) Grid {
	out := Grid{Size: g.Size, Rows: make([]row.Row, len(g.Rows))}
	for i := range g.Rows {
		out.Rows[i] = row.Copy(g.Rows[i])
	}
	return out
}

// Equal reports whether a and b have identical contents.
func Equal(a, b Grid) bool {
	if a.Size != b.Size || len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Rows {
		if !row.Equal(a.Rows[i], b.Rows[i]) {
			return false
		}
	}
	return true
}

// Count returns the total number of cells of color c across the grid.
func Count(g Grid, c cell.Cell) int {
	n := 0
	for _, r := range g.Rows {
		for _, rc := range r.Cells {
			if rc == c {
				n++
			}
		}
	}
	return n
}

// StepRed applies one red movement phase in place: for each row
// independently, red cells move one column right into an adjacent
// White cell, read against a snapshot taken before that row's own
// updates (read-before-write is per-row, since red movement never
// crosses rows).
func StepRed(g *Grid) {
	for r := range g.Rows {
		StepRedRow(g.Rows[r].Cells)
	}
}

// StepRedRow applies the red transition to a single row in place,
// reading against a snapshot of that row taken before its own
// updates. This is the per-row unit the worker's local-only red phase
// applies independently to each owned row, with no messaging
// required.
func StepRedRow(cells []cell.Cell) {
	n := len(cells)
	before := make([]cell.Cell, n)
	copy(before, cells)
	for c := 0; c < n; c++ {
		next := (c + 1) % n
		if before[c] == cell.Red && before[next] == cell.White {
			cells[c] = cell.White
			cells[next] = cell.Red
		}
	}
}

// StepBlue applies one blue movement phase in place: blue cells move
// one row down into an adjacent White cell, read against a single
// snapshot of the whole grid taken before any blue write, since blue
// movement crosses rows and a per-row snapshot would let an earlier
// row's write leak into a later row's read.
func StepBlue(g *Grid) {
	n := g.Size
	before := Clone(*g)
	for r := 0; r < n; r++ {
		next := (r + 1) % n
		for c := 0; c < n; c++ {
			if before.Rows[r].Cells[c] == cell.Blue && before.Rows[next].Cells[c] == cell.White {
				g.Rows[r].Cells[c] = cell.White
				g.Rows[next].Cells[c] = cell.Blue
			}
		}
	}
}

// Tile identifies a single square tile that crossed the threshold.
type Tile struct {
	Col, Row int
	Color    cell.Cell
	Ratio    float64
}

// CheckTiles scans the grid's cells row-major, maintaining per-tile RED
// and BLUE counts, and returns the first tile whose fraction of one
// color reaches thresholdPct/100 during that scan, with the ratio at
// that moment. That tile lies in the lowest qualifying tile row; within
// that row it is the tile that crosses first in scan order, not
// necessarily the smallest tile column. Returns ok=false if none
// qualifies.
//
// The scan never lets a later tile overwrite an already-qualifying
// one: it returns on the first crossing, fixing an
// original_source/grid.c bug where a later, lower-priority crossing
// could overwrite an earlier one found in the same scan.
func CheckTiles(g Grid, tileSize int, thresholdPct int) (Tile, bool) {
	delta := float64(thresholdPct) / 100.0
	tilesPerSide := g.Size / tileSize
	red := make([][]int, tilesPerSide)
	blue := make([][]int, tilesPerSide)
	for i := range red {
		red[i] = make([]int, tilesPerSide)
		blue[i] = make([]int, tilesPerSide)
	}
	for r := 0; r < g.Size; r++ {
		tr := r / tileSize
		for c := 0; c < g.Size; c++ {
			tc := c / tileSize
			switch g.Rows[r].Cells[c] {
			case cell.Blue:
				blue[tr][tc]++
				if ratio := float64(blue[tr][tc]) / float64(tileSize*tileSize); ratio >= delta {
					return Tile{Col: tc, Row: tr, Color: cell.Blue, Ratio: ratio}, true
				}
			case cell.Red:
				red[tr][tc]++
				if ratio := float64(red[tr][tc]) / float64(tileSize*tileSize); ratio >= delta {
					return Tile{Col: tc, Row: tr, Color: cell.Red, Ratio: ratio}, true
				}
			}
		}
	}
	return Tile{}, false
}

// CheckTileRow scans a single tile-row band (tileSize full-width rows,
// global tile-row index tileRow) for the first tile column (ascending)
// that crosses thresholdPct, in the same row-major, first-hit manner
// as CheckTiles. This is what a worker uses for its local
// per-iteration termination check over just the tile-row groups it
// owns: the same scan, restricted to one band of rows instead of the
// whole grid.
func CheckTileRow(rows []row.Row, tileRow, tileSize, thresholdPct int) (Tile, bool) {
	delta := float64(thresholdPct) / 100.0
	tilesPerSide := len(rows[0].Cells) / tileSize
	red := make([]int, tilesPerSide)
	blue := make([]int, tilesPerSide)
	for _, r := range rows {
		for c, cl := range r.Cells {
			tc := c / tileSize
			switch cl {
			case cell.Blue:
				blue[tc]++
				if ratio := float64(blue[tc]) / float64(tileSize*tileSize); ratio >= delta {
					return Tile{Col: tc, Row: tileRow, Color: cell.Blue, Ratio: ratio}, true
				}
			case cell.Red:
				red[tc]++
				if ratio := float64(red[tc]) / float64(tileSize*tileSize); ratio >= delta {
					return Tile{Col: tc, Row: tileRow, Color: cell.Red, Ratio: ratio}, true
				}
			}
		}
	}
	return Tile{}, false
}
