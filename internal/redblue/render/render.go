// Package render implements grid pretty-printing: a standalone text
// format consumed by the coordinator's optional lockstep print, kept
// separate from the simulation core. Grounded directly on
// original_source/grid.c's grid_print/grid_print_line.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/scottgreenup/redblue/internal/redblue/grid"
)

// Print writes g to w using a boxed text format: '+' corners, '-'
// horizontals, '|' verticals with tile-size spacing, cells as '>'
// (red), 'v' (blue), '-' (white).
func Print(w io.Writer, g grid.Grid, tileSize int) error {
	if err := printLine(w, g.Size, tileSize); err != nil {
		return err
	}
	for r := 0; r < g.Size; r++ {
		var b strings.Builder
		b.WriteByte('|')
		for c := 0; c < g.Size; c++ {
			b.WriteByte(g.Rows[r].Cells[c].Glyph())
			if c < g.Size-1 {
				if c%tileSize == tileSize-1 {
					b.WriteByte('|')
				} else {
					b.WriteByte(' ')
				}
			}
		}
		b.WriteString("|\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if r < g.Size-1 && r%tileSize == tileSize-1 {
			if err := printLine(w, g.Size, tileSize); err != nil {
				return err
			}
		}
	}
	if err := printLine(w, g.Size, tileSize); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func printLine(w io.Writer, size, tileSize int) error {
	var b strings.Builder
	b.WriteByte('+')
	for i := 0; i < size; i++ {
		if i < size-1 {
			if i%tileSize == tileSize-1 {
				b.WriteString("-+")
			} else {
				b.WriteString("--")
			}
		} else {
			b.WriteByte('-')
		}
	}
	b.WriteString("+\n")
	_, err := fmt.Fprint(w, b.String())
	return err
}
