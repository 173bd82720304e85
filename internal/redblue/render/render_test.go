package render

import (
	"strings"
	"testing"

	"github.com/scottgreenup/redblue/internal/redblue/cell"
	"github.com/scottgreenup/redblue/internal/redblue/grid"
)

func TestPrintAllWhite(t *testing.T) {
	g := grid.New(4)
	var b strings.Builder
	if err := Print(&b, g, 2); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "+---+---+\n") {
		t.Fatalf("unexpected header line: %q", out)
	}
	if !strings.Contains(out, "|- -|- -|\n") {
		t.Fatalf("unexpected body line, got:\n%s", out)
	}
}

func TestPrintGlyphs(t *testing.T) {
	g := grid.New(2)
	g.Rows[0].Cells[0] = cell.Red
	g.Rows[0].Cells[1] = cell.Blue
	var b strings.Builder
	if err := Print(&b, g, 2); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "|> v|\n") {
		t.Fatalf("expected glyph row, got:\n%s", b.String())
	}
}
