// Package row implements the Row type: the smallest unit exchanged
// between coordinator and worker, and between workers during the blue
// boundary exchange. Its wire layout is fixed: id (4 bytes LE) ‖ len
// (4 bytes LE) ‖ len × Cell (4 bytes LE each).
package row

import (
	"encoding/binary"
	"io"

	"github.com/scottgreenup/redblue/internal/redblue/cell"
	"github.com/scottgreenup/redblue/internal/redblue/rberrors"
)

// HeaderSize is the id+len prefix of every serialized Row.
const HeaderSize = 8

// Row is an ordered sequence of cells plus its global row index.
type Row struct {
	ID    uint32
	Cells []cell.Cell
}

// Init returns a Row of length n, id 0, all cells White.
func Init(n uint32) Row {
	r := Row{ID: 0, Cells: make([]cell.Cell, n)}
	for i := range r.Cells {
		r.Cells[i] = cell.White
	}
	return r
}

// Copy returns a deep copy of src.
func Copy(src Row) Row {
	out := Row{ID: src.ID, Cells: make([]cell.Cell, len(src.Cells))}
	copy(out.Cells, src.Cells)
	return out
}

// Equal reports whether a and b have the same id and cells.
func Equal(a, b Row) bool {
	if a.ID != b.ID || len(a.Cells) != len(b.Cells) {
		return false
	}
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			return false
		}
	}
	return true
}

// Size returns the exact serialized size of a row of length n.
func Size(n uint32) int {
	return HeaderSize + int(n)*cell.Size
}

// Serialize encodes r into a buffer of exactly Size(len(r.Cells)) bytes.
func Serialize(r Row) []byte {
	n := uint32(len(r.Cells))
	buf := make([]byte, Size(n))
	binary.LittleEndian.PutUint32(buf[0:4], r.ID)
	binary.LittleEndian.PutUint32(buf[4:8], n)
	for i, c := range r.Cells {
		off := HeaderSize + i*cell.Size
		binary.LittleEndian.PutUint32(buf[off:off+cell.Size], uint32(c))
	}
	return buf
}

// Deserialize decodes buf into a Row. expectedLen is the grid size N
// every row must declare; if the buffer's declared len disagrees,
// Deserialize fails with a MalformedFrame error.
func Deserialize(buf []byte, expectedLen uint32) (Row, error) {
	if len(buf) < HeaderSize {
		return Row{}, rberrors.Malformed("row frame too short: %d bytes", len(buf))
	}
	id := binary.LittleEndian.Uint32(buf[0:4])
	n := binary.LittleEndian.Uint32(buf[4:8])
	if n != expectedLen {
		return Row{}, rberrors.Malformed("row declares len %d, expected %d", n, expectedLen)
	}
	want := Size(n)
	if len(buf) != want {
		return Row{}, rberrors.Malformed("row frame is %d bytes, expected %d", len(buf), want)
	}
	cells := make([]cell.Cell, n)
	for i := range cells {
		off := HeaderSize + i*cell.Size
		cells[i] = cell.Cell(binary.LittleEndian.Uint32(buf[off : off+cell.Size]))
	}
	return Row{ID: id, Cells: cells}, nil
}

// ReadFrom reads exactly Size(expectedLen) bytes from r and decodes
// them as a Row, the way tnproto.ReadID reads a fixed-size header with
// io.ReadFull before validating it.
func ReadFrom(r io.Reader, expectedLen uint32) (Row, error) {
	buf := make([]byte, Size(expectedLen))
	if _, err := io.ReadFull(r, buf); err != nil {
		return Row{}, rberrors.Transport(err, "reading row frame")
	}
	return Deserialize(buf, expectedLen)
}
