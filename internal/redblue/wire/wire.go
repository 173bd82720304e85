// Package wire implements the fixed-layout encode/decode helpers for
// every message type besides RowFrame (which lives in package row):
// Partition, RowAssignment, Report and Decision. Each has a single
// canonical packing used on both ends rather than relying on
// source-language struct padding, following the encoding/binary +
// explicit offset idiom of tenant/tnproto/reader.go.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/scottgreenup/redblue/internal/redblue/cell"
	"github.com/scottgreenup/redblue/internal/redblue/rberrors"
)

// EncodePartition encodes the owner vector as N little-endian u32s.
func EncodePartition(owner []uint32) []byte {
	buf := make([]byte, 4*len(owner))
	for i, o := range owner {
		binary.LittleEndian.PutUint32(buf[i*4:], o)
	}
	return buf
}

// DecodePartition decodes a Partition message of exactly n rows.
func DecodePartition(buf []byte, n int) ([]uint32, error) {
	if len(buf) != 4*n {
		return nil, rberrors.Malformed("partition message is %d bytes, expected %d", len(buf), 4*n)
	}
	owner := make([]uint32, n)
	for i := range owner {
		owner[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return owner, nil
}

// RowAssignmentSize returns the wire size of a RowAssignment message
// for a grid of size n: one u32 row id followed by n u32 cells.
func RowAssignmentSize(n int) int {
	return 4 + 4*n
}

// EncodeRowAssignment encodes (id, cells) in the wire layout above.
func EncodeRowAssignment(id uint32, cells []cell.Cell) []byte {
	buf := make([]byte, RowAssignmentSize(len(cells)))
	binary.LittleEndian.PutUint32(buf[0:4], id)
	for i, c := range cells {
		off := 4 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(c))
	}
	return buf
}

// DecodeRowAssignment decodes a RowAssignment message for a grid of
// size n.
func DecodeRowAssignment(buf []byte, n int) (id uint32, cells []cell.Cell, err error) {
	want := RowAssignmentSize(n)
	if len(buf) != want {
		return 0, nil, rberrors.Malformed("row assignment is %d bytes, expected %d", len(buf), want)
	}
	id = binary.LittleEndian.Uint32(buf[0:4])
	cells = make([]cell.Cell, n)
	for i := range cells {
		off := 4 + i*4
		cells[i] = cell.Cell(binary.LittleEndian.Uint32(buf[off : off+4]))
	}
	return id, cells, nil
}

// ReportSize is the fixed wire size of a Report message: 1 byte
// finished (with 3 bytes of zero padding to keep the following u32s
// 4-byte aligned), u32 tile_col, u32 tile_row, u32 color, 8-byte
// IEEE-754 double ratio.
const ReportSize = 1 + 3 + 4 + 4 + 4 + 8

// Report is the worker -> coordinator termination-candidacy message.
type Report struct {
	Finished bool
	TileCol  uint32
	TileRow  uint32
	Color    cell.Cell
	Ratio    float64
}

// EncodeReport packs r into ReportSize bytes using the single
// canonical layout both ends must agree on.
func EncodeReport(r Report) []byte {
	buf := make([]byte, ReportSize)
	if r.Finished {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[4:8], r.TileCol)
	binary.LittleEndian.PutUint32(buf[8:12], r.TileRow)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(r.Color))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(r.Ratio))
	return buf
}

// DecodeReport is the reciprocal of EncodeReport.
func DecodeReport(buf []byte) (Report, error) {
	if len(buf) != ReportSize {
		return Report{}, rberrors.Malformed("report is %d bytes, expected %d", len(buf), ReportSize)
	}
	return Report{
		Finished: buf[0] != 0,
		TileCol:  binary.LittleEndian.Uint32(buf[4:8]),
		TileRow:  binary.LittleEndian.Uint32(buf[8:12]),
		Color:    cell.Cell(binary.LittleEndian.Uint32(buf[12:16])),
		Ratio:    math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24])),
	}, nil
}

// DecisionSize is the fixed wire size of a Decision message.
const DecisionSize = 4

// EncodeDecision encodes the global termination decision as a u32:
// nonzero means terminate.
func EncodeDecision(terminate bool) []byte {
	buf := make([]byte, DecisionSize)
	if terminate {
		binary.LittleEndian.PutUint32(buf, 1)
	}
	return buf
}

// DecodeDecision is the reciprocal of EncodeDecision.
func DecodeDecision(buf []byte) (bool, error) {
	if len(buf) != DecisionSize {
		return false, rberrors.Malformed("decision is %d bytes, expected %d", len(buf), DecisionSize)
	}
	return binary.LittleEndian.Uint32(buf) != 0, nil
}
