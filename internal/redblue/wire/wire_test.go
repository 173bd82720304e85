package wire

import (
	"reflect"
	"testing"

	"github.com/scottgreenup/redblue/internal/redblue/cell"
)

func TestPartitionRoundTrip(t *testing.T) {
	owner := []uint32{1, 1, 2, 2}
	buf := EncodePartition(owner)
	if len(buf) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(buf))
	}
	got, err := DecodePartition(buf, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, owner) {
		t.Fatalf("got %v want %v", got, owner)
	}
}

func TestRowAssignmentRoundTrip(t *testing.T) {
	cells := []cell.Cell{cell.Red, cell.Blue, cell.White}
	buf := EncodeRowAssignment(5, cells)
	if len(buf) != RowAssignmentSize(3) {
		t.Fatalf("unexpected size %d", len(buf))
	}
	id, got, err := DecodeRowAssignment(buf, 3)
	if err != nil {
		t.Fatal(err)
	}
	if id != 5 || !reflect.DeepEqual(got, cells) {
		t.Fatalf("got id=%d cells=%v", id, got)
	}
}

func TestReportRoundTrip(t *testing.T) {
	r := Report{Finished: true, TileCol: 1, TileRow: 2, Color: cell.Blue, Ratio: 0.625}
	buf := EncodeReport(r)
	if len(buf) != ReportSize {
		t.Fatalf("unexpected size %d", len(buf))
	}
	got, err := DecodeReport(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != r {
		t.Fatalf("got %+v want %+v", got, r)
	}
}

func TestDecisionRoundTrip(t *testing.T) {
	for _, want := range []bool{true, false} {
		buf := EncodeDecision(want)
		got, err := DecodeDecision(buf)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestDecodeRejectsWrongSize(t *testing.T) {
	if _, err := DecodePartition([]byte{1, 2, 3}, 4); err == nil {
		t.Fatal("expected MalformedFrame error")
	}
	if _, err := DecodeDecision([]byte{1, 2}); err == nil {
		t.Fatal("expected MalformedFrame error")
	}
	if _, err := DecodeReport([]byte{1, 2}); err == nil {
		t.Fatal("expected MalformedFrame error")
	}
}
