package worker

import (
	"net"
	"testing"

	"github.com/scottgreenup/redblue/internal/redblue/cell"
	"github.com/scottgreenup/redblue/internal/redblue/message"
	"github.com/scottgreenup/redblue/internal/redblue/partition"
	"github.com/scottgreenup/redblue/internal/redblue/row"
	"github.com/scottgreenup/redblue/internal/redblue/wire"
)

func newRow(id uint32, n int, blueAt ...int) row.Row {
	cells := make([]cell.Cell, n)
	for i := range cells {
		cells[i] = cell.White
	}
	for _, c := range blueAt {
		cells[c] = cell.Blue
	}
	return row.Row{ID: id, Cells: cells}
}

// TestRunIterationTwoWorkers exercises spec scenario 6: P=3, N=4, T=2,
// partition [1,1,2,2]. Worker 1 owns rows 0-1 (group 0), worker 2 owns
// rows 2-3 (group 1). A blue cell in row 1 must cross into row 2
// (worker 1 -> worker 2), and a blue cell in row 3 must wrap into row
// 0 (worker 2 -> worker 1), in the same iteration.
func TestRunIterationTwoWorkers(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	net1 := message.NewNetwork(1, map[uint32]message.Conn{2: message.NewConn(a)})
	net2 := message.NewNetwork(2, map[uint32]message.Conn{1: message.NewConn(b)})

	w1 := New(1, net1, 4, 2, 25, 10, 2, nil)
	w1.rows = []row.Row{newRow(0, 4), newRow(1, 4, 0)}
	w1.byID = map[uint32]int{0: 0, 1: 1}
	w1.groups = []int{0}
	w1.r = 2
	w1.groupStart = map[int]int{0: 0}

	w2 := New(2, net2, 4, 2, 25, 10, 2, nil)
	w2.rows = []row.Row{newRow(2, 4), newRow(3, 4, 0)}
	w2.byID = map[uint32]int{2: 0, 3: 1}
	w2.groups = []int{1}
	w2.r = 2
	w2.groupStart = map[int]int{1: 0}

	type result struct {
		report wire.Report
		err    error
	}
	r1c := make(chan result, 1)
	r2c := make(chan result, 1)
	go func() { rep, err := w1.runIteration(0); r1c <- result{rep, err} }()
	go func() { rep, err := w2.runIteration(0); r2c <- result{rep, err} }()

	r1 := <-r1c
	r2 := <-r2c
	if r1.err != nil {
		t.Fatal(r1.err)
	}
	if r2.err != nil {
		t.Fatal(r2.err)
	}

	// Blue at row1 col0 moved down into row2; blue at row3 col0
	// wrapped into row0.
	if w1.rows[0].Cells[0] != cell.Blue {
		t.Fatalf("row0 col0 = %v, want Blue (wrapped from row3)", w1.rows[0].Cells[0])
	}
	if w1.rows[1].Cells[0] != cell.White {
		t.Fatalf("row1 col0 = %v, want White (moved into row2)", w1.rows[1].Cells[0])
	}
	if w2.rows[0].Cells[0] != cell.Blue {
		t.Fatalf("row2 col0 = %v, want Blue (arrived from row1)", w2.rows[0].Cells[0])
	}
	if w2.rows[1].Cells[0] != cell.White {
		t.Fatalf("row3 col0 = %v, want White (wrapped into row0)", w2.rows[1].Cells[0])
	}

	// Each worker's 2x2 tile now has exactly 1 of 4 cells Blue = 25%,
	// crossing the configured threshold; both report finished.
	if !r1.report.Finished || r1.report.Color != cell.Blue || r1.report.TileCol != 0 || r1.report.TileRow != 0 {
		t.Fatalf("unexpected report from worker 1: %+v", r1.report)
	}
	if !r2.report.Finished || r2.report.Color != cell.Blue || r2.report.TileCol != 0 || r2.report.TileRow != 1 {
		t.Fatalf("unexpected report from worker 2: %+v", r2.report)
	}
}

// TestRunIterationSelfLoop exercises the P=2 (single worker) case:
// every tile-row group's predecessor and successor group is owned by
// this same rank, so the boundary exchange never touches the network
// at all, only the self-addressed inbox.
func TestRunIterationSelfLoop(t *testing.T) {
	net1 := message.NewNetwork(1, map[uint32]message.Conn{})
	w := New(1, net1, 4, 2, 25, 10, 1, nil)
	w.rows = []row.Row{
		newRow(0, 4),
		newRow(1, 4, 0),
		newRow(2, 4),
		newRow(3, 4, 0),
	}
	w.byID = map[uint32]int{0: 0, 1: 1, 2: 2, 3: 3}
	w.groups = []int{0, 1}
	w.r = 2
	w.groupStart = map[int]int{0: 0, 1: 2}

	report, err := w.runIteration(0)
	if err != nil {
		t.Fatal(err)
	}

	if w.rows[0].Cells[0] != cell.Blue {
		t.Fatalf("row0 col0 = %v, want Blue (wrapped from row3)", w.rows[0].Cells[0])
	}
	if w.rows[1].Cells[0] != cell.White {
		t.Fatalf("row1 col0 = %v, want White (moved into row2)", w.rows[1].Cells[0])
	}
	if w.rows[2].Cells[0] != cell.Blue {
		t.Fatalf("row2 col0 = %v, want Blue (arrived from row1)", w.rows[2].Cells[0])
	}
	if w.rows[3].Cells[0] != cell.White {
		t.Fatalf("row3 col0 = %v, want White (wrapped into row0)", w.rows[3].Cells[0])
	}
	if !report.Finished || report.Color != cell.Blue || report.TileCol != 0 || report.TileRow != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestReceiveOwnedRowsEnforcesAscendingOrder(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	coord := message.NewConn(a)
	other := message.NewConn(b)

	w := New(1, nil, 4, 2, 25, 10, 1, nil)

	go func() {
		other.Send(wire.EncodeRowAssignment(1, []cell.Cell{cell.White, cell.White, cell.White, cell.White}))
		other.Send(wire.EncodeRowAssignment(0, []cell.Cell{cell.White, cell.White, cell.White, cell.White}))
	}()

	if _, err := w.receiveOwnedRows(coord, []uint32{1, 0}); err == nil {
		t.Fatal("expected InternalError for out-of-order rows, got nil")
	}
}

func TestReceiveOwnedRowsAccepted(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	coord := message.NewConn(a)
	other := message.NewConn(b)

	w := New(1, nil, 4, 2, 25, 10, 1, nil)

	go func() {
		other.Send(wire.EncodeRowAssignment(0, []cell.Cell{cell.Red, cell.White, cell.White, cell.White}))
		other.Send(wire.EncodeRowAssignment(1, []cell.Cell{cell.White, cell.White, cell.White, cell.White}))
	}()

	rows, err := w.receiveOwnedRows(coord, []uint32{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].ID != 0 || rows[1].ID != 1 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestRunExitsSilentlyWhenIdle(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	coord := message.NewConn(a)
	net1 := message.NewNetwork(1, map[uint32]message.Conn{0: coord})

	w := New(1, net1, 4, 2, 25, 10, 2, nil)

	other := message.NewConn(b)
	owner := []uint32{2, 2, 2, 2}
	go func() {
		other.Send(wire.EncodePartition(owner))
		other.Send(make([]byte, 16))
	}()

	if err := w.Run(0); err != nil {
		t.Fatalf("expected idle worker to exit cleanly, got %v", err)
	}
}

func TestPartitionRowsAndGroupsAgree(t *testing.T) {
	part, err := partition.Build(4, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := part.Rows(1); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("unexpected rows for rank 1: %v", got)
	}
	if got := part.Groups(1, 2); len(got) != 1 || got[0] != 0 {
		t.Fatalf("unexpected groups for rank 1: %v", got)
	}
}
