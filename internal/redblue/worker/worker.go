// Package worker implements the per-rank distributed engine: receive
// a partition and an owned row set from the coordinator, then
// repeatedly apply the red phase locally, exchange tile-row
// boundary rows with neighboring workers to preserve the whole-grid
// read-before-write semantics of blue movement, run the local
// termination check, and wait on the coordinator's decision.
//
// Grounded on cmd/snellerd's worker role loop for the overall
// receive/process/report shape, and on tnproto/remote.go's pattern of
// a fixed per-peer connection used for a sequence of framed messages.
package worker

import (
	"bytes"
	"log"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"

	"github.com/scottgreenup/redblue/internal/redblue/cell"
	"github.com/scottgreenup/redblue/internal/redblue/grid"
	"github.com/scottgreenup/redblue/internal/redblue/message"
	"github.com/scottgreenup/redblue/internal/redblue/partition"
	"github.com/scottgreenup/redblue/internal/redblue/rberrors"
	"github.com/scottgreenup/redblue/internal/redblue/row"
	"github.com/scottgreenup/redblue/internal/redblue/wire"
)

// Worker is one rank's view of the distributed run: its own rows, the
// tile-row groups it owns, and the network used to reach every other
// rank including the coordinator.
type Worker struct {
	Rank      uint32
	Net       *message.Network
	N         int
	TileSize  int
	Threshold int
	MaxIters  int
	Workers   int // P - 1
	Log       *log.Logger
	Verbose   bool

	part       partition.Partition
	coord      message.Conn
	rows       []row.Row
	byID       map[uint32]int
	groups     []int
	r          int // R = N / TileSize
	groupStart map[int]int
}

// New builds a Worker ready to Run. workers is P-1, the total count of
// worker ranks (ranks 1..P-1); the coordinator is always rank 0.
func New(rank uint32, net *message.Network, n, tileSize, thresholdPct, maxIters, workers int, logger *log.Logger) *Worker {
	return &Worker{
		Rank:      rank,
		Net:       net,
		N:         n,
		TileSize:  tileSize,
		Threshold: thresholdPct,
		MaxIters:  maxIters,
		Workers:   workers,
		Log:       logger,
	}
}

// ReceivePartition blocks on conn for the coordinator's Partition
// message (N little-endian u32s) and decodes it.
func ReceivePartition(conn message.Conn, n int) (partition.Partition, error) {
	buf, err := conn.Recv(4 * n)
	if err != nil {
		return partition.Partition{}, err
	}
	owner, err := wire.DecodePartition(buf, n)
	if err != nil {
		return partition.Partition{}, err
	}
	return partition.Partition{Owner: owner}, nil
}

// Run drives the worker's full lifecycle against the coordinator at
// coordinatorRank: receive the partition, exit silently if this rank
// owns no rows, otherwise receive its row set and iterate until
// MaxIters or a global termination decision.
func (w *Worker) Run(coordinatorRank uint32) error {
	coord, err := w.Net.Peer(coordinatorRank)
	if err != nil {
		return err
	}
	w.coord = coord

	part, err := ReceivePartition(coord, w.N)
	if err != nil {
		return err
	}
	w.part = part

	runID, err := receiveRunID(coord)
	if err != nil {
		return err
	}
	if w.Log != nil {
		w.Log.Printf("rank %d: joined run %s", w.Rank, runID)
	}

	ids := part.Rows(w.Rank)
	if len(ids) == 0 {
		if w.Log != nil {
			w.Log.Printf("rank %d: owns no rows, exiting", w.Rank)
		}
		return nil
	}

	rows, err := w.receiveOwnedRows(coord, ids)
	if err != nil {
		return err
	}
	w.rows = rows
	w.byID = make(map[uint32]int, len(rows))
	for i, rr := range rows {
		w.byID[rr.ID] = i
	}

	w.groups = part.Groups(w.Rank, w.TileSize)
	w.r = w.N / w.TileSize
	w.groupStart = make(map[int]int, len(w.groups))
	for _, g := range w.groups {
		w.groupStart[g] = w.byID[uint32(g*w.TileSize)]
	}

	for i := 0; i < w.MaxIters; i++ {
		report, err := w.runIteration(i)
		if err != nil {
			return err
		}
		if err := coord.Send(wire.EncodeReport(report)); err != nil {
			return err
		}
		buf, err := coord.Recv(wire.DecisionSize)
		if err != nil {
			return err
		}
		terminate, err := wire.DecodeDecision(buf)
		if err != nil {
			return err
		}
		if terminate {
			return nil
		}
	}
	return nil
}

// receiveRunID reads the 16 raw bytes immediately following the
// Partition message: the coordinator's run correlation UUID. Purely
// diagnostic; no termination or movement decision depends on it.
func receiveRunID(coord message.Conn) (uuid.UUID, error) {
	buf, err := coord.Recv(16)
	if err != nil {
		return uuid.UUID{}, err
	}
	var id uuid.UUID
	copy(id[:], buf)
	return id, nil
}

// receiveOwnedRows reads one RowAssignment per id in ids, in the
// order the coordinator is required to send them (ascending). It is
// an InternalError if an arriving id breaks strict ascending order or
// disagrees with the expected id.
func (w *Worker) receiveOwnedRows(coord message.Conn, ids []uint32) ([]row.Row, error) {
	rows := make([]row.Row, 0, len(ids))
	var last uint32
	for i, want := range ids {
		buf, err := coord.Recv(wire.RowAssignmentSize(w.N))
		if err != nil {
			return nil, err
		}
		id, cells, err := wire.DecodeRowAssignment(buf, w.N)
		if err != nil {
			return nil, err
		}
		if i > 0 && id <= last {
			return nil, rberrors.Internal("owned rows arrived out of order: row %d after row %d", id, last)
		}
		if id != want {
			return nil, rberrors.Internal("expected row %d from coordinator, got row %d", want, id)
		}
		rows = append(rows, row.Row{ID: id, Cells: cells})
		last = id
	}
	return rows, nil
}

func (w *Worker) predGroup(g int) int { return (g - 1 + w.r) % w.r }
func (w *Worker) succGroup(g int) int { return (g + 1) % w.r }

// selfInbox holds boundary messages this rank addressed to itself,
// the only case Network has no connection for. That happens whenever a
// group's predecessor or successor group has the same owner, e.g. for
// every group in the single-worker case.
type selfInbox struct {
	phase1 map[int]row.Row
	phase2 map[int]row.Row
}

// runIteration applies one full iteration (red phase, two-phase blue
// boundary exchange, local termination check) to the owned rows and
// returns the local termination report.
func (w *Worker) runIteration(iterNum int) (wire.Report, error) {
	// (a) red phase, local only.
	for i := range w.rows {
		grid.StepRedRow(w.rows[i].Cells)
	}

	inbox := &selfInbox{phase1: make(map[int]row.Row), phase2: make(map[int]row.Row)}
	var handles []message.Handle

	// (c) phase 1 send: top row of each owned group -> owner of its
	// predecessor row.
	for _, g := range w.groups {
		topID := uint32(g * w.TileSize)
		topRow := w.rows[w.byID[topID]]
		dest := partition.OwnerOfGroup(w.predGroup(g), w.Workers)
		if dest == w.Rank {
			inbox.phase1[w.predGroup(g)] = row.Copy(topRow)
			continue
		}
		conn, err := w.Net.Peer(dest)
		if err != nil {
			return wire.Report{}, err
		}
		h, err := conn.SendAsync(row.Serialize(topRow))
		if err != nil {
			return wire.Report{}, err
		}
		handles = append(handles, h)
	}

	// (d) phase 1 receive: downstream top row from owner(succGroup).
	// response[g] starts as an all-White row (rather than a literal
	// copy of incoming): only genuinely new blue placements belong in
	// it, since the merge step on the far end only ever sets cells
	// Blue and never clears them, so echoing incoming's own content
	// back would re-assert a cell the far end may have already,
	// correctly, moved on from locally.
	incoming := make(map[int]row.Row, len(w.groups))
	response := make(map[int]row.Row, len(w.groups))
	for _, g := range w.groups {
		src := partition.OwnerOfGroup(w.succGroup(g), w.Workers)
		var in row.Row
		if src == w.Rank {
			in = inbox.phase1[g]
		} else {
			conn, err := w.Net.Peer(src)
			if err != nil {
				return wire.Report{}, err
			}
			buf, err := conn.Recv(row.Size(uint32(w.N)))
			if err != nil {
				return wire.Report{}, err
			}
			r, err := row.Deserialize(buf, uint32(w.N))
			if err != nil {
				return wire.Report{}, err
			}
			in = r
		}
		// One peer's rows arrive in its own send order, which can differ
		// from this loop's order across the wrap-around, so each row is
		// filed under the group whose downstream top row it is.
		dg := w.predGroup(int(in.ID) / w.TileSize)
		incoming[dg] = in
		response[dg] = row.Row{ID: in.ID, Cells: make([]cell.Cell, w.N)}
		for c := range response[dg].Cells {
			response[dg].Cells[c] = cell.White
		}
	}

	// (e) snapshot: the red-phase result is the blue source-of-truth.
	before := make(map[uint32]row.Row, len(w.rows))
	for _, r := range w.rows {
		before[r.ID] = row.Copy(r)
	}

	// (f) blue move.
	for i := range w.rows {
		rid := w.rows[i].ID
		snap := before[rid]
		downID := (rid + 1) % uint32(w.N)
		localIdx, isLocal := w.byID[downID]

		var nextBefore []cell.Cell
		group := int(rid) / w.TileSize
		if isLocal {
			nextBefore = before[downID].Cells
		} else {
			nextBefore = incoming[group].Cells
		}

		for c := 0; c < w.N; c++ {
			if snap.Cells[c] == cell.Blue && nextBefore[c] == cell.White {
				w.rows[i].Cells[c] = cell.White
				if isLocal {
					w.rows[localIdx].Cells[c] = cell.Blue
				} else {
					response[group].Cells[c] = cell.Blue
				}
			}
		}
	}

	// (g) phase 2 send: response buffers back to owner(succGroup).
	for _, g := range w.groups {
		dest := partition.OwnerOfGroup(w.succGroup(g), w.Workers)
		resp := response[g]
		if dest == w.Rank {
			inbox.phase2[w.succGroup(g)] = resp
			continue
		}
		conn, err := w.Net.Peer(dest)
		if err != nil {
			return wire.Report{}, err
		}
		h, err := conn.SendAsync(row.Serialize(resp))
		if err != nil {
			return wire.Report{}, err
		}
		handles = append(handles, h)
	}

	// (h) phase 2 receive: merge upstream blues into our top rows.
	for _, g := range w.groups {
		src := partition.OwnerOfGroup(w.predGroup(g), w.Workers)
		var recv row.Row
		if src == w.Rank {
			recv = inbox.phase2[g]
		} else {
			conn, err := w.Net.Peer(src)
			if err != nil {
				return wire.Report{}, err
			}
			buf, err := conn.Recv(row.Size(uint32(w.N)))
			if err != nil {
				return wire.Report{}, err
			}
			r, err := row.Deserialize(buf, uint32(w.N))
			if err != nil {
				return wire.Report{}, err
			}
			recv = r
		}
		// The response names the top row it targets; use that id rather
		// than g, for the same arrival-order reason as in (d).
		topIdx, ok := w.byID[recv.ID]
		if !ok {
			return wire.Report{}, rberrors.Internal("boundary response for row %d, which this rank does not own", recv.ID)
		}
		for c, cl := range recv.Cells {
			if cl == cell.Blue {
				w.rows[topIdx].Cells[c] = cell.Blue
			}
		}
	}

	// (i) complete outstanding sends.
	for _, h := range handles {
		if err := h.Wait(); err != nil {
			return wire.Report{}, err
		}
	}

	w.dumpSnapshot(iterNum)

	// (j) local termination check.
	return w.checkTermination(), nil
}

// checkTermination scans owned tile-row groups ascending, each with
// grid.CheckTileRow's row-major cell scan, returning the first crossing
// found.
func (w *Worker) checkTermination() wire.Report {
	for _, g := range w.groups {
		start := w.groupStart[g]
		rows := w.rows[start : start+w.TileSize]
		if tile, ok := grid.CheckTileRow(rows, g, w.TileSize, w.Threshold); ok {
			return wire.Report{
				Finished: true,
				TileCol:  uint32(tile.Col),
				TileRow:  uint32(tile.Row),
				Color:    tile.Color,
				Ratio:    tile.Ratio,
			}
		}
	}
	return wire.Report{Finished: false}
}

// dumpSnapshot flate-compresses the worker's current owned rows and
// logs the size reduction, when verbose logging is on. Purely
// diagnostic: never read back by the protocol.
func (w *Worker) dumpSnapshot(iterNum int) {
	if !w.Verbose || w.Log == nil {
		return
	}
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return
	}
	for _, r := range w.rows {
		zw.Write(row.Serialize(r))
	}
	zw.Close()
	raw := len(w.rows) * row.Size(uint32(w.N))
	w.Log.Printf("rank %d iter %d: snapshot %d bytes -> %d compressed", w.Rank, iterNum, raw, buf.Len())
}
