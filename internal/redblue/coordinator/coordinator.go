// Package coordinator implements the rank-0 role: distribute the
// partition and initial rows, collect one termination report per
// active worker each iteration, decide and broadcast the global
// decision, and finally validate the run against the serial
// reference.
//
// Grounded on cmd/snellerd/run_daemon.go's role-setup shape and on
// splitter.go's fan-out-to-peers loop, generalized from "one send per
// query split" to "one send per owned row".
package coordinator

import (
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/scottgreenup/redblue/internal/redblue/grid"
	"github.com/scottgreenup/redblue/internal/redblue/gridgen"
	"github.com/scottgreenup/redblue/internal/redblue/message"
	"github.com/scottgreenup/redblue/internal/redblue/partition"
	"github.com/scottgreenup/redblue/internal/redblue/render"
	"github.com/scottgreenup/redblue/internal/redblue/serial"
	"github.com/scottgreenup/redblue/internal/redblue/wire"
)

// Coordinator is rank 0's view of a run: the network to every worker,
// and the configuration every worker was also given independently.
type Coordinator struct {
	Net       *message.Network
	N         int
	TileSize  int
	Threshold int
	MaxIters  int
	Workers   int // P - 1
	Seed      string
	Log       *log.Logger

	// Print, when set, makes Run render a reference copy of the grid
	// (stepped in lockstep with the distributed run) to Out after every
	// iteration, per original_source/main.c's print-every-iteration
	// behavior. Only the coordinator holds a full grid view, so this is
	// reference-grid observation, not a readout of the workers' actual
	// distributed state.
	Print bool
	Out   io.Writer
}

// New builds a Coordinator ready to Run.
func New(net *message.Network, n, tileSize, thresholdPct, maxIters, workers int, seed string, logger *log.Logger) *Coordinator {
	return &Coordinator{
		Net:       net,
		N:         n,
		TileSize:  tileSize,
		Threshold: thresholdPct,
		MaxIters:  maxIters,
		Workers:   workers,
		Seed:      seed,
		Log:       logger,
	}
}

// Result is the user-observable outcome of a run: the winning tile (if
// any), how many iterations actually ran, and whether the serial
// reference agreed with the distributed run's final tile decision.
type Result struct {
	RunID          string
	Iterations     int
	Finished       bool
	Tile           grid.Tile
	SerialFinished bool
	SerialTile     grid.Tile
	Agrees         bool
}

// Run builds the partition and initial grid, distributes both, then
// drives the per-iteration collect/decide/broadcast loop until
// termination or MaxIters, and finally checks the result against the
// serial reference run on the saved initial grid.
func (c *Coordinator) Run() (Result, error) {
	id := uuid.New()
	runID := id.String()
	c.logf(runID, "starting run: n=%d t=%d threshold=%d%% max_iters=%d workers=%d", c.N, c.TileSize, c.Threshold, c.MaxIters, c.Workers)

	p := c.Workers + 1
	part, err := partition.Build(c.N, c.TileSize, p)
	if err != nil {
		return Result{}, err
	}

	if err := c.sendPartition(part, id); err != nil {
		return Result{}, err
	}

	seedInput := c.Seed
	if seedInput == "" {
		seedInput = string(id[:])
	}
	seed := gridgen.Seed(seedInput)
	initial := gridgen.InitRandom(c.N, seed)
	savedInitial := grid.Clone(initial)

	if err := c.sendRows(part, initial); err != nil {
		return Result{}, err
	}

	active := activeRanks(part, c.Workers)
	c.logf(runID, "active workers: %v", active)

	var (
		iterations int
		finished   bool
		winner     grid.Tile
	)

	printGrid := grid.Clone(initial)
	for iterations = 1; iterations <= c.MaxIters; iterations++ {
		finished, winner, err = c.collectReports(active)
		if err != nil {
			return Result{}, err
		}
		if err := c.broadcastDecision(active, finished); err != nil {
			return Result{}, err
		}
		if c.Print && c.Out != nil {
			grid.StepRed(&printGrid)
			grid.StepBlue(&printGrid)
			if err := render.Print(c.Out, printGrid, c.TileSize); err != nil {
				return Result{}, err
			}
		}
		if finished {
			break
		}
	}
	if iterations > c.MaxIters {
		iterations = c.MaxIters
	}

	serialResult := serial.Run(savedInitial, c.TileSize, c.Threshold, c.MaxIters)

	res := Result{
		RunID:          runID,
		Iterations:     iterations,
		Finished:       finished,
		Tile:           winner,
		SerialFinished: serialResult.Finished,
		SerialTile:     serialResult.Tile,
		Agrees:         finished == serialResult.Finished && (!finished || winner == serialResult.Tile),
	}
	if !res.Agrees {
		c.logf(runID, "discrepancy: distributed finished=%v tile=%+v, serial finished=%v tile=%+v", finished, winner, serialResult.Finished, serialResult.Tile)
	}
	return res, nil
}

// sendPartition sends the Partition message to every worker rank,
// followed immediately by the 16 raw bytes of this run's correlation
// UUID, for logging only. No worker decision depends on its value.
func (c *Coordinator) sendPartition(part partition.Partition, runID uuid.UUID) error {
	buf := wire.EncodePartition(part.Owner)
	for rank := 1; rank <= c.Workers; rank++ {
		conn, err := c.Net.Peer(uint32(rank))
		if err != nil {
			return err
		}
		if err := conn.Send(buf); err != nil {
			return err
		}
		if err := conn.Send(runID[:]); err != nil {
			return err
		}
	}
	return nil
}

// sendRows sends every row to its owner, in ascending id order.
func (c *Coordinator) sendRows(part partition.Partition, initial grid.Grid) error {
	for id := 0; id < c.N; id++ {
		owner := part.Owner[id]
		conn, err := c.Net.Peer(owner)
		if err != nil {
			return err
		}
		buf := wire.EncodeRowAssignment(uint32(id), initial.Rows[id].Cells)
		if err := conn.Send(buf); err != nil {
			return err
		}
	}
	return nil
}

// activeRanks returns the sorted set of worker ranks that own at
// least one row, the only ranks a coordinator may wait on or
// broadcast a decision to (idle workers exit right after the
// partition and never speak again).
func activeRanks(part partition.Partition, workers int) []uint32 {
	seen := make(map[uint32]bool)
	for _, owner := range part.Owner {
		seen[owner] = true
	}
	var active []uint32
	for rank := 1; rank <= workers; rank++ {
		if seen[uint32(rank)] {
			active = append(active, uint32(rank))
		}
	}
	return active
}

// collectReports receives one Report from each active rank, reading
// the ranks in ascending order, and records the first finished report
// read as the user-observable winning tile.
func (c *Coordinator) collectReports(active []uint32) (bool, grid.Tile, error) {
	var (
		finished bool
		winner   grid.Tile
	)
	for _, rank := range active {
		conn, err := c.Net.Peer(rank)
		if err != nil {
			return false, grid.Tile{}, err
		}
		buf, err := conn.Recv(wire.ReportSize)
		if err != nil {
			return false, grid.Tile{}, err
		}
		report, err := wire.DecodeReport(buf)
		if err != nil {
			return false, grid.Tile{}, err
		}
		if report.Finished && !finished {
			finished = true
			winner = grid.Tile{
				Col:   int(report.TileCol),
				Row:   int(report.TileRow),
				Color: report.Color,
				Ratio: report.Ratio,
			}
		}
	}
	return finished, winner, nil
}

func (c *Coordinator) broadcastDecision(active []uint32, terminate bool) error {
	buf := wire.EncodeDecision(terminate)
	for _, rank := range active {
		conn, err := c.Net.Peer(rank)
		if err != nil {
			return err
		}
		if err := conn.Send(buf); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) logf(runID, format string, args ...interface{}) {
	if c.Log == nil {
		return
	}
	c.Log.Printf("[%s] "+format, append([]interface{}{runID}, args...)...)
}
