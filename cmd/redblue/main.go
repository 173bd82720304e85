// Package main is the redblue driver: it selects the coordinator or
// worker role by rank and runs it to completion, the way
// cmd/snellerd/main.go dispatches "daemon" vs. "worker" off
// os.Args[0] before handing control to a run* function.
package main

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/cpu"

	"github.com/scottgreenup/redblue/internal/redblue/config"
	"github.com/scottgreenup/redblue/internal/redblue/coordinator"
	"github.com/scottgreenup/redblue/internal/redblue/grid"
	"github.com/scottgreenup/redblue/internal/redblue/message"
	"github.com/scottgreenup/redblue/internal/redblue/rberrors"
	"github.com/scottgreenup/redblue/internal/redblue/worker"
)

const dialTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error %d: %s\n", rberrors.ExitCode(err), err)
		os.Exit(rberrors.ExitCode(err))
	}
}

func run(args []string) error {
	cfg, rank, peers, err := parseArgs(args)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", log.Lshortfile)
	if cfg.Verbose {
		logger.Printf("rank %d: cpu features x86.avx2=%v arm64.asimd=%v", rank, cpu.X86.HasAVX2, cpu.ARM64.HasASIMD)
	}

	workers := len(peers) - 1
	ln, err := net.Listen("tcp", peers[rank])
	if err != nil {
		return rberrors.Transport(err, "listening on %s", peers[rank])
	}
	defer ln.Close()

	net0, err := message.DialAll(uint32(rank), peers, ln, dialTimeout)
	if err != nil {
		return err
	}
	defer net0.Close()

	if rank == 0 {
		c := coordinator.New(net0, cfg.GridSize, cfg.TileSize, cfg.Threshold, cfg.MaxIters, workers, cfg.Seed, logger)
		c.Print = cfg.Print
		c.Out = os.Stdout
		res, err := c.Run()
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	}

	w := worker.New(uint32(rank), net0, cfg.GridSize, cfg.TileSize, cfg.Threshold, cfg.MaxIters, workers, logger)
	w.Verbose = cfg.Verbose
	return w.Run(0)
}

// parseArgs splits the simulation config (handed to config.Parse)
// from the two driver-only flags needed to bootstrap the rank mesh:
// --rank and --peers, a comma-separated list of dial addresses
// indexed by rank (peers[rank] is this process's own listen address).
func parseArgs(args []string) (config.Config, int, []string, error) {
	var rank int
	var peersArg string
	var rest []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--rank" && i+1 < len(args):
			if _, err := fmt.Sscanf(args[i+1], "%d", &rank); err != nil {
				return config.Config{}, 0, nil, rberrors.Config("parsing --rank %q: %v", args[i+1], err)
			}
			i++
		case args[i] == "--peers" && i+1 < len(args):
			peersArg = args[i+1]
			i++
		default:
			rest = append(rest, args[i])
		}
	}

	if peersArg == "" {
		return config.Config{}, 0, nil, rberrors.Config("--peers is required: comma-separated dial address per rank")
	}
	peers := strings.Split(peersArg, ",")
	if rank < 0 || rank >= len(peers) {
		return config.Config{}, 0, nil, rberrors.Config("--rank %d out of range for %d peers", rank, len(peers))
	}
	if len(peers) < 2 {
		return config.Config{}, 0, nil, rberrors.Config("need at least 2 processes (1 coordinator + >=1 worker), got %d peers", len(peers))
	}

	cfg, err := config.Parse("redblue", rest)
	if err != nil {
		return config.Config{}, 0, nil, err
	}
	return cfg, rank, peers, nil
}

// printResult prints the user-visible outcome lines to stderr,
// followed by the serial reference's independently-computed final
// tile line.
func printResult(res coordinator.Result) {
	printTileLine(os.Stderr, res.Finished, res.Tile)
	printTileLine(os.Stderr, res.SerialFinished, res.SerialTile)
	if !res.Agrees {
		fmt.Fprintf(os.Stderr, "warning: distributed result disagrees with serial reference (run %s)\n", res.RunID)
	}
}

func printTileLine(w io.Writer, finished bool, tile grid.Tile) {
	if finished {
		fmt.Fprintf(w, "Tile (c=%d, r=%d) has %.0f%% %s\n", tile.Col, tile.Row, tile.Ratio*100, tile.Color)
	} else {
		fmt.Fprintln(w, "MPI: Hit maximum iterations")
	}
}
