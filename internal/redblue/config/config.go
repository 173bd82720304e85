// Package config parses the simulation's command line the way
// cmd/snellerd/run_worker.go and run_daemon.go parse theirs: stdlib
// flag.FlagSet, one destination variable per logical setting with
// both a short and a long flag name registered against it. It also
// supports an optional --config YAML file (sigs.k8s.io/yaml) whose
// fields are overridden by any flag the user actually set on the
// command line.
package config

import (
	"flag"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/scottgreenup/redblue/internal/redblue/rberrors"
)

// Config is the simulation configuration: grid size N, tile size T,
// threshold percent C, max iterations M, plus the optional ambient
// settings (verbose logging, grid printing, PRNG seed) layered on top.
type Config struct {
	GridSize  int    `json:"gridsize"`
	TileSize  int    `json:"tilesize"`
	Threshold int    `json:"threshold"`
	MaxIters  int    `json:"max_iters"`
	Verbose   bool   `json:"verbose"`
	Print     bool   `json:"print"`
	Seed      string `json:"seed"`
}

// TileRows returns R = N/T, derived once and never reassigned (Open
// Question #1 in DESIGN.md: -t is always the side length of a tile in
// cells, never the number of tiles per row).
func (c Config) TileRows() int {
	return c.GridSize / c.TileSize
}

// Validate checks that the grid, tile and threshold settings describe
// a runnable simulation.
func (c Config) Validate() error {
	if c.GridSize <= 0 {
		return rberrors.Config("gridsize must be > 0, got %d", c.GridSize)
	}
	if c.TileSize <= 0 || c.GridSize%c.TileSize != 0 {
		return rberrors.Config("tilesize %d must divide gridsize %d", c.TileSize, c.GridSize)
	}
	if c.Threshold < 1 || c.Threshold > 100 {
		return rberrors.Config("threshold must be in 1..=100, got %d", c.Threshold)
	}
	if c.MaxIters <= 0 {
		return rberrors.Config("max_iters must be > 0, got %d", c.MaxIters)
	}
	return nil
}

// Parse parses args (excluding the program name) into a Config. If
// --config names a YAML file, it is loaded first and then overridden
// field-by-field by any flag the caller explicitly passed.
func Parse(name string, args []string) (Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	var cfg Config
	var configPath string

	fs.IntVar(&cfg.GridSize, "n", 0, "size of the grid")
	fs.IntVar(&cfg.GridSize, "gridsize", 0, "size of the grid")
	fs.IntVar(&cfg.TileSize, "t", 0, "side length of one tile, in cells")
	fs.IntVar(&cfg.TileSize, "tilesize", 0, "side length of one tile, in cells")
	fs.IntVar(&cfg.Threshold, "c", 0, "termination threshold percent, 1..=100")
	fs.IntVar(&cfg.Threshold, "threshold", 0, "termination threshold percent, 1..=100")
	fs.IntVar(&cfg.MaxIters, "m", 0, "maximum number of iterations")
	fs.IntVar(&cfg.MaxIters, "max_iters", 0, "maximum number of iterations")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose logging")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "verbose logging")
	fs.BoolVar(&cfg.Print, "p", false, "print the grid after every iteration")
	fs.BoolVar(&cfg.Print, "print", false, "print the grid after every iteration")
	fs.StringVar(&cfg.Seed, "seed", "", "reproducible PRNG seed string")
	fs.StringVar(&configPath, "config", "", "optional YAML config file merged under the flags above")

	if err := fs.Parse(args); err != nil {
		return Config{}, rberrors.Config("parsing arguments: %v", err)
	}

	if configPath != "" {
		merged, err := loadAndMerge(configPath, cfg, fs)
		if err != nil {
			return Config{}, err
		}
		cfg = merged
	}

	return cfg, cfg.Validate()
}

// loadAndMerge reads the YAML file at path and returns a Config where
// every field the user did NOT set on the command line is taken from
// the file, and every field they DID set (per fs.Visit) is kept as-is.
func loadAndMerge(path string, cli Config, fs *flag.FlagSet) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, rberrors.Config("reading config file %s: %v", path, err)
	}
	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Config{}, rberrors.Config("parsing config file %s: %v", path, err)
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	out := fromFile
	if set["n"] || set["gridsize"] {
		out.GridSize = cli.GridSize
	}
	if set["t"] || set["tilesize"] {
		out.TileSize = cli.TileSize
	}
	if set["c"] || set["threshold"] {
		out.Threshold = cli.Threshold
	}
	if set["m"] || set["max_iters"] {
		out.MaxIters = cli.MaxIters
	}
	if set["v"] || set["verbose"] {
		out.Verbose = cli.Verbose
	}
	if set["p"] || set["print"] {
		out.Print = cli.Print
	}
	if set["seed"] {
		out.Seed = cli.Seed
	}
	return out, nil
}
