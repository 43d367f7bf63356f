// cmd/symreg runs the symbolic regression engine against a CSV dataset
// and a JSON configuration file, grounded on the teacher's cmd/sentra
// entrypoint (flat os.Args-driven main, a version/build-date pair,
// log.Fatalf on unrecoverable setup errors).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"symreg/internal/config"
	"symreg/internal/csvdata"
	"symreg/internal/evo"
	"symreg/internal/evolog"
	"symreg/internal/rng"
	"symreg/internal/runstore"
	"symreg/internal/visual"
)

const version = "1.0.0"

// BuildDate can be overridden at build time with -ldflags.
var BuildDate = time.Now().Format("2006-01-02")

func main() {
	csvPath := flag.String("csv", "", "CSV dataset path (overrides config's defaultCSV)")
	configPath := flag.String("config", "", "JSON configuration file")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	debug := flag.Bool("debug", false, "dump the resolved parameters before running")
	visualAddr := flag.String("visual", "", "address to serve the visualization WebSocket on, e.g. :8089")
	runStoreType := flag.String("runstore-type", "", "run ledger backend: sqlite, postgres, mysql, sqlserver")
	runStoreDSN := flag.String("runstore-dsn", "", "run ledger DSN")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("symreg %s (built %s)\n", version, BuildDate)
		return
	}

	opts := runOptions{
		csvPath:      *csvPath,
		configPath:   *configPath,
		seed:         *seed,
		debug:        *debug,
		visualAddr:   *visualAddr,
		runStoreType: *runStoreType,
		runStoreDSN:  *runStoreDSN,
	}
	if err := run(opts); err != nil {
		log.Fatalf("symreg: %v", err)
	}
}

type runOptions struct {
	csvPath      string
	configPath   string
	seed         uint64
	debug        bool
	visualAddr   string
	runStoreType string
	runStoreDSN  string
}

func run(opts runOptions) error {
	logger := evolog.New(os.Stdout, opts.debug)

	csvPath := opts.csvPath
	if csvPath == "" && opts.configPath != "" {
		if peeked, err := peekDefaultCSV(opts.configPath); err == nil && peeked != "" {
			csvPath = peeked
		}
	}
	if csvPath == "" {
		return fmt.Errorf("no CSV dataset given (pass -csv or set defaultCSV in the configuration)")
	}

	dataset, err := csvdata.Load(csvPath)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	params := config.DefaultParameters()
	if opts.configPath != "" {
		loaded, warnings, err := config.Load(opts.configPath, dataset.NumVars)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		for _, w := range warnings {
			logger.Warn(w)
		}
		params = loaded
	}
	logger.DumpParameters("parameters", params)

	runID := uuid.NewString()
	engine := evo.New(params, dataset, rng.New(opts.seed), runID)
	engine.Logger = logger

	if opts.visualAddr != "" {
		hub := visual.NewHub(200)
		if err := hub.Start(opts.visualAddr); err != nil {
			return fmt.Errorf("starting visualization hub: %w", err)
		}
		defer hub.Close()
		engine.Visualizer = hub
	}

	if opts.runStoreType != "" {
		store, err := runstore.Open(opts.runStoreType, opts.runStoreDSN)
		if err != nil {
			return fmt.Errorf("opening run store: %w", err)
		}
		defer store.Close()
		engine.RunStore = store
	}

	best, err := engine.Run(context.Background())
	if err != nil {
		return fmt.Errorf("running evolution: %w", err)
	}
	defer best.Free()

	fmt.Printf("run %s complete: %s\n", runID, best.String())
	return nil
}

// peekDefaultCSV reads just the defaultCSV field out of a configuration
// file, letting -csv be omitted when the configuration already names a
// dataset; the full config.Load pass happens afterward once the
// dataset's numVars is known (variableDescriptors needs it to parse).
func peekDefaultCSV(configPath string) (string, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", err
	}
	var partial struct {
		DefaultCSV string `json:"defaultCSV"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return "", err
	}
	return partial.DefaultCSV, nil
}
