// Command heapscript drives a monoheap heap from an op-script file: one
// heap operation per line, no guest-language parser required.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/monoheap/monoheap/internal/cli"
	"github.com/monoheap/monoheap/internal/heap"
	"github.com/monoheap/monoheap/internal/heap/hostmem"
	"github.com/monoheap/monoheap/internal/heapscript"
	"github.com/monoheap/monoheap/internal/introspect"
	runtimepkg "github.com/monoheap/monoheap/internal/runtime"
	"github.com/monoheap/monoheap/internal/runtime/vfs"
)

var commands = []cli.CommandInfo{
	{Name: "run", Description: "execute an op-script against a fresh heap"},
}

func usage() {
	cli.PrintUsage("heapscript", commands)
	cli.PrintCommandUsage("heapscript", cli.CommandInfo{
		Name:        "run",
		Description: "execute an op-script against a fresh heap",
		Usage:       "heapscript run [OPTIONS] <script-file>",
		Flags: []cli.FlagInfo{
			{Name: "strategy", Usage: "backing store: slice or mmap", Default: "slice"},
			{Name: "watch", Usage: "re-run the script whenever it changes on disk"},
			{Name: "introspect", Usage: "address to serve a read-only heap debug endpoint on, e.g. 127.0.0.1:4433"},
			{Name: "metrics", Usage: "address to serve a Prometheus-text heap metrics endpoint on, e.g. 127.0.0.1:9090"},
		},
		Examples: []string{"heapscript run --watch testdata/build_array.hs"},
	})
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "--help" || os.Args[1] == "-h" {
		usage()
		return
	}

	if os.Args[1] == "--version" || os.Args[1] == "-v" {
		cli.PrintVersion("heapscript", len(os.Args) > 2 && os.Args[2] == "--json")
		return
	}

	if os.Args[1] != "run" {
		cli.ExitWithError("unknown command %q", os.Args[1])
	}

	if len(os.Args) > 2 && (os.Args[2] == "--help" || os.Args[2] == "-h") {
		usage()
		return
	}

	runCmd(os.Args[2:])
}

type runOptions struct {
	strategy   string
	watch      bool
	introspect string
	metrics    string
	scriptPath string
}

func parseRunArgs(args []string) (*runOptions, error) {
	opts := &runOptions{strategy: "slice"}

	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--strategy":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("--strategy requires a value")
			}

			opts.strategy = args[i]
		case "--watch":
			opts.watch = true
		case "--introspect":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("--introspect requires an address")
			}

			opts.introspect = args[i]
		case "--metrics":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("--metrics requires an address")
			}

			opts.metrics = args[i]
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) != 1 {
		return nil, fmt.Errorf("expected exactly one script file, got %d", len(positional))
	}

	opts.scriptPath = positional[0]

	return opts, nil
}

func runCmd(args []string) {
	logger := cli.NewLogger(true, false)

	opts, err := parseRunArgs(args)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	strategy, err := parseStrategy(opts.strategy)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	h, err := heap.New(heap.Config{Strategy: strategy})
	if err != nil {
		cli.ExitWithError("building heap: %v", err)
	}
	defer h.Close()

	alloc := heap.NewAllocator(h)
	gc := heap.NewGC(h, alloc)

	if opts.introspect != "" {
		srv, err := introspect.New(opts.introspect, h)
		if err != nil {
			cli.ExitWithError("building introspect server: %v", err)
		}

		addr, err := srv.Start()
		if err != nil {
			cli.ExitWithError("starting introspect server: %v", err)
		}

		logger.Info("introspect endpoint listening on https://%s", addr)

		defer srv.Stop()
	}

	if opts.metrics != "" {
		collectors := map[string]runtimepkg.MetricFunc{"heap": heapMetricsCollector(h)}

		addr, stop, err := runtimepkg.StartMetricsServer(opts.metrics, collectors)
		if err != nil {
			cli.ExitWithError("starting metrics server: %v", err)
		}

		logger.Info("metrics endpoint listening on http://%s/metrics", addr)

		defer stop(context.Background())
	}

	runOnce := func() bool {
		f, err := os.Open(opts.scriptPath)
		if err != nil {
			logger.Error("opening script: %v", err)
			return false
		}
		defer f.Close()

		interp := heapscript.New(h, alloc, gc, os.Stdout)
		if err := interp.Run(f); err != nil {
			logger.Error("running script: %v", err)
			return false
		}

		return true
	}

	ok := runOnce()

	if !opts.watch {
		if !ok {
			cli.ExitWithCode(1, "")
		}

		return
	}

	watchScript(opts.scriptPath, logger, func() { runOnce() })
}

func parseStrategy(name string) (hostmem.Strategy, error) {
	switch name {
	case "slice":
		return hostmem.StrategySlice, nil
	case "mmap":
		return hostmem.StrategyMmap, nil
	default:
		return 0, fmt.Errorf("unknown --strategy %q: want slice or mmap", name)
	}
}

// watchScript re-runs runOnce every time the script file changes, until the
// process receives an interrupt or termination signal.
func watchScript(scriptPath string, logger *cli.Logger, runOnce func()) {
	watcher, err := vfs.NewFSWatcher()
	if err != nil {
		logger.Error("starting watcher: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(scriptPath); err != nil {
		logger.Error("watching %s: %v", scriptPath, err)
		return
	}

	logger.Info("watching %s for changes (ctrl-c to stop)", scriptPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events():
			if !ok {
				return
			}

			if ev.Op&(vfs.OpWrite|vfs.OpCreate) == 0 {
				continue
			}

			logger.Info("%s changed, re-running", ev.Path)
			runOnce()
		case err, ok := <-watcher.Errors():
			if !ok {
				return
			}

			logger.Error("watcher: %v", err)
		}
	}
}

// heapMetricsCollector builds a MetricFunc exposing the heap's region
// count and aggregate occupancy, scraped fresh on every request — the
// same point-in-time-snapshot discipline internal/introspect uses.
func heapMetricsCollector(h *heap.Heap) runtimepkg.MetricFunc {
	return func() map[string]float64 {
		regions := h.Regions()

		var usedBytes, occupancySum float64

		for _, r := range regions {
			usedBytes += float64(r.Used())
			occupancySum += r.Occupancy()
		}

		metrics := map[string]float64{
			"regions_allocated": float64(len(regions)),
			"regions_total":     float64(heap.NumberRegions),
			"used_bytes":        usedBytes,
		}

		if len(regions) > 0 {
			metrics["mean_occupancy"] = occupancySum / float64(len(regions))
		}

		return metrics
	}
}
