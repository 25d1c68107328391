// Command flm-stress runs init, call and destroy cycles against a bridge and
// reports throughput and leaked resources.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/flm-bridge/bridge"
	"github.com/VanDung-dev/flm-bridge/catalog"
	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/host"
	"github.com/VanDung-dev/flm-bridge/logging"
	"github.com/VanDung-dev/flm-bridge/remote"
)

// StressConfig holds configuration for a run.
type StressConfig struct {
	Remote      string
	WorkDir     string
	Concurrency int
	Cycles      int
	Calls       int
	Duration    time.Duration
	ReportFile  string
}

// StressResult holds the results of a run.
type StressResult struct {
	Cycles        int64
	Calls         int64
	Failures      int64
	TotalDuration time.Duration
	AvgLatency    time.Duration
	MinLatency    time.Duration
	MaxLatency    time.Duration
	CallsPerSec   float64

	LiveHandles   int
	LiveEnvelopes int64
	LeakedBytes   int
}

type counters struct {
	cycles, calls, failures int64
	totalLatency            int64
	minLatency, maxLatency  int64
}

func main() {
	cfg := parseFlags()

	fmt.Println("=== Filter List Manager Bridge Stress Test ===")
	if cfg.Remote != "" {
		fmt.Printf("Target: %s\n", cfg.Remote)
	} else {
		fmt.Println("Target: in-process")
	}
	fmt.Printf("Concurrency: %d workers\n", cfg.Concurrency)
	fmt.Printf("Calls per cycle: %d\n", cfg.Calls)
	fmt.Println()

	result, err := runStress(context.Background(), cfg, logging.New("flm-stress", logging.DefaultConfig()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "flm-stress: %v\n", err)
		os.Exit(1)
	}
	printResults(result)

	if cfg.ReportFile != "" {
		saveReport(cfg, result)
	}
	if result.LiveHandles != 0 || result.LiveEnvelopes != 0 || result.LeakedBytes != 0 {
		os.Exit(2)
	}
}

func parseFlags() StressConfig {
	cfg := StressConfig{}

	flag.StringVar(&cfg.Remote, "remote", "", "Remote bridge address, in-process when empty")
	flag.StringVar(&cfg.WorkDir, "workdir", "", "Library working directory, a temporary one when empty")
	flag.IntVar(&cfg.Concurrency, "c", 4, "Number of concurrent workers")
	flag.IntVar(&cfg.Cycles, "n", 0, "Cycles per worker (0 = run for -d)")
	flag.IntVar(&cfg.Calls, "calls", 10, "Calls per init/destroy cycle")
	flag.DurationVar(&cfg.Duration, "d", 10*time.Second, "Duration of the run")
	flag.StringVar(&cfg.ReportFile, "o", "", "Output report file (JSON)")

	flag.Parse()
	return cfg
}

func runStress(ctx context.Context, cfg StressConfig, log zerolog.Logger) (StressResult, error) {
	if cfg.WorkDir == "" {
		dir, err := os.MkdirTemp("", "flm-stress")
		if err != nil {
			return StressResult{}, err
		}
		defer os.RemoveAll(dir)
		cfg.WorkDir = dir
	}

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	var (
		b        *bridge.Bridge
		boundary host.Boundary
	)
	if cfg.Remote != "" {
		c, err := remote.Dial(ctx, cfg.Remote, remote.WithClientLogger(log))
		if err != nil {
			return StressResult{}, err
		}
		defer c.Close()
		boundary = c
	} else {
		b = bridge.New(catalog.Factory(), bridge.WithMemory(mem), bridge.WithLogger(log))
		boundary = host.NewInProcess(b)
	}

	lib := flm.DefaultConfiguration()
	lib.WorkingDirectory = cfg.WorkDir

	c := &counters{minLatency: 1<<63 - 1}
	stop := make(chan struct{})
	var (
		wg sync.WaitGroup
		// A REQ socket carries one request at a time.
		serial sync.Mutex
	)

	start := time.Now()
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(ctx, workerID, cfg, boundary, lib, &serial, stop, c, log)
		}(i)
	}

	if cfg.Cycles == 0 {
		time.Sleep(cfg.Duration)
		close(stop)
	}
	wg.Wait()

	duration := time.Since(start)
	calls := atomic.LoadInt64(&c.calls)

	var avg time.Duration
	if calls > 0 {
		avg = time.Duration(atomic.LoadInt64(&c.totalLatency) / calls)
	}
	minLat := atomic.LoadInt64(&c.minLatency)
	if calls == 0 {
		minLat = 0
	}

	result := StressResult{
		Cycles:        atomic.LoadInt64(&c.cycles),
		Calls:         calls,
		Failures:      atomic.LoadInt64(&c.failures),
		TotalDuration: duration,
		AvgLatency:    avg,
		MinLatency:    time.Duration(minLat),
		MaxLatency:    time.Duration(atomic.LoadInt64(&c.maxLatency)),
		CallsPerSec:   float64(calls) / duration.Seconds(),
	}
	if b != nil {
		result.LiveHandles = b.LiveHandles()
		result.LiveEnvelopes = b.EnvelopeStats().Live
		if err := b.Close(); err != nil {
			log.Warn().Err(err).Msg("closing live instances")
		}
		result.LeakedBytes = mem.CurrentAlloc()
	}
	return result, nil
}

func runWorker(ctx context.Context, id int, cfg StressConfig, boundary host.Boundary, lib flm.Configuration,
	serial *sync.Mutex, stop chan struct{}, c *counters, log zerolog.Logger) {
	for n := 0; cfg.Cycles == 0 || n < cfg.Cycles; n++ {
		select {
		case <-stop:
			return
		default:
		}
		if cfg.Remote != "" {
			serial.Lock()
		}
		err := cycle(ctx, cfg, boundary, lib, c)
		if cfg.Remote != "" {
			serial.Unlock()
		}
		atomic.AddInt64(&c.cycles, 1)
		if err != nil {
			atomic.AddInt64(&c.failures, 1)
			log.Debug().Err(err).Int("worker", id).Msg("cycle failed")
			// Small sleep on error to avoid hammering
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func cycle(ctx context.Context, cfg StressConfig, boundary host.Boundary, lib flm.Configuration, c *counters) error {
	d, err := host.Open(boundary, lib)
	if err != nil {
		return err
	}
	defer d.Close()
	m := host.NewManager(d)

	for i := 0; i < cfg.Calls; i++ {
		start := time.Now()
		if _, err := m.GetStoredFiltersMetadata(ctx); err != nil {
			return err
		}
		record(c, time.Since(start))
	}
	return nil
}

func record(c *counters, latency time.Duration) {
	lat := int64(latency)
	atomic.AddInt64(&c.calls, 1)
	atomic.AddInt64(&c.totalLatency, lat)
	for {
		old := atomic.LoadInt64(&c.minLatency)
		if lat >= old || atomic.CompareAndSwapInt64(&c.minLatency, old, lat) {
			break
		}
	}
	for {
		old := atomic.LoadInt64(&c.maxLatency)
		if lat <= old || atomic.CompareAndSwapInt64(&c.maxLatency, old, lat) {
			break
		}
	}
}

func printResults(result StressResult) {
	fmt.Println("=== Results ===")
	fmt.Printf("Duration:        %v\n", result.TotalDuration.Round(time.Millisecond))
	fmt.Printf("Cycles:          %d\n", result.Cycles)
	fmt.Printf("Failed cycles:   %d\n", result.Failures)
	fmt.Printf("Calls:           %d\n", result.Calls)
	fmt.Printf("Calls/sec:       %.2f\n", result.CallsPerSec)
	fmt.Printf("Avg Latency:     %v\n", result.AvgLatency.Round(time.Microsecond))
	fmt.Printf("Min Latency:     %v\n", result.MinLatency.Round(time.Microsecond))
	fmt.Printf("Max Latency:     %v\n", result.MaxLatency.Round(time.Microsecond))
	fmt.Printf("Live handles:    %d\n", result.LiveHandles)
	fmt.Printf("Live envelopes:  %d\n", result.LiveEnvelopes)
	fmt.Printf("Leaked bytes:    %d\n", result.LeakedBytes)
}

func saveReport(cfg StressConfig, result StressResult) {
	report := map[string]any{
		"config": map[string]any{
			"remote":      cfg.Remote,
			"concurrency": cfg.Concurrency,
			"calls":       cfg.Calls,
			"duration":    cfg.Duration.String(),
		},
		"results": map[string]any{
			"cycles":         result.Cycles,
			"calls":          result.Calls,
			"failures":       result.Failures,
			"calls_per_sec":  result.CallsPerSec,
			"avg_latency_ms": float64(result.AvgLatency.Microseconds()) / 1000,
			"min_latency_ms": float64(result.MinLatency.Microseconds()) / 1000,
			"max_latency_ms": float64(result.MaxLatency.Microseconds()) / 1000,
			"live_handles":   result.LiveHandles,
			"live_envelopes": result.LiveEnvelopes,
			"leaked_bytes":   result.LeakedBytes,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	data, _ := json.MarshalIndent(report, "", "  ")
	if err := os.WriteFile(cfg.ReportFile, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
	} else {
		fmt.Printf("Report saved to: %s\n", cfg.ReportFile)
	}
}
