package main

import (
	"context"
	"testing"

	"github.com/VanDung-dev/flm-bridge/logging"
)

func TestRunStressCycles(t *testing.T) {
	cfg := StressConfig{
		WorkDir:     t.TempDir(),
		Concurrency: 1,
		Cycles:      3,
		Calls:       2,
	}

	result, err := runStress(context.Background(), cfg, logging.Nop())
	if err != nil {
		t.Fatalf("runStress failed: %v", err)
	}
	if result.Failures != 0 {
		t.Errorf("Expected no failures, got %d", result.Failures)
	}
	if result.Cycles != 3 || result.Calls != 6 {
		t.Errorf("Expected 3 cycles and 6 calls, got %d and %d", result.Cycles, result.Calls)
	}
	if result.LiveHandles != 0 || result.LiveEnvelopes != 0 || result.LeakedBytes != 0 {
		t.Errorf("Expected no leaks, got %+v", result)
	}
	if result.MinLatency > result.MaxLatency {
		t.Errorf("Expected min %v <= max %v", result.MinLatency, result.MaxLatency)
	}
}
