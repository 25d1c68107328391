//go:build flm_native

package native

import (
	"context"
	"testing"

	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/host"
	"github.com/VanDung-dev/flm-bridge/wire"
)

func TestConstants(t *testing.T) {
	c, err := Open().Constants()
	if err != nil {
		t.Fatal(err)
	}
	if c != flm.GetConstants() {
		t.Errorf("Expected %+v, got %+v", flm.GetConstants(), c)
	}
}

func TestInitEmptyBuffer(t *testing.T) {
	resp, err := Open().Init(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Release()
	if !resp.IsError() || resp.Type() != host.TypeBuffer {
		t.Errorf("Expected error buffer, got type %s error %v", resp.Type(), resp.IsError())
	}
}

func TestNullHandleCall(t *testing.T) {
	resp, err := Open().Call(0, host.GetAllTags, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Release()
	if !resp.IsError() {
		t.Error("Expected error response for the null handle")
	}
	if err := Open().DestroyHandle(0); err != nil {
		t.Errorf("Expected null destroy to be a no-op, got %v", err)
	}
}

func TestDriverCycle(t *testing.T) {
	lib := Open()
	cfg, err := host.DefaultConfiguration(lib)
	if err != nil {
		t.Fatal(err)
	}
	cfg.WorkingDirectory = t.TempDir()

	for i := 0; i < 5; i++ {
		d, err := host.Open(lib, cfg)
		if err != nil {
			t.Fatalf("Cycle %d: %v", i, err)
		}
		m := host.NewManager(d)
		if _, err := m.GetStoredFiltersMetadata(context.Background()); err != nil {
			t.Errorf("Cycle %d: %v", i, err)
		}
		if err := m.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResponseAfterRelease(t *testing.T) {
	lib := Open()
	cfg, err := host.DefaultConfiguration(lib)
	if err != nil {
		t.Fatal(err)
	}
	cfg.WorkingDirectory = t.TempDir()
	data, err := wire.MarshalConfiguration(cfg)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := lib.Init(data)
	if err != nil {
		t.Fatal(err)
	}
	if resp.IsError() || resp.Type() != host.TypeHandlePointer {
		resp.Release()
		t.Fatalf("Expected handle pointer, got type %s error %v", resp.Type(), resp.IsError())
	}
	h := resp.Handle()
	defer lib.DestroyHandle(h)
	resp.Release()

	if resp.Type() != host.TypeHandlePointer {
		t.Errorf("Expected type %s after release, got %s", host.TypeHandlePointer, resp.Type())
	}
	if resp.IsError() {
		t.Error("Expected no error flag after release")
	}
	if resp.Handle() != h {
		t.Errorf("Expected handle %d after release, got %d", h, resp.Handle())
	}

	errResp, err := lib.Init(nil)
	if err != nil {
		t.Fatal(err)
	}
	errResp.Release()
	if !errResp.IsError() || errResp.Type() != host.TypeBuffer {
		t.Errorf("Expected error buffer after release, got type %s error %v", errResp.Type(), errResp.IsError())
	}
	if errResp.Bytes() != nil {
		t.Error("Expected no bytes after release")
	}
}
