package bridge

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/VanDung-dev/flm-bridge/catalog"
	"github.com/VanDung-dev/flm-bridge/envelope"
	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/handle"
	"github.com/VanDung-dev/flm-bridge/opcode"
	"github.com/VanDung-dev/flm-bridge/wire"
)

func newTestBridge(t *testing.T, opts ...Option) (*Bridge, *memory.CheckedAllocator) {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	b := New(catalog.Factory(), append([]Option{WithMemory(mem)}, opts...)...)
	t.Cleanup(func() {
		b.Close()
		mem.AssertSize(t, 0)
	})
	return b, mem
}

func testConfig(t *testing.T) []byte {
	t.Helper()
	cfg := flm.DefaultConfiguration()
	cfg.WorkingDirectory = t.TempDir()
	data, err := wire.MarshalConfiguration(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func outerError(t *testing.T, e *envelope.Envelope) *wire.OuterError {
	t.Helper()
	if !e.IsError() {
		t.Fatal("Expected error envelope")
	}
	oe, err := wire.UnmarshalOuterError(e.Bytes())
	if err != nil {
		t.Fatalf("Failed to decode error payload: %v", err)
	}
	return oe
}

func TestDefaultConfiguration(t *testing.T) {
	b, _ := newTestBridge(t)
	e := b.DefaultConfiguration()
	defer b.ReleaseEnvelope(e)

	if e.Kind() != envelope.Buffer || e.IsError() {
		t.Fatalf("Unexpected envelope %+v", e.Raw())
	}
	cfg, err := wire.UnmarshalConfiguration(e.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := flm.DefaultConfiguration()
	if cfg.Locale != want.Locale || cfg.DefaultFilterListExpiresPeriodSec != want.DefaultFilterListExpiresPeriodSec ||
		cfg.RequestTimeoutMs != want.RequestTimeoutMs || cfg.AutoLiftUpDatabase != want.AutoLiftUpDatabase {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestInitEmptyConfiguration(t *testing.T) {
	b, _ := newTestBridge(t)
	for _, config := range [][]byte{nil, {}} {
		e := b.Init(config)
		if e.Kind() != envelope.Buffer {
			t.Errorf("Expected buffer kind, got %s", e.Kind())
		}
		if oe := outerError(t, e); !strings.Contains(oe.Message, "configuration buffer is empty") {
			t.Errorf("Unexpected message %q", oe.Message)
		}
		b.ReleaseEnvelope(e)
	}
	if b.LiveHandles() != 0 {
		t.Error("Expected no handles after failed init")
	}
}

func TestInitUndecodableConfiguration(t *testing.T) {
	b, _ := newTestBridge(t)
	e := b.Init([]byte{0xff, 0xfe, 0xfd})
	defer b.ReleaseEnvelope(e)
	if oe := outerError(t, e); !strings.Contains(oe.Message, "cannot decode configuration") {
		t.Errorf("Unexpected message %q", oe.Message)
	}
}

func TestInitInvalidConfiguration(t *testing.T) {
	b, _ := newTestBridge(t)
	cfg := flm.DefaultConfiguration()
	cfg.WorkingDirectory = t.TempDir()
	cfg.RequestProxyMode = flm.RequestProxyMode{Mode: flm.UseCustomProxy}
	data, _ := wire.MarshalConfiguration(cfg)

	e := b.Init(data)
	defer b.ReleaseEnvelope(e)
	if oe := outerError(t, e); oe.Kind != flm.KindInvalidConfiguration {
		t.Errorf("Expected invalid_configuration, got %v", oe)
	}
}

func TestInitFactoryFailureKeepsKind(t *testing.T) {
	b, _ := newTestBridge(t)
	cfg := flm.DefaultConfiguration()
	cfg.WorkingDirectory = filepath.Join(t.TempDir(), "does-not-exist")
	data, _ := wire.MarshalConfiguration(cfg)

	e := b.Init(data)
	defer b.ReleaseEnvelope(e)
	if oe := outerError(t, e); oe.Kind != flm.KindPathNotFound {
		t.Errorf("Expected path_not_found, got %v", oe)
	}
}

func TestInitFactoryPanic(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	b := New(func(flm.Configuration) (flm.Manager, error) { panic("no disk") }, WithMemory(mem))

	e := b.Init(testConfig(t))
	defer b.ReleaseEnvelope(e)
	if oe := outerError(t, e); !strings.Contains(oe.Message, "panicked: no disk") {
		t.Errorf("Unexpected message %q", oe.Message)
	}
}

func TestInitCallDestroy(t *testing.T) {
	b, _ := newTestBridge(t)

	he := b.Init(testConfig(t))
	if he.IsError() || he.Kind() != envelope.HandlePointer || he.Handle() == 0 {
		t.Fatalf("Expected handle envelope, got %+v", he.Raw())
	}
	h := he.Handle()
	b.ReleaseEnvelope(he)

	if b.HandleState(h) != handle.StateLive {
		t.Fatalf("Expected live handle, got %s", b.HandleState(h))
	}

	e := b.Call(h, int32(opcode.GetDatabaseVersion), nil)
	var resp wire.GetDatabaseVersionResponse
	if err := wire.Unmarshal(e.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	b.ReleaseEnvelope(e)
	if resp.Error != nil || resp.Version == nil || *resp.Version != catalog.SchemaVersion {
		t.Errorf("Unexpected version response %+v", resp)
	}

	if err := b.DestroyHandle(h); err != nil {
		t.Fatal(err)
	}
	if b.HandleState(h) != handle.StateDestroyed || b.LiveHandles() != 0 {
		t.Errorf("Expected destroyed handle")
	}
}

func TestUseAfterDestroyPanics(t *testing.T) {
	b, _ := newTestBridge(t)
	he := b.Init(testConfig(t))
	h := he.Handle()
	b.ReleaseEnvelope(he)
	b.DestroyHandle(h)

	mustPanic(t, func() { b.Call(h, int32(opcode.GetAllTags), nil) })
	mustPanic(t, func() { b.DestroyHandle(h) })
}

func mustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic")
		}
	}()
	fn()
}

func TestDestroyNullAndUnknown(t *testing.T) {
	b, _ := newTestBridge(t)
	if err := b.DestroyHandle(0); err != nil {
		t.Errorf("Destroying the null handle must be a no-op, got %v", err)
	}
	if err := b.DestroyHandle(12345); !errors.Is(err, handle.ErrUnknownHandle) {
		t.Errorf("Expected unknown handle error, got %v", err)
	}
}

func TestReleaseNilEnvelope(t *testing.T) {
	b, _ := newTestBridge(t)
	b.ReleaseEnvelope(nil)
}

func TestCyclesDoNotLeak(t *testing.T) {
	b, mem := newTestBridge(t)
	config := testConfig(t)

	for i := 0; i < 20; i++ {
		he := b.Init(config)
		if he.IsError() {
			t.Fatalf("Cycle %d: init failed", i)
		}
		h := he.Handle()
		b.ReleaseEnvelope(he)

		for _, m := range []opcode.Method{opcode.GetAllTags, opcode.GetStoredFiltersMetadata, opcode.Method(opcode.Count)} {
			b.ReleaseEnvelope(b.Call(h, int32(m), nil))
		}
		if err := b.DestroyHandle(h); err != nil {
			t.Fatal(err)
		}
	}

	if b.LiveHandles() != 0 {
		t.Errorf("Expected no live handles, got %d", b.LiveHandles())
	}
	if st := b.EnvelopeStats(); st.Live != 0 || st.Bytes != 0 {
		t.Errorf("Expected no live envelopes, got %+v", st)
	}
	if mem.CurrentAlloc() != 0 {
		t.Errorf("Expected all buffers freed, got %d bytes", mem.CurrentAlloc())
	}
}

func TestConstantsStable(t *testing.T) {
	b, _ := newTestBridge(t)
	first := b.Constants()
	if first != b.Constants() {
		t.Error("Constants changed between calls")
	}
	if first.UserRulesID != flm.UserRulesID || first.CustomGroupID != flm.CustomGroupID ||
		first.SpecialGroupID != 0 || first.SmallestFilterID != -2_000_000_000 {
		t.Errorf("Unexpected constants %+v", first)
	}
}

func TestRegistererGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	b, _ := newTestBridge(t, WithRegisterer(reg))

	he := b.Init(testConfig(t))
	defer func() {
		b.ReleaseEnvelope(he)
		b.DestroyHandle(he.Handle())
	}()

	n, err := testutil.GatherAndCount(reg, "flm_live_handles", "flm_inits_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 series, got %d", n)
	}
	if got := testutil.ToFloat64(b.metrics.InitsTotal); got != 1 {
		t.Errorf("Expected 1 init, got %v", got)
	}
}
