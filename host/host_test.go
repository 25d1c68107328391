package host

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/flm-bridge/bridge"
	"github.com/VanDung-dev/flm-bridge/catalog"
	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/opcode"
)

func TestMethodsMatchOpcode(t *testing.T) {
	methods := Methods()
	if len(methods) != opcode.Count {
		t.Fatalf("Expected %d methods, got %d", opcode.Count, len(methods))
	}
	for _, m := range methods {
		op := opcode.Method(m)
		if !op.Valid() {
			t.Errorf("Method %d has no opcode", int32(m))
			continue
		}
		if m.String() != op.String() {
			t.Errorf("Ordinal %d: host has %s, bridge has %s", int32(m), m, op)
		}
	}
	if Method(opcode.Count).String() != "Method(28)" {
		t.Errorf("Unexpected name for out-of-range method: %s", Method(opcode.Count))
	}
}

type testBoundary struct {
	*InProcess
	b   *bridge.Bridge
	mem *memory.CheckedAllocator
}

func newBoundary(t *testing.T) *testBoundary {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	b := bridge.New(catalog.Factory(), bridge.WithMemory(mem))
	t.Cleanup(func() {
		if n := b.LiveHandles(); n != 0 {
			t.Errorf("Expected all handles destroyed, got %d live", n)
		}
		b.Close()
		mem.AssertSize(t, 0)
	})
	return &testBoundary{InProcess: NewInProcess(b), b: b, mem: mem}
}

func openManager(t *testing.T, tb *testBoundary) *Manager {
	t.Helper()
	cfg, err := DefaultConfiguration(tb)
	if err != nil {
		t.Fatalf("DefaultConfiguration failed: %v", err)
	}
	cfg.WorkingDirectory = t.TempDir()
	d, err := Open(tb, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	m := NewManager(d)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestDefaultConfigurationBytesOpen(t *testing.T) {
	tb := newBoundary(t)
	t.Chdir(t.TempDir())

	resp, err := tb.DefaultConfiguration()
	if err != nil {
		t.Fatal(err)
	}
	data := bytes.Clone(resp.Bytes())
	resp.Release()

	d, err := OpenRaw(tb, data)
	if err != nil {
		t.Fatalf("Expected default configuration to open, got %v", err)
	}
	if d.Handle() == 0 {
		t.Error("Expected a non-null handle")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestManagerRoundTrip(t *testing.T) {
	tb := newBoundary(t)
	m := openManager(t, tb)
	ctx := context.Background()

	title := "Host list"
	list, err := m.InstallCustomFilterFromString(ctx, flm.InstallFromString{
		FilterBody:  "! Title: ignored\n||a^\n||b^\n||c^\n",
		IsEnabled:   true,
		CustomTitle: &title,
	})
	if err != nil {
		t.Fatalf("InstallCustomFilterFromString failed: %v", err)
	}
	if list.Title != title || !list.IsCustom || list.Rules == nil || list.Rules.RulesCount != 3 {
		t.Fatalf("Unexpected list %+v", list.StoredFilterMetadata)
	}

	got, err := m.GetFullFilterListByID(ctx, list.ID)
	if err != nil || got == nil || got.ID != list.ID {
		t.Fatalf("GetFullFilterListByID = %v, %v", got, err)
	}

	if err := m.SaveDisabledRules(ctx, list.ID, []string{"||b^"}); err != nil {
		t.Fatal(err)
	}
	active, err := m.GetActiveRules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, a := range active {
		if a.FilterID == list.ID {
			found = true
			if strings.Join(a.Rules, ",") != "||a^,||c^" {
				t.Errorf("Unexpected active rules %v", a.Rules)
			}
		}
	}
	if !found {
		t.Error("Expected installed list among active rules")
	}

	counts, err := m.GetRulesCount(ctx, []flm.FilterID{list.ID})
	if err != nil || len(counts) != 1 || counts[0].RulesCount != 3 {
		t.Errorf("GetRulesCount = %v, %v", counts, err)
	}

	path := filepath.Join(t.TempDir(), "rules.txt")
	if err := m.SaveRulesToFileBlob(ctx, list.ID, path); err != nil {
		t.Errorf("SaveRulesToFileBlob failed: %v", err)
	}

	n, err := m.DeleteCustomFilterLists(ctx, []flm.FilterID{list.ID})
	if err != nil || n != 1 {
		t.Errorf("DeleteCustomFilterLists = %d, %v", n, err)
	}
	missing, err := m.GetFullFilterListByID(ctx, list.ID)
	if err != nil || missing != nil {
		t.Errorf("Expected deleted list to be absent, got %v, %v", missing, err)
	}

	v, err := m.GetDatabaseVersion(ctx)
	if err != nil || v == nil || *v != catalog.SchemaVersion {
		t.Errorf("GetDatabaseVersion = %v, %v", v, err)
	}
}

func TestDomainErrorIsLibraryError(t *testing.T) {
	tb := newBoundary(t)
	m := openManager(t, tb)

	err := m.SaveDisabledRules(context.Background(), 4242, []string{"x"})
	var fe *flm.Error
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *flm.Error, got %T %v", err, err)
	}
	if fe.Kind != flm.KindEntityNotFound || fe.EntityID != 4242 {
		t.Errorf("Unexpected error %+v", fe)
	}
	var be *BridgeError
	if errors.As(err, &be) {
		t.Error("Domain errors must not be bridge errors")
	}
}

func TestOpenInvalidConfiguration(t *testing.T) {
	tb := newBoundary(t)
	cfg := flm.DefaultConfiguration()
	cfg.WorkingDirectory = t.TempDir()
	cfg.RequestProxyMode = flm.RequestProxyMode{Mode: flm.UseCustomProxy}

	_, err := Open(tb, cfg)
	var be *BridgeError
	if !errors.As(err, &be) {
		t.Fatalf("Expected *BridgeError, got %T %v", err, err)
	}
	if !errors.Is(err, &flm.Error{Kind: flm.KindInvalidConfiguration}) {
		t.Errorf("Expected invalid configuration kind, got %v", be.Cause)
	}
}

func TestOpenEmptyConfiguration(t *testing.T) {
	tb := newBoundary(t)
	_, err := OpenRaw(tb, nil)
	var be *BridgeError
	if !errors.As(err, &be) || !strings.Contains(be.Cause.Message, "configuration buffer is empty") {
		t.Errorf("Expected empty configuration bridge error, got %v", err)
	}
}

func TestClosedDriver(t *testing.T) {
	tb := newBoundary(t)
	m := openManager(t, tb)

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if _, err := m.GetAllTags(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	tb := newBoundary(t)
	m := openManager(t, tb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.GetAllGroups(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestConstantsThroughDriver(t *testing.T) {
	tb := newBoundary(t)
	m := openManager(t, tb)
	c, err := m.Driver().Constants()
	if err != nil {
		t.Fatal(err)
	}
	if c != flm.GetConstants() {
		t.Errorf("Expected %+v, got %+v", flm.GetConstants(), c)
	}
}

// stubBoundary replays one canned response for every call.
type stubBoundary struct {
	resp func() Response
}

func (s stubBoundary) DefaultConfiguration() (Response, error) { return s.resp(), nil }
func (s stubBoundary) Init([]byte) (Response, error)           { return s.resp(), nil }
func (s stubBoundary) Call(uint64, Method, []byte) (Response, error) {
	return s.resp(), nil
}
func (s stubBoundary) DestroyHandle(uint64) error        { return nil }
func (s stubBoundary) Constants() (flm.Constants, error) { return flm.GetConstants(), nil }

func TestAdapterErrors(t *testing.T) {
	tests := []struct {
		name string
		resp func() Response
	}{
		{"unknown type", func() Response { return NewBufferedResponse(ResponseType(7), false, nil, 0) }},
		{"buffer instead of handle", func() Response { return NewBufferedResponse(TypeBuffer, false, []byte{0xa0}, 0) }},
		{"null handle", func() Response { return NewBufferedResponse(TypeHandlePointer, false, nil, 0) }},
		{"error flag on handle", func() Response { return NewBufferedResponse(TypeHandlePointer, true, nil, 5) }},
		{"undecodable error payload", func() Response { return NewBufferedResponse(TypeBuffer, true, []byte{0xff}, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenRaw(stubBoundary{resp: tt.resp}, []byte{0xa0})
			var ae *AdapterError
			if !errors.As(err, &ae) {
				t.Errorf("Expected *AdapterError, got %T %v", err, err)
			}
		})
	}
}

func TestCallUndecodableResponse(t *testing.T) {
	handleResp := func() Response { return NewBufferedResponse(TypeHandlePointer, false, nil, 9) }
	d, err := OpenRaw(stubBoundary{resp: handleResp}, []byte{0xa0})
	if err != nil {
		t.Fatal(err)
	}
	d.b = stubBoundary{resp: func() Response { return NewBufferedResponse(TypeBuffer, false, []byte{0xff, 0x00}, 0) }}

	_, err = NewManager(d).GetAllTags(context.Background())
	var ae *AdapterError
	if !errors.As(err, &ae) || ae.Op != "GetAllTags" {
		t.Errorf("Expected adapter error in GetAllTags, got %v", err)
	}
}

func TestBufferedResponseReleaseOnce(t *testing.T) {
	r := NewBufferedResponse(TypeBuffer, false, []byte("abc"), 0)
	if string(r.Bytes()) != "abc" {
		t.Errorf("Expected payload view, got %q", r.Bytes())
	}
	r.Release()
	if r.Bytes() != nil {
		t.Error("Expected no payload after release")
	}
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on double release")
		}
	}()
	r.Release()
}
