package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("flm", reg)

	m.RecordCall("GetAllTags", false, time.Millisecond)
	m.RecordCall("GetAllTags", true, time.Millisecond)

	if got := testutil.ToFloat64(m.CallsTotal.WithLabelValues("GetAllTags")); got != 2 {
		t.Errorf("Expected 2 calls, got %v", got)
	}
	if got := testutil.ToFloat64(m.BridgeErrorsTotal.WithLabelValues("GetAllTags")); got != 1 {
		t.Errorf("Expected 1 bridge error, got %v", got)
	}
}

func TestRecordInit(t *testing.T) {
	m := Nop()
	m.RecordInit(false)
	m.RecordInit(true)

	if got := testutil.ToFloat64(m.InitsTotal); got != 2 {
		t.Errorf("Expected 2 inits, got %v", got)
	}
	if got := testutil.ToFloat64(m.InitFailures); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Registering twice in distinct registries must not panic.
	_ = New("flm", prometheus.NewRegistry())
	_ = New("flm", prometheus.NewRegistry())
}

func TestRegisterGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterGauges("flm", reg,
		func() float64 { return 3 },
		func() float64 { return 5 },
		func() float64 { return 320 },
	)

	n, err := testutil.GatherAndCount(reg, "flm_live_handles", "flm_live_envelopes", "flm_live_envelope_bytes")
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 gauges, got %d", n)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("flm", reg)
	m.RecordCall("GetRulesCount", false, time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `flm_calls_total{method="GetRulesCount"} 1`) {
		t.Errorf("Expected calls_total sample in output, got %s", body)
	}
}
