package wire

import (
	"errors"
	"fmt"
	"testing"

	"github.com/VanDung-dev/flm-bridge/flm"
)

func TestConfigurationRoundTrip(t *testing.T) {
	cfg := flm.DefaultConfiguration()
	cfg.WorkingDirectory = "/tmp/flm"
	cfg.RequestProxyMode = flm.RequestProxyMode{Mode: flm.UseCustomProxy, Addr: "10.0.0.1:8080"}

	data, err := MarshalConfiguration(cfg)
	if err != nil {
		t.Fatalf("MarshalConfiguration failed: %v", err)
	}

	got, err := UnmarshalConfiguration(data)
	if err != nil {
		t.Fatalf("UnmarshalConfiguration failed: %v", err)
	}
	if got.WorkingDirectory != cfg.WorkingDirectory || got.Locale != cfg.Locale {
		t.Errorf("Unexpected configuration: %+v", got)
	}
	if got.RequestProxyMode != cfg.RequestProxyMode {
		t.Errorf("Proxy mode lost: %+v", got.RequestProxyMode)
	}
	if !got.AutoLiftUpDatabase {
		t.Error("AutoLiftUpDatabase lost")
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	a, _ := MarshalConfiguration(flm.DefaultConfiguration())
	b, _ := MarshalConfiguration(flm.DefaultConfiguration())
	if string(a) != string(b) {
		t.Error("Expected identical encodings")
	}
}

func TestUnmarshalEmpty(t *testing.T) {
	var req EnableFilterListsRequest
	if err := Unmarshal(nil, &req); err != nil {
		t.Fatalf("Unmarshal(nil) failed: %v", err)
	}
	if req.IDs != nil || req.IsEnabled {
		t.Errorf("Expected zero request, got %+v", req)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	var req EnableFilterListsRequest
	if err := Unmarshal([]byte{0xff, 0x00, 0x13}, &req); err == nil {
		t.Error("Expected error for malformed input")
	}
}

func TestNewOuterError(t *testing.T) {
	if NewOuterError(nil) != nil {
		t.Error("Expected nil for nil error")
	}

	e := NewOuterError(fmt.Errorf("wrapped: %w", flm.NotFound(7)))
	if e.Kind != flm.KindEntityNotFound || e.EntityID != 7 {
		t.Errorf("Unexpected outer error %+v", e)
	}

	e = NewOuterError(errors.New("boom"))
	if e.Kind != flm.KindOther || e.Message != "boom" {
		t.Errorf("Unexpected outer error %+v", e)
	}
}

func TestDiagnosticRoundTrip(t *testing.T) {
	data := MarshalDiagnostic("cannot decode")
	e, err := UnmarshalOuterError(data)
	if err != nil {
		t.Fatalf("UnmarshalOuterError failed: %v", err)
	}
	if e.Kind != flm.KindOther || e.Message != "cannot decode" {
		t.Errorf("Unexpected diagnostic %+v", e)
	}
}

func TestFullFilterListKeepsEmbeddedFields(t *testing.T) {
	in := GetFullFilterListByIdResponse{
		FilterList: &flm.FullFilterList{
			StoredFilterMetadata: flm.StoredFilterMetadata{ID: -10000, Title: "custom", IsCustom: true},
			Rules:                &flm.FilterListRules{FilterID: -10000, Rules: []string{"||example.org^"}, RulesCount: 1},
		},
	}
	data, err := Marshal(&in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out GetFullFilterListByIdResponse
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.FilterList == nil || out.FilterList.ID != -10000 || out.FilterList.Title != "custom" {
		t.Fatalf("Unexpected list %+v", out.FilterList)
	}
	if out.FilterList.Rules == nil || out.FilterList.Rules.RulesCount != 1 {
		t.Errorf("Rules lost: %+v", out.FilterList.Rules)
	}
	if out.Error != nil {
		t.Errorf("Unexpected error %v", out.Error)
	}
}

func TestConstantsUseIntegerKeys(t *testing.T) {
	data, err := Marshal(flm.GetConstants())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[int]int32
	if err := Unmarshal(data, &fields); err != nil {
		t.Fatalf("Expected integer-keyed map, got %v", err)
	}
	want := map[int]int32{
		1: flm.UserRulesID,
		2: flm.CustomGroupID,
		3: flm.SpecialGroupID,
		4: flm.SmallestFilterID,
	}
	if len(fields) != len(want) {
		t.Fatalf("Expected %d fields, got %d", len(want), len(fields))
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("Expected field %d = %d, got %d", k, v, fields[k])
		}
	}

	var back flm.Constants
	if err := Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != flm.GetConstants() {
		t.Errorf("Expected %+v, got %+v", flm.GetConstants(), back)
	}
}
