package columnar

import (
	"bytes"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/flm-bridge/flm"
)

func TestActiveRulesSchemaFields(t *testing.T) {
	schema := ActiveRulesSchema()

	expectedFields := []struct {
		name string
		typ  arrow.DataType
	}{
		{"filter_id", arrow.PrimitiveTypes.Int32},
		{"group_id", arrow.PrimitiveTypes.Int32},
		{"is_trusted", arrow.FixedWidthTypes.Boolean},
		{"rule", arrow.BinaryTypes.String},
	}

	if schema.NumFields() != len(expectedFields) {
		t.Fatalf("Expected %d fields, got %d", len(expectedFields), schema.NumFields())
	}
	for i, expected := range expectedFields {
		field := schema.Field(i)
		if field.Name != expected.name {
			t.Errorf("Field %d: expected name %s, got %s", i, expected.name, field.Name)
		}
		if !arrow.TypeEqual(field.Type, expected.typ) {
			t.Errorf("Field %s: expected type %s, got %s", field.Name, expected.typ, field.Type)
		}
	}
}

func TestActiveRulesRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	lists := []flm.ActiveRulesInfo{
		{FilterID: 1, GroupID: 1, IsTrusted: true, Rules: []string{"||a^", "||b^"}},
		{FilterID: 2, GroupID: 3, Rules: nil},
		{FilterID: flm.UserRulesID, GroupID: flm.CustomGroupID, IsTrusted: true, Rules: []string{"@@||c^"}},
	}

	record := NewConverter(mem).ActiveRulesToRecord(lists)
	defer record.Release()

	if record.NumRows() != 3 {
		t.Fatalf("Expected 3 rows, got %d", record.NumRows())
	}

	data, err := SerializeToIPC(record)
	if err != nil {
		t.Fatalf("SerializeToIPC failed: %v", err)
	}

	decoded, err := DeserializeFromIPC(data, mem)
	if err != nil {
		t.Fatalf("DeserializeFromIPC failed: %v", err)
	}
	defer decoded.Release()

	got, err := RecordToActiveRules(decoded)
	if err != nil {
		t.Fatalf("RecordToActiveRules failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 lists with rules, got %d", len(got))
	}
	if got[0].FilterID != 1 || !got[0].IsTrusted || len(got[0].Rules) != 2 || got[0].Rules[1] != "||b^" {
		t.Errorf("Unexpected first list %+v", got[0])
	}
	if got[1].FilterID != flm.UserRulesID || got[1].GroupID != flm.CustomGroupID || got[1].Rules[0] != "@@||c^" {
		t.Errorf("Unexpected second list %+v", got[1])
	}
}

func TestRulesCountRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	counts := []flm.RulesCountByFilter{{FilterID: 1, RulesCount: 10}, {FilterID: 7, RulesCount: 0}}
	record := NewConverter(mem).RulesCountToRecord(counts)
	defer record.Release()

	var buf bytes.Buffer
	if err := WriteIPC(&buf, record, record); err != nil {
		t.Fatalf("WriteIPC failed: %v", err)
	}

	decoded, err := DeserializeFromIPC(buf.Bytes(), mem)
	if err != nil {
		t.Fatalf("DeserializeFromIPC failed: %v", err)
	}
	defer decoded.Release()

	got, err := RecordToRulesCount(decoded)
	if err != nil {
		t.Fatalf("RecordToRulesCount failed: %v", err)
	}
	if len(got) != 2 || got[0] != counts[0] || got[1] != counts[1] {
		t.Errorf("Expected %v, got %v", counts, got)
	}
}

func TestEmptyRecord(t *testing.T) {
	record := NewConverter(nil).ActiveRulesToRecord(nil)
	defer record.Release()

	got, err := RecordToActiveRules(record)
	if err != nil {
		t.Fatalf("RecordToActiveRules failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no lists, got %d", len(got))
	}
}

func TestSchemaMismatch(t *testing.T) {
	record := NewConverter(nil).RulesCountToRecord(nil)
	defer record.Release()

	if _, err := RecordToActiveRules(record); err == nil {
		t.Error("Expected schema mismatch error")
	}
	if err := ValidateSchema(nil, RulesCountSchema()); err == nil {
		t.Error("Expected error for nil record")
	}
}

func TestIPCErrors(t *testing.T) {
	if err := WriteIPC(&bytes.Buffer{}); err == nil {
		t.Error("Expected error when writing no records")
	}
	if _, err := DeserializeFromIPC([]byte("not arrow"), nil); err == nil {
		t.Error("Expected error for invalid IPC data")
	}
}

func TestSchemaOnlyStream(t *testing.T) {
	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(RulesCountSchema()))
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := DeserializeFromIPC(buf.Bytes(), nil); !errors.Is(err, ErrNoRecords) {
		t.Errorf("Expected ErrNoRecords, got %v", err)
	}
}
