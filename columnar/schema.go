// Package columnar converts rule listings into Apache Arrow records and Arrow
// IPC streams, for consumers that load rules in bulk.
package columnar

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// ActiveRulesSchema returns the schema of an active rules record, one row
// per rule.
//
// Fields:
//   - filter_id: int32 - Owning filter list
//   - group_id: int32 - Group of the filter list
//   - is_trusted: bool - Whether the list is trusted
//   - rule: string - Rule text
func ActiveRulesSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "filter_id", Type: arrow.PrimitiveTypes.Int32},
			{Name: "group_id", Type: arrow.PrimitiveTypes.Int32},
			{Name: "is_trusted", Type: arrow.FixedWidthTypes.Boolean},
			{Name: "rule", Type: arrow.BinaryTypes.String},
		},
		nil,
	)
}

// RulesCountSchema returns the schema of a rules count record.
func RulesCountSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "filter_id", Type: arrow.PrimitiveTypes.Int32},
			{Name: "rules_count", Type: arrow.PrimitiveTypes.Int32},
		},
		nil,
	)
}

// ValidateSchema checks that a record matches the expected schema.
func ValidateSchema(record arrow.Record, expected *arrow.Schema) error {
	if record == nil {
		return errors.New("record is nil")
	}

	actual := record.Schema()
	if actual.NumFields() != expected.NumFields() {
		return fmt.Errorf("field count mismatch: got %d, expected %d",
			actual.NumFields(), expected.NumFields())
	}
	for i := 0; i < actual.NumFields(); i++ {
		a, e := actual.Field(i), expected.Field(i)
		if a.Name != e.Name {
			return fmt.Errorf("field %d name mismatch: got %s, expected %s", i, a.Name, e.Name)
		}
		if !arrow.TypeEqual(a.Type, e.Type) {
			return fmt.Errorf("field %s type mismatch: got %s, expected %s", a.Name, a.Type, e.Type)
		}
	}
	return nil
}
