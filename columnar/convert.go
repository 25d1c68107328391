package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/flm-bridge/flm"
)

// Converter builds records from library models. Callers release the
// records they receive.
type Converter struct {
	allocator memory.Allocator
}

// NewConverter creates a Converter allocating from mem, or from the default
// allocator when mem is nil.
func NewConverter(mem memory.Allocator) *Converter {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Converter{allocator: mem}
}

// ActiveRulesToRecord flattens active rules into one row per rule. Lists
// without rules produce no rows.
func (c *Converter) ActiveRulesToRecord(lists []flm.ActiveRulesInfo) arrow.Record {
	builder := array.NewRecordBuilder(c.allocator, ActiveRulesSchema())
	defer builder.Release()

	filterIDs := builder.Field(0).(*array.Int32Builder)
	groupIDs := builder.Field(1).(*array.Int32Builder)
	trusted := builder.Field(2).(*array.BooleanBuilder)
	rules := builder.Field(3).(*array.StringBuilder)

	for _, l := range lists {
		for _, rule := range l.Rules {
			filterIDs.Append(l.FilterID)
			groupIDs.Append(l.GroupID)
			trusted.Append(l.IsTrusted)
			rules.Append(rule)
		}
	}
	return builder.NewRecord()
}

// RecordToActiveRules groups consecutive rows of the same filter list back
// into ActiveRulesInfo values.
func RecordToActiveRules(record arrow.Record) ([]flm.ActiveRulesInfo, error) {
	if err := ValidateSchema(record, ActiveRulesSchema()); err != nil {
		return nil, err
	}

	filterIDs := record.Column(0).(*array.Int32)
	groupIDs := record.Column(1).(*array.Int32)
	trusted := record.Column(2).(*array.Boolean)
	rules := record.Column(3).(*array.String)

	out := []flm.ActiveRulesInfo{}
	for i := 0; i < int(record.NumRows()); i++ {
		id := filterIDs.Value(i)
		if n := len(out); n == 0 || out[n-1].FilterID != id {
			out = append(out, flm.ActiveRulesInfo{
				FilterID:  id,
				GroupID:   groupIDs.Value(i),
				IsTrusted: trusted.Value(i),
				Rules:     []string{},
			})
		}
		last := &out[len(out)-1]
		last.Rules = append(last.Rules, rules.Value(i))
	}
	return out, nil
}

// RulesCountToRecord builds a rules count record.
func (c *Converter) RulesCountToRecord(counts []flm.RulesCountByFilter) arrow.Record {
	builder := array.NewRecordBuilder(c.allocator, RulesCountSchema())
	defer builder.Release()

	filterIDs := builder.Field(0).(*array.Int32Builder)
	totals := builder.Field(1).(*array.Int32Builder)
	filterIDs.Reserve(len(counts))
	totals.Reserve(len(counts))

	for _, rc := range counts {
		filterIDs.Append(rc.FilterID)
		totals.Append(rc.RulesCount)
	}
	return builder.NewRecord()
}

// RecordToRulesCount reads a rules count record.
func RecordToRulesCount(record arrow.Record) ([]flm.RulesCountByFilter, error) {
	if err := ValidateSchema(record, RulesCountSchema()); err != nil {
		return nil, err
	}

	filterIDs := record.Column(0).(*array.Int32)
	totals := record.Column(1).(*array.Int32)

	out := make([]flm.RulesCountByFilter, record.NumRows())
	for i := range out {
		out[i] = flm.RulesCountByFilter{FilterID: filterIDs.Value(i), RulesCount: totals.Value(i)}
	}
	return out, nil
}
