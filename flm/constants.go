package flm

import "math"

// Reserved identifiers. None of them can be assigned to a filter list or
// group by the library.
const (
	UserRulesID      int32 = math.MinInt32
	CustomGroupID    int32 = math.MinInt32
	SpecialGroupID   int32 = 0
	SmallestFilterID int32 = -2_000_000_000
)

// Custom filter lists receive ids from this range, counting down from the top.
const (
	MinimumCustomFilterID int32 = -1_000_000_000
	MaximumCustomFilterID int32 = -10_000
)

// Constants is the by-value block exposed at the boundary.
type Constants struct {
	UserRulesID      int32 `cbor:"1,keyasint" json:"user_rules_id"`
	CustomGroupID    int32 `cbor:"2,keyasint" json:"custom_group_id"`
	SpecialGroupID   int32 `cbor:"3,keyasint" json:"special_group_id"`
	SmallestFilterID int32 `cbor:"4,keyasint" json:"smallest_filter_id"`
}

// GetConstants returns the reserved identifiers of this library version.
func GetConstants() Constants {
	return Constants{
		UserRulesID:      UserRulesID,
		CustomGroupID:    CustomGroupID,
		SpecialGroupID:   SpecialGroupID,
		SmallestFilterID: SmallestFilterID,
	}
}
