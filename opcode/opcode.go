// Package opcode defines the ordered set of operations a handle can be asked
// to perform.
//
// The ordinal of a Method, not its name, crosses the boundary. The list is
// append-only: a new operation goes at the end, and an operation is never
// removed or moved. Any change to this list is a breaking change for every
// adapter (C library consumers, the host package, remote clients), which must
// be rebuilt against the same list.
package opcode

import (
	"errors"
	"fmt"
)

// Method is the boundary ordinal of a library operation.
type Method int32

const (
	InstallCustomFilterList Method = iota
	EnableFilterLists
	InstallFilterLists
	DeleteCustomFilterLists
	GetFullFilterListById
	GetStoredFiltersMetadata
	GetStoredFilterMetadataById
	SaveCustomFilterRules
	SaveDisabledRules
	UpdateFilters
	ForceUpdateFiltersByIds
	FetchFilterListMetadata
	FetchFilterListMetadataWithBody
	LiftUpDatabase
	GetAllTags
	GetAllGroups
	ChangeLocale
	PullMetadata
	UpdateCustomFilterMetadata
	GetDatabasePath
	GetDatabaseVersion
	InstallCustomFilterFromString
	GetActiveRules
	GetFilterRulesAsStrings
	SaveRulesToFileBlob
	GetDisabledRules
	SetProxyMode
	GetRulesCount
)

// Count is the number of known methods.
const Count = int(GetRulesCount) + 1

// ErrUnknownMethod is returned for ordinals outside the known list.
var ErrUnknownMethod = errors.New("opcode: unknown method")

var names = [Count]string{
	"InstallCustomFilterList",
	"EnableFilterLists",
	"InstallFilterLists",
	"DeleteCustomFilterLists",
	"GetFullFilterListById",
	"GetStoredFiltersMetadata",
	"GetStoredFilterMetadataById",
	"SaveCustomFilterRules",
	"SaveDisabledRules",
	"UpdateFilters",
	"ForceUpdateFiltersByIds",
	"FetchFilterListMetadata",
	"FetchFilterListMetadataWithBody",
	"LiftUpDatabase",
	"GetAllTags",
	"GetAllGroups",
	"ChangeLocale",
	"PullMetadata",
	"UpdateCustomFilterMetadata",
	"GetDatabasePath",
	"GetDatabaseVersion",
	"InstallCustomFilterFromString",
	"GetActiveRules",
	"GetFilterRulesAsStrings",
	"SaveRulesToFileBlob",
	"GetDisabledRules",
	"SetProxyMode",
	"GetRulesCount",
}

var byName = func() map[string]Method {
	m := make(map[string]Method, Count)
	for i, n := range names {
		m[n] = Method(i)
	}
	return m
}()

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m >= 0 && int(m) < Count
}

func (m Method) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Method(%d)", int32(m))
	}
	return names[m]
}

// Parse converts a boundary ordinal into a Method.
func Parse(ordinal int32) (Method, error) {
	m := Method(ordinal)
	if !m.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMethod, ordinal)
	}
	return m, nil
}

// Lookup finds a method by its name.
func Lookup(name string) (Method, bool) {
	m, ok := byName[name]
	return m, ok
}

// All returns every method in ordinal order.
func All() []Method {
	out := make([]Method, Count)
	for i := range out {
		out[i] = Method(i)
	}
	return out
}
