package host

import "fmt"

// Method is the host-side copy of the boundary method list. Ordinals must
// match the library build the host talks to.
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

	methodCount
)

var methodNames = [methodCount]string{
	InstallCustomFilterList:         "InstallCustomFilterList",
	EnableFilterLists:               "EnableFilterLists",
	InstallFilterLists:              "InstallFilterLists",
	DeleteCustomFilterLists:         "DeleteCustomFilterLists",
	GetFullFilterListById:           "GetFullFilterListById",
	GetStoredFiltersMetadata:        "GetStoredFiltersMetadata",
	GetStoredFilterMetadataById:     "GetStoredFilterMetadataById",
	SaveCustomFilterRules:           "SaveCustomFilterRules",
	SaveDisabledRules:               "SaveDisabledRules",
	UpdateFilters:                   "UpdateFilters",
	ForceUpdateFiltersByIds:         "ForceUpdateFiltersByIds",
	FetchFilterListMetadata:         "FetchFilterListMetadata",
	FetchFilterListMetadataWithBody: "FetchFilterListMetadataWithBody",
	LiftUpDatabase:                  "LiftUpDatabase",
	GetAllTags:                      "GetAllTags",
	GetAllGroups:                    "GetAllGroups",
	ChangeLocale:                    "ChangeLocale",
	PullMetadata:                    "PullMetadata",
	UpdateCustomFilterMetadata:      "UpdateCustomFilterMetadata",
	GetDatabasePath:                 "GetDatabasePath",
	GetDatabaseVersion:              "GetDatabaseVersion",
	InstallCustomFilterFromString:   "InstallCustomFilterFromString",
	GetActiveRules:                  "GetActiveRules",
	GetFilterRulesAsStrings:         "GetFilterRulesAsStrings",
	SaveRulesToFileBlob:             "SaveRulesToFileBlob",
	GetDisabledRules:                "GetDisabledRules",
	SetProxyMode:                    "SetProxyMode",
	GetRulesCount:                   "GetRulesCount",
}

// Methods returns every host method in ordinal order.
func Methods() []Method {
	out := make([]Method, methodCount)
	for i := range out {
		out[i] = Method(i)
	}
	return out
}

func (m Method) String() string {
	if m < 0 || m >= methodCount {
		return fmt.Sprintf("Method(%d)", int32(m))
	}
	return methodNames[m]
}
