package flm

// FilterID identifies a filter list.
type FilterID = int32

// FilterTag is a keyword attached to filter lists.
type FilterTag struct {
	ID      int32  `cbor:"1,keyasint" json:"id"`
	Keyword string `cbor:"2,keyasint" json:"keyword"`
}

// FilterGroup groups filter lists for presentation.
type FilterGroup struct {
	ID            int32  `cbor:"1,keyasint" json:"id"`
	Name          string `cbor:"2,keyasint" json:"name"`
	DisplayNumber int32  `cbor:"3,keyasint" json:"display_number"`
}

// StoredFilterMetadata is everything stored about a filter list except its rules.
type StoredFilterMetadata struct {
	ID               FilterID    `cbor:"1,keyasint" json:"id"`
	GroupID          int32       `cbor:"2,keyasint" json:"group_id"`
	TimeUpdated      int64       `cbor:"3,keyasint" json:"time_updated"`
	LastDownloadTime int64       `cbor:"4,keyasint" json:"last_download_time"`
	Title            string      `cbor:"5,keyasint" json:"title"`
	Description      string      `cbor:"6,keyasint" json:"description"`
	Version          string      `cbor:"7,keyasint" json:"version"`
	DisplayNumber    int32       `cbor:"8,keyasint" json:"display_number"`
	DownloadURL      string      `cbor:"9,keyasint" json:"download_url"`
	SubscriptionURL  string      `cbor:"10,keyasint" json:"subscription_url"`
	Tags             []FilterTag `cbor:"11,keyasint" json:"tags"`
	Expires          int32       `cbor:"12,keyasint" json:"expires"`
	IsTrusted        bool        `cbor:"13,keyasint" json:"is_trusted"`
	IsCustom         bool        `cbor:"14,keyasint" json:"is_custom"`
	IsEnabled        bool        `cbor:"15,keyasint" json:"is_enabled"`
	IsInstalled      bool        `cbor:"16,keyasint" json:"is_installed"`
	Homepage         string      `cbor:"17,keyasint" json:"homepage"`
	License          string      `cbor:"18,keyasint" json:"license"`
	Checksum         string      `cbor:"19,keyasint" json:"checksum"`
	Languages        []string    `cbor:"20,keyasint" json:"languages"`
}

// FullFilterList is a filter list with its rules.
type FullFilterList struct {
	StoredFilterMetadata
	Rules *FilterListRules `cbor:"21,keyasint,omitempty" json:"rules,omitempty"`
}

// FilterListRules holds the rules of one filter list.
type FilterListRules struct {
	FilterID      FilterID `cbor:"1,keyasint" json:"filter_id"`
	Rules         []string `cbor:"2,keyasint" json:"rules"`
	DisabledRules []string `cbor:"3,keyasint" json:"disabled_rules"`
	RulesCount    int32    `cbor:"4,keyasint" json:"rules_count"`
}

// FilterListRulesRaw holds rules as newline-joined text.
type FilterListRulesRaw struct {
	FilterID      FilterID `cbor:"1,keyasint" json:"filter_id"`
	Rules         string   `cbor:"2,keyasint" json:"rules"`
	DisabledRules string   `cbor:"3,keyasint" json:"disabled_rules"`
	RulesCount    int32    `cbor:"4,keyasint" json:"rules_count"`
}

// DisabledRulesRaw holds the disabled rules of one list as text.
type DisabledRulesRaw struct {
	FilterID FilterID `cbor:"1,keyasint" json:"filter_id"`
	Text     string   `cbor:"2,keyasint" json:"text"`
}

// ActiveRulesInfo lists the enabled rules of an enabled filter list.
type ActiveRulesInfo struct {
	FilterID  FilterID `cbor:"1,keyasint" json:"filter_id"`
	GroupID   int32    `cbor:"2,keyasint" json:"group_id"`
	IsTrusted bool     `cbor:"3,keyasint" json:"is_trusted"`
	Rules     []string `cbor:"4,keyasint" json:"rules"`
}

// RulesCountByFilter is the number of rules in a filter list.
type RulesCountByFilter struct {
	FilterID   FilterID `cbor:"1,keyasint" json:"filter_id"`
	RulesCount int32    `cbor:"2,keyasint" json:"rules_count"`
}

// UpdateFilterError describes a filter list that failed to update.
type UpdateFilterError struct {
	FilterID        FilterID `cbor:"1,keyasint" json:"filter_id"`
	Message         string   `cbor:"2,keyasint" json:"message"`
	FilterURL       string   `cbor:"3,keyasint,omitempty" json:"filter_url,omitempty"`
	HTTPClientError string   `cbor:"4,keyasint,omitempty" json:"http_client_error,omitempty"`
}

// UpdateResult is the outcome of an update pass.
type UpdateResult struct {
	UpdatedList           []FullFilterList    `cbor:"1,keyasint" json:"updated_list"`
	RemainingFiltersCount int32               `cbor:"2,keyasint" json:"remaining_filters_count"`
	FiltersErrors         []UpdateFilterError `cbor:"3,keyasint" json:"filters_errors"`
}

// FilterListMetadata is parsed from the header of a downloaded list.
type FilterListMetadata struct {
	Title       string `cbor:"1,keyasint" json:"title"`
	Description string `cbor:"2,keyasint" json:"description"`
	TimeUpdated string `cbor:"3,keyasint" json:"time_updated"`
	Version     string `cbor:"4,keyasint" json:"version"`
	Homepage    string `cbor:"5,keyasint" json:"homepage"`
	License     string `cbor:"6,keyasint" json:"license"`
	Checksum    string `cbor:"7,keyasint" json:"checksum"`
	URL         string `cbor:"8,keyasint" json:"url"`
	RulesCount  int32  `cbor:"9,keyasint" json:"rules_count"`
}

// FilterListMetadataWithBody is metadata plus the downloaded text.
type FilterListMetadataWithBody struct {
	Metadata   FilterListMetadata `cbor:"1,keyasint" json:"metadata"`
	FilterBody string             `cbor:"2,keyasint" json:"filter_body"`
}

// MovedFilterInfo records an index list that became a custom list.
type MovedFilterInfo struct {
	PreviousID FilterID `cbor:"1,keyasint" json:"previous_id"`
	NewID      FilterID `cbor:"2,keyasint" json:"new_id"`
}

// PullMetadataResult is the outcome of an index synchronization.
type PullMetadataResult struct {
	AddedFilters   []FilterID        `cbor:"1,keyasint" json:"added_filters"`
	RemovedFilters []FilterID        `cbor:"2,keyasint" json:"removed_filters"`
	MovedFilters   []MovedFilterInfo `cbor:"3,keyasint" json:"moved_filters"`
}
