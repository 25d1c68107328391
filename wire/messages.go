package wire

import "github.com/VanDung-dev/flm-bridge/flm"

// EmptyRequest is the argument of operations that take none.
type EmptyRequest struct{}

// EmptyResponse is the result of operations that return nothing but an error.
type EmptyResponse struct {
	Error *OuterError `cbor:"1,keyasint,omitempty"`
}

type InstallCustomFilterListRequest struct {
	DownloadURL string  `cbor:"1,keyasint"`
	IsTrusted   bool    `cbor:"2,keyasint"`
	Title       *string `cbor:"3,keyasint,omitempty"`
	Description *string `cbor:"4,keyasint,omitempty"`
}

type InstallCustomFilterListResponse struct {
	Error      *OuterError         `cbor:"1,keyasint,omitempty"`
	FilterList *flm.FullFilterList `cbor:"2,keyasint,omitempty"`
}

type EnableFilterListsRequest struct {
	IDs       []flm.FilterID `cbor:"1,keyasint"`
	IsEnabled bool           `cbor:"2,keyasint"`
}

type InstallFilterListsRequest struct {
	IDs         []flm.FilterID `cbor:"1,keyasint"`
	IsInstalled bool           `cbor:"2,keyasint"`
}

type DeleteCustomFilterListsRequest struct {
	IDs []flm.FilterID `cbor:"1,keyasint"`
}

// CountResponse reports how many rows an operation changed.
type CountResponse struct {
	Error *OuterError `cbor:"1,keyasint,omitempty"`
	Count int64       `cbor:"2,keyasint"`
}

type FilterIDRequest struct {
	ID flm.FilterID `cbor:"1,keyasint"`
}

type GetFullFilterListByIdResponse struct {
	Error      *OuterError         `cbor:"1,keyasint,omitempty"`
	FilterList *flm.FullFilterList `cbor:"2,keyasint,omitempty"`
}

type GetStoredFiltersMetadataResponse struct {
	Error       *OuterError                `cbor:"1,keyasint,omitempty"`
	FilterLists []flm.StoredFilterMetadata `cbor:"2,keyasint"`
}

type GetStoredFilterMetadataByIdResponse struct {
	Error      *OuterError               `cbor:"1,keyasint,omitempty"`
	FilterList *flm.StoredFilterMetadata `cbor:"2,keyasint,omitempty"`
}

type SaveCustomFilterRulesRequest struct {
	Rules *flm.FilterListRules `cbor:"1,keyasint,omitempty"`
}

type SaveDisabledRulesRequest struct {
	FilterID      flm.FilterID `cbor:"1,keyasint"`
	DisabledRules []string     `cbor:"2,keyasint"`
}

type UpdateFiltersRequest struct {
	IgnoreFiltersExpiration bool  `cbor:"1,keyasint"`
	LooseTimeout            int32 `cbor:"2,keyasint"`
	IgnoreFiltersStatus     bool  `cbor:"3,keyasint"`
}

type ForceUpdateFiltersByIdsRequest struct {
	IDs          []flm.FilterID `cbor:"1,keyasint"`
	LooseTimeout int32          `cbor:"2,keyasint"`
}

type UpdateFiltersResponse struct {
	Error  *OuterError       `cbor:"1,keyasint,omitempty"`
	Result *flm.UpdateResult `cbor:"2,keyasint,omitempty"`
}

type URLRequest struct {
	URL string `cbor:"1,keyasint"`
}

type FetchFilterListMetadataResponse struct {
	Error    *OuterError             `cbor:"1,keyasint,omitempty"`
	Metadata *flm.FilterListMetadata `cbor:"2,keyasint,omitempty"`
}

type FetchFilterListMetadataWithBodyResponse struct {
	Error    *OuterError                     `cbor:"1,keyasint,omitempty"`
	Metadata *flm.FilterListMetadataWithBody `cbor:"2,keyasint,omitempty"`
}

type GetAllTagsResponse struct {
	Error *OuterError     `cbor:"1,keyasint,omitempty"`
	Tags  []flm.FilterTag `cbor:"2,keyasint"`
}

type GetAllGroupsResponse struct {
	Error  *OuterError       `cbor:"1,keyasint,omitempty"`
	Groups []flm.FilterGroup `cbor:"2,keyasint"`
}

type ChangeLocaleRequest struct {
	SuggestedLocale string `cbor:"1,keyasint"`
}

// SuccessResponse reports a boolean outcome.
type SuccessResponse struct {
	Error   *OuterError `cbor:"1,keyasint,omitempty"`
	Success bool        `cbor:"2,keyasint"`
}

type PullMetadataResponse struct {
	Error  *OuterError             `cbor:"1,keyasint,omitempty"`
	Result *flm.PullMetadataResult `cbor:"2,keyasint,omitempty"`
}

type UpdateCustomFilterMetadataRequest struct {
	FilterID  flm.FilterID `cbor:"1,keyasint"`
	Title     string       `cbor:"2,keyasint"`
	IsTrusted bool         `cbor:"3,keyasint"`
}

type GetDatabasePathResponse struct {
	Error *OuterError `cbor:"1,keyasint,omitempty"`
	Path  string      `cbor:"2,keyasint"`
}

type GetDatabaseVersionResponse struct {
	Error   *OuterError `cbor:"1,keyasint,omitempty"`
	Version *int32      `cbor:"2,keyasint,omitempty"`
}

type InstallCustomFilterFromStringRequest struct {
	DownloadURL       string  `cbor:"1,keyasint"`
	LastDownloadTime  int64   `cbor:"2,keyasint"`
	IsEnabled         bool    `cbor:"3,keyasint"`
	IsTrusted         bool    `cbor:"4,keyasint"`
	FilterBody        string  `cbor:"5,keyasint"`
	CustomTitle       *string `cbor:"6,keyasint,omitempty"`
	CustomDescription *string `cbor:"7,keyasint,omitempty"`
}

type InstallCustomFilterFromStringResponse struct {
	Error      *OuterError         `cbor:"1,keyasint,omitempty"`
	FilterList *flm.FullFilterList `cbor:"2,keyasint,omitempty"`
}

type GetActiveRulesResponse struct {
	Error *OuterError           `cbor:"1,keyasint,omitempty"`
	Rules []flm.ActiveRulesInfo `cbor:"2,keyasint"`
}

// IDsRequest carries a list of filter ids.
type IDsRequest struct {
	IDs []flm.FilterID `cbor:"1,keyasint"`
}

type GetFilterRulesAsStringsResponse struct {
	Error     *OuterError              `cbor:"1,keyasint,omitempty"`
	RulesList []flm.FilterListRulesRaw `cbor:"2,keyasint"`
}

type SaveRulesToFileBlobRequest struct {
	FilterID flm.FilterID `cbor:"1,keyasint"`
	FilePath string       `cbor:"2,keyasint"`
}

type GetDisabledRulesResponse struct {
	Error    *OuterError            `cbor:"1,keyasint,omitempty"`
	RulesRaw []flm.DisabledRulesRaw `cbor:"2,keyasint"`
}

type SetProxyModeRequest struct {
	Mode            int32  `cbor:"1,keyasint"`
	CustomProxyAddr string `cbor:"2,keyasint,omitempty"`
}

type GetRulesCountResponse struct {
	Error      *OuterError              `cbor:"1,keyasint,omitempty"`
	RulesCount []flm.RulesCountByFilter `cbor:"2,keyasint"`
}
