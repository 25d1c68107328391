// Package flm defines the filter list library that lives behind a bridge
// handle: its configuration, models, errors and the Manager contract.
//
// The bridge never looks inside a Manager. It only decodes a request, calls
// one Manager method and encodes the result.
package flm

import "context"

// Manager is a stateful filter list library instance.
//
// Methods returning a pointer return nil without error when the entity does
// not exist. Implementations document their own concurrency guarantees.
type Manager interface {
	InstallCustomFilterList(ctx context.Context, downloadURL string, isTrusted bool, title, description *string) (*FullFilterList, error)
	EnableFilterLists(ctx context.Context, ids []FilterID, isEnabled bool) (int64, error)
	InstallFilterLists(ctx context.Context, ids []FilterID, isInstalled bool) (int64, error)
	DeleteCustomFilterLists(ctx context.Context, ids []FilterID) (int64, error)
	GetFullFilterListByID(ctx context.Context, id FilterID) (*FullFilterList, error)
	GetStoredFiltersMetadata(ctx context.Context) ([]StoredFilterMetadata, error)
	GetStoredFilterMetadataByID(ctx context.Context, id FilterID) (*StoredFilterMetadata, error)
	SaveCustomFilterRules(ctx context.Context, rules FilterListRules) error
	SaveDisabledRules(ctx context.Context, filterID FilterID, disabledRules []string) error
	UpdateFilters(ctx context.Context, ignoreFiltersExpiration bool, looseTimeout int32, ignoreFiltersStatus bool) (*UpdateResult, error)
	ForceUpdateFiltersByIDs(ctx context.Context, ids []FilterID, looseTimeout int32) (*UpdateResult, error)
	FetchFilterListMetadata(ctx context.Context, url string) (*FilterListMetadata, error)
	FetchFilterListMetadataWithBody(ctx context.Context, url string) (*FilterListMetadataWithBody, error)
	LiftUpDatabase(ctx context.Context) error
	GetAllTags(ctx context.Context) ([]FilterTag, error)
	GetAllGroups(ctx context.Context) ([]FilterGroup, error)
	ChangeLocale(ctx context.Context, suggestedLocale string) (bool, error)
	PullMetadata(ctx context.Context) (*PullMetadataResult, error)
	UpdateCustomFilterMetadata(ctx context.Context, filterID FilterID, title string, isTrusted bool) (bool, error)
	GetDatabasePath(ctx context.Context) (string, error)
	GetDatabaseVersion(ctx context.Context) (*int32, error)
	InstallCustomFilterFromString(ctx context.Context, req InstallFromString) (*FullFilterList, error)
	GetActiveRules(ctx context.Context) ([]ActiveRulesInfo, error)
	GetFilterRulesAsStrings(ctx context.Context, ids []FilterID) ([]FilterListRulesRaw, error)
	SaveRulesToFileBlob(ctx context.Context, filterID FilterID, filePath string) error
	GetDisabledRules(ctx context.Context, ids []FilterID) ([]DisabledRulesRaw, error)
	SetProxyMode(ctx context.Context, mode RequestProxyMode) error
	GetRulesCount(ctx context.Context, ids []FilterID) ([]RulesCountByFilter, error)

	// Close releases everything the instance owns.
	Close() error
}

// InstallFromString carries the arguments of InstallCustomFilterFromString.
type InstallFromString struct {
	DownloadURL       string
	LastDownloadTime  int64
	IsEnabled         bool
	IsTrusted         bool
	FilterBody        string
	CustomTitle       *string
	CustomDescription *string
}

// Factory builds a Manager from a configuration.
type Factory func(cfg Configuration) (Manager, error)
