package host

import (
	"context"

	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/wire"
)

// Manager is a flm.Manager whose every call crosses the boundary.
type Manager struct {
	d *Driver
}

var _ flm.Manager = (*Manager)(nil)

// NewManager wraps d. Closing the Manager closes d.
func NewManager(d *Driver) *Manager {
	return &Manager{d: d}
}

// Driver returns the underlying driver.
func (m *Manager) Driver() *Driver { return m.d }

func (m *Manager) Close() error { return m.d.Close() }

func (m *Manager) InstallCustomFilterList(ctx context.Context, downloadURL string, isTrusted bool, title, description *string) (*flm.FullFilterList, error) {
	var resp wire.InstallCustomFilterListResponse
	req := &wire.InstallCustomFilterListRequest{DownloadURL: downloadURL, IsTrusted: isTrusted, Title: title, Description: description}
	if err := m.d.Call(ctx, InstallCustomFilterList, req, &resp); err != nil {
		return nil, err
	}
	return resp.FilterList, wire.ErrorOf(resp.Error)
}

func (m *Manager) EnableFilterLists(ctx context.Context, ids []flm.FilterID, isEnabled bool) (int64, error) {
	var resp wire.CountResponse
	if err := m.d.Call(ctx, EnableFilterLists, &wire.EnableFilterListsRequest{IDs: ids, IsEnabled: isEnabled}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, wire.ErrorOf(resp.Error)
}

func (m *Manager) InstallFilterLists(ctx context.Context, ids []flm.FilterID, isInstalled bool) (int64, error) {
	var resp wire.CountResponse
	if err := m.d.Call(ctx, InstallFilterLists, &wire.InstallFilterListsRequest{IDs: ids, IsInstalled: isInstalled}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, wire.ErrorOf(resp.Error)
}

func (m *Manager) DeleteCustomFilterLists(ctx context.Context, ids []flm.FilterID) (int64, error) {
	var resp wire.CountResponse
	if err := m.d.Call(ctx, DeleteCustomFilterLists, &wire.DeleteCustomFilterListsRequest{IDs: ids}, &resp); err != nil {
		return 0, err
	}
	return resp.Count, wire.ErrorOf(resp.Error)
}

func (m *Manager) GetFullFilterListByID(ctx context.Context, id flm.FilterID) (*flm.FullFilterList, error) {
	var resp wire.GetFullFilterListByIdResponse
	if err := m.d.Call(ctx, GetFullFilterListById, &wire.FilterIDRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.FilterList, wire.ErrorOf(resp.Error)
}

func (m *Manager) GetStoredFiltersMetadata(ctx context.Context) ([]flm.StoredFilterMetadata, error) {
	var resp wire.GetStoredFiltersMetadataResponse
	if err := m.d.Call(ctx, GetStoredFiltersMetadata, nil, &resp); err != nil {
		return nil, err
	}
	return resp.FilterLists, wire.ErrorOf(resp.Error)
}

func (m *Manager) GetStoredFilterMetadataByID(ctx context.Context, id flm.FilterID) (*flm.StoredFilterMetadata, error) {
	var resp wire.GetStoredFilterMetadataByIdResponse
	if err := m.d.Call(ctx, GetStoredFilterMetadataById, &wire.FilterIDRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.FilterList, wire.ErrorOf(resp.Error)
}

func (m *Manager) SaveCustomFilterRules(ctx context.Context, rules flm.FilterListRules) error {
	var resp wire.EmptyResponse
	if err := m.d.Call(ctx, SaveCustomFilterRules, &wire.SaveCustomFilterRulesRequest{Rules: &rules}, &resp); err != nil {
		return err
	}
	return wire.ErrorOf(resp.Error)
}

func (m *Manager) SaveDisabledRules(ctx context.Context, filterID flm.FilterID, disabledRules []string) error {
	var resp wire.EmptyResponse
	req := &wire.SaveDisabledRulesRequest{FilterID: filterID, DisabledRules: disabledRules}
	if err := m.d.Call(ctx, SaveDisabledRules, req, &resp); err != nil {
		return err
	}
	return wire.ErrorOf(resp.Error)
}

func (m *Manager) UpdateFilters(ctx context.Context, ignoreFiltersExpiration bool, looseTimeout int32, ignoreFiltersStatus bool) (*flm.UpdateResult, error) {
	var resp wire.UpdateFiltersResponse
	req := &wire.UpdateFiltersRequest{
		IgnoreFiltersExpiration: ignoreFiltersExpiration,
		LooseTimeout:            looseTimeout,
		IgnoreFiltersStatus:     ignoreFiltersStatus,
	}
	if err := m.d.Call(ctx, UpdateFilters, req, &resp); err != nil {
		return nil, err
	}
	return resp.Result, wire.ErrorOf(resp.Error)
}

func (m *Manager) ForceUpdateFiltersByIDs(ctx context.Context, ids []flm.FilterID, looseTimeout int32) (*flm.UpdateResult, error) {
	var resp wire.UpdateFiltersResponse
	req := &wire.ForceUpdateFiltersByIdsRequest{IDs: ids, LooseTimeout: looseTimeout}
	if err := m.d.Call(ctx, ForceUpdateFiltersByIds, req, &resp); err != nil {
		return nil, err
	}
	return resp.Result, wire.ErrorOf(resp.Error)
}

func (m *Manager) FetchFilterListMetadata(ctx context.Context, url string) (*flm.FilterListMetadata, error) {
	var resp wire.FetchFilterListMetadataResponse
	if err := m.d.Call(ctx, FetchFilterListMetadata, &wire.URLRequest{URL: url}, &resp); err != nil {
		return nil, err
	}
	return resp.Metadata, wire.ErrorOf(resp.Error)
}

func (m *Manager) FetchFilterListMetadataWithBody(ctx context.Context, url string) (*flm.FilterListMetadataWithBody, error) {
	var resp wire.FetchFilterListMetadataWithBodyResponse
	if err := m.d.Call(ctx, FetchFilterListMetadataWithBody, &wire.URLRequest{URL: url}, &resp); err != nil {
		return nil, err
	}
	return resp.Metadata, wire.ErrorOf(resp.Error)
}

func (m *Manager) LiftUpDatabase(ctx context.Context) error {
	var resp wire.EmptyResponse
	if err := m.d.Call(ctx, LiftUpDatabase, nil, &resp); err != nil {
		return err
	}
	return wire.ErrorOf(resp.Error)
}

func (m *Manager) GetAllTags(ctx context.Context) ([]flm.FilterTag, error) {
	var resp wire.GetAllTagsResponse
	if err := m.d.Call(ctx, GetAllTags, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, wire.ErrorOf(resp.Error)
}

func (m *Manager) GetAllGroups(ctx context.Context) ([]flm.FilterGroup, error) {
	var resp wire.GetAllGroupsResponse
	if err := m.d.Call(ctx, GetAllGroups, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, wire.ErrorOf(resp.Error)
}

func (m *Manager) ChangeLocale(ctx context.Context, suggestedLocale string) (bool, error) {
	var resp wire.SuccessResponse
	if err := m.d.Call(ctx, ChangeLocale, &wire.ChangeLocaleRequest{SuggestedLocale: suggestedLocale}, &resp); err != nil {
		return false, err
	}
	return resp.Success, wire.ErrorOf(resp.Error)
}

func (m *Manager) PullMetadata(ctx context.Context) (*flm.PullMetadataResult, error) {
	var resp wire.PullMetadataResponse
	if err := m.d.Call(ctx, PullMetadata, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Result, wire.ErrorOf(resp.Error)
}

func (m *Manager) UpdateCustomFilterMetadata(ctx context.Context, filterID flm.FilterID, title string, isTrusted bool) (bool, error) {
	var resp wire.SuccessResponse
	req := &wire.UpdateCustomFilterMetadataRequest{FilterID: filterID, Title: title, IsTrusted: isTrusted}
	if err := m.d.Call(ctx, UpdateCustomFilterMetadata, req, &resp); err != nil {
		return false, err
	}
	return resp.Success, wire.ErrorOf(resp.Error)
}

func (m *Manager) GetDatabasePath(ctx context.Context) (string, error) {
	var resp wire.GetDatabasePathResponse
	if err := m.d.Call(ctx, GetDatabasePath, nil, &resp); err != nil {
		return "", err
	}
	return resp.Path, wire.ErrorOf(resp.Error)
}

func (m *Manager) GetDatabaseVersion(ctx context.Context) (*int32, error) {
	var resp wire.GetDatabaseVersionResponse
	if err := m.d.Call(ctx, GetDatabaseVersion, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Version, wire.ErrorOf(resp.Error)
}

func (m *Manager) InstallCustomFilterFromString(ctx context.Context, in flm.InstallFromString) (*flm.FullFilterList, error) {
	var resp wire.InstallCustomFilterFromStringResponse
	req := &wire.InstallCustomFilterFromStringRequest{
		DownloadURL:       in.DownloadURL,
		LastDownloadTime:  in.LastDownloadTime,
		IsEnabled:         in.IsEnabled,
		IsTrusted:         in.IsTrusted,
		FilterBody:        in.FilterBody,
		CustomTitle:       in.CustomTitle,
		CustomDescription: in.CustomDescription,
	}
	if err := m.d.Call(ctx, InstallCustomFilterFromString, req, &resp); err != nil {
		return nil, err
	}
	return resp.FilterList, wire.ErrorOf(resp.Error)
}

func (m *Manager) GetActiveRules(ctx context.Context) ([]flm.ActiveRulesInfo, error) {
	var resp wire.GetActiveRulesResponse
	if err := m.d.Call(ctx, GetActiveRules, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rules, wire.ErrorOf(resp.Error)
}

func (m *Manager) GetFilterRulesAsStrings(ctx context.Context, ids []flm.FilterID) ([]flm.FilterListRulesRaw, error) {
	var resp wire.GetFilterRulesAsStringsResponse
	if err := m.d.Call(ctx, GetFilterRulesAsStrings, &wire.IDsRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return resp.RulesList, wire.ErrorOf(resp.Error)
}

func (m *Manager) SaveRulesToFileBlob(ctx context.Context, filterID flm.FilterID, filePath string) error {
	var resp wire.EmptyResponse
	req := &wire.SaveRulesToFileBlobRequest{FilterID: filterID, FilePath: filePath}
	if err := m.d.Call(ctx, SaveRulesToFileBlob, req, &resp); err != nil {
		return err
	}
	return wire.ErrorOf(resp.Error)
}

func (m *Manager) GetDisabledRules(ctx context.Context, ids []flm.FilterID) ([]flm.DisabledRulesRaw, error) {
	var resp wire.GetDisabledRulesResponse
	if err := m.d.Call(ctx, GetDisabledRules, &wire.IDsRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return resp.RulesRaw, wire.ErrorOf(resp.Error)
}

func (m *Manager) SetProxyMode(ctx context.Context, mode flm.RequestProxyMode) error {
	var resp wire.EmptyResponse
	req := &wire.SetProxyModeRequest{Mode: int32(mode.Mode), CustomProxyAddr: mode.Addr}
	if err := m.d.Call(ctx, SetProxyMode, req, &resp); err != nil {
		return err
	}
	return wire.ErrorOf(resp.Error)
}

func (m *Manager) GetRulesCount(ctx context.Context, ids []flm.FilterID) ([]flm.RulesCountByFilter, error) {
	var resp wire.GetRulesCountResponse
	if err := m.d.Call(ctx, GetRulesCount, &wire.IDsRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return resp.RulesCount, wire.ErrorOf(resp.Error)
}
