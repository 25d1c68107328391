package dispatch

import (
	"context"
	"fmt"

	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/opcode"
	"github.com/VanDung-dev/flm-bridge/wire"
)

// route decodes args, calls the library and encodes the response. A returned
// error is a bridge-level failure.
type route func(ctx context.Context, m flm.Manager, args []byte) ([]byte, error)

// bind adapts a typed handler into a route.
func bind[Req, Resp any](method opcode.Method, fn func(context.Context, flm.Manager, *Req) (*Resp, error)) route {
	return func(ctx context.Context, m flm.Manager, args []byte) ([]byte, error) {
		var req Req
		if err := wire.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("cannot decode input data for method '%s': %w", method, err)
		}
		resp, err := fn(ctx, m, &req)
		if err != nil {
			return nil, err
		}
		out, err := wire.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("cannot encode output data for method '%s': %w", method, err)
		}
		return out, nil
	}
}

func empty(err error) *wire.EmptyResponse {
	return &wire.EmptyResponse{Error: wire.NewOuterError(err)}
}

func count(n int64, err error) *wire.CountResponse {
	return &wire.CountResponse{Error: wire.NewOuterError(err), Count: n}
}

func success(ok bool, err error) *wire.SuccessResponse {
	return &wire.SuccessResponse{Error: wire.NewOuterError(err), Success: ok}
}

func updated(r *flm.UpdateResult, err error) *wire.UpdateFiltersResponse {
	return &wire.UpdateFiltersResponse{Error: wire.NewOuterError(err), Result: r}
}

var routes = [opcode.Count]route{
	opcode.InstallCustomFilterList: bind(opcode.InstallCustomFilterList,
		func(ctx context.Context, m flm.Manager, req *wire.InstallCustomFilterListRequest) (*wire.InstallCustomFilterListResponse, error) {
			list, err := m.InstallCustomFilterList(ctx, req.DownloadURL, req.IsTrusted, req.Title, req.Description)
			return &wire.InstallCustomFilterListResponse{Error: wire.NewOuterError(err), FilterList: list}, nil
		}),

	opcode.EnableFilterLists: bind(opcode.EnableFilterLists,
		func(ctx context.Context, m flm.Manager, req *wire.EnableFilterListsRequest) (*wire.CountResponse, error) {
			return count(m.EnableFilterLists(ctx, req.IDs, req.IsEnabled)), nil
		}),

	opcode.InstallFilterLists: bind(opcode.InstallFilterLists,
		func(ctx context.Context, m flm.Manager, req *wire.InstallFilterListsRequest) (*wire.CountResponse, error) {
			return count(m.InstallFilterLists(ctx, req.IDs, req.IsInstalled)), nil
		}),

	opcode.DeleteCustomFilterLists: bind(opcode.DeleteCustomFilterLists,
		func(ctx context.Context, m flm.Manager, req *wire.DeleteCustomFilterListsRequest) (*wire.CountResponse, error) {
			return count(m.DeleteCustomFilterLists(ctx, req.IDs)), nil
		}),

	opcode.GetFullFilterListById: bind(opcode.GetFullFilterListById,
		func(ctx context.Context, m flm.Manager, req *wire.FilterIDRequest) (*wire.GetFullFilterListByIdResponse, error) {
			list, err := m.GetFullFilterListByID(ctx, req.ID)
			return &wire.GetFullFilterListByIdResponse{Error: wire.NewOuterError(err), FilterList: list}, nil
		}),

	opcode.GetStoredFiltersMetadata: bind(opcode.GetStoredFiltersMetadata,
		func(ctx context.Context, m flm.Manager, _ *wire.EmptyRequest) (*wire.GetStoredFiltersMetadataResponse, error) {
			lists, err := m.GetStoredFiltersMetadata(ctx)
			return &wire.GetStoredFiltersMetadataResponse{Error: wire.NewOuterError(err), FilterLists: lists}, nil
		}),

	opcode.GetStoredFilterMetadataById: bind(opcode.GetStoredFilterMetadataById,
		func(ctx context.Context, m flm.Manager, req *wire.FilterIDRequest) (*wire.GetStoredFilterMetadataByIdResponse, error) {
			list, err := m.GetStoredFilterMetadataByID(ctx, req.ID)
			return &wire.GetStoredFilterMetadataByIdResponse{Error: wire.NewOuterError(err), FilterList: list}, nil
		}),

	opcode.SaveCustomFilterRules: bind(opcode.SaveCustomFilterRules,
		func(ctx context.Context, m flm.Manager, req *wire.SaveCustomFilterRulesRequest) (*wire.EmptyResponse, error) {
			if req.Rules == nil {
				return nil, fmt.Errorf("cannot decode SaveCustomFilterRulesRequest: %w: rules", ErrMissingField)
			}
			return empty(m.SaveCustomFilterRules(ctx, *req.Rules)), nil
		}),

	opcode.SaveDisabledRules: bind(opcode.SaveDisabledRules,
		func(ctx context.Context, m flm.Manager, req *wire.SaveDisabledRulesRequest) (*wire.EmptyResponse, error) {
			return empty(m.SaveDisabledRules(ctx, req.FilterID, req.DisabledRules)), nil
		}),

	opcode.UpdateFilters: bind(opcode.UpdateFilters,
		func(ctx context.Context, m flm.Manager, req *wire.UpdateFiltersRequest) (*wire.UpdateFiltersResponse, error) {
			return updated(m.UpdateFilters(ctx, req.IgnoreFiltersExpiration, req.LooseTimeout, req.IgnoreFiltersStatus)), nil
		}),

	opcode.ForceUpdateFiltersByIds: bind(opcode.ForceUpdateFiltersByIds,
		func(ctx context.Context, m flm.Manager, req *wire.ForceUpdateFiltersByIdsRequest) (*wire.UpdateFiltersResponse, error) {
			return updated(m.ForceUpdateFiltersByIDs(ctx, req.IDs, req.LooseTimeout)), nil
		}),

	opcode.FetchFilterListMetadata: bind(opcode.FetchFilterListMetadata,
		func(ctx context.Context, m flm.Manager, req *wire.URLRequest) (*wire.FetchFilterListMetadataResponse, error) {
			md, err := m.FetchFilterListMetadata(ctx, req.URL)
			return &wire.FetchFilterListMetadataResponse{Error: wire.NewOuterError(err), Metadata: md}, nil
		}),

	opcode.FetchFilterListMetadataWithBody: bind(opcode.FetchFilterListMetadataWithBody,
		func(ctx context.Context, m flm.Manager, req *wire.URLRequest) (*wire.FetchFilterListMetadataWithBodyResponse, error) {
			md, err := m.FetchFilterListMetadataWithBody(ctx, req.URL)
			return &wire.FetchFilterListMetadataWithBodyResponse{Error: wire.NewOuterError(err), Metadata: md}, nil
		}),

	opcode.LiftUpDatabase: bind(opcode.LiftUpDatabase,
		func(ctx context.Context, m flm.Manager, _ *wire.EmptyRequest) (*wire.EmptyResponse, error) {
			return empty(m.LiftUpDatabase(ctx)), nil
		}),

	opcode.GetAllTags: bind(opcode.GetAllTags,
		func(ctx context.Context, m flm.Manager, _ *wire.EmptyRequest) (*wire.GetAllTagsResponse, error) {
			tags, err := m.GetAllTags(ctx)
			return &wire.GetAllTagsResponse{Error: wire.NewOuterError(err), Tags: tags}, nil
		}),

	opcode.GetAllGroups: bind(opcode.GetAllGroups,
		func(ctx context.Context, m flm.Manager, _ *wire.EmptyRequest) (*wire.GetAllGroupsResponse, error) {
			groups, err := m.GetAllGroups(ctx)
			return &wire.GetAllGroupsResponse{Error: wire.NewOuterError(err), Groups: groups}, nil
		}),

	opcode.ChangeLocale: bind(opcode.ChangeLocale,
		func(ctx context.Context, m flm.Manager, req *wire.ChangeLocaleRequest) (*wire.SuccessResponse, error) {
			return success(m.ChangeLocale(ctx, req.SuggestedLocale)), nil
		}),

	opcode.PullMetadata: bind(opcode.PullMetadata,
		func(ctx context.Context, m flm.Manager, _ *wire.EmptyRequest) (*wire.PullMetadataResponse, error) {
			res, err := m.PullMetadata(ctx)
			return &wire.PullMetadataResponse{Error: wire.NewOuterError(err), Result: res}, nil
		}),

	opcode.UpdateCustomFilterMetadata: bind(opcode.UpdateCustomFilterMetadata,
		func(ctx context.Context, m flm.Manager, req *wire.UpdateCustomFilterMetadataRequest) (*wire.SuccessResponse, error) {
			return success(m.UpdateCustomFilterMetadata(ctx, req.FilterID, req.Title, req.IsTrusted)), nil
		}),

	opcode.GetDatabasePath: bind(opcode.GetDatabasePath,
		func(ctx context.Context, m flm.Manager, _ *wire.EmptyRequest) (*wire.GetDatabasePathResponse, error) {
			path, err := m.GetDatabasePath(ctx)
			return &wire.GetDatabasePathResponse{Error: wire.NewOuterError(err), Path: path}, nil
		}),

	opcode.GetDatabaseVersion: bind(opcode.GetDatabaseVersion,
		func(ctx context.Context, m flm.Manager, _ *wire.EmptyRequest) (*wire.GetDatabaseVersionResponse, error) {
			v, err := m.GetDatabaseVersion(ctx)
			return &wire.GetDatabaseVersionResponse{Error: wire.NewOuterError(err), Version: v}, nil
		}),

	opcode.InstallCustomFilterFromString: bind(opcode.InstallCustomFilterFromString,
		func(ctx context.Context, m flm.Manager, req *wire.InstallCustomFilterFromStringRequest) (*wire.InstallCustomFilterFromStringResponse, error) {
			list, err := m.InstallCustomFilterFromString(ctx, flm.InstallFromString{
				DownloadURL:       req.DownloadURL,
				LastDownloadTime:  req.LastDownloadTime,
				IsEnabled:         req.IsEnabled,
				IsTrusted:         req.IsTrusted,
				FilterBody:        req.FilterBody,
				CustomTitle:       req.CustomTitle,
				CustomDescription: req.CustomDescription,
			})
			return &wire.InstallCustomFilterFromStringResponse{Error: wire.NewOuterError(err), FilterList: list}, nil
		}),

	opcode.GetActiveRules: bind(opcode.GetActiveRules,
		func(ctx context.Context, m flm.Manager, _ *wire.EmptyRequest) (*wire.GetActiveRulesResponse, error) {
			rules, err := m.GetActiveRules(ctx)
			return &wire.GetActiveRulesResponse{Error: wire.NewOuterError(err), Rules: rules}, nil
		}),

	opcode.GetFilterRulesAsStrings: bind(opcode.GetFilterRulesAsStrings,
		func(ctx context.Context, m flm.Manager, req *wire.IDsRequest) (*wire.GetFilterRulesAsStringsResponse, error) {
			rules, err := m.GetFilterRulesAsStrings(ctx, req.IDs)
			return &wire.GetFilterRulesAsStringsResponse{Error: wire.NewOuterError(err), RulesList: rules}, nil
		}),

	opcode.SaveRulesToFileBlob: bind(opcode.SaveRulesToFileBlob,
		func(ctx context.Context, m flm.Manager, req *wire.SaveRulesToFileBlobRequest) (*wire.EmptyResponse, error) {
			return empty(m.SaveRulesToFileBlob(ctx, req.FilterID, req.FilePath)), nil
		}),

	opcode.GetDisabledRules: bind(opcode.GetDisabledRules,
		func(ctx context.Context, m flm.Manager, req *wire.IDsRequest) (*wire.GetDisabledRulesResponse, error) {
			rules, err := m.GetDisabledRules(ctx, req.IDs)
			return &wire.GetDisabledRulesResponse{Error: wire.NewOuterError(err), RulesRaw: rules}, nil
		}),

	opcode.SetProxyMode: bind(opcode.SetProxyMode,
		func(ctx context.Context, m flm.Manager, req *wire.SetProxyModeRequest) (*wire.EmptyResponse, error) {
			return empty(m.SetProxyMode(ctx, flm.ProxyModeFromOrdinal(req.Mode, req.CustomProxyAddr))), nil
		}),

	opcode.GetRulesCount: bind(opcode.GetRulesCount,
		func(ctx context.Context, m flm.Manager, req *wire.IDsRequest) (*wire.GetRulesCountResponse, error) {
			counts, err := m.GetRulesCount(ctx, req.IDs)
			return &wire.GetRulesCountResponse{Error: wire.NewOuterError(err), RulesCount: counts}, nil
		}),
}
