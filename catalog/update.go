package catalog

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/VanDung-dev/flm-bridge/flm"
)

// updateWorkers bounds concurrent downloads during an update pass.
const updateWorkers = 4

type downloaded struct {
	filter flm.StoredFilterMetadata
	body   string
	header header
}

// UpdateFilters refreshes stored index and custom lists. Lists that are not
// expired are skipped unless ignoreFiltersExpiration is set, and disabled
// lists are skipped unless ignoreFiltersStatus is set. A positive
// looseTimeout, in milliseconds, stops starting new downloads once spent;
// lists left over are reported in RemainingFiltersCount.
func (c *Catalog) UpdateFilters(ctx context.Context, ignoreFiltersExpiration bool, looseTimeout int32, ignoreFiltersStatus bool) (*flm.UpdateResult, error) {
	where := `download_url != '' AND filter_id != ?`
	if !ignoreFiltersStatus {
		where += ` AND is_enabled = 1`
	}
	filters, err := selectFilters(ctx, c.db, where, flm.UserRulesID)
	if err != nil {
		return nil, err
	}

	cfg := c.config()
	now := c.now().Unix()
	due := filters[:0]
	for _, f := range filters {
		skipExpiry := ignoreFiltersExpiration || (cfg.ShouldIgnoreExpiresForLocalURLs && isLocalURL(f.DownloadURL))
		if !skipExpiry && f.LastDownloadTime+int64(f.Expires) > now {
			continue
		}
		due = append(due, f)
	}
	return c.update(ctx, due, looseTimeout)
}

// ForceUpdateFiltersByIDs refreshes the given lists regardless of expiry or
// status.
func (c *Catalog) ForceUpdateFiltersByIDs(ctx context.Context, ids []flm.FilterID, looseTimeout int32) (*flm.UpdateResult, error) {
	if len(ids) == 0 {
		return emptyUpdate(), nil
	}
	in, args := inClause(ids)
	filters, err := selectFilters(ctx, c.db, `download_url != '' AND filter_id IN `+in, args...)
	if err != nil {
		return nil, err
	}
	return c.update(ctx, filters, looseTimeout)
}

func emptyUpdate() *flm.UpdateResult {
	return &flm.UpdateResult{
		UpdatedList:   []flm.FullFilterList{},
		FiltersErrors: []flm.UpdateFilterError{},
	}
}

func (c *Catalog) update(ctx context.Context, filters []flm.StoredFilterMetadata, looseTimeout int32) (*flm.UpdateResult, error) {
	result := emptyUpdate()
	if len(filters) == 0 {
		return result, nil
	}

	budget := ctx
	if looseTimeout > 0 {
		var cancel context.CancelFunc
		budget, cancel = context.WithTimeout(ctx, time.Duration(looseTimeout)*time.Millisecond)
		defer cancel()
	}

	var (
		mu        sync.Mutex
		fetched   []downloaded
		remaining int32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(updateWorkers)
	for _, f := range filters {
		g.Go(func() error {
			if budget.Err() != nil || gctx.Err() != nil {
				mu.Lock()
				remaining++
				mu.Unlock()
				return nil
			}
			body, h, err := c.download(budget, f.DownloadURL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if budget.Err() != nil && ctx.Err() == nil {
					remaining++
					return nil
				}
				result.FiltersErrors = append(result.FiltersErrors, updateError(f, err))
				return nil
			}
			fetched = append(fetched, downloaded{filter: f, body: body, header: h})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, flm.Errorf(flm.KindTimedOut, "%v", err)
	}

	var updatedIDs []flm.FilterID
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		for _, d := range fetched {
			changed, err := c.apply(ctx, tx, d)
			if err != nil {
				return err
			}
			if changed {
				updatedIDs = append(updatedIDs, d.filter.ID)
			}
		}
		for _, id := range updatedIDs {
			full, err := fullFilterList(ctx, tx, id)
			if err != nil {
				return err
			}
			if full != nil {
				result.UpdatedList = append(result.UpdatedList, *full)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.RemainingFiltersCount = remaining
	c.log.Info().
		Int("checked", len(filters)).
		Int("updated", len(result.UpdatedList)).
		Int("failed", len(result.FiltersErrors)).
		Int32("remaining", remaining).
		Msg("filters updated")
	return result, nil
}

// apply stores a downloaded list. It always records the download time and
// reports whether the rules changed.
func (c *Catalog) apply(ctx context.Context, tx *sql.Tx, d downloaded) (bool, error) {
	now := c.now()
	old, err := selectRules(ctx, tx, d.filter.ID)
	if err != nil {
		return false, err
	}
	changed := old == nil || old.text != d.body || d.header.Version != d.filter.Version

	expires := d.filter.Expires
	if d.header.Expires != "" {
		expires = c.config().ResolveExpires(ParseExpires(d.header.Expires))
	}
	if !changed {
		_, err := tx.ExecContext(ctx, `UPDATE filter SET last_download_time = ?, expires = ? WHERE filter_id = ?`,
			now.Unix(), expires, d.filter.ID)
		return false, dbError(err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE filter SET last_download_time = ?, last_update_time = ?,
		version = ?, expires = ?, checksum = ?,
		homepage = CASE WHEN ? != '' THEN ? ELSE homepage END,
		license = CASE WHEN ? != '' THEN ? ELSE license END
		WHERE filter_id = ?`,
		now.Unix(), parseTimeUpdated(d.header.TimeUpdated, now),
		d.header.Version, expires, d.header.Checksum,
		d.header.Homepage, d.header.Homepage,
		d.header.License, d.header.License,
		d.filter.ID)
	if err != nil {
		return false, dbError(err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO rules_list (filter_id, text, disabled_text, rules_count)
		VALUES (?, ?, '', ?)
		ON CONFLICT (filter_id) DO UPDATE SET text = excluded.text, rules_count = excluded.rules_count`,
		d.filter.ID, d.body, CountRules(d.body))
	return true, dbError(err)
}

func updateError(f flm.StoredFilterMetadata, err error) flm.UpdateFilterError {
	ue := flm.UpdateFilterError{
		FilterID:  f.ID,
		Message:   err.Error(),
		FilterURL: f.DownloadURL,
	}
	var fe *flm.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case flm.KindHTTPClientNetworkError, flm.KindHTTPStrict200Response,
			flm.KindHTTPClientBodyRecoveryFailed, flm.KindTimedOut:
			ue.HTTPClientError = fe.Kind.String()
		}
	}
	return ue
}

// FetchFilterListMetadata downloads a list and returns its header.
func (c *Catalog) FetchFilterListMetadata(ctx context.Context, url string) (*flm.FilterListMetadata, error) {
	body, h, err := c.download(ctx, url)
	if err != nil {
		return nil, err
	}
	md := h.metadata(url, CountRules(body))
	return &md, nil
}

// FetchFilterListMetadataWithBody is FetchFilterListMetadata that also
// returns the list text.
func (c *Catalog) FetchFilterListMetadataWithBody(ctx context.Context, url string) (*flm.FilterListMetadataWithBody, error) {
	body, h, err := c.download(ctx, url)
	if err != nil {
		return nil, err
	}
	return &flm.FilterListMetadataWithBody{
		Metadata:   h.metadata(url, CountRules(body)),
		FilterBody: body,
	}, nil
}
