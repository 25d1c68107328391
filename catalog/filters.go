package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/VanDung-dev/flm-bridge/flm"
)

const filterColumns = `filter_id, group_id, last_update_time, last_download_time, title,
	description, version, display_number, download_url, subscription_url, expires,
	is_trusted, is_enabled, is_installed, homepage, license, checksum`

type scanner interface {
	Scan(dest ...any) error
}

func scanFilter(row scanner) (flm.StoredFilterMetadata, error) {
	var f flm.StoredFilterMetadata
	err := row.Scan(&f.ID, &f.GroupID, &f.TimeUpdated, &f.LastDownloadTime, &f.Title,
		&f.Description, &f.Version, &f.DisplayNumber, &f.DownloadURL, &f.SubscriptionURL, &f.Expires,
		&f.IsTrusted, &f.IsEnabled, &f.IsInstalled, &f.Homepage, &f.License, &f.Checksum)
	f.IsCustom = f.GroupID == flm.CustomGroupID
	f.Tags = []flm.FilterTag{}
	f.Languages = []string{}
	return f, err
}

// selectFilters loads filters matching where together with their tags and
// languages.
func selectFilters(ctx context.Context, q querier, where string, args ...any) ([]flm.StoredFilterMetadata, error) {
	query := `SELECT ` + filterColumns + ` FROM filter`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY filter_id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err)
	}
	filters := []flm.StoredFilterMetadata{}
	index := make(map[flm.FilterID]int)
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			rows.Close()
			return nil, dbError(err)
		}
		index[f.ID] = len(filters)
		filters = append(filters, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	if len(filters) == 0 {
		return filters, nil
	}

	tagRows, err := q.QueryContext(ctx, `SELECT ft.filter_id, t.tag_id, t.keyword
		FROM filter_filter_tag ft JOIN filter_tag t ON t.tag_id = ft.tag_id
		ORDER BY ft.filter_id, t.tag_id`)
	if err != nil {
		return nil, dbError(err)
	}
	for tagRows.Next() {
		var id flm.FilterID
		var tag flm.FilterTag
		if err := tagRows.Scan(&id, &tag.ID, &tag.Keyword); err != nil {
			tagRows.Close()
			return nil, dbError(err)
		}
		if i, ok := index[id]; ok {
			filters[i].Tags = append(filters[i].Tags, tag)
		}
	}
	tagRows.Close()
	if err := tagRows.Err(); err != nil {
		return nil, dbError(err)
	}

	langRows, err := q.QueryContext(ctx, `SELECT filter_id, lang FROM filter_locale ORDER BY filter_id, lang`)
	if err != nil {
		return nil, dbError(err)
	}
	defer langRows.Close()
	for langRows.Next() {
		var id flm.FilterID
		var lang string
		if err := langRows.Scan(&id, &lang); err != nil {
			return nil, dbError(err)
		}
		if i, ok := index[id]; ok {
			filters[i].Languages = append(filters[i].Languages, lang)
		}
	}
	return filters, dbError(langRows.Err())
}

func selectFilter(ctx context.Context, q querier, id flm.FilterID) (*flm.StoredFilterMetadata, error) {
	filters, err := selectFilters(ctx, q, `filter_id = ?`, id)
	if err != nil || len(filters) == 0 {
		return nil, err
	}
	return &filters[0], nil
}

type rulesRow struct {
	text       string
	disabled   string
	rulesCount int32
}

func selectRules(ctx context.Context, q querier, id flm.FilterID) (*rulesRow, error) {
	var r rulesRow
	err := q.QueryRowContext(ctx, `SELECT text, disabled_text, rules_count FROM rules_list WHERE filter_id = ?`, id).
		Scan(&r.text, &r.disabled, &r.rulesCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err)
	}
	return &r, nil
}

func fullFilterList(ctx context.Context, q querier, id flm.FilterID) (*flm.FullFilterList, error) {
	meta, err := selectFilter(ctx, q, id)
	if err != nil || meta == nil {
		return nil, err
	}
	full := &flm.FullFilterList{StoredFilterMetadata: *meta}
	r, err := selectRules(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if r != nil {
		full.Rules = &flm.FilterListRules{
			FilterID:      id,
			Rules:         nonNil(splitLines(r.text)),
			DisabledRules: nonNil(splitLines(r.disabled)),
			RulesCount:    r.rulesCount,
		}
	}
	return full, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// GetFullFilterListByID returns a list with its rules, or nil.
func (c *Catalog) GetFullFilterListByID(ctx context.Context, id flm.FilterID) (*flm.FullFilterList, error) {
	return fullFilterList(ctx, c.db, id)
}

// GetStoredFiltersMetadata returns the metadata of every stored list.
func (c *Catalog) GetStoredFiltersMetadata(ctx context.Context) ([]flm.StoredFilterMetadata, error) {
	return selectFilters(ctx, c.db, "")
}

// GetStoredFilterMetadataByID returns the metadata of one list, or nil.
func (c *Catalog) GetStoredFilterMetadataByID(ctx context.Context, id flm.FilterID) (*flm.StoredFilterMetadata, error) {
	return selectFilter(ctx, c.db, id)
}

// EnableFilterLists sets the enabled flag and returns the number of lists
// changed.
func (c *Catalog) EnableFilterLists(ctx context.Context, ids []flm.FilterID, isEnabled bool) (int64, error) {
	return c.setFlag(ctx, "is_enabled", ids, isEnabled)
}

// InstallFilterLists sets the installed flag and returns the number of lists
// changed.
func (c *Catalog) InstallFilterLists(ctx context.Context, ids []flm.FilterID, isInstalled bool) (int64, error) {
	return c.setFlag(ctx, "is_installed", ids, isInstalled)
}

func (c *Catalog) setFlag(ctx context.Context, column string, ids []flm.FilterID, value bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	res, err := c.db.ExecContext(ctx,
		`UPDATE filter SET `+column+` = ? WHERE filter_id IN `+in,
		append([]any{boolInt(value)}, args...)...)
	if err != nil {
		return 0, dbError(err)
	}
	n, err := res.RowsAffected()
	return n, dbError(err)
}

// DeleteCustomFilterLists removes custom lists and returns how many were
// deleted. Index lists in ids are ignored.
func (c *Catalog) DeleteCustomFilterLists(ctx context.Context, ids []flm.FilterID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		in, args := inClause(ids)
		res, err := tx.ExecContext(ctx,
			`DELETE FROM filter WHERE group_id = ? AND filter_id IN `+in,
			append([]any{flm.CustomGroupID}, args...)...)
		if err != nil {
			return dbError(err)
		}
		if deleted, err = res.RowsAffected(); err != nil {
			return dbError(err)
		}
		return deleteOrphans(ctx, tx)
	})
	return deleted, err
}

// deleteOrphans drops rows that no longer belong to a list.
func deleteOrphans(ctx context.Context, q querier) error {
	for _, table := range []string{"rules_list", "filter_filter_tag", "filter_locale"} {
		if _, err := q.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE filter_id NOT IN (SELECT filter_id FROM filter)`); err != nil {
			return dbError(err)
		}
	}
	return nil
}

// nextCustomID allocates the next custom list id. Ids grow downwards from
// flm.MaximumCustomFilterID.
func nextCustomID(ctx context.Context, q querier) (flm.FilterID, error) {
	var lowest sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT MIN(filter_id) FROM filter WHERE filter_id BETWEEN ? AND ?`,
		flm.MinimumCustomFilterID, flm.MaximumCustomFilterID).Scan(&lowest)
	if err != nil {
		return 0, dbError(err)
	}
	if !lowest.Valid {
		return flm.MaximumCustomFilterID, nil
	}
	next := lowest.Int64 - 1
	if next < int64(flm.MinimumCustomFilterID) {
		return 0, flm.Errorf(flm.KindOther, "custom filter id range exhausted")
	}
	return flm.FilterID(next), nil
}

// InstallCustomFilterList downloads a list and stores it as a new enabled
// custom list.
func (c *Catalog) InstallCustomFilterList(ctx context.Context, downloadURL string, isTrusted bool, title, description *string) (*flm.FullFilterList, error) {
	body, h, err := c.download(ctx, downloadURL)
	if err != nil {
		return nil, err
	}
	return c.insertCustom(ctx, customList{
		url:         downloadURL,
		body:        body,
		header:      h,
		trusted:     isTrusted,
		enabled:     true,
		downloaded:  c.now().Unix(),
		title:       title,
		description: description,
	})
}

// InstallCustomFilterFromString stores a list whose body the caller already
// has.
func (c *Catalog) InstallCustomFilterFromString(ctx context.Context, req flm.InstallFromString) (*flm.FullFilterList, error) {
	if err := checkContent(req.FilterBody); err != nil {
		return nil, err
	}
	body, err := compile(req.FilterBody, c.config().CompilerConditionalConstants)
	if err != nil {
		return nil, err
	}
	downloaded := req.LastDownloadTime
	if downloaded == 0 {
		downloaded = c.now().Unix()
	}
	return c.insertCustom(ctx, customList{
		url:         req.DownloadURL,
		body:        body,
		header:      parseHeader(req.FilterBody),
		trusted:     req.IsTrusted,
		enabled:     req.IsEnabled,
		downloaded:  downloaded,
		title:       req.CustomTitle,
		description: req.CustomDescription,
	})
}

type customList struct {
	url         string
	body        string
	header      header
	trusted     bool
	enabled     bool
	downloaded  int64
	title       *string
	description *string
}

func (c *Catalog) insertCustom(ctx context.Context, l customList) (*flm.FullFilterList, error) {
	title := l.header.Title
	if l.title != nil && strings.TrimSpace(*l.title) != "" {
		title = *l.title
	}
	description := l.header.Description
	if l.description != nil && *l.description != "" {
		description = *l.description
	}
	cfg := c.config()
	expires := cfg.ResolveExpires(ParseExpires(l.header.Expires))
	updated := parseTimeUpdated(l.header.TimeUpdated, c.now())

	var full *flm.FullFilterList
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		id, err := nextCustomID(ctx, tx)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO filter (filter_id, group_id, last_update_time,
			last_download_time, title, description, version, display_number, download_url,
			subscription_url, expires, is_trusted, is_enabled, is_installed, homepage, license, checksum)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
			id, flm.CustomGroupID, updated, l.downloaded, title, description, l.header.Version,
			l.url, l.url, expires, boolInt(l.trusted), boolInt(l.enabled),
			l.header.Homepage, l.header.License, l.header.Checksum)
		if err != nil {
			return dbError(err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rules_list (filter_id, text, disabled_text, rules_count) VALUES (?, ?, '', ?)`,
			id, l.body, CountRules(l.body)); err != nil {
			return dbError(err)
		}
		full, err = fullFilterList(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Int32("filter_id", full.ID).Str("url", l.url).Msg("custom filter installed")
	return full, nil
}

// UpdateCustomFilterMetadata renames a custom list and sets its trust flag.
func (c *Catalog) UpdateCustomFilterMetadata(ctx context.Context, filterID flm.FilterID, title string, isTrusted bool) (bool, error) {
	if strings.TrimSpace(title) == "" {
		return false, flm.FieldIsEmpty("title")
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE filter SET title = ?, is_trusted = ? WHERE filter_id = ? AND group_id = ?`,
		title, boolInt(isTrusted), filterID, flm.CustomGroupID)
	if err != nil {
		return false, dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbError(err)
	}
	if n == 0 {
		return false, flm.NotFound(int64(filterID))
	}
	return true, nil
}
