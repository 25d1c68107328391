package catalog

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/VanDung-dev/flm-bridge/flm"
)

// indexDocument is the filters.json published at the metadata URL.
type indexDocument struct {
	Filters []indexFilter `json:"filters"`
	Groups  []indexGroup  `json:"groups"`
	Tags    []indexTag    `json:"tags"`
}

type indexFilter struct {
	FilterID        int32    `json:"filterId"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Homepage        string   `json:"homepage"`
	Expires         int32    `json:"expires"`
	DisplayNumber   int32    `json:"displayNumber"`
	GroupID         int32    `json:"groupId"`
	DownloadURL     string   `json:"downloadUrl"`
	SubscriptionURL string   `json:"subscriptionUrl"`
	Deprecated      bool     `json:"deprecated"`
	Version         string   `json:"version"`
	TimeUpdated     string   `json:"timeUpdated"`
	Languages       []string `json:"languages"`
	Tags            []int32  `json:"tags"`
}

type indexGroup struct {
	GroupID       int32  `json:"groupId"`
	GroupName     string `json:"groupName"`
	DisplayNumber int32  `json:"displayNumber"`
}

type indexTag struct {
	TagID   int32  `json:"tagId"`
	Keyword string `json:"keyword"`
}

func parseIndex(data string) (*indexDocument, error) {
	var doc indexDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, flm.Errorf(flm.KindFilterParserError, "filters index: %v", err)
	}
	return &doc, nil
}

// PullMetadata synchronizes index lists, groups and tags with the index at
// the configured metadata URL. Index lists that vanished are deleted, or
// turned into custom lists when enabled.
func (c *Catalog) PullMetadata(ctx context.Context) (*flm.PullMetadataResult, error) {
	cfg := c.config()
	if cfg.MetadataURL == "" {
		return nil, flm.Errorf(flm.KindInvalidConfiguration, "metadata url is empty")
	}
	data, err := c.fetch(ctx, cfg.MetadataURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseIndex(data)
	if err != nil {
		return nil, err
	}

	result := &flm.PullMetadataResult{
		AddedFilters:   []flm.FilterID{},
		RemovedFilters: []flm.FilterID{},
		MovedFilters:   []flm.MovedFilterInfo{},
	}
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		if err := syncGroupsAndTags(ctx, tx, doc); err != nil {
			return err
		}

		existing, err := indexFilterState(ctx, tx)
		if err != nil {
			return err
		}

		seen := make(map[flm.FilterID]struct{}, len(doc.Filters))
		for _, f := range doc.Filters {
			if f.Deprecated || f.FilterID == flm.UserRulesID {
				continue
			}
			seen[f.FilterID] = struct{}{}
			if _, ok := existing[f.FilterID]; !ok {
				result.AddedFilters = append(result.AddedFilters, f.FilterID)
			}
			if err := upsertIndexFilter(ctx, tx, f, cfg.ResolveExpires(f.Expires), c.now()); err != nil {
				return err
			}
		}

		for id, enabled := range existing {
			if _, ok := seen[id]; ok {
				continue
			}
			result.RemovedFilters = append(result.RemovedFilters, id)
			if !enabled {
				if _, err := tx.ExecContext(ctx, `DELETE FROM filter WHERE filter_id = ?`, id); err != nil {
					return dbError(err)
				}
				continue
			}
			newID, err := moveToCustom(ctx, tx, id)
			if err != nil {
				return err
			}
			result.MovedFilters = append(result.MovedFilters, flm.MovedFilterInfo{PreviousID: id, NewID: newID})
		}
		return deleteOrphans(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(result.AddedFilters)
	slices.Sort(result.RemovedFilters)
	slices.SortFunc(result.MovedFilters, func(a, b flm.MovedFilterInfo) int {
		return cmp.Compare(a.PreviousID, b.PreviousID)
	})
	c.log.Info().
		Int("added", len(result.AddedFilters)).
		Int("removed", len(result.RemovedFilters)).
		Int("moved", len(result.MovedFilters)).
		Msg("metadata pulled")
	return result, nil
}

func syncGroupsAndTags(ctx context.Context, tx *sql.Tx, doc *indexDocument) error {
	for _, g := range doc.Groups {
		if g.GroupID == flm.CustomGroupID || g.GroupID == flm.SpecialGroupID {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO filter_group (group_id, name, display_number)
			VALUES (?, ?, ?)
			ON CONFLICT (group_id) DO UPDATE SET name = excluded.name, display_number = excluded.display_number`,
			g.GroupID, g.GroupName, g.DisplayNumber); err != nil {
			return dbError(err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM filter_tag`); err != nil {
		return dbError(err)
	}
	for _, t := range doc.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO filter_tag (tag_id, keyword) VALUES (?, ?)`,
			t.TagID, t.Keyword); err != nil {
			return dbError(err)
		}
	}
	return nil
}

// indexFilterState maps stored index list ids to their enabled flag.
func indexFilterState(ctx context.Context, tx *sql.Tx) (map[flm.FilterID]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT filter_id, is_enabled FROM filter
		WHERE group_id != ? AND filter_id != ?`, flm.CustomGroupID, flm.UserRulesID)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()
	state := make(map[flm.FilterID]bool)
	for rows.Next() {
		var id flm.FilterID
		var enabled bool
		if err := rows.Scan(&id, &enabled); err != nil {
			return nil, dbError(err)
		}
		state[id] = enabled
	}
	return state, dbError(rows.Err())
}

func upsertIndexFilter(ctx context.Context, tx *sql.Tx, f indexFilter, expires int32, now time.Time) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO filter (filter_id, group_id, last_update_time, title,
		description, version, display_number, download_url, subscription_url, expires, is_trusted, homepage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (filter_id) DO UPDATE SET
			group_id = excluded.group_id,
			title = excluded.title,
			description = excluded.description,
			display_number = excluded.display_number,
			download_url = excluded.download_url,
			subscription_url = excluded.subscription_url,
			expires = excluded.expires,
			homepage = excluded.homepage`,
		f.FilterID, f.GroupID, parseTimeUpdated(f.TimeUpdated, now), f.Name,
		f.Description, f.Version, f.DisplayNumber, f.DownloadURL, f.SubscriptionURL, expires, f.Homepage)
	if err != nil {
		return dbError(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM filter_filter_tag WHERE filter_id = ?`, f.FilterID); err != nil {
		return dbError(err)
	}
	for _, tag := range f.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO filter_filter_tag (filter_id, tag_id) VALUES (?, ?)`,
			f.FilterID, tag); err != nil {
			return dbError(err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM filter_locale WHERE filter_id = ?`, f.FilterID); err != nil {
		return dbError(err)
	}
	for _, lang := range f.Languages {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO filter_locale (filter_id, lang) VALUES (?, ?)`,
			f.FilterID, flm.NormalizeLocale(lang)); err != nil {
			return dbError(err)
		}
	}
	return nil
}

// moveToCustom renumbers an index list into the custom range, keeping its
// rules.
func moveToCustom(ctx context.Context, tx *sql.Tx, id flm.FilterID) (flm.FilterID, error) {
	newID, err := nextCustomID(ctx, tx)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE filter SET filter_id = ?, group_id = ?, is_trusted = 0 WHERE filter_id = ?`,
		newID, flm.CustomGroupID, id); err != nil {
		return 0, dbError(err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE rules_list SET filter_id = ? WHERE filter_id = ?`, newID, id); err != nil {
		return 0, dbError(err)
	}
	return newID, nil
}

// GetAllTags returns every known tag.
func (c *Catalog) GetAllTags(ctx context.Context) ([]flm.FilterTag, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT tag_id, keyword FROM filter_tag ORDER BY tag_id`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()
	tags := []flm.FilterTag{}
	for rows.Next() {
		var t flm.FilterTag
		if err := rows.Scan(&t.ID, &t.Keyword); err != nil {
			return nil, dbError(err)
		}
		tags = append(tags, t)
	}
	return tags, dbError(rows.Err())
}

// GetAllGroups returns every known group.
func (c *Catalog) GetAllGroups(ctx context.Context) ([]flm.FilterGroup, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT group_id, name, display_number FROM filter_group
		ORDER BY display_number, group_id`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()
	groups := []flm.FilterGroup{}
	for rows.Next() {
		var g flm.FilterGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.DisplayNumber); err != nil {
			return nil, dbError(err)
		}
		groups = append(groups, g)
	}
	return groups, dbError(rows.Err())
}
