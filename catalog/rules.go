package catalog

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"strings"

	"github.com/VanDung-dev/flm-bridge/flm"
)

// SaveCustomFilterRules replaces the rules of a list and bumps its update
// time.
func (c *Catalog) SaveCustomFilterRules(ctx context.Context, rules flm.FilterListRules) error {
	text := strings.Join(rules.Rules, "\n")
	disabled := strings.Join(rules.DisabledRules, "\n")

	return c.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE filter SET last_update_time = ? WHERE filter_id = ?`,
			c.now().Unix(), rules.FilterID)
		if err != nil {
			return dbError(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return flm.NotFound(int64(rules.FilterID))
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO rules_list (filter_id, text, disabled_text, rules_count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (filter_id) DO UPDATE SET
				text = excluded.text,
				disabled_text = excluded.disabled_text,
				rules_count = excluded.rules_count`,
			rules.FilterID, text, disabled, CountRules(text))
		return dbError(err)
	})
}

// SaveDisabledRules replaces the disabled rules of a list.
func (c *Catalog) SaveDisabledRules(ctx context.Context, filterID flm.FilterID, disabledRules []string) error {
	res, err := c.db.ExecContext(ctx, `UPDATE rules_list SET disabled_text = ? WHERE filter_id = ?`,
		strings.Join(disabledRules, "\n"), filterID)
	if err != nil {
		return dbError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return flm.NotFound(int64(filterID))
	}
	return nil
}

// GetActiveRules returns the rules of every enabled list minus its
// disabled rules.
func (c *Catalog) GetActiveRules(ctx context.Context) ([]flm.ActiveRulesInfo, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT f.filter_id, f.group_id, f.is_trusted, r.text, r.disabled_text
		FROM filter f JOIN rules_list r ON r.filter_id = f.filter_id
		WHERE f.is_enabled = 1
		ORDER BY f.filter_id`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	active := []flm.ActiveRulesInfo{}
	for rows.Next() {
		var info flm.ActiveRulesInfo
		var text, disabled string
		if err := rows.Scan(&info.FilterID, &info.GroupID, &info.IsTrusted, &text, &disabled); err != nil {
			return nil, dbError(err)
		}
		info.Rules = nonNil(activeText(text, disabled))
		active = append(active, info)
	}
	return active, dbError(rows.Err())
}

// GetFilterRulesAsStrings returns raw rules for the given lists. Unknown ids
// are skipped.
func (c *Catalog) GetFilterRulesAsStrings(ctx context.Context, ids []flm.FilterID) ([]flm.FilterListRulesRaw, error) {
	in, args := inClause(ids)
	rows, err := c.db.QueryContext(ctx, `SELECT filter_id, text, disabled_text, rules_count
		FROM rules_list WHERE filter_id IN `+in+` ORDER BY filter_id`, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []flm.FilterListRulesRaw{}
	for rows.Next() {
		var r flm.FilterListRulesRaw
		if err := rows.Scan(&r.FilterID, &r.Rules, &r.DisabledRules, &r.RulesCount); err != nil {
			return nil, dbError(err)
		}
		out = append(out, r)
	}
	return out, dbError(rows.Err())
}

// GetDisabledRules returns the disabled rules for the given lists.
func (c *Catalog) GetDisabledRules(ctx context.Context, ids []flm.FilterID) ([]flm.DisabledRulesRaw, error) {
	in, args := inClause(ids)
	rows, err := c.db.QueryContext(ctx, `SELECT filter_id, disabled_text
		FROM rules_list WHERE filter_id IN `+in+` ORDER BY filter_id`, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []flm.DisabledRulesRaw{}
	for rows.Next() {
		var r flm.DisabledRulesRaw
		if err := rows.Scan(&r.FilterID, &r.Text); err != nil {
			return nil, dbError(err)
		}
		out = append(out, r)
	}
	return out, dbError(rows.Err())
}

// GetRulesCount returns the stored rule count for the given lists.
func (c *Catalog) GetRulesCount(ctx context.Context, ids []flm.FilterID) ([]flm.RulesCountByFilter, error) {
	in, args := inClause(ids)
	rows, err := c.db.QueryContext(ctx, `SELECT filter_id, rules_count
		FROM rules_list WHERE filter_id IN `+in+` ORDER BY filter_id`, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []flm.RulesCountByFilter{}
	for rows.Next() {
		var r flm.RulesCountByFilter
		if err := rows.Scan(&r.FilterID, &r.RulesCount); err != nil {
			return nil, dbError(err)
		}
		out = append(out, r)
	}
	return out, dbError(rows.Err())
}

// SaveRulesToFileBlob writes the active rules of a list to filePath, one
// per line.
func (c *Catalog) SaveRulesToFileBlob(ctx context.Context, filterID flm.FilterID, filePath string) error {
	if filePath == "" {
		return flm.FieldIsEmpty("file_path")
	}
	r, err := selectRules(ctx, c.db, filterID)
	if err != nil {
		return err
	}
	if r == nil {
		return flm.NotFound(int64(filterID))
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fsError(err)
	}
	w := bufio.NewWriter(f)
	for _, rule := range activeText(r.text, r.disabled) {
		w.WriteString(rule)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fsError(err)
	}
	return fsError(f.Close())
}
