package catalog

import (
	"context"
	"fmt"

	"github.com/VanDung-dev/flm-bridge/flm"
)

// SchemaVersion is the version a fully lifted database reports.
const SchemaVersion int32 = 2

// migrations[i] lifts a database from version i to version i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS filter_group (
			group_id       INTEGER PRIMARY KEY,
			name           TEXT NOT NULL,
			display_number INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS filter_tag (
			tag_id  INTEGER PRIMARY KEY,
			keyword TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS filter (
			filter_id          INTEGER PRIMARY KEY,
			group_id           INTEGER NOT NULL,
			last_update_time   INTEGER NOT NULL DEFAULT 0,
			last_download_time INTEGER NOT NULL DEFAULT 0,
			title              TEXT NOT NULL DEFAULT '',
			description        TEXT NOT NULL DEFAULT '',
			version            TEXT NOT NULL DEFAULT '',
			display_number     INTEGER NOT NULL DEFAULT 0,
			download_url       TEXT NOT NULL DEFAULT '',
			subscription_url   TEXT NOT NULL DEFAULT '',
			expires            INTEGER NOT NULL DEFAULT 0,
			is_trusted         INTEGER NOT NULL DEFAULT 0,
			is_enabled         INTEGER NOT NULL DEFAULT 0,
			is_installed       INTEGER NOT NULL DEFAULT 0,
			homepage           TEXT NOT NULL DEFAULT '',
			license            TEXT NOT NULL DEFAULT '',
			checksum           TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS filter_filter_tag (
			filter_id INTEGER NOT NULL,
			tag_id    INTEGER NOT NULL,
			PRIMARY KEY (filter_id, tag_id)
		)`,
		`CREATE TABLE IF NOT EXISTS filter_locale (
			filter_id INTEGER NOT NULL,
			lang      TEXT NOT NULL,
			PRIMARY KEY (filter_id, lang)
		)`,
		`CREATE TABLE IF NOT EXISTS rules_list (
			filter_id     INTEGER PRIMARY KEY,
			text          TEXT NOT NULL DEFAULT '',
			disabled_text TEXT NOT NULL DEFAULT '',
			rules_count   INTEGER NOT NULL DEFAULT 0
		)`,
	},
	{
		`CREATE INDEX IF NOT EXISTS filter_group_idx ON filter (group_id)`,
		`INSERT OR IGNORE INTO filter_group (group_id, name, display_number) VALUES (?, 'Custom', 0)`,
		`INSERT OR IGNORE INTO filter_group (group_id, name, display_number) VALUES (?, 'Special', 0)`,
		`INSERT OR IGNORE INTO filter (filter_id, group_id, title, is_trusted, is_enabled, is_installed)
			VALUES (?, ?, 'User rules', 1, 1, 1)`,
		`INSERT OR IGNORE INTO rules_list (filter_id) VALUES (?)`,
	},
}

// migrationArgs binds the reserved identifiers used by seed statements.
var migrationArgs = map[string][]any{
	migrations[1][1]: {flm.CustomGroupID},
	migrations[1][2]: {flm.SpecialGroupID},
	migrations[1][3]: {flm.UserRulesID, flm.SpecialGroupID},
	migrations[1][4]: {flm.UserRulesID},
}

func schemaVersion(ctx context.Context, q querier) (int32, error) {
	var v int32
	if err := q.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, dbError(err)
	}
	return v, nil
}

func migrate(ctx context.Context, q querier) error {
	v, err := schemaVersion(ctx, q)
	if err != nil {
		return err
	}
	if v > SchemaVersion {
		return flm.Errorf(flm.KindOther, "database version %d is newer than supported %d", v, SchemaVersion)
	}
	for ; v < SchemaVersion; v++ {
		for _, stmt := range migrations[v] {
			if _, err := q.ExecContext(ctx, stmt, migrationArgs[stmt]...); err != nil {
				return dbError(fmt.Errorf("migration %d: %w", v+1, err))
			}
		}
		// PRAGMA does not accept bound parameters.
		if _, err := q.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			return dbError(err)
		}
	}
	return nil
}
