package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

type sqliteColumn struct {
	Name        string
	Type        string
	NotNull     bool
	DefaultText string
}

// Migrate brings an archive created by an older revision up to the current
// schema. Changes are additive only; the archive is derived data, so a
// failed migration can always be resolved by rebuilding from the JSON
// artifacts.
func Migrate(ctx context.Context, db *sql.DB) error {
	userVersion, err := sqliteUserVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("sqlite: user_version: %w", err)
	}
	log.Printf("archive: sqlite user_version=%d", userVersion)

	columns, err := sqliteTableInfo(ctx, db, "polls")
	if err != nil {
		return fmt.Errorf("sqlite: describe polls: %w", err)
	}
	if len(columns) == 0 {
		log.Printf("archive: polls table missing; skipping migration")
		return nil
	}

	if _, ok := columns["total_votes"]; !ok {
		if _, err := db.ExecContext(ctx, `ALTER TABLE polls ADD COLUMN total_votes INTEGER NOT NULL DEFAULT 0;`); err != nil {
			return fmt.Errorf("sqlite: ensure total_votes column: %w", err)
		}
		log.Printf("archive: added total_votes column to polls")
	}

	normalize := []struct {
		query string
		label string
	}{
		{`UPDATE polls SET options_json='{}' WHERE options_json IS NULL OR options_json='';`, "options_json"},
	}
	for _, step := range normalize {
		res, execErr := db.ExecContext(ctx, step.query)
		if execErr != nil {
			return fmt.Errorf("sqlite: normalize %s: %w", step.label, execErr)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			log.Printf("archive: normalized %s rows=%d", step.label, n)
		}
	}
	return nil
}

func sqliteUserVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var version int64
	if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func sqliteTableInfo(ctx context.Context, db *sql.DB, table string) (map[string]sqliteColumn, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s);`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]sqliteColumn)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns[strings.ToLower(name)] = sqliteColumn{
			Name:        name,
			Type:        ctype,
			NotNull:     notNull != 0,
			DefaultText: defaultVal.String,
		}
	}
	return columns, rows.Err()
}
