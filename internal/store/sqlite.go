package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ms_library (
	id         TEXT PRIMARY KEY,
	region     TEXT NOT NULL,
	type       TEXT NOT NULL,
	name       TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	quality    TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	xml        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (region, type, name)
);

CREATE INDEX IF NOT EXISTS idx_ms_library_region ON ms_library(region);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveEntry(ctx context.Context, e *Entry) error {
	if err := validKey(e.Region, e.Type, e.Name); err != nil {
		return err
	}
	if e.XML == "" {
		return eris.New("sqlite: entry has no scheme document")
	}
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ms_library (id, region, type, name, source, quality, notes, xml, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (region, type, name) DO UPDATE SET
			id = excluded.id,
			source = excluded.source,
			quality = excluded.quality,
			notes = excluded.notes,
			xml = excluded.xml,
			created_at = excluded.created_at`,
		e.ID, e.Region, e.Type, e.Name, e.Source, e.Quality, e.Notes, e.XML, e.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: save entry %s", entryKey(e.Region, e.Type, e.Name))
}

func (s *SQLiteStore) GetEntry(ctx context.Context, region, typ, name string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, region, type, name, source, quality, notes, xml, created_at
		 FROM ms_library WHERE region = ? AND type = ? AND name = ?`,
		region, typ, name,
	)

	var e Entry
	err := row.Scan(&e.ID, &e.Region, &e.Type, &e.Name, &e.Source, &e.Quality, &e.Notes, &e.XML, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get entry %s", entryKey(region, typ, name))
	}
	return &e, nil
}

func (s *SQLiteStore) ListRegions(ctx context.Context) ([]string, error) {
	return s.list(ctx, "list regions",
		`SELECT DISTINCT region FROM ms_library ORDER BY region`)
}

func (s *SQLiteStore) ListTypes(ctx context.Context, region string) ([]string, error) {
	return s.list(ctx, "list types",
		`SELECT DISTINCT type FROM ms_library WHERE region = ? ORDER BY type`, region)
}

func (s *SQLiteStore) ListNames(ctx context.Context, region, typ string) ([]string, error) {
	return s.list(ctx, "list names",
		`SELECT name FROM ms_library WHERE region = ? AND type = ? ORDER BY name`, region, typ)
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, region, typ, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ms_library WHERE region = ? AND type = ? AND name = ?`,
		region, typ, name,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete entry %s", entryKey(region, typ, name))
	}
	return checkRowsAffected(res, "entry", entryKey(region, typ, name))
}

func (s *SQLiteStore) list(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: "+op)
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "sqlite: "+op+" scan")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: "+op+" iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func validKey(region, typ, name string) error {
	for label, v := range map[string]string{"region": region, "type": typ, "name": name} {
		if strings.TrimSpace(v) == "" {
			return eris.Errorf("sqlite: entry %s is empty", label)
		}
	}
	return nil
}

func entryKey(region, typ, name string) string {
	return region + "/" + typ + "/" + name
}

// ParseKey splits a REGION/TYPE/NAME library key.
func ParseKey(key string) (region, typ, name string, err error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 {
		return "", "", "", eris.Errorf("store: key %q must be REGION/TYPE/NAME", key)
	}
	if err := validKey(parts[0], parts[1], parts[2]); err != nil {
		return "", "", "", eris.Wrapf(err, "store: key %q", key)
	}
	return parts[0], parts[1], parts[2], nil
}
