// Package store keeps point datasets in SQLite so a Source can stream the
// points of an extent instead of holding a whole dataset in memory.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"web/gridcluster/cluster"
)

const schema = `
CREATE TABLE IF NOT EXISTS points (
	dataset TEXT    NOT NULL,
	id      INTEGER NOT NULL,
	x       REAL    NOT NULL,
	y       REAL    NOT NULL,
	PRIMARY KEY (dataset, id)
);
CREATE INDEX IF NOT EXISTS points_xy ON points (dataset, x, y);
`

// Store is a SQLite-backed point store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores points under dataset in one transaction, replacing points
// with the same id.
func (s *Store) Insert(ctx context.Context, dataset string, points []cluster.Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO points (dataset, id, x, y) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, dataset, p.ID, p.X, p.Y); err != nil {
			return fmt.Errorf("insert point %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Within returns the points of dataset inside extent, boundary included,
// ordered by id.
func (s *Store) Within(ctx context.Context, dataset string, extent cluster.Extent) ([]cluster.Point, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, x, y FROM points
		 WHERE dataset = ? AND x >= ? AND x <= ? AND y >= ? AND y <= ?
		 ORDER BY id`,
		dataset, extent.MinX, extent.MaxX, extent.MinY, extent.MaxY)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var points []cluster.Point
	for rows.Next() {
		var p cluster.Point
		if err := rows.Scan(&p.ID, &p.X, &p.Y); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Point returns the point of dataset with the given id, or an error wrapping
// sql.ErrNoRows when there is none.
func (s *Store) Point(ctx context.Context, dataset string, id uint32) (cluster.Point, error) {
	p := cluster.Point{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT x, y FROM points WHERE dataset = ? AND id = ?`, dataset, id).Scan(&p.X, &p.Y)
	if err != nil {
		return cluster.Point{}, fmt.Errorf("point %d of %s: %w", id, dataset, err)
	}
	return p, nil
}

// Count returns the number of points stored under dataset.
func (s *Store) Count(ctx context.Context, dataset string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM points WHERE dataset = ?`, dataset).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return n, nil
}

// Datasets lists the dataset names present in the store.
func (s *Store) Datasets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT dataset FROM points ORDER BY dataset`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes every point of dataset.
func (s *Store) Delete(ctx context.Context, dataset string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM points WHERE dataset = ?`, dataset); err != nil {
		return fmt.Errorf("delete dataset %s: %w", dataset, err)
	}
	return nil
}
