/*
 * MIT License
 *
 * Copyright (c) 2026 Nguyen Thanh Phuong
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteFile is the database file name used by the sqlite backend.
const SQLiteFile = "netsentinel.db"

// sqliteBackend stores every dataset in a single records table.
type sqliteBackend struct {
	db *sql.DB
}

func newSQLiteBackend(dir string) (*sqliteBackend, error) {
	db, err := openSQLite(filepath.Join(dir, SQLiteFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return &sqliteBackend{db: db}, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL; PRAGMA temp_store=MEMORY;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dataset TEXT NOT NULL,
			ts INTEGER NOT NULL,
			body TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_dataset_ts ON records(dataset, ts);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *sqliteBackend) append(ctx context.Context, ds Dataset, recs []record, max int) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records(dataset, ts, body) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, string(ds), r.ts.UnixNano(), string(r.raw)); err != nil {
			return err
		}
	}

	if max > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE dataset = ? AND id NOT IN (
			SELECT id FROM records WHERE dataset = ? ORDER BY ts DESC, id DESC LIMIT ?
		)`, string(ds), string(ds), max); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (b *sqliteBackend) since(ctx context.Context, ds Dataset, cutoff time.Time) ([]record, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT ts, body FROM records WHERE dataset = ? AND ts >= ? ORDER BY ts ASC, id ASC`,
		string(ds), cutoff.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record
	for rows.Next() {
		var (
			ts   int64
			body string
		)
		if err := rows.Scan(&ts, &body); err != nil {
			return nil, err
		}
		out = append(out, record{ts: time.Unix(0, ts), raw: json.RawMessage(body)})
	}
	return out, rows.Err()
}

func (b *sqliteBackend) close() error {
	return b.db.Close()
}
