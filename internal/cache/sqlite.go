package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS responses (
    accession TEXT PRIMARY KEY,
    body BLOB NOT NULL,
    retrieved_at INTEGER NOT NULL
)`

// SQLite is a cache backed by a sqlite database file.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the sqlite cache at path.
func OpenSQLite(path string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %s: %w", path, err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

func (c *SQLite) Get(key string) ([]byte, bool) {
	var (
		body []byte
		at   int64
	)
	err := c.db.QueryRow(`SELECT body, retrieved_at FROM responses WHERE accession = ?`, key).Scan(&body, &at)
	if err != nil {
		return nil, false
	}
	if expired(at, c.ttl, c.now()) {
		return nil, false
	}
	return body, true
}

func (c *SQLite) Put(key string, body []byte) error {
	if key == "" || len(body) == 0 {
		return nil
	}
	_, err := c.db.Exec(`INSERT INTO responses (accession, body, retrieved_at) VALUES (?, ?, ?)
        ON CONFLICT(accession) DO UPDATE SET body = excluded.body, retrieved_at = excluded.retrieved_at`,
		key, body, c.now().Unix())
	return err
}

func (c *SQLite) Purge() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Unix() - int64(c.ttl.Seconds())
	res, err := c.db.Exec(`DELETE FROM responses WHERE retrieved_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (c *SQLite) Close() error {
	if c.db == nil {
		return errors.New("sqlite cache already closed")
	}
	err := c.db.Close()
	c.db = nil
	return err
}
