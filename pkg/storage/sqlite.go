package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	// sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS blocks (
	seq INTEGER NOT NULL,
	records INTEGER NOT NULL,
	data BLOB NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS blocks_seq ON blocks (seq);
`

const (
	insertBlockSQL  = `INSERT INTO blocks (seq, records, data) VALUES (?, ?, ?)`
	selectBlocksSQL = `SELECT seq, records, data FROM blocks ORDER BY rowid`
)

// SQLiteSink stores blocks in a SQLite database.
type SQLiteSink struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error
}

// NewSQLiteSink creates a SQLiteSink. The database is opened on first use.
func NewSQLiteSink(dbPath string) *SQLiteSink {
	return &SQLiteSink{dbPath: dbPath}
}

func (s *SQLiteSink) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.dbErr = fmt.Errorf("opening database: %w", err)
			return
		}
		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		s.db = db
	})
	return s.db, s.dbErr
}

// WriteBlock implements Sink.
func (s *SQLiteSink) WriteBlock(block *Block) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if _, err := db.Exec(insertBlockSQL, block.Seq, block.Records, block.Data); err != nil {
		return fmt.Errorf("inserting block: %w", err)
	}
	return nil
}

// ReadBlocks reads all blocks in insertion order.
func (s *SQLiteSink) ReadBlocks(ctx context.Context) (blocks []*Block, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, selectBlocksSQL)
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		block := &Block{}
		if err = rows.Scan(&block.Seq, &block.Records, &block.Data); err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
