// Package archive appends applied blocks to a SQLite database for offline
// inspection. The archive is write-only from the node's point of view: it
// is never read back at startup, and every process run starts its chain from
// genesis. Rows are tagged with a per-run id so successive runs can be told
// apart.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"riacoin.node/rcn/internal/types"

	_ "modernc.org/sqlite"
)

const maxBusyTimeoutMs = 5000

// sqliteHeader opens every SQLite database file.
const sqliteHeader = "SQLite format 3\x00"

// ErrNotArchive is returned when the archive path holds a file that is
// neither empty nor a SQLite database. Such files are never touched.
var ErrNotArchive = errors.New("file is not a SQLite archive")

// Store is an append-only SQLite block archive.
type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	file  string
	runID string
}

// Open opens or creates the archive at filePath. A damaged SQLite database
// is discarded and recreated; any other existing file is left alone and
// reported with ErrNotArchive.
func Open(filePath string) (*Store, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	s := &Store{file: absPath, runID: uuid.NewString()}

	if err := checkArchiveFile(absPath); err != nil {
		return nil, err
	}

	if err := s.openAndPrepare(); err != nil {
		log.Printf("WARNING: archive %s unusable (%v); recreating", filepath.Base(absPath), err)
		if cleanErr := s.resetDatabaseFiles(); cleanErr != nil {
			return nil, fmt.Errorf("reset archive after %v: %w", err, cleanErr)
		}
		if err := s.openAndPrepare(); err != nil {
			return nil, fmt.Errorf("create fresh archive: %w", err)
		}
	}
	return s, nil
}

// RunID identifies the rows written by this process.
func (s *Store) RunID() string {
	return s.runID
}

func (s *Store) openAndPrepare() error {
	if err := s.openDB(); err != nil {
		return err
	}
	if err := s.ensureSchema(); err != nil {
		_ = s.closeDB()
		return err
	}
	return nil
}

func (s *Store) openDB() error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(s.file)))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS blocks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		block_index INTEGER NOT NULL,
		hash TEXT NOT NULL,
		previous_hash TEXT NOT NULL,
		merkle_root TEXT NOT NULL,
		validator TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		tx_count INTEGER NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create blocks table: %w", err)
	}

	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS transactions (
		block_id INTEGER NOT NULL REFERENCES blocks(id),
		position INTEGER NOT NULL,
		tx_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		signature TEXT NOT NULL,
		contract TEXT,
		function TEXT,
		PRIMARY KEY (block_id, position)
	)`)
	if err != nil {
		return fmt.Errorf("create transactions table: %w", err)
	}

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	return nil
}

// Record appends block and its transactions in one database transaction.
func (s *Store) Record(ctx context.Context, block *types.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errors.New("archive is closed")
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx, `INSERT INTO blocks (
		run_id, block_index, hash, previous_hash, merkle_root, validator, timestamp, tx_count, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, int64(block.Index), block.Hash, block.PreviousHash, block.MerkleRoot,
		block.Validator, block.Timestamp, len(block.Transactions), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert block %d: %w", block.Index, err)
	}
	blockID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("block row id: %w", err)
	}

	for i := range block.Transactions {
		tx := &block.Transactions[i]
		var contract, function sql.NullString
		if tx.Call != nil {
			contract = sql.NullString{String: tx.Call.Contract, Valid: true}
			function = sql.NullString{String: tx.Call.Function, Valid: true}
		}
		_, err := dbtx.ExecContext(ctx, `INSERT INTO transactions (
			block_id, position, tx_id, sender, recipient, amount, fee, timestamp, signature, contract, function)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			blockID, i, tx.ID, tx.Sender, tx.Recipient, tx.Amount.String(), tx.Fee.String(),
			tx.Timestamp, tx.Signature, contract, function)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", types.ShortAddress(tx.ID), err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit block %d: %w", block.Index, err)
	}
	return nil
}

// Counts returns the number of archived blocks and transactions across all
// runs.
func (s *Store) Counts(ctx context.Context) (blocks, txs int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, 0, errors.New("archive is closed")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&blocks); err != nil {
		return 0, 0, fmt.Errorf("count blocks: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&txs); err != nil {
		return 0, 0, fmt.Errorf("count transactions: %w", err)
	}
	return blocks, txs, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeDB()
}

func (s *Store) closeDB() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// checkArchiveFile accepts a missing file, an empty file or one that starts
// with the SQLite header.
func checkArchiveFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteHeader))
	n, err := io.ReadFull(f, header)
	switch {
	case n == 0 && (err == io.EOF || err == nil):
		return nil
	case err == nil && string(header) == sqliteHeader:
		return nil
	case err != nil && !errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("read archive header: %w", err)
	}
	return fmt.Errorf("%w: %s", ErrNotArchive, path)
}

func (s *Store) resetDatabaseFiles() error {
	_ = s.closeDB()

	var firstErr error
	for _, path := range []string{s.file, s.file + "-wal", s.file + "-shm"} {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", filepath.Base(path), err)
			}
		}
	}
	return firstErr
}
