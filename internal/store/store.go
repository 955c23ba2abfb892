// Package store implements the local SQLite chain index.
package store

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"btckit/pkg/amount"
	"btckit/pkg/network"
	"btckit/pkg/scriptpubkey"
	"btckit/pkg/tx"
)

// Store indexes blocks, transactions, and outputs scanned from a node.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// BlockRow is one indexed block.
type BlockRow struct {
	Height   int64
	Hash     string
	PrevHash string
	Time     int64
	TxCount  int
}

// TxRow is one indexed transaction.
type TxRow struct {
	TxID      string
	BlockHash string
	Size      int
	VSize     int
}

// OutputRow is one indexed transaction output.
type OutputRow struct {
	TxID          string
	Vout          uint32
	Value         amount.Satoshi
	ScriptPubKey  string // hex
	Address       string // empty when the script has no address form
	SpentByTxID   string // empty while unspent
}

// New opens (or creates) the index database at the given path.
func New(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set journal_mode=WAL", zap.Error(err))
	}

	s := &Store{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("chain index opened", zap.String("path", path))
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS blocks (
			height INTEGER PRIMARY KEY,
			hash TEXT NOT NULL UNIQUE,
			prev_hash TEXT NOT NULL,
			time INTEGER NOT NULL,
			tx_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			txid TEXT PRIMARY KEY,
			block_hash TEXT NOT NULL,
			size INTEGER NOT NULL,
			vsize INTEGER NOT NULL,
			FOREIGN KEY (block_hash) REFERENCES blocks(hash)
		)`,
		`CREATE TABLE IF NOT EXISTS outputs (
			txid TEXT NOT NULL,
			vout INTEGER NOT NULL,
			value INTEGER NOT NULL,
			script_pubkey TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			spent_by TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (txid, vout)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outputs_address ON outputs(address)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_block ON transactions(block_hash)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// IndexBlock writes a block and all of its transactions and outputs in
// one database transaction. Inputs spending indexed outputs mark them
// spent. Re-indexing the same block is a no-op.
func (s *Store) IndexBlock(height int64, b *tx.Block, net network.Network) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	hash := b.Header.Hash()
	hashHex := hex.EncodeToString(hash[:])
	prevHex := hex.EncodeToString(b.Header.PrevBlockHash[:])

	if _, err := dbTx.Exec(
		`INSERT OR IGNORE INTO blocks (height, hash, prev_hash, time, tx_count) VALUES (?, ?, ?, ?, ?)`,
		height, hashHex, prevHex, b.Header.Time.Unix(), len(b.Txs),
	); err != nil {
		return fmt.Errorf("failed to insert block %d: %w", height, err)
	}

	for _, t := range b.Txs {
		txid := t.TxIDString()
		if _, err := dbTx.Exec(
			`INSERT OR IGNORE INTO transactions (txid, block_hash, size, vsize) VALUES (?, ?, ?, ?)`,
			txid, hashHex, t.Size(), t.VSize(),
		); err != nil {
			return fmt.Errorf("failed to insert tx %s: %w", txid, err)
		}

		for i, out := range t.TxOut {
			addr := ""
			if a, err := scriptpubkey.Address(out.ScriptPubKey, net); err == nil {
				addr = a
			}
			if _, err := dbTx.Exec(
				`INSERT OR IGNORE INTO outputs (txid, vout, value, script_pubkey, address) VALUES (?, ?, ?, ?, ?)`,
				txid, i, int64(out.Value), hex.EncodeToString(out.ScriptPubKey), addr,
			); err != nil {
				return fmt.Errorf("failed to insert output %s:%d: %w", txid, i, err)
			}
		}

		for _, in := range t.TxIn {
			prevTxid := in.PrevOut.String()
			if _, err := dbTx.Exec(
				`UPDATE outputs SET spent_by = ? WHERE txid = ? AND vout = ?`,
				txid, prevTxid, in.PrevOut.Vout,
			); err != nil {
				return fmt.Errorf("failed to mark output spent: %w", err)
			}
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit block %d: %w", height, err)
	}
	return nil
}

// TipHeight returns the highest indexed block height, or -1 when the
// index is empty.
func (s *Store) TipHeight() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var height sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(height) FROM blocks`).Scan(&height); err != nil {
		return 0, fmt.Errorf("failed to query tip: %w", err)
	}
	if !height.Valid {
		return -1, nil
	}
	return height.Int64, nil
}

// BlockByHeight returns the indexed block at the given height.
func (s *Store) BlockByHeight(height int64) (*BlockRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := &BlockRow{}
	err := s.db.QueryRow(
		`SELECT height, hash, prev_hash, time, tx_count FROM blocks WHERE height = ?`, height,
	).Scan(&row.Height, &row.Hash, &row.PrevHash, &row.Time, &row.TxCount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("block %d not indexed", height)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query block: %w", err)
	}
	return row, nil
}

// BlockByHash returns the indexed block with the given hash.
func (s *Store) BlockByHash(hash string) (*BlockRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := &BlockRow{}
	err := s.db.QueryRow(
		`SELECT height, hash, prev_hash, time, tx_count FROM blocks WHERE hash = ?`, hash,
	).Scan(&row.Height, &row.Hash, &row.PrevHash, &row.Time, &row.TxCount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("block %s not indexed", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query block: %w", err)
	}
	return row, nil
}

// Transaction returns the indexed transaction with the given txid.
func (s *Store) Transaction(txid string) (*TxRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := &TxRow{}
	err := s.db.QueryRow(
		`SELECT txid, block_hash, size, vsize FROM transactions WHERE txid = ?`, txid,
	).Scan(&row.TxID, &row.BlockHash, &row.Size, &row.VSize)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s not indexed", txid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return row, nil
}

// UnspentByAddress returns the unspent outputs paying the given address.
func (s *Store) UnspentByAddress(address string) ([]OutputRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT txid, vout, value, script_pubkey, address, spent_by
		 FROM outputs WHERE address = ? AND spent_by = '' ORDER BY txid, vout`, address,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query outputs: %w", err)
	}
	defer rows.Close()

	var outs []OutputRow
	for rows.Next() {
		var o OutputRow
		var value int64
		if err := rows.Scan(&o.TxID, &o.Vout, &value, &o.ScriptPubKey, &o.Address, &o.SpentByTxID); err != nil {
			return nil, fmt.Errorf("failed to scan output: %w", err)
		}
		o.Value = amount.Satoshi(value)
		outs = append(outs, o)
	}
	return outs, rows.Err()
}

// Balance sums the unspent outputs paying the given address.
func (s *Store) Balance(address string) (amount.Satoshi, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT SUM(value) FROM outputs WHERE address = ? AND spent_by = ''`, address,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	return amount.Satoshi(total.Int64), nil
}

// Stats summarizes the index contents.
type Stats struct {
	Blocks       int64
	Transactions int64
	Outputs      int64
	TipHeight    int64
}

// Stats returns index counters.
func (s *Store) Stats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{TipHeight: -1}
	if err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(MAX(height), -1) FROM blocks`).Scan(&st.Blocks, &st.TipHeight); err != nil {
		return nil, fmt.Errorf("failed to query block stats: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&st.Transactions); err != nil {
		return nil, fmt.Errorf("failed to query tx stats: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM outputs`).Scan(&st.Outputs); err != nil {
		return nil, fmt.Errorf("failed to query output stats: %w", err)
	}
	return st, nil
}
