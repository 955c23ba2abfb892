package store

import (
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btckit/pkg/amount"
	"btckit/pkg/network"
	"btckit/pkg/scriptpubkey"
	"btckit/pkg/tx"
)

const btc = amount.Satoshi(amount.SatoshiPerBitcoin)

var testPubKey = mustHex("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// coinbaseBlock builds a block at height whose single transaction pays
// value to the p2wpkh address of testPubKey. The height push keeps the
// coinbase txid distinct per block.
func coinbaseBlock(t *testing.T, height int64, prev [32]byte, value amount.Satoshi) *tx.Block {
	t.Helper()
	spk, err := scriptpubkey.P2WPKH(testPubKey)
	require.NoError(t, err)

	coinbase := &tx.Tx{
		Version: 2,
		TxIn: []tx.TxIn{{
			PrevOut:   tx.OutPoint{Vout: 0xFFFFFFFF},
			ScriptSig: []byte{0x01, byte(height)},
			Sequence:  0xFFFFFFFF,
		}},
		TxOut: []tx.TxOut{{Value: value, ScriptPubKey: spk}},
	}
	return &tx.Block{
		Header: tx.BlockHeader{
			Version:       0x20000000,
			PrevBlockHash: prev,
			MerkleRoot:    coinbase.TxID(),
			Time:          time.Unix(1700000000, 0),
			Bits:          0x207fffff,
		},
		Txs: []*tx.Tx{coinbase},
	}
}

func testAddress(t *testing.T) string {
	t.Helper()
	addr, err := scriptpubkey.P2WPKHAddress(testPubKey, network.Regtest)
	require.NoError(t, err)
	return addr
}

func TestEmptyIndex(t *testing.T) {
	s := newTestStore(t)

	tip, err := s.TipHeight()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), tip)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Blocks)
	assert.Equal(t, int64(-1), stats.TipHeight)
}

func TestIndexBlockAndQueries(t *testing.T) {
	s := newTestStore(t)
	b := coinbaseBlock(t, 1, [32]byte{}, 50*btc)
	require.NoError(t, s.IndexBlock(1, b, network.Regtest))

	tip, err := s.TipHeight()
	require.NoError(t, err)
	assert.Equal(t, int64(1), tip)

	row, err := s.BlockByHeight(1)
	require.NoError(t, err)
	assert.Equal(t, 1, row.TxCount)

	byHash, err := s.BlockByHash(row.Hash)
	require.NoError(t, err)
	assert.Equal(t, row.Height, byHash.Height)

	txid := b.Txs[0].TxIDString()
	txRow, err := s.Transaction(txid)
	require.NoError(t, err)
	assert.Equal(t, row.Hash, txRow.BlockHash)

	balance, err := s.Balance(testAddress(t))
	require.NoError(t, err)
	assert.Equal(t, 50*btc, balance)

	utxos, err := s.UnspentByAddress(testAddress(t))
	require.NoError(t, err)
	spk, err := scriptpubkey.P2WPKH(testPubKey)
	require.NoError(t, err)
	want := []OutputRow{{
		TxID:         txid,
		Vout:         0,
		Value:        50 * btc,
		ScriptPubKey: hex.EncodeToString(spk),
		Address:      testAddress(t),
	}}
	if diff := cmp.Diff(want, utxos); diff != "" {
		t.Errorf("unspent outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexBlockIdempotent(t *testing.T) {
	s := newTestStore(t)
	b := coinbaseBlock(t, 1, [32]byte{}, 50*btc)
	require.NoError(t, s.IndexBlock(1, b, network.Regtest))
	require.NoError(t, s.IndexBlock(1, b, network.Regtest))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Blocks)
	assert.Equal(t, int64(1), stats.Transactions)
	assert.Equal(t, int64(1), stats.Outputs)
}

func TestSpendMarksOutput(t *testing.T) {
	s := newTestStore(t)
	b1 := coinbaseBlock(t, 1, [32]byte{}, 50*btc)
	require.NoError(t, s.IndexBlock(1, b1, network.Regtest))

	// Spend the coinbase output in the next block.
	spk, err := scriptpubkey.P2WPKH(testPubKey)
	require.NoError(t, err)
	spend := &tx.Tx{
		Version: 2,
		TxIn: []tx.TxIn{{
			PrevOut:  tx.OutPoint{TxID: b1.Txs[0].TxID(), Vout: 0},
			Sequence: 0xFFFFFFFF,
		}},
		TxOut: []tx.TxOut{{Value: 49 * btc, ScriptPubKey: spk}},
	}
	b2 := coinbaseBlock(t, 2, b1.Header.Hash(), 50*btc)
	b2.Txs = append(b2.Txs, spend)

	require.NoError(t, s.IndexBlock(2, b2, network.Regtest))

	// Old coinbase is spent; new coinbase plus change remain.
	balance, err := s.Balance(testAddress(t))
	require.NoError(t, err)
	assert.Equal(t, 99*btc, balance)

	utxos, err := s.UnspentByAddress(testAddress(t))
	require.NoError(t, err)
	assert.Len(t, utxos, 2)
}

func TestMissingRows(t *testing.T) {
	s := newTestStore(t)

	_, err := s.BlockByHeight(7)
	assert.Error(t, err)
	_, err = s.BlockByHash("00")
	assert.Error(t, err)
	_, err = s.Transaction("ff")
	assert.Error(t, err)

	balance, err := s.Balance("bcrt1qnothing")
	require.NoError(t, err)
	assert.Equal(t, amount.Satoshi(0), balance)
}
