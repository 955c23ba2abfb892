package rpc

import (
	"context"
	"encoding/hex"
	"fmt"

	"btckit/pkg/tx"
)

// BlockHeaderInfo is the decoded header portion of a getblock response.
type BlockHeaderInfo struct {
	Hash              string  `json:"hash"`
	Confirmations     int64   `json:"confirmations"`
	Height            int64   `json:"height"`
	Version           int32   `json:"version"`
	MerkleRoot        string  `json:"merkleroot"`
	Time              int64   `json:"time"`
	Nonce             uint32  `json:"nonce"`
	Bits              string  `json:"bits"`
	Difficulty        float64 `json:"difficulty"`
	PreviousBlockHash string  `json:"previousblockhash"`
	NextBlockHash     string  `json:"nextblockhash"`
}

// BlockInfo is a verbosity-1 getblock response.
type BlockInfo struct {
	BlockHeaderInfo
	NTx int      `json:"nTx"`
	Tx  []string `json:"tx"`
}

// PeerInfo is one entry of a getpeerinfo response.
type PeerInfo struct {
	ID             int64  `json:"id"`
	Addr           string `json:"addr"`
	Subversion     string `json:"subver"`
	Inbound        bool   `json:"inbound"`
	StartingHeight int64  `json:"startingheight"`
}

// GetBlockCount returns the height of the most-work chain.
func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	var count int64
	if err := c.Call(ctx, "getblockcount", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetBlockHash returns the block hash at the given height.
func (c *Client) GetBlockHash(ctx context.Context, height int64) (string, error) {
	var hash string
	if err := c.Call(ctx, "getblockhash", []interface{}{height}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// GetBlock returns block metadata and txids at verbosity 1.
func (c *Client) GetBlock(ctx context.Context, hash string) (*BlockInfo, error) {
	var info BlockInfo
	if err := c.Call(ctx, "getblock", []interface{}{hash, 1}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetRawBlock fetches a block at verbosity 0 and parses it.
func (c *Client) GetRawBlock(ctx context.Context, hash string) (*tx.Block, error) {
	var raw string
	if err := c.Call(ctx, "getblock", []interface{}{hash, 0}, &raw); err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid block hex: %w", err)
	}
	return tx.ParseBlockBytes(data)
}

// GetRawTransactionHex returns the serialized transaction as hex.
func (c *Client) GetRawTransactionHex(ctx context.Context, txid string) (string, error) {
	var raw string
	if err := c.Call(ctx, "getrawtransaction", []interface{}{txid}, &raw); err != nil {
		return "", err
	}
	return raw, nil
}

// GetRawTransaction fetches and parses a transaction.
func (c *Client) GetRawTransaction(ctx context.Context, txid string) (*tx.Tx, error) {
	raw, err := c.GetRawTransactionHex(ctx, txid)
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction hex: %w", err)
	}
	return tx.ParseBytes(data)
}

// SendRawTransaction broadcasts a serialized transaction and returns its txid.
func (c *Client) SendRawTransaction(ctx context.Context, rawHex string) (string, error) {
	var txid string
	if err := c.Call(ctx, "sendrawtransaction", []interface{}{rawHex}, &txid); err != nil {
		return "", err
	}
	return txid, nil
}

// GenerateToAddress mines nblocks to the given address (regtest only)
// and returns the new block hashes.
func (c *Client) GenerateToAddress(ctx context.Context, nblocks int, address string) ([]string, error) {
	var hashes []string
	if err := c.Call(ctx, "generatetoaddress", []interface{}{nblocks, address}, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// AddNode asks the node to connect to a peer. Command is one of
// "add", "remove", or "onetry".
func (c *Client) AddNode(ctx context.Context, addr, command string) error {
	return c.Call(ctx, "addnode", []interface{}{addr, command}, nil)
}

// GetPeerInfo returns the node's connected peers.
func (c *Client) GetPeerInfo(ctx context.Context) ([]PeerInfo, error) {
	var peers []PeerInfo
	if err := c.Call(ctx, "getpeerinfo", nil, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

// Stop asks the node to shut down.
func (c *Client) Stop(ctx context.Context) error {
	return c.Call(ctx, "stop", nil, nil)
}
