package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btckit/internal/config"
)

// fakeNode serves canned JSON-RPC responses keyed by method name.
func fakeNode(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.ID)

		result, ok := results[req.Method]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result": nil,
				"error":  map[string]interface{}{"code": -32601, "message": "Method not found"},
				"id":     req.ID,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": result,
			"error":  nil,
			"id":     req.ID,
		})
	}))
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(config.RPCConfig{URL: url, User: "u", Password: "p", Timeout: "5s"}, nil)
	require.NoError(t, err)
	return c
}

func TestGetBlockCount(t *testing.T) {
	srv := fakeNode(t, map[string]interface{}{"getblockcount": 101})
	defer srv.Close()

	count, err := newTestClient(t, srv.URL).GetBlockCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(101), count)
}

func TestGetBlockHashAndBlock(t *testing.T) {
	hash := "0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206"
	srv := fakeNode(t, map[string]interface{}{
		"getblockhash": hash,
		"getblock": map[string]interface{}{
			"hash":   hash,
			"height": 0,
			"nTx":    1,
			"tx":     []string{"4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"},
		},
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.GetBlockHash(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, hash, got)

	info, err := c.GetBlock(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, hash, info.Hash)
	assert.Len(t, info.Tx, 1)
}

func TestSendRawTransaction(t *testing.T) {
	srv := fakeNode(t, map[string]interface{}{
		"sendrawtransaction": "feedface00000000000000000000000000000000000000000000000000000000",
	})
	defer srv.Close()

	txid, err := newTestClient(t, srv.URL).SendRawTransaction(context.Background(), "0200000000")
	require.NoError(t, err)
	assert.Len(t, txid, 64)
}

func TestGenerateToAddress(t *testing.T) {
	srv := fakeNode(t, map[string]interface{}{
		"generatetoaddress": []string{"aa", "bb", "cc"},
	})
	defer srv.Close()

	hashes, err := newTestClient(t, srv.URL).GenerateToAddress(context.Background(), 3, "bcrt1qw508d6qejxtdg4y5r3zarvary0c5xw7kygt080")
	require.NoError(t, err)
	assert.Len(t, hashes, 3)
}

func TestGetPeerInfo(t *testing.T) {
	srv := fakeNode(t, map[string]interface{}{
		"getpeerinfo": []map[string]interface{}{
			{"id": 1, "addr": "127.0.0.1:18444", "inbound": false},
		},
	})
	defer srv.Close()

	peers, err := newTestClient(t, srv.URL).GetPeerInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "127.0.0.1:18444", peers[0].Addr)
}

func TestRPCError(t *testing.T) {
	srv := fakeNode(t, nil)
	defer srv.Close()

	err := newTestClient(t, srv.URL).AddNode(context.Background(), "127.0.0.1:18444", "onetry")
	require.Error(t, err)
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestBasicAuthSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "u" || pass != "p" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, "unauthorized")
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{"result": 1, "error": nil, "id": req.ID})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).GetBlockCount(context.Background())
	assert.NoError(t, err)
}

func TestContextDeadlineDefaulting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{"result": 1, "error": nil, "id": req.ID})
	}))
	defer srv.Close()

	c, err := NewClient(config.RPCConfig{URL: srv.URL, Timeout: "10ms"}, nil)
	require.NoError(t, err)
	_, err = c.GetBlockCount(context.Background())
	assert.Error(t, err)
}

func TestWalletPathAppended(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{"result": 1, "error": nil, "id": req.ID})
	}))
	defer srv.Close()

	c, err := NewClient(config.RPCConfig{URL: srv.URL, Wallet: "miner"}, nil)
	require.NoError(t, err)
	_, err = c.GetBlockCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/wallet/miner", gotPath)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(config.RPCConfig{}, nil)
	assert.Error(t, err)

	_, err = NewClient(config.RPCConfig{URL: "http://x", Timeout: "never"}, nil)
	assert.Error(t, err)
}
