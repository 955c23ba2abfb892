// Package regtest provides tooling for driving and observing a local
// bitcoind regtest node: a chain scanner that fills the index and a
// debug.log watcher.
package regtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"btckit/internal/rpc"
	"btckit/internal/store"
	"btckit/pkg/network"
	"btckit/pkg/tx"
)

// Scanner pulls blocks from the node and writes them through the index.
type Scanner struct {
	client  *rpc.Client
	store   *store.Store
	net     network.Network
	logger  *zap.Logger
	workers int
}

// NewScanner creates a scanner. workers bounds concurrent block
// fetches; values below 1 fall back to 4.
func NewScanner(client *rpc.Client, st *store.Store, net network.Network, workers int, logger *zap.Logger) *Scanner {
	if workers < 1 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		client:  client,
		store:   st,
		net:     net,
		logger:  logger,
		workers: workers,
	}
}

// ScanRange fetches blocks from height from through to inclusive and
// indexes them. Fetches run concurrently; indexing is sequential so
// the store always grows in height order.
func (s *Scanner) ScanRange(ctx context.Context, from, to int64) error {
	if from > to {
		return fmt.Errorf("invalid range %d..%d", from, to)
	}

	n := to - from + 1
	blocks := make([]*tx.Block, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := int64(0); i < n; i++ {
		i := i
		g.Go(func() error {
			height := from + i
			hash, err := s.client.GetBlockHash(gctx, height)
			if err != nil {
				return fmt.Errorf("fetching hash at %d: %w", height, err)
			}
			b, err := s.client.GetRawBlock(gctx, hash)
			if err != nil {
				return fmt.Errorf("fetching block %d: %w", height, err)
			}
			blocks[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, b := range blocks {
		height := from + int64(i)
		if err := s.store.IndexBlock(height, b, s.net); err != nil {
			return fmt.Errorf("indexing block %d: %w", height, err)
		}
	}

	s.logger.Info("scanned block range",
		zap.Int64("from", from),
		zap.Int64("to", to))
	return nil
}

// Sync indexes every block above the current index tip and returns
// how many were indexed.
func (s *Scanner) Sync(ctx context.Context) (int64, error) {
	tip, err := s.store.TipHeight()
	if err != nil {
		return 0, err
	}
	nodeTip, err := s.client.GetBlockCount(ctx)
	if err != nil {
		return 0, err
	}
	if nodeTip <= tip {
		return 0, nil
	}
	if err := s.ScanRange(ctx, tip+1, nodeTip); err != nil {
		return 0, err
	}
	return nodeTip - tip, nil
}

// Run polls the node at the given interval, syncing new blocks into
// the index until the context is cancelled.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.Sync(ctx)
			if err != nil {
				s.logger.Warn("sync failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("indexed new blocks", zap.Int64("count", n))
			}
		}
	}
}
