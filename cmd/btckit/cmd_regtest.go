package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"btckit/internal/regtest"
	"btckit/internal/rpc"
	"btckit/internal/store"
)

// regtestCmd groups the commands that talk to a local bitcoind node
var regtestCmd = &cobra.Command{
	Use:   "regtest",
	Short: "Drive and observe a local bitcoind regtest node",
}

var regtestStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node height, peers, and index state",
	RunE:  regtestStatus,
}

var regtestGenerateCmd = &cobra.Command{
	Use:   "generate [n]",
	Short: "Mine blocks to the configured address",
	Args:  cobra.ExactArgs(1),
	RunE:  regtestGenerate,
}

var regtestSendCmd = &cobra.Command{
	Use:   "send [raw-tx-hex]",
	Short: "Broadcast a raw transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  regtestSend,
}

var (
	scanFrom int64
	scanTo   int64
)

var regtestScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Index node blocks into the local database",
	Long: `Fetches blocks from the node and writes them into the SQLite index.
Without flags it syncs from the current index tip to the node tip.

Example:
  btckit regtest scan --from 0 --to 100`,
	RunE: regtestScan,
}

var regtestWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail the node debug.log and keep the index in sync",
	Long: `Runs until interrupted: new blocks are indexed as they arrive and
matching debug.log lines are printed.`,
	RunE: regtestWatch,
}

var regtestPeersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List the node's connected peers",
	RunE:  regtestPeers,
}

var regtestStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Shut the node down",
	RunE:  regtestStop,
}

// nodeClient builds an RPC client from the loaded config.
func nodeClient() (*rpc.Client, error) {
	return rpc.NewClient(cfg.RPC, logger)
}

func openIndex() (*store.Store, error) {
	return store.New(cfg.Store.DatabasePath, logger)
}

func regtestStatus(cmd *cobra.Command, args []string) error {
	client, err := nodeClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	height, err := client.GetBlockCount(ctx)
	if err != nil {
		return fmt.Errorf("node unreachable: %w", err)
	}
	peers, err := client.GetPeerInfo(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("node height: %d\n", height)
	fmt.Printf("peers:       %d\n", len(peers))

	st, err := openIndex()
	if err != nil {
		return err
	}
	defer st.Close()
	stats, err := st.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("index tip:   %d (%d blocks, %d txs, %d outputs)\n",
		stats.TipHeight, stats.Blocks, stats.Transactions, stats.Outputs)
	return nil
}

func regtestGenerate(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return fmt.Errorf("invalid block count %q", args[0])
	}
	if cfg.Regtest.MineAddress == "" {
		return fmt.Errorf("no mine_address configured")
	}

	client, err := nodeClient()
	if err != nil {
		return err
	}
	hashes, err := client.GenerateToAddress(cmd.Context(), n, cfg.Regtest.MineAddress)
	if err != nil {
		return err
	}
	for _, h := range hashes {
		fmt.Println(h)
	}
	return nil
}

func regtestSend(cmd *cobra.Command, args []string) error {
	client, err := nodeClient()
	if err != nil {
		return err
	}
	txid, err := client.SendRawTransaction(cmd.Context(), strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	fmt.Println(txid)
	return nil
}

func regtestScan(cmd *cobra.Command, args []string) error {
	client, err := nodeClient()
	if err != nil {
		return err
	}
	st, err := openIndex()
	if err != nil {
		return err
	}
	defer st.Close()

	net, err := activeNetwork()
	if err != nil {
		return err
	}
	scanner := regtest.NewScanner(client, st, net, 4, logger)

	ctx := cmd.Context()
	if scanTo >= 0 {
		if err := scanner.ScanRange(ctx, scanFrom, scanTo); err != nil {
			return err
		}
		fmt.Printf("indexed blocks %d..%d\n", scanFrom, scanTo)
		return nil
	}

	n, err := scanner.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d new blocks\n", n)
	return nil
}

func regtestWatch(cmd *cobra.Command, args []string) error {
	client, err := nodeClient()
	if err != nil {
		return err
	}
	st, err := openIndex()
	if err != nil {
		return err
	}
	defer st.Close()

	net, err := activeNetwork()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	watcher, err := regtest.NewLogWatcher(cfg.DebugLogPath(), logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	scanner := regtest.NewScanner(client, st, net, 4, logger)
	scanErr := make(chan error, 1)
	go func() { scanErr <- scanner.Run(ctx, cfg.GetPollInterval()) }()

	logger.Info("watching node",
		zap.String("debug_log", cfg.DebugLogPath()),
		zap.Duration("poll", cfg.GetPollInterval()))

	for {
		select {
		case line, ok := <-watcher.Lines():
			if !ok {
				return nil
			}
			fmt.Println(line)
		case err := <-scanErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

func regtestPeers(cmd *cobra.Command, args []string) error {
	client, err := nodeClient()
	if err != nil {
		return err
	}
	peers, err := client.GetPeerInfo(cmd.Context())
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		fmt.Println("no peers connected")
		return nil
	}
	for _, p := range peers {
		direction := "outbound"
		if p.Inbound {
			direction = "inbound"
		}
		fmt.Printf("%3d %-24s %-9s %s\n", p.ID, p.Addr, direction, p.Subversion)
	}
	return nil
}

func regtestStop(cmd *cobra.Command, args []string) error {
	client, err := nodeClient()
	if err != nil {
		return err
	}
	if err := client.Stop(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("node stopping")
	return nil
}

func init() {
	regtestScanCmd.Flags().Int64Var(&scanFrom, "from", 0, "First height to index")
	regtestScanCmd.Flags().Int64Var(&scanTo, "to", -1, "Last height to index (default: sync to node tip)")

	regtestCmd.AddCommand(regtestStatusCmd)
	regtestCmd.AddCommand(regtestGenerateCmd)
	regtestCmd.AddCommand(regtestSendCmd)
	regtestCmd.AddCommand(regtestScanCmd)
	regtestCmd.AddCommand(regtestWatchCmd)
	regtestCmd.AddCommand(regtestPeersCmd)
	regtestCmd.AddCommand(regtestStopCmd)
}
