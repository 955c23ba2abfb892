package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"btckit/internal/config"
	"btckit/internal/logging"
	"btckit/pkg/network"
)

var (
	// Global flags
	cfgFile     string
	verbose     bool
	networkName string

	// Loaded at startup
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "btckit",
	Short: "btckit - Bitcoin keys, scripts, transactions, and regtest tooling",
	Long: `btckit is a toolbox for Bitcoin primitives.

It decodes and builds transactions, scripts, and addresses, derives
BIP32/SLIP132 hierarchical keys, signs and verifies ECDSA digests,
works with BIP174 PSBTs, and drives a local bitcoind regtest node.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if networkName != "" {
			cfg.Network = networkName
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// activeNetwork resolves the configured network.
func activeNetwork() (network.Network, error) {
	return network.ByName(cfg.Network)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "btckit.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&networkName, "network", "n", "", "Network: mainnet, testnet, signet, regtest")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(addressCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(psbtCmd)
	rootCmd.AddCommand(regtestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
