package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"btckit/pkg/bip32"
)

// deriveCmd groups the BIP32/SLIP132 hierarchical key operations
var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "BIP32 hierarchical key derivation",
}

var deriveScheme string

var deriveMasterCmd = &cobra.Command{
	Use:   "master [seed-hex]",
	Short: "Derive a master extended key from a seed",
	Long: `Computes the BIP32 master private key from a 128 to 512 bit seed.
The --scheme flag selects the extended key version (SLIP132):
bip32 (xprv), p2wpkh (zprv), or p2wpkh-p2sh (yprv).

Example:
  btckit derive master 000102030405060708090a0b0c0d0e0f`,
	Args: cobra.ExactArgs(1),
	RunE: deriveMaster,
}

var derivePathCmd = &cobra.Command{
	Use:   "path [xkey] [path]",
	Short: "Derive a child key along a derivation path",
	Long: `Derives a descendant of an extended key. Hardened components use
h, H, or ' suffixes. Public keys cannot derive hardened children.

Examples:
  btckit derive path xprv9s21... m/44h/0h/0h
  btckit derive path xpub661M... m/0/3`,
	Args: cobra.ExactArgs(2),
	RunE: derivePath,
}

var deriveNeuterCmd = &cobra.Command{
	Use:   "neuter [xprv]",
	Short: "Convert an extended private key to its public counterpart",
	Args:  cobra.ExactArgs(1),
	RunE:  deriveNeuter,
}

var deriveWIFCmd = &cobra.Command{
	Use:   "wif [xprv]",
	Short: "Export the private key of an extended key in WIF",
	Args:  cobra.ExactArgs(1),
	RunE:  deriveWIF,
}

var deriveCrackCmd = &cobra.Command{
	Use:   "crack [parent-xpub] [child-xprv]",
	Short: "Recover a parent private key from its xpub and a non-hardened child xprv",
	Long: `Demonstrates why an extended public key plus any non-hardened child
private key reveals the whole branch: the parent private key is the
child key minus the publicly computable offset.`,
	Args: cobra.ExactArgs(2),
	RunE: deriveCrack,
}

func deriveMaster(cmd *cobra.Command, args []string) error {
	seed, err := hex.DecodeString(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("invalid seed hex: %w", err)
	}
	net, err := activeNetwork()
	if err != nil {
		return err
	}

	var version []byte
	switch deriveScheme {
	case "", "bip32":
		version = net.BIP32Prv
	case "p2wpkh":
		version = net.SLIP132P2WPKHPrv
	case "p2wpkh-p2sh":
		version = net.SLIP132P2WPKHP2SHPrv
	default:
		return fmt.Errorf("unknown scheme %q (valid: bip32, p2wpkh, p2wpkh-p2sh)", deriveScheme)
	}

	master, err := bip32.MasterFromSeed(seed, version)
	if err != nil {
		return err
	}
	printXKey(master)
	return nil
}

func derivePath(cmd *cobra.Command, args []string) error {
	key, err := bip32.ParseKey(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	derived, err := key.Derive(args[1])
	if err != nil {
		return err
	}
	printXKey(derived)
	return nil
}

func deriveNeuter(cmd *cobra.Command, args []string) error {
	key, err := bip32.ParseKey(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	pub, err := key.Neuter()
	if err != nil {
		return err
	}
	printXKey(pub)
	return nil
}

func deriveWIF(cmd *cobra.Command, args []string) error {
	key, err := bip32.ParseKey(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	wif, err := key.WIF()
	if err != nil {
		return err
	}
	fmt.Println(wif)
	return nil
}

func deriveCrack(cmd *cobra.Command, args []string) error {
	parent, err := bip32.ParseKey(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("parent: %w", err)
	}
	child, err := bip32.ParseKey(strings.TrimSpace(args[1]))
	if err != nil {
		return fmt.Errorf("child: %w", err)
	}
	cracked, err := bip32.CrackPrivateKey(parent, child)
	if err != nil {
		return err
	}
	printXKey(cracked)
	return nil
}

// printXKey prints an extended key with its fingerprint and, for
// public keys, the derived address when the version implies one.
func printXKey(k *bip32.KeyData) {
	fmt.Println(k.Encode())

	if fp, err := k.Fingerprint(); err == nil {
		fmt.Printf("fingerprint: %s\n", hex.EncodeToString(fp[:]))
	}
	if addr, err := bip32.AddressFromXKey(k); err == nil {
		fmt.Printf("address:     %s\n", addr)
	}
}

func init() {
	deriveMasterCmd.Flags().StringVar(&deriveScheme, "scheme", "bip32", "Extended key scheme: bip32, p2wpkh, p2wpkh-p2sh")

	deriveCmd.AddCommand(deriveMasterCmd)
	deriveCmd.AddCommand(derivePathCmd)
	deriveCmd.AddCommand(deriveNeuterCmd)
	deriveCmd.AddCommand(deriveWIFCmd)
	deriveCmd.AddCommand(deriveCrackCmd)
}
