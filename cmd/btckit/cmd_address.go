package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"btckit/pkg/bip32"
	"btckit/pkg/scriptpubkey"
)

// addressCmd groups the address construction commands
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Build addresses from keys and scripts",
}

var addressPubKeyCmd = &cobra.Command{
	Use:   "pubkey [type] [pubkey-hex]",
	Short: "Build an address from a public key",
	Long: `Builds an address of the given type from a serialized public key.

Types: p2pkh, p2wpkh, p2wpkh-p2sh

Example:
  btckit address pubkey p2wpkh 0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798`,
	Args: cobra.ExactArgs(2),
	RunE: addressFromPubKey,
}

var addressScriptCmd = &cobra.Command{
	Use:   "script [type] [script-hex]",
	Short: "Build an address committing to a script",
	Long: `Builds an address wrapping the given redeem or witness script.

Types: p2sh, p2wsh, p2wsh-p2sh`,
	Args: cobra.ExactArgs(2),
	RunE: addressFromScript,
}

var addressXKeyCmd = &cobra.Command{
	Use:   "xkey [xkey]",
	Short: "Build the address implied by an extended key's SLIP132 version",
	Long: `Derives the address for an extended key: xpub maps to p2pkh, zpub
to p2wpkh, ypub to p2wpkh-p2sh. Private keys are neutered first.`,
	Args: cobra.ExactArgs(1),
	RunE: addressFromXKey,
}

func addressFromPubKey(cmd *cobra.Command, args []string) error {
	pubKey, err := hex.DecodeString(strings.TrimSpace(args[1]))
	if err != nil {
		return fmt.Errorf("invalid pubkey hex: %w", err)
	}
	net, err := activeNetwork()
	if err != nil {
		return err
	}

	var addr string
	switch args[0] {
	case "p2pkh":
		addr, err = scriptpubkey.P2PKHAddress(pubKey, net)
	case "p2wpkh":
		addr, err = scriptpubkey.P2WPKHAddress(pubKey, net)
	case "p2wpkh-p2sh":
		addr, err = scriptpubkey.P2WPKHP2SHAddress(pubKey, net)
	default:
		return fmt.Errorf("unknown address type %q (valid: p2pkh, p2wpkh, p2wpkh-p2sh)", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Println(addr)
	return nil
}

func addressFromScript(cmd *cobra.Command, args []string) error {
	scriptBytes, err := hex.DecodeString(strings.TrimSpace(args[1]))
	if err != nil {
		return fmt.Errorf("invalid script hex: %w", err)
	}
	net, err := activeNetwork()
	if err != nil {
		return err
	}

	var addr string
	switch args[0] {
	case "p2sh":
		addr, err = scriptpubkey.P2SHAddress(scriptBytes, net)
	case "p2wsh":
		addr, err = scriptpubkey.P2WSHAddress(scriptBytes, net)
	case "p2wsh-p2sh":
		addr, err = scriptpubkey.P2WSHP2SHAddress(scriptBytes, net)
	default:
		return fmt.Errorf("unknown address type %q (valid: p2sh, p2wsh, p2wsh-p2sh)", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Println(addr)
	return nil
}

func addressFromXKey(cmd *cobra.Command, args []string) error {
	key, err := bip32.ParseKey(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	addr, err := bip32.AddressFromXKey(key)
	if err != nil {
		return err
	}
	fmt.Println(addr)
	return nil
}

func init() {
	addressCmd.AddCommand(addressPubKeyCmd)
	addressCmd.AddCommand(addressScriptCmd)
	addressCmd.AddCommand(addressXKeyCmd)
}
