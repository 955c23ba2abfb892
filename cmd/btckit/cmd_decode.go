package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"btckit/pkg/script"
	"btckit/pkg/scriptpubkey"
	"btckit/pkg/tx"
)

// decodeCmd groups the wire-format decoders
var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode transactions, scripts, and addresses",
}

var decodeTxCmd = &cobra.Command{
	Use:   "tx [hex]",
	Short: "Decode a raw transaction",
	Long: `Parses a serialized transaction (legacy or segwit) and prints its
structure, txid, wtxid, and weight.

Example:
  btckit decode tx 0100000001...`,
	Args: cobra.ExactArgs(1),
	RunE: decodeTx,
}

var decodeScriptCmd = &cobra.Command{
	Use:   "script [hex]",
	Short: "Decode a serialized script",
	Long: `Disassembles a script into opcodes and data pushes, and classifies
it if it matches a standard output script template.

Example:
  btckit decode script 76a914751e76e8199196d454941c45d1b3a323f1433bd688ac`,
	Args: cobra.ExactArgs(1),
	RunE: decodeScript,
}

var decodeAddressCmd = &cobra.Command{
	Use:   "address [address]",
	Short: "Decode an address into its output script",
	Long: `Resolves a base58check or bech32 address to its scriptPubKey and
the network it belongs to.

Example:
  btckit decode address bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4`,
	Args: cobra.ExactArgs(1),
	RunE: decodeAddress,
}

func decodeTx(cmd *cobra.Command, args []string) error {
	raw, err := hex.DecodeString(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	t, err := tx.ParseBytes(raw)
	if err != nil {
		return err
	}

	wtxid := t.WTxID()
	fmt.Printf("txid:     %s\n", t.TxIDString())
	fmt.Printf("wtxid:    %s\n", hex.EncodeToString(wtxid[:]))
	fmt.Printf("version:  %d\n", t.Version)
	fmt.Printf("locktime: %d\n", t.LockTime)
	fmt.Printf("size:     %d  vsize: %d  weight: %d\n", t.Size(), t.VSize(), t.Weight())

	fmt.Printf("inputs (%d):\n", len(t.TxIn))
	for i, in := range t.TxIn {
		fmt.Printf("  %d: %s:%d sequence=0x%08x\n", i, in.PrevOut, in.PrevOut.Vout, in.Sequence)
		if len(in.ScriptSig) > 0 {
			fmt.Printf("     scriptSig: %s\n", hex.EncodeToString(in.ScriptSig))
		}
		for j, item := range in.Witness.Stack {
			fmt.Printf("     witness[%d]: %s\n", j, hex.EncodeToString(item))
		}
	}

	fmt.Printf("outputs (%d):\n", len(t.TxOut))
	net, err := activeNetwork()
	if err != nil {
		return err
	}
	for i, out := range t.TxOut {
		btc, _ := out.Value.ToBTC()
		kind, _ := scriptpubkey.Classify(out.ScriptPubKey)
		fmt.Printf("  %d: %s BTC  %s  %s\n", i, btc, kind, hex.EncodeToString(out.ScriptPubKey))
		if addr, err := scriptpubkey.Address(out.ScriptPubKey, net); err == nil {
			fmt.Printf("     address: %s\n", addr)
		}
	}
	return nil
}

func decodeScript(cmd *cobra.Command, args []string) error {
	raw, err := hex.DecodeString(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	commands, err := script.Parse(raw)
	if err != nil {
		return err
	}

	var asm []string
	for _, c := range commands {
		if c.IsData() {
			asm = append(asm, hex.EncodeToString(c.Data))
		} else {
			asm = append(asm, c.Op)
		}
	}
	fmt.Printf("asm: %s\n", strings.Join(asm, " "))

	if kind, payload := scriptpubkey.Classify(raw); kind != scriptpubkey.TypeUnknown {
		fmt.Printf("type: %s\n", kind)
		if len(payload) > 0 {
			fmt.Printf("payload: %s\n", hex.EncodeToString(payload))
		}
	}
	return nil
}

func decodeAddress(cmd *cobra.Command, args []string) error {
	spk, net, err := scriptpubkey.FromAddress(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	kind, payload := scriptpubkey.Classify(spk)
	fmt.Printf("network:      %s\n", net.Name)
	fmt.Printf("type:         %s\n", kind)
	fmt.Printf("scriptPubKey: %s\n", hex.EncodeToString(spk))
	fmt.Printf("payload:      %s\n", hex.EncodeToString(payload))
	return nil
}

func init() {
	decodeCmd.AddCommand(decodeTxCmd)
	decodeCmd.AddCommand(decodeScriptCmd)
	decodeCmd.AddCommand(decodeAddressCmd)
}
