package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"btckit/pkg/psbt"
	"btckit/pkg/tx"
)

// psbtCmd groups the BIP174 partially signed transaction commands
var psbtCmd = &cobra.Command{
	Use:   "psbt",
	Short: "Work with BIP174 partially signed transactions",
}

var psbtCreateCmd = &cobra.Command{
	Use:   "create [raw-tx-hex]",
	Short: "Create a PSBT from an unsigned transaction",
	Long: `Wraps a raw transaction in a fresh PSBT. Any scriptSigs or witness
data on the transaction are stripped.`,
	Args: cobra.ExactArgs(1),
	RunE: psbtCreate,
}

var psbtDecodeCmd = &cobra.Command{
	Use:   "decode [base64]",
	Short: "Decode and describe a PSBT",
	Args:  cobra.ExactArgs(1),
	RunE:  psbtDecode,
}

var psbtCombineCmd = &cobra.Command{
	Use:   "combine [base64] [base64...]",
	Short: "Combine several PSBTs for the same transaction",
	Long: `Merges the maps of multiple PSBTs carrying the same unsigned
transaction, as after parallel signing sessions.`,
	Args: cobra.MinimumNArgs(2),
	RunE: psbtCombine,
}

var psbtFinalizeCmd = &cobra.Command{
	Use:   "finalize [base64]",
	Short: "Finalize a fully signed PSBT",
	Long: `Converts partial signatures into final scriptSigs and witnesses.
Every input must already carry the signatures its script requires.`,
	Args: cobra.ExactArgs(1),
	RunE: psbtFinalize,
}

var psbtExtractCmd = &cobra.Command{
	Use:   "extract [base64]",
	Short: "Extract the network-ready transaction from a finalized PSBT",
	Args:  cobra.ExactArgs(1),
	RunE:  psbtExtract,
}

func psbtCreate(cmd *cobra.Command, args []string) error {
	raw, err := hex.DecodeString(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("invalid tx hex: %w", err)
	}
	t, err := tx.ParseBytes(raw)
	if err != nil {
		return err
	}
	p, err := psbt.New(t)
	if err != nil {
		return err
	}
	encoded, err := p.Encode()
	if err != nil {
		return err
	}
	fmt.Println(encoded)
	return nil
}

func psbtDecode(cmd *cobra.Command, args []string) error {
	p, err := psbt.Decode(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("txid:    %s\n", p.Tx.TxIDString())
	fmt.Printf("version: %d\n", p.Version)
	fmt.Printf("inputs (%d):\n", len(p.Inputs))
	for i, in := range p.Inputs {
		fmt.Printf("  %d: %s:%d\n", i, p.Tx.TxIn[i].PrevOut, p.Tx.TxIn[i].PrevOut.Vout)
		switch {
		case in.WitnessUTXO != nil:
			btc, _ := in.WitnessUTXO.Value.ToBTC()
			fmt.Printf("     witness utxo: %s BTC %s\n", btc, hex.EncodeToString(in.WitnessUTXO.ScriptPubKey))
		case in.NonWitnessUTXO != nil:
			fmt.Printf("     non-witness utxo: %s\n", in.NonWitnessUTXO.TxIDString())
		}
		for pub := range in.PartialSigs {
			fmt.Printf("     partial sig: %s\n", hex.EncodeToString([]byte(pub)))
		}
		if len(in.RedeemScript) > 0 {
			fmt.Printf("     redeem script: %s\n", hex.EncodeToString(in.RedeemScript))
		}
		if len(in.WitnessScript) > 0 {
			fmt.Printf("     witness script: %s\n", hex.EncodeToString(in.WitnessScript))
		}
		if len(in.FinalScriptSig) > 0 || !in.FinalScriptWitness.Empty() {
			fmt.Printf("     finalized\n")
		}
	}
	fmt.Printf("outputs (%d):\n", len(p.Outputs))
	for i := range p.Outputs {
		out := p.Tx.TxOut[i]
		btc, _ := out.Value.ToBTC()
		fmt.Printf("  %d: %s BTC %s\n", i, btc, hex.EncodeToString(out.ScriptPubKey))
	}
	return nil
}

func psbtCombine(cmd *cobra.Command, args []string) error {
	psbts := make([]*psbt.Psbt, len(args))
	for i, arg := range args {
		p, err := psbt.Decode(arg)
		if err != nil {
			return fmt.Errorf("psbt %d: %w", i, err)
		}
		psbts[i] = p
	}
	combined, err := psbt.Combine(psbts)
	if err != nil {
		return err
	}
	encoded, err := combined.Encode()
	if err != nil {
		return err
	}
	fmt.Println(encoded)
	return nil
}

func psbtFinalize(cmd *cobra.Command, args []string) error {
	p, err := psbt.Decode(args[0])
	if err != nil {
		return err
	}
	finalized, err := psbt.Finalize(p)
	if err != nil {
		return err
	}
	encoded, err := finalized.Encode()
	if err != nil {
		return err
	}
	fmt.Println(encoded)
	return nil
}

func psbtExtract(cmd *cobra.Command, args []string) error {
	p, err := psbt.Decode(args[0])
	if err != nil {
		return err
	}
	t, err := psbt.Extract(p)
	if err != nil {
		return err
	}
	raw, err := t.Serialize(true)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(raw))
	return nil
}

func init() {
	psbtCmd.AddCommand(psbtCreateCmd)
	psbtCmd.AddCommand(psbtDecodeCmd)
	psbtCmd.AddCommand(psbtCombineCmd)
	psbtCmd.AddCommand(psbtFinalizeCmd)
	psbtCmd.AddCommand(psbtExtractCmd)
}
