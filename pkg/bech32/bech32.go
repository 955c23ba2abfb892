// Package bech32 implements bech32 and bech32m encoding (BIP173, BIP350)
// and native segwit address construction.
package bech32

import (
	"fmt"
	"strings"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

const (
	bech32Const  = 1
	bech32mConst = 0x2bc830a3
)

var gen = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

func polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func createChecksum(hrp string, data []byte, constant uint32) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ constant
	out := make([]byte, 6)
	for i := range out {
		out[i] = byte(mod>>uint(5*(5-i))) & 31
	}
	return out
}

func verifyChecksum(hrp string, data []byte) (uint32, bool) {
	c := polymod(append(hrpExpand(hrp), data...))
	return c, c == bech32Const || c == bech32mConst
}

func encode(hrp string, data []byte, constant uint32) string {
	combined := append(append([]byte{}, data...), createChecksum(hrp, data, constant)...)
	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, d := range combined {
		sb.WriteByte(charset[d])
	}
	return sb.String()
}

// decode splits and checksum-verifies a bech32 string, returning the
// human readable part, the 5-bit data, and the checksum constant found.
func decode(s string) (string, []byte, uint32, error) {
	if strings.ToLower(s) != s && strings.ToUpper(s) != s {
		return "", nil, 0, fmt.Errorf("bech32: mixed case string %q", s)
	}
	s = strings.ToLower(s)
	pos := strings.LastIndexByte(s, '1')
	if pos < 1 || pos+7 > len(s) || len(s) > 90 {
		return "", nil, 0, fmt.Errorf("bech32: invalid separator position in %q", s)
	}
	hrp := s[:pos]
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", nil, 0, fmt.Errorf("bech32: invalid hrp character in %q", hrp)
		}
	}
	data := make([]byte, 0, len(s)-pos-1)
	for i := pos + 1; i < len(s); i++ {
		d := strings.IndexByte(charset, s[i])
		if d == -1 {
			return "", nil, 0, fmt.Errorf("bech32: invalid data character %q", s[i])
		}
		data = append(data, byte(d))
	}
	constant, ok := verifyChecksum(hrp, data)
	if !ok {
		return "", nil, 0, fmt.Errorf("bech32: invalid checksum")
	}
	return hrp, data[:len(data)-6], constant, nil
}

func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var acc, bits uint32
	maxv := uint32(1)<<toBits - 1
	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	for _, v := range data {
		if uint32(v)>>fromBits != 0 {
			return nil, fmt.Errorf("bech32: invalid data range %d", v)
		}
		acc = acc<<fromBits | uint32(v)
		bits += uint32(fromBits)
		for bits >= uint32(toBits) {
			bits -= uint32(toBits)
			out = append(out, byte(acc>>bits&maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(uint32(toBits)-bits)&maxv))
		}
	} else if bits >= uint32(fromBits) || acc<<(uint32(toBits)-bits)&maxv != 0 {
		return nil, fmt.Errorf("bech32: invalid padding")
	}
	return out, nil
}

// SegwitEncode returns the native segwit address for the given witness
// version and program. Version 0 uses bech32, later versions bech32m.
func SegwitEncode(hrp string, witVer byte, witProg []byte) (string, error) {
	if witVer > 16 {
		return "", fmt.Errorf("bech32: invalid witness version %d", witVer)
	}
	if len(witProg) < 2 || len(witProg) > 40 {
		return "", fmt.Errorf("bech32: invalid witness program length %d", len(witProg))
	}
	if witVer == 0 && len(witProg) != 20 && len(witProg) != 32 {
		return "", fmt.Errorf("bech32: invalid witness v0 program length %d", len(witProg))
	}
	conv, err := convertBits(witProg, 8, 5, true)
	if err != nil {
		return "", err
	}
	constant := uint32(bech32Const)
	if witVer > 0 {
		constant = bech32mConst
	}
	return encode(hrp, append([]byte{witVer}, conv...), constant), nil
}

// SegwitDecode parses a native segwit address, validating the hrp and
// the checksum variant required by the witness version.
func SegwitDecode(hrp, addr string) (byte, []byte, error) {
	gotHrp, data, constant, err := decode(addr)
	if err != nil {
		return 0, nil, err
	}
	if gotHrp != hrp {
		return 0, nil, fmt.Errorf("bech32: invalid hrp %q, expected %q", gotHrp, hrp)
	}
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("bech32: empty data section")
	}
	witVer := data[0]
	if witVer > 16 {
		return 0, nil, fmt.Errorf("bech32: invalid witness version %d", witVer)
	}
	if witVer == 0 && constant != bech32Const {
		return 0, nil, fmt.Errorf("bech32: witness v0 requires bech32 checksum")
	}
	if witVer > 0 && constant != bech32mConst {
		return 0, nil, fmt.Errorf("bech32: witness v1+ requires bech32m checksum")
	}
	witProg, err := convertBits(data[1:], 5, 8, false)
	if err != nil {
		return 0, nil, err
	}
	if len(witProg) < 2 || len(witProg) > 40 {
		return 0, nil, fmt.Errorf("bech32: invalid witness program length %d", len(witProg))
	}
	if witVer == 0 && len(witProg) != 20 && len(witProg) != 32 {
		return 0, nil, fmt.Errorf("bech32: invalid witness v0 program length %d", len(witProg))
	}
	return witVer, witProg, nil
}
