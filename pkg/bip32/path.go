package bip32

import (
	"fmt"
	"strconv"
	"strings"
)

// HardenedOffset marks the first hardened derivation index.
const HardenedOffset uint32 = 0x80000000

func parseIndex(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	hardened := false
	if n := len(s); n > 0 {
		switch s[n-1] {
		case '\'', 'h', 'H':
			s = s[:n-1]
			hardened = true
		}
	}
	i, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bip32: invalid index %q: %w", s, err)
	}
	if i >= uint64(HardenedOffset) {
		return 0, fmt.Errorf("bip32: invalid index: %d", i)
	}
	if hardened {
		return uint32(i) + HardenedOffset, nil
	}
	return uint32(i), nil
}

func indexString(i uint32) string {
	if i < HardenedOffset {
		return strconv.FormatUint(uint64(i), 10)
	}
	return strconv.FormatUint(uint64(i-HardenedOffset), 10) + "'"
}

// ParsePath parses a derivation path such as "m/44h/0'/1H/0/10" into
// absolute indexes. The leading "m" is optional and parsing is
// case/blank/extra-slash insensitive.
func ParsePath(path string) ([]uint32, error) {
	steps := strings.Split(path, "/")
	if len(steps) > 0 {
		if first := strings.ToLower(strings.TrimSpace(steps[0])); first == "m" {
			steps = steps[1:]
		}
	}

	var indexes []uint32
	for _, step := range steps {
		if strings.TrimSpace(step) == "" {
			continue
		}
		i, err := parseIndex(step)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, i)
	}
	if len(indexes) > 255 {
		return nil, fmt.Errorf("bip32: depth greater than 255: %d", len(indexes))
	}
	return indexes, nil
}

// PathString renders indexes as an "m/..." derivation path with
// apostrophe hardening marks.
func PathString(indexes []uint32) string {
	parts := make([]string, 0, len(indexes)+1)
	parts = append(parts, "m")
	for _, i := range indexes {
		parts = append(parts, indexString(i))
	}
	return strings.Join(parts, "/")
}
