package explorer

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CanonicalAddress validates a 20-byte hex address (with or without 0x, any case)
// and returns it lowercased with the 0x prefix.
func CanonicalAddress(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), true
}

// Abbrev shortens an address for log lines.
func Abbrev(addr string) string {
	if len(addr) > 12 {
		return addr[:6] + "..." + addr[len(addr)-4:]
	}
	return addr
}
