package mission

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NormalizeTxHash canonicalizes 32-byte 0x-prefixed hashes to lowercase hex so
// the same transaction reported with different casing is not a conflict.
// Other formats (non-EVM chains) are only trimmed.
func NormalizeTxHash(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if buf, err := hexutil.Decode(v); err == nil && len(buf) == common.HashLength {
		return common.BytesToHash(buf).Hex()
	}
	return v
}
