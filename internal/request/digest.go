package request

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Digest returns a stable hash of (queryText, operationName), used as the
// PlanCache key (spec.md §3).
func Digest(queryText, operationName string) string {
	h := xxhash.New()
	_, _ = h.WriteString(queryText)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(operationName)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h.Sum64())
	return hex.EncodeToString(buf[:])
}
