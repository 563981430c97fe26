package helper

import (
	"encoding/hex"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("fin-report-rag::content-id::v1!!")

// ContentID returns the 128-bit content address of text as lowercase hex.
// Identical text always yields the identical ID; no normalization is applied.
func ContentID(text string) string {
	sum := highwayhash.Sum128([]byte(text), hashKey)
	return hex.EncodeToString(sum[:])
}
