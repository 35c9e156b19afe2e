// Package hash includes all hashing functions used across the display fabric.
package hash

import (
	"github.com/minio/sha256-simd"
)

// Hash256 defines a function that returns the sha256 checksum of the data passed in.
func Hash256(data []byte) [32]byte {
	return sha256.Sum256(data)
}
