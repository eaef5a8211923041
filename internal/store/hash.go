package store

import (
	"crypto/sha256"
	"fmt"
)

// ContentHash is the hash recorded for a unit's main source file.
func ContentHash(src []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(src))
}
