// Package random provides cryptographic seed generation helpers.
//
// Seeds from crypto/rand initialize the pseudo-random sources used for
// initiative and player-facing dice rolls, keeping individual rolls
// unpredictable while the roll pipeline itself stays deterministic per seed.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
