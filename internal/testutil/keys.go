package testutil

import "crypto/sha256"

// Seed returns a 32-byte ed25519 seed derived from name.
//
// The same name always yields the same seed, so principals named in a
// scenario ("alice", "bob") map to stable keys across runs.
func Seed(name string) []byte {
	sum := sha256.Sum256([]byte("contriblog/test-principal/" + name))
	return sum[:]
}
