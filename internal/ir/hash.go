package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainSlot prefixes slot digests. The version suffix allows a future
// algorithm change without colliding with old digests.
const DomainSlot = "contriblog/slot/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SlotDigest fingerprints the logical bytes of a log slot. Two slots with
// equal digests hold byte-identical headers and records.
func SlotDigest(logical []byte) string {
	return hashWithDomain(DomainSlot, logical)
}

// AccountDiscriminator returns the 8-byte type tag stored at offset 0 of an
// account owned by a program: the first 8 bytes of SHA256("account:" + name).
func AccountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
