package ir

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeySize is the byte length of a public key or account address.
const PubkeySize = 32

// Pubkey is an ed25519 public key or a derived account address.
type Pubkey [PubkeySize]byte

// SystemProgramID owns every account that no program has claimed yet.
// It is the all-zero key, "11111111111111111111111111111111" in base58.
var SystemProgramID = Pubkey{}

// PubkeyFromBytes copies b into a Pubkey. b must be exactly 32 bytes.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var p Pubkey
	if len(b) != PubkeySize {
		return p, fmt.Errorf("pubkey: want %d bytes, got %d", PubkeySize, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// ParsePubkey decodes a base58 public key.
func ParsePubkey(s string) (Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("pubkey %q: %w", s, err)
	}
	return PubkeyFromBytes(raw)
}

// MustParsePubkey is ParsePubkey for compile-time constants; it panics on error.
func MustParsePubkey(s string) Pubkey {
	p, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the base58 form.
func (p Pubkey) String() string { return base58.Encode(p[:]) }

// Bytes returns a copy of the raw key.
func (p Pubkey) Bytes() []byte { return append([]byte(nil), p[:]...) }

// IsZero reports whether p is the all-zero key.
func (p Pubkey) IsZero() bool { return p == Pubkey{} }

// Equal reports byte equality.
func (p Pubkey) Equal(other Pubkey) bool { return bytes.Equal(p[:], other[:]) }

// MarshalText renders the key as base58 for JSON and YAML.
func (p Pubkey) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a base58 key.
func (p *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Account is a persistently addressed storage slot.
//
// len(Data) is the allocated capacity. Bytes beyond the owner's logical
// end carry no meaning.
type Account struct {
	Owner    Pubkey `json:"owner"`
	Lamports uint64 `json:"lamports"`
	Data     []byte `json:"data"`
}

// Clone returns a deep copy so callers never alias backend buffers.
func (a Account) Clone() Account {
	a.Data = append([]byte(nil), a.Data...)
	return a
}

// ContributionRecord is one entry of the contribution log.
type ContributionRecord struct {
	Contributor Pubkey `json:"contributor"`
	Timestamp   int64  `json:"timestamp"`
	CodeHash    string `json:"code_hash"`
}

// LogState is the decoded content of the singleton log slot.
type LogState struct {
	Authority     Pubkey               `json:"authority"`
	Contributions []ContributionRecord `json:"contributions"`
}

// Len returns the number of records.
func (s LogState) Len() int { return len(s.Contributions) }

// Clone returns a copy whose record slice does not alias s.
func (s LogState) Clone() LogState {
	out := LogState{Authority: s.Authority}
	if s.Contributions != nil {
		out.Contributions = append(make([]ContributionRecord, 0, len(s.Contributions)), s.Contributions...)
	}
	return out
}
