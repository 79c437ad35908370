// Package codec implements the fixed binary layout of the contribution log
// slot.
//
// Layout (all integers little-endian):
//
//	offset 0   8 bytes   type discriminator
//	offset 8   32 bytes  authority public key
//	offset 40  4 bytes   record count N (uint32)
//	offset 44  N records, each:
//	             32 bytes  contributor public key
//	             8 bytes   timestamp (int64)
//	             4 bytes   code hash length L (uint32)
//	             L bytes   code hash, UTF-8
//
// The slot may be larger than the encoded content. Bytes past the logical
// end are never interpreted.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/roach88/contriblog/internal/ir"
)

// Layout sizes in bytes.
const (
	DiscriminatorSize = 8
	CountSize         = 4
	HeaderSize        = DiscriminatorSize + ir.PubkeySize + CountSize
	RecordFixedSize   = ir.PubkeySize + 8 + 4
	MaxCodeHashLen    = 64

	countOffset = DiscriminatorSize + ir.PubkeySize
)

// Discriminator tags a slot as holding a LogState.
var Discriminator = ir.AccountDiscriminator("LogState")

// ErrCorruptLayout is returned for truncated or malformed slot bytes.
var ErrCorruptLayout = errors.New("corrupt layout")

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptLayout, fmt.Sprintf(format, args...))
}

// RecordSize is the exact encoded length of rec.
func RecordSize(rec ir.ContributionRecord) int {
	return RecordFixedSize + len(rec.CodeHash)
}

// StateSize is the exact encoded length of s: the header plus every record.
func StateSize(s ir.LogState) int {
	n := HeaderSize
	for _, rec := range s.Contributions {
		n += RecordSize(rec)
	}
	return n
}

// RequiredSize is the exact capacity needed to hold s after appending next.
func RequiredSize(s ir.LogState, next ir.ContributionRecord) int {
	return StateSize(s) + RecordSize(next)
}

// EncodeState encodes s into a buffer of exactly StateSize(s) bytes.
func EncodeState(s ir.LogState) []byte {
	out := make([]byte, 0, StateSize(s))
	out = append(out, Discriminator[:]...)
	out = append(out, s.Authority[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(s.Contributions)))
	for _, rec := range s.Contributions {
		out = EncodeRecord(out, rec)
	}
	return out
}

// EncodeRecord appends the encoding of rec to dst.
func EncodeRecord(dst []byte, rec ir.ContributionRecord) []byte {
	dst = append(dst, rec.Contributor[:]...)
	dst = binary.LittleEndian.AppendUint64(dst, uint64(rec.Timestamp))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(rec.CodeHash)))
	return append(dst, rec.CodeHash...)
}

// WriteState encodes s at the start of slot, leaving any trailing bytes
// untouched. slot must hold at least StateSize(s) bytes.
func WriteState(slot []byte, s ir.LogState) error {
	need := StateSize(s)
	if len(slot) < need {
		return fmt.Errorf("codec: slot capacity %d < required %d", len(slot), need)
	}
	copy(slot, EncodeState(s))
	return nil
}

// DecodeState parses slot. It returns the state and the logical length,
// the number of bytes the encoding occupies.
func DecodeState(slot []byte) (ir.LogState, int, error) {
	if len(slot) < HeaderSize {
		return ir.LogState{}, 0, corrupt("slot is %d bytes, header needs %d", len(slot), HeaderSize)
	}
	var disc [DiscriminatorSize]byte
	copy(disc[:], slot[:DiscriminatorSize])
	if disc != Discriminator {
		return ir.LogState{}, 0, corrupt("discriminator %x does not match %x", disc, Discriminator)
	}

	var s ir.LogState
	copy(s.Authority[:], slot[DiscriminatorSize:countOffset])
	count := binary.LittleEndian.Uint32(slot[countOffset:HeaderSize])

	off := HeaderSize
	if uint64(count)*RecordFixedSize > uint64(len(slot)-off) {
		return ir.LogState{}, 0, corrupt("count %d exceeds slot of %d bytes", count, len(slot))
	}
	s.Contributions = make([]ir.ContributionRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		rec, n, err := decodeRecord(slot[off:])
		if err != nil {
			return ir.LogState{}, 0, fmt.Errorf("record %d at offset %d: %w", i, off, err)
		}
		s.Contributions = append(s.Contributions, rec)
		off += n
	}
	return s, off, nil
}

func decodeRecord(b []byte) (ir.ContributionRecord, int, error) {
	if len(b) < RecordFixedSize {
		return ir.ContributionRecord{}, 0, corrupt("truncated record: %d bytes", len(b))
	}
	var rec ir.ContributionRecord
	copy(rec.Contributor[:], b[:ir.PubkeySize])
	rec.Timestamp = int64(binary.LittleEndian.Uint64(b[ir.PubkeySize : ir.PubkeySize+8]))
	l := binary.LittleEndian.Uint32(b[ir.PubkeySize+8 : RecordFixedSize])
	if l == 0 || l > MaxCodeHashLen {
		return ir.ContributionRecord{}, 0, corrupt("code hash length %d outside [1, %d]", l, MaxCodeHashLen)
	}
	end := RecordFixedSize + int(l)
	if len(b) < end {
		return ir.ContributionRecord{}, 0, corrupt("code hash needs %d bytes, %d left", l, len(b)-RecordFixedSize)
	}
	hash := b[RecordFixedSize:end]
	if !utf8.Valid(hash) {
		return ir.ContributionRecord{}, 0, corrupt("code hash is not valid UTF-8")
	}
	rec.CodeHash = string(hash)
	return rec, end, nil
}

// Logical returns the encoded prefix of slot, dropping trailing capacity.
func Logical(slot []byte) ([]byte, error) {
	_, n, err := DecodeState(slot)
	if err != nil {
		return nil, err
	}
	return slot[:n], nil
}
