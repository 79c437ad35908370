package pebblestore

import (
	"encoding/binary"
	"fmt"

	"github.com/roach88/contriblog/internal/ir"
)

var accountPrefix = []byte("acct/")

// accountKey returns acct/<32-byte address>.
func accountKey(addr ir.Pubkey) []byte {
	k := make([]byte, 0, len(accountPrefix)+ir.PubkeySize)
	k = append(k, accountPrefix...)
	return append(k, addr[:]...)
}

const valueHeaderSize = ir.PubkeySize + 8

// encodeAccount lays out owner(32) | lamports(8, LE) | data.
func encodeAccount(acct ir.Account) []byte {
	v := make([]byte, 0, valueHeaderSize+len(acct.Data))
	v = append(v, acct.Owner[:]...)
	v = binary.LittleEndian.AppendUint64(v, acct.Lamports)
	return append(v, acct.Data...)
}

// decodeAccount copies val, which Pebble only guarantees until the closer runs.
func decodeAccount(val []byte) (ir.Account, error) {
	if len(val) < valueHeaderSize {
		return ir.Account{}, fmt.Errorf("account value is %d bytes, need at least %d", len(val), valueHeaderSize)
	}
	var acct ir.Account
	copy(acct.Owner[:], val[:ir.PubkeySize])
	acct.Lamports = binary.LittleEndian.Uint64(val[ir.PubkeySize:valueHeaderSize])
	acct.Data = append([]byte{}, val[valueHeaderSize:]...)
	return acct, nil
}
