// Package program implements the contribution log program: creation of the
// singleton log slot, exact capacity growth before every append, the
// authority gate, and the append protocol.
//
// Entry points take an *Invocation bound to one store transaction. They
// return an *Error for every domain failure; the caller must then discard
// the transaction so that no partial write becomes visible.
//
// Capacity is always the exact encoded size of the log. Each record costs
// 44 bytes plus the UTF-8 length of its code hash, and the slot is grown to
// HeaderSize + sum of record sizes before the new record is written.
package program
