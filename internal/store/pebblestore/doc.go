// Package pebblestore provides a Pebble-backed store.Backend with fsync
// policy and minimal metrics hooks.
//
// Each account lives under acct/<address>. Update collects writes in an
// indexed batch, so reads inside the callback see earlier writes, and the
// batch is committed only when the callback succeeds.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	err = db.Update(ctx, func(tx store.Tx) error {
//	    return tx.PutAccount(addr, acct)
//	})
package pebblestore
