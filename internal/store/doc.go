// Package store provides durable account storage for the contribution log.
//
// An account is a 32-byte address mapped to an owner program, a lamport
// balance and a byte slot whose length is its allocated capacity. All
// access goes through Backend transactions:
//
//   - Update: read-write, committed only when the callback returns nil
//   - View: read-only, always rolled back
//
// A failing Update leaves every account exactly as it was before the call,
// including any capacity growth or balance transfer made inside it.
//
// This package contains the SQLite backend. The Pebble backend lives in
// store/pebblestore and satisfies the same contract.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=FULL: Committed transactions survive power loss
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: Updates are strictly serial
package store
