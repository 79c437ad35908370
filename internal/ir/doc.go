// Package ir provides the value types shared by every contriblog package.
//
// This package contains type definitions and their text forms only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Public keys and addresses are fixed 32-byte arrays, rendered as base58
//   - Account.Data length is the allocated capacity, not the logical length
//   - All JSON tags use snake_case
//   - Canonical JSON (MarshalCanonical) is the only encoding used for traces
//     and golden files
package ir
