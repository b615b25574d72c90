// Package ir provides the constrained JSON value model shared by the ledger,
// the selector query layer and the rental domain.
//
// ir imports nothing internal. Every other package may depend on it.
//
// Key constraints:
//   - NO float values anywhere; amounts are int64 minor units
//   - Canonical bytes follow RFC 8785 (sorted keys, NFC strings)
//   - Digests are domain separated SHA-256
package ir
