// Package queryir provides the selector intermediate representation used for
// rich queries over ledger documents.
//
// QueryIR is the boundary between the callers that build selectors (the
// contract and payment services, the CLI and the HTTP gateway) and the
// backend that evaluates them:
//
//	[selector JSON] → ParseSelector ─┐
//	[Go builders]   ─────────────────┴→ [Predicate] → [querysql] → SQLite
//
// SUPPORTED FRAGMENT:
//
// The fragment mirrors the operators a document store's selector language
// offers for this domain:
//   - equality (implicit or $eq), including equality with null
//   - $ne, $gt, $gte, $lt, $lte against string or integer literals
//   - $exists
//   - $and, $or
//
// Not supported: $in, $regex, $elemMatch, array literals. Callers that need
// a finer filter (for example date ranges compared as instants rather than
// strings) over-fetch with a coarse selector and re-filter in Go.
//
// SEALED INTERFACES:
//
// Predicate is sealed with a marker method so backend compilers can
// switch exhaustively:
//
//	switch p := pred.(type) {
//	case queryir.Equals:
//	case queryir.Compare:
//	case queryir.Exists:
//	case queryir.And:
//	case queryir.Or:
//	}
//
// All literals are ir.Value, so floats can never reach a query.
package queryir
