package queryir

import "github.com/roach88/rentledger/internal/ir"

// Predicate is a filter condition over a stored JSON document.
//
// This is a sealed interface - only types in this package implement it.
// The marker method prevents external implementations and lets backend
// compilers switch exhaustively.
//
// Predicate types:
//   - Equals: field == literal (including null)
//   - Compare: field <op> literal for $ne, $gt, $gte, $lt, $lte
//   - Exists: field present / absent
//   - And: all predicates hold
//   - Or: at least one predicate holds
type Predicate interface {
	predicateNode()
}

// Op is a comparison operator used by Compare.
type Op string

const (
	OpNe  Op = "$ne"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"
)

// Ordered reports whether the operator is a range comparison.
func (o Op) Ordered() bool {
	switch o {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// Equals matches documents whose Field equals Value.
//
// Field is a dotted path into the document ("deposit.landlord.amount").
// Value may be ir.Null to match an explicit JSON null.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// Compare matches documents whose Field relates to Value by Op.
//
// Range operators only match fields of the same JSON type as Value, so a
// string bound never matches an integer field. $ne requires the field to
// be present.
type Compare struct {
	Field string
	Op    Op
	Value ir.Value
}

func (Compare) predicateNode() {}

// Exists matches documents where Field is present (Present=true) or
// absent (Present=false). A field holding null counts as present.
type Exists struct {
	Field   string
	Present bool
}

func (Exists) predicateNode() {}

// And matches when every predicate matches. An empty And matches all
// documents.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or matches when at least one predicate matches. Or must not be empty.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Eq is shorthand for Equals with a string literal.
func Eq(field, value string) Equals {
	return Equals{Field: field, Value: ir.String(value)}
}

// All combines predicates with And.
func All(preds ...Predicate) And {
	return And{Predicates: preds}
}

// Any combines predicates with Or.
func Any(preds ...Predicate) Or {
	return Or{Predicates: preds}
}
