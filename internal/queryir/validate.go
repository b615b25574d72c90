package queryir

import (
	"fmt"
	"regexp"

	"github.com/roach88/rentledger/internal/ir"
)

// fieldPattern restricts field paths to dotted identifiers. Backends embed
// the path in a JSON path expression, so anything else is refused up front.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate checks a predicate tree for structural errors.
//
// Rules:
//  1. Field paths are dotted identifiers
//  2. Literals are scalar (string, int, bool, null)
//  3. Range operators take string or int literals only
//  4. Or has at least one branch
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return fmt.Errorf("nil predicate")
	case Equals:
		return validateComparison(pred.Field, "", pred.Value)
	case *Equals:
		return validateComparison(pred.Field, "", pred.Value)
	case Compare:
		return validateComparison(pred.Field, pred.Op, pred.Value)
	case *Compare:
		return validateComparison(pred.Field, pred.Op, pred.Value)
	case Exists:
		return validateField(pred.Field)
	case *Exists:
		return validateField(pred.Field)
	case And:
		return validateAll("$and", pred.Predicates, true)
	case *And:
		return validateAll("$and", pred.Predicates, true)
	case Or:
		return validateAll("$or", pred.Predicates, false)
	case *Or:
		return validateAll("$or", pred.Predicates, false)
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func validateField(field string) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("invalid field path %q", field)
	}
	return nil
}

func validateComparison(field string, op Op, v ir.Value) error {
	if err := validateField(field); err != nil {
		return err
	}
	switch op {
	case "", OpNe, OpGt, OpGte, OpLt, OpLte:
	default:
		return fmt.Errorf("field %q: unknown operator %q", field, op)
	}
	switch v.(type) {
	case ir.String, ir.Int:
		return nil
	case ir.Bool, ir.Null:
		if op.Ordered() {
			return fmt.Errorf("field %q: %s needs a string or integer operand", field, op)
		}
		return nil
	case nil:
		return fmt.Errorf("field %q: missing operand", field)
	default:
		return fmt.Errorf("field %q: operand must be scalar, got %T", field, v)
	}
}

func validateAll(name string, preds []Predicate, allowEmpty bool) error {
	if len(preds) == 0 && !allowEmpty {
		return fmt.Errorf("%s needs at least one predicate", name)
	}
	for i, p := range preds {
		if err := Validate(p); err != nil {
			return fmt.Errorf("%s[%d]: %w", name, i, err)
		}
	}
	return nil
}
