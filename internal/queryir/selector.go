package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/rentledger/internal/ir"
)

// ParseSelector parses a CouchDB-style selector document into a Predicate.
//
// Accepted shapes:
//
//	{"status": "ACTIVE"}                              // implicit $eq
//	{"currentExtensionNumber": {"$gt": 0}}            // operator object
//	{"$or": [{"landlordId": "L"}, {"tenantId": "L"}]} // combinators
//	{"selector": {...}}                               // query envelope
//
// Several keys at one level are joined with And in canonical key order,
// so the same selector always compiles to the same SQL.
func ParseSelector(data []byte) (Predicate, error) {
	v, err := ir.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse selector: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("parse selector: top level must be an object")
	}
	if inner, ok := obj["selector"].(ir.Object); ok && len(obj) == 1 {
		obj = inner
	}

	pred, err := parseObject(obj)
	if err != nil {
		return nil, fmt.Errorf("parse selector: %w", err)
	}
	if err := Validate(pred); err != nil {
		return nil, fmt.Errorf("parse selector: %w", err)
	}
	return pred, nil
}

func parseObject(obj ir.Object) (Predicate, error) {
	var preds []Predicate
	for _, key := range obj.SortedKeys() {
		val := obj[key]
		switch key {
		case "$and", "$or":
			branches, err := parseBranches(key, val)
			if err != nil {
				return nil, err
			}
			if key == "$and" {
				preds = append(preds, And{Predicates: branches})
			} else {
				preds = append(preds, Or{Predicates: branches})
			}
		default:
			if strings.HasPrefix(key, "$") {
				return nil, fmt.Errorf("unsupported combinator %q", key)
			}
			fieldPreds, err := parseCondition(key, val)
			if err != nil {
				return nil, err
			}
			preds = append(preds, fieldPreds...)
		}
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func parseBranches(key string, val ir.Value) ([]Predicate, error) {
	arr, ok := val.(ir.Array)
	if !ok {
		return nil, fmt.Errorf("%s expects an array", key)
	}
	branches := make([]Predicate, 0, len(arr))
	for i, elem := range arr {
		sub, ok := elem.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be an object", key, i)
		}
		p, err := parseObject(sub)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		branches = append(branches, p)
	}
	return branches, nil
}

// parseCondition turns one field entry into predicates. An object whose
// keys all start with "$" is an operator object; anything else is an
// equality literal.
func parseCondition(field string, val ir.Value) ([]Predicate, error) {
	ops, ok := val.(ir.Object)
	if !ok || !isOperatorObject(ops) {
		return []Predicate{Equals{Field: field, Value: val}}, nil
	}

	preds := make([]Predicate, 0, len(ops))
	for _, op := range ops.SortedKeys() {
		operand := ops[op]
		switch Op(op) {
		case OpNe, OpGt, OpGte, OpLt, OpLte:
			preds = append(preds, Compare{Field: field, Op: Op(op), Value: operand})
		default:
			switch op {
			case "$eq":
				preds = append(preds, Equals{Field: field, Value: operand})
			case "$exists":
				b, ok := operand.(ir.Bool)
				if !ok {
					return nil, fmt.Errorf("field %q: $exists expects a boolean", field)
				}
				preds = append(preds, Exists{Field: field, Present: bool(b)})
			default:
				return nil, fmt.Errorf("field %q: unsupported operator %q", field, op)
			}
		}
	}
	return preds, nil
}

func isOperatorObject(obj ir.Object) bool {
	if len(obj) == 0 {
		return false
	}
	for k := range obj {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}
