package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/rentledger/internal/ir"
	"github.com/roach88/rentledger/internal/queryir"
)

// DefaultTable is the ledger's world-state table.
const DefaultTable = "state"

// SQLCompiler compiles selector predicates to parameterized SQLite SQL over
// JSON documents stored in a TEXT column.
//
// CRITICAL: every query ends with ORDER BY key for deterministic results.
// CRITICAL: values and JSON paths are always bound parameters, never
// interpolated.
type SQLCompiler struct {
	// Table holds documents in columns (key BLOB, value TEXT, version INTEGER).
	Table string
}

// NewSQLCompiler creates a compiler targeting the world-state table.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: DefaultTable}
}

// Compile converts a predicate to a full SELECT statement.
// Returns (sql, params, error).
func (c *SQLCompiler) Compile(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, fmt.Errorf("cannot compile nil predicate")
	}
	if err := queryir.Validate(p); err != nil {
		return "", nil, fmt.Errorf("invalid predicate: %w", err)
	}

	where, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, err
	}

	table := c.Table
	if table == "" {
		table = DefaultTable
	}

	sql := fmt.Sprintf("SELECT key, value, version FROM %s WHERE %s ORDER BY key COLLATE BINARY ASC",
		table, where)
	return sql, params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compileEquals(pred.Field, pred.Value)
	case *queryir.Equals:
		return compileEquals(pred.Field, pred.Value)
	case queryir.Compare:
		return compileCompare(pred)
	case *queryir.Compare:
		return compileCompare(*pred)
	case queryir.Exists:
		return compileExists(pred)
	case *queryir.Exists:
		return compileExists(*pred)
	case queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case *queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "1 = 0")
	case *queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "1 = 0")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// jsonPath converts a dotted field into a SQLite JSON path.
// Field syntax is already restricted to identifiers by queryir.Validate.
func jsonPath(field string) string {
	return "$." + field
}

// jsonType returns the json_type() name matching a literal.
func jsonType(v ir.Value) (string, error) {
	switch val := v.(type) {
	case ir.String:
		return "text", nil
	case ir.Int:
		return "integer", nil
	case ir.Bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case ir.Null:
		return "null", nil
	default:
		return "", fmt.Errorf("unsupported literal type: %T", v)
	}
}

// compileEquals requires a matching JSON type so that "1" never equals 1.
func compileEquals(field string, v ir.Value) (string, []any, error) {
	path := jsonPath(field)
	typ, err := jsonType(v)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", field, err)
	}

	switch val := v.(type) {
	case ir.String:
		return "(json_type(value, ?) = 'text' AND json_extract(value, ?) = ?)",
			[]any{path, path, string(val)}, nil
	case ir.Int:
		return "(json_type(value, ?) = 'integer' AND json_extract(value, ?) = ?)",
			[]any{path, path, int64(val)}, nil
	default:
		// bool and null are fully described by their JSON type
		return "json_type(value, ?) = ?", []any{path, typ}, nil
	}
}

func compileCompare(cmp queryir.Compare) (string, []any, error) {
	path := jsonPath(cmp.Field)

	if cmp.Op == queryir.OpNe {
		eq, eqParams, err := compileEquals(cmp.Field, cmp.Value)
		if err != nil {
			return "", nil, err
		}
		params := append([]any{path}, eqParams...)
		return "(json_type(value, ?) IS NOT NULL AND NOT " + eq + ")", params, nil
	}

	var op string
	switch cmp.Op {
	case queryir.OpGt:
		op = ">"
	case queryir.OpGte:
		op = ">="
	case queryir.OpLt:
		op = "<"
	case queryir.OpLte:
		op = "<="
	default:
		return "", nil, fmt.Errorf("field %q: unsupported operator %q", cmp.Field, cmp.Op)
	}

	var param any
	switch val := cmp.Value.(type) {
	case ir.String:
		param = string(val)
	case ir.Int:
		param = int64(val)
	default:
		return "", nil, fmt.Errorf("field %q: %s needs a string or integer operand", cmp.Field, cmp.Op)
	}
	typ, _ := jsonType(cmp.Value)

	sql := fmt.Sprintf("(json_type(value, ?) = ? AND json_extract(value, ?) %s ?)", op)
	return sql, []any{path, typ, path, param}, nil
}

func compileExists(ex queryir.Exists) (string, []any, error) {
	if ex.Present {
		return "json_type(value, ?) IS NOT NULL", []any{jsonPath(ex.Field)}, nil
	}
	return "json_type(value, ?) IS NULL", []any{jsonPath(ex.Field)}, nil
}

func (c *SQLCompiler) compileJunction(preds []queryir.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}

	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, ps, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, sep) + ")", params, nil
}
