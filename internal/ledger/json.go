package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/rentledger/internal/ir"
	"github.com/roach88/rentledger/internal/queryir"
)

// GetJSON reads key and decodes it into v. It reports false when the key
// is absent, leaving v untouched.
func GetJSON(ctx context.Context, stub Stub, key Key, v any) (bool, error) {
	data, err := stub.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// PutJSON encodes v and buffers it at key.
func PutJSON(ctx context.Context, stub Stub, key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := stub.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// EmitJSON sets the transaction event with a canonical JSON payload.
func EmitJSON(stub Stub, name string, payload any) error {
	data, err := ir.CanonicalJSON(payload)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", name, err)
	}
	return stub.Emit(name, data)
}

// QueryJSON runs a selector and decodes each matching document as T, in
// key order.
func QueryJSON[T any](ctx context.Context, stub Stub, selector queryir.Predicate) ([]T, error) {
	records, err := stub.Query(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := json.Unmarshal(r.Value, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}
