package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/rentledger/internal/authz"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/ir"
	"github.com/roach88/rentledger/internal/ledger"
)

// Manager owns the contract state machine. It is the only writer of
// contract documents.
//
// Every method runs inside one ledger transaction supplied as a
// ledger.Stub. Mutating methods read the whole contract, apply one
// transition, write it back and emit exactly one event. Manager keeps no
// state between calls.
type Manager struct {
	guard      authz.Guard
	currencies domain.CurrencyPolicy
}

// NewManager creates a Manager enforcing guard and the currency policy.
func NewManager(guard authz.Guard, currencies domain.CurrencyPolicy) *Manager {
	return &Manager{guard: guard, currencies: currencies}
}

// Guard returns the authorization policy in force.
func (m *Manager) Guard() authz.Guard { return m.guard }

// Load reads a contract, failing with a NotFound error when absent.
func Load(ctx context.Context, stub ledger.Stub, contractID string) (*domain.Contract, error) {
	key, err := domain.ContractKey(contractID)
	if err != nil {
		return nil, err
	}
	var c domain.Contract
	found, err := ledger.GetJSON(ctx, stub, key, &c)
	if err != nil {
		return nil, fmt.Errorf("load contract %s: %w", contractID, err)
	}
	if !found {
		return nil, domain.NotFoundf("contract %s does not exist", contractID).With("contractId", contractID)
	}
	return &c, nil
}

func (m *Manager) save(ctx context.Context, stub ledger.Stub, c *domain.Contract) error {
	key, err := domain.ContractKey(c.ContractID)
	if err != nil {
		return err
	}
	c.UpdatedAt = now(stub)
	return ledger.PutJSON(ctx, stub, key, c)
}

func now(stub ledger.Stub) string {
	return domain.FormatTime(stub.TxTimestamp())
}

func requireStatus(c *domain.Contract, want domain.ContractStatus, action string) error {
	if c.Status != want {
		return domain.Statef("contract %s must be %s to %s, current status %s",
			c.ContractID, want, action, c.Status).
			With("contractId", c.ContractID).
			With("status", c.Status.String())
	}
	return nil
}

// requireFields returns a Validation error listing every empty field.
func requireFields(op string, fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return domain.Validationf("missing required parameters for %s: %s", op, strings.Join(missing, ", "))
	}
	return nil
}

// parseMetadata accepts signature metadata as a JSON value or as a string
// holding JSON, and returns it in canonical form.
func parseMetadata(field string, raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, domain.Validationf("%s is required", field)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, domain.Validationf("invalid %s JSON: %v", field, err)
		}
		raw = []byte(s)
	}
	v, err := ir.Parse(raw)
	if err != nil {
		return nil, domain.Validationf("invalid %s JSON: %v", field, err)
	}
	canonical, err := ir.Canonical(v)
	if err != nil {
		return nil, domain.Validationf("invalid %s JSON: %v", field, err)
	}
	return canonical, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
