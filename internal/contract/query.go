package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/identity"
	"github.com/roach88/rentledger/internal/ir"
	"github.com/roach88/rentledger/internal/ledger"
	"github.com/roach88/rentledger/internal/queryir"
)

// GetContract returns the full contract record to one of its parties.
func (m *Manager) GetContract(ctx context.Context, stub ledger.Stub, caller identity.Credential, contractID string) (*domain.Contract, error) {
	c, err := Load(ctx, stub, contractID)
	if err != nil {
		return nil, err
	}
	if _, err := m.guard.RequireReadAccess(caller, c); err != nil {
		return nil, err
	}
	return c, nil
}

// QueryContractsByStatus lists contracts in the given status.
func (m *Manager) QueryContractsByStatus(ctx context.Context, stub ledger.Stub, status string) ([]domain.Contract, error) {
	s, err := domain.ParseContractStatus(status)
	if err != nil {
		return nil, domain.Validationf("%v", err)
	}
	return ledger.QueryJSON[domain.Contract](ctx, stub, queryir.All(
		queryir.Eq("objectType", domain.ObjectContract),
		queryir.Eq("status", s.String()),
	))
}

// QueryContractsByParty lists contracts where partyID is landlord or tenant.
func (m *Manager) QueryContractsByParty(ctx context.Context, stub ledger.Stub, partyID string) ([]domain.Contract, error) {
	if partyID == "" {
		return nil, domain.Validationf("party id is required")
	}
	return ledger.QueryJSON[domain.Contract](ctx, stub, queryir.All(
		queryir.Eq("objectType", domain.ObjectContract),
		queryir.Any(
			queryir.Eq("landlordId", partyID),
			queryir.Eq("tenantId", partyID),
		),
	))
}

// QueryContractsByDateRange lists contracts whose term overlaps
// [startDate, endDate]. The ledger filters by string comparison; the
// result is then re-checked on parsed timestamps.
func (m *Manager) QueryContractsByDateRange(ctx context.Context, stub ledger.Stub, startDate, endDate string) ([]domain.Contract, error) {
	from, err := domain.ParseDate(startDate)
	if err != nil {
		return nil, domain.Validationf("invalid startDate: %v", err)
	}
	to, err := domain.ParseDate(endDate)
	if err != nil {
		return nil, domain.Validationf("invalid endDate: %v", err)
	}

	candidates, err := ledger.QueryJSON[domain.Contract](ctx, stub, queryir.All(
		queryir.Eq("objectType", domain.ObjectContract),
		queryir.Compare{Field: "startDate", Op: queryir.OpLte, Value: ir.String(domain.FormatTime(to))},
		queryir.Compare{Field: "endDate", Op: queryir.OpGte, Value: ir.String(domain.FormatTime(from))},
	))
	if err != nil {
		return nil, err
	}

	out := make([]domain.Contract, 0, len(candidates))
	for _, c := range candidates {
		if overlaps(c, from, to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func overlaps(c domain.Contract, from, to time.Time) bool {
	start, err := domain.ParseDate(c.StartDate)
	if err != nil {
		return false
	}
	end, err := domain.ParseDate(c.EndDate)
	if err != nil {
		return false
	}
	return !start.After(to) && !end.Before(from)
}

// HistoryRecord is one historical write to a contract.
type HistoryRecord struct {
	TxID      string `json:"txId"`
	Timestamp string `json:"timestamp"`
	IsDelete  bool   `json:"isDelete"`
	Value     any    `json:"value"`
}

// GetContractHistory returns every committed version of the contract,
// oldest first. Values that are not JSON come back as strings.
func (m *Manager) GetContractHistory(ctx context.Context, stub ledger.Stub, caller identity.Credential, contractID string) ([]HistoryRecord, error) {
	c, err := Load(ctx, stub, contractID)
	if err != nil {
		return nil, err
	}
	if _, err := m.guard.RequireReadAccess(caller, c); err != nil {
		return nil, err
	}
	key, err := domain.ContractKey(contractID)
	if err != nil {
		return nil, err
	}

	records := []HistoryRecord{}
	for entry, err := range stub.HistoryOf(ctx, key) {
		if err != nil {
			return nil, fmt.Errorf("history of %s: %w", contractID, err)
		}
		rec := HistoryRecord{
			TxID:      entry.TxID,
			Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
			IsDelete:  entry.IsDelete,
			Value:     string(entry.Value),
		}
		if json.Valid(entry.Value) {
			rec.Value = json.RawMessage(entry.Value)
		}
		records = append(records, rec)
	}
	return records, nil
}

// StoreContractPrivateDetails writes sensitive details to the restricted
// collection. The details must be a JSON object; contractId and storedAt
// are stamped onto it.
func (m *Manager) StoreContractPrivateDetails(ctx context.Context, stub ledger.Stub, caller identity.Credential, in PrivateDetailsInput) (map[string]any, error) {
	if err := requireFields("private details", [2]string{"contractId", in.ContractID}); err != nil {
		return nil, err
	}
	var details map[string]any
	dec := json.NewDecoder(bytes.NewReader(in.Details))
	dec.UseNumber()
	if err := dec.Decode(&details); err != nil || details == nil {
		return nil, domain.Validationf("invalid private data JSON: must be an object")
	}

	c, err := Load(ctx, stub, in.ContractID)
	if err != nil {
		return nil, err
	}
	if _, err := m.guard.RequireParty(caller, c); err != nil {
		return nil, err
	}

	ts := now(stub)
	details["contractId"] = in.ContractID
	details["storedAt"] = ts
	data, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode private details: %w", err)
	}
	key, err := domain.ContractKey(in.ContractID)
	if err != nil {
		return nil, err
	}
	if err := stub.PutRestricted(ctx, domain.PrivateCollection, key, data); err != nil {
		return nil, fmt.Errorf("store private details: %w", err)
	}

	if err := ledger.EmitJSON(stub, domain.EventPrivateDetailsStored, domain.PrivateDetailsStoredEvent{
		ContractID: in.ContractID,
		Timestamp:  ts,
	}); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "contractId": in.ContractID}, nil
}

// GetContractPrivateDetails reads the restricted details of a contract.
func (m *Manager) GetContractPrivateDetails(ctx context.Context, stub ledger.Stub, caller identity.Credential, contractID string) (json.RawMessage, error) {
	c, err := Load(ctx, stub, contractID)
	if err != nil {
		return nil, err
	}
	if _, err := m.guard.RequireReadAccess(caller, c); err != nil {
		return nil, err
	}
	key, err := domain.ContractKey(contractID)
	if err != nil {
		return nil, err
	}
	data, err := stub.GetRestricted(ctx, domain.PrivateCollection, key)
	if err != nil {
		return nil, fmt.Errorf("read private details: %w", err)
	}
	if data == nil {
		return nil, domain.NotFoundf("no private data found for contract %s", contractID).With("contractId", contractID)
	}
	return json.RawMessage(data), nil
}
