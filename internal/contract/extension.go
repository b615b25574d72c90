package contract

import (
	"context"
	"slices"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/identity"
	"github.com/roach88/rentledger/internal/ir"
	"github.com/roach88/rentledger/internal/ledger"
	"github.com/roach88/rentledger/internal/queryir"
)

// RecordContractExtension appends an approved term extension and moves the
// live end date and rent to the new values. Extension entries are never
// modified after they are appended.
func (m *Manager) RecordContractExtension(ctx context.Context, stub ledger.Stub, caller identity.Credential, in ExtensionInput) (*domain.Contract, error) {
	if err := requireFields("contract extension",
		[2]string{"contractId", in.ContractID},
		[2]string{"newEndDate", in.NewEndDate},
	); err != nil {
		return nil, err
	}
	if !in.NewRentAmount.Positive() {
		return nil, domain.Validationf("new rent amount must be greater than 0, got %s", in.NewRentAmount)
	}
	newEnd, err := domain.ParseDate(in.NewEndDate)
	if err != nil {
		return nil, domain.Validationf("invalid newEndDate: %v", err)
	}

	c, err := Load(ctx, stub, in.ContractID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(c, domain.StatusActive, "record an extension"); err != nil {
		return nil, err
	}
	d, err := m.guard.RequireParty(caller, c)
	if err != nil {
		return nil, err
	}

	currentEnd, err := domain.ParseDate(c.EndDate)
	if err != nil {
		return nil, domain.Statef("contract %s has an unreadable end date %q", c.ContractID, c.EndDate)
	}
	if !newEnd.After(currentEnd) {
		return nil, domain.Validationf("new end date %s must be after current end date %s", in.NewEndDate, c.EndDate).
			With("newEndDate", in.NewEndDate).
			With("endDate", c.EndDate)
	}

	ts := now(stub)
	ext := domain.Extension{
		ExtensionNumber:        c.CurrentExtensionNumber + 1,
		PreviousEndDate:        c.EndDate,
		NewEndDate:             domain.FormatTime(newEnd),
		PreviousRentAmount:     c.RentAmount,
		NewRentAmount:          in.NewRentAmount,
		ExtensionAgreementHash: optional(in.ExtensionAgreementHash),
		Notes:                  in.Notes,
		RecordedBy:             d.ActorID,
		RecordedByRole:         d.Role(),
		RecordedAt:             ts,
		Status:                 domain.ExtensionStatusActive,
	}
	c.Extensions = append(slices.Clip(c.Extensions), ext)
	c.CurrentExtensionNumber = ext.ExtensionNumber
	c.EndDate = ext.NewEndDate
	c.RentAmount = ext.NewRentAmount
	if err := m.save(ctx, stub, c); err != nil {
		return nil, err
	}

	return c, ledger.EmitJSON(stub, domain.EventContractExtended, domain.ContractExtendedEvent{
		ContractID:         c.ContractID,
		ExtensionNumber:    ext.ExtensionNumber,
		PreviousEndDate:    ext.PreviousEndDate,
		NewEndDate:         ext.NewEndDate,
		PreviousRentAmount: ext.PreviousRentAmount,
		NewRentAmount:      ext.NewRentAmount,
		Timestamp:          ts,
	})
}

// ExtensionList is the extension history of one contract.
type ExtensionList struct {
	ContractID             string             `json:"contractId"`
	CurrentExtensionNumber int                `json:"currentExtensionNumber"`
	Extensions             []domain.Extension `json:"extensions"`
}

// QueryContractExtensions returns every extension of a contract, oldest
// first.
func (m *Manager) QueryContractExtensions(ctx context.Context, stub ledger.Stub, caller identity.Credential, contractID string) (*ExtensionList, error) {
	c, err := Load(ctx, stub, contractID)
	if err != nil {
		return nil, err
	}
	if _, err := m.guard.RequireReadAccess(caller, c); err != nil {
		return nil, err
	}
	exts := c.Extensions
	if exts == nil {
		exts = []domain.Extension{}
	}
	return &ExtensionList{
		ContractID:             contractID,
		CurrentExtensionNumber: c.CurrentExtensionNumber,
		Extensions:             exts,
	}, nil
}

// ActiveExtension reports the extension currently in force, if any.
type ActiveExtension struct {
	ContractID         string            `json:"contractId"`
	HasActiveExtension bool              `json:"hasActiveExtension"`
	Extension          *domain.Extension `json:"extension"`
}

// GetActiveExtension returns the extension numbered currentExtensionNumber.
func (m *Manager) GetActiveExtension(ctx context.Context, stub ledger.Stub, caller identity.Credential, contractID string) (*ActiveExtension, error) {
	c, err := Load(ctx, stub, contractID)
	if err != nil {
		return nil, err
	}
	if _, err := m.guard.RequireReadAccess(caller, c); err != nil {
		return nil, err
	}
	out := &ActiveExtension{ContractID: contractID}
	if c.CurrentExtensionNumber > 0 {
		if ext, ok := c.FindExtension(c.CurrentExtensionNumber); ok {
			out.HasActiveExtension = true
			out.Extension = &ext
		}
	}
	return out, nil
}

// ExtensionSummary describes an extended contract.
type ExtensionSummary struct {
	ContractID             string                `json:"contractId"`
	LandlordID             string                `json:"landlordId"`
	TenantID               string                `json:"tenantId"`
	Status                 domain.ContractStatus `json:"status"`
	CurrentExtensionNumber int                   `json:"currentExtensionNumber"`
	OriginalEndDate        string                `json:"originalEndDate"`
	CurrentEndDate         string                `json:"currentEndDate"`
	CurrentRentAmount      domain.Amount         `json:"currentRentAmount"`
	TotalExtensions        int                   `json:"totalExtensions"`
}

// QueryContractsWithExtensions lists every contract extended at least once.
func (m *Manager) QueryContractsWithExtensions(ctx context.Context, stub ledger.Stub) ([]ExtensionSummary, error) {
	contracts, err := ledger.QueryJSON[domain.Contract](ctx, stub, queryir.All(
		queryir.Eq("objectType", domain.ObjectContract),
		queryir.Compare{Field: "currentExtensionNumber", Op: queryir.OpGt, Value: ir.Int(0)},
	))
	if err != nil {
		return nil, err
	}
	out := make([]ExtensionSummary, 0, len(contracts))
	for _, c := range contracts {
		original := c.EndDate
		if len(c.Extensions) > 0 {
			original = c.Extensions[0].PreviousEndDate
		}
		out = append(out, ExtensionSummary{
			ContractID:             c.ContractID,
			LandlordID:             c.LandlordID,
			TenantID:               c.TenantID,
			Status:                 c.Status,
			CurrentExtensionNumber: c.CurrentExtensionNumber,
			OriginalEndDate:        original,
			CurrentEndDate:         c.EndDate,
			CurrentRentAmount:      c.RentAmount,
			TotalExtensions:        len(c.Extensions),
		})
	}
	return out, nil
}
