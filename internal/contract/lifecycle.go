package contract

import (
	"context"
	"fmt"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/identity"
	"github.com/roach88/rentledger/internal/ledger"
)

// CreateContract writes a new contract signed by the landlord.
//
// The caller must be exactly the declared landlord. The contract starts in
// PENDING_SIGNATURE with only the landlord signature attached, and an
// entity-index record is written alongside it.
func (m *Manager) CreateContract(ctx context.Context, stub ledger.Stub, caller identity.Credential, in CreateInput) (*domain.Contract, error) {
	if err := requireFields("contract creation",
		[2]string{"contractId", in.ContractID},
		[2]string{"landlordId", in.LandlordID},
		[2]string{"tenantId", in.TenantID},
		[2]string{"landlordOrg", in.LandlordOrg},
		[2]string{"tenantOrg", in.TenantOrg},
		[2]string{"signedContractFileHash", in.SignedContractHash},
		[2]string{"startDate", in.StartDate},
		[2]string{"endDate", in.EndDate},
	); err != nil {
		return nil, err
	}

	key, err := domain.ContractKey(in.ContractID)
	if err != nil {
		return nil, err
	}
	existing, err := stub.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load contract %s: %w", in.ContractID, err)
	}
	if existing != nil {
		return nil, domain.Conflictf("contract %s already exists", in.ContractID).With("contractId", in.ContractID)
	}

	if !in.RentAmount.Positive() {
		return nil, domain.Validationf("rent amount must be greater than 0, got %s", in.RentAmount)
	}
	if in.DepositAmount < 0 {
		return nil, domain.Validationf("deposit amount cannot be negative, got %s", in.DepositAmount)
	}
	currency, err := m.currencies.Normalize(in.Currency)
	if err != nil {
		return nil, err
	}

	start, err := domain.ParseDate(in.StartDate)
	if err != nil {
		return nil, domain.Validationf("invalid startDate: %v", err)
	}
	end, err := domain.ParseDate(in.EndDate)
	if err != nil {
		return nil, domain.Validationf("invalid endDate: %v", err)
	}
	if !start.Before(end) {
		return nil, domain.Validationf("end date %s must be after start date %s", in.EndDate, in.StartDate)
	}
	if in.LandlordOrg == in.TenantOrg && in.LandlordID == in.TenantID {
		return nil, domain.Validationf("landlord and tenant must be different identities")
	}

	creatorID, err := m.guard.RequireExactIdentity(caller, in.LandlordOrg, in.LandlordID)
	if err != nil {
		return nil, err
	}

	meta, err := parseMetadata("landlordSignatureMeta", in.LandlordSignatureMeta)
	if err != nil {
		return nil, err
	}

	ts := now(stub)
	c := &domain.Contract{
		ObjectType:         domain.ObjectContract,
		ContractID:         in.ContractID,
		LandlordID:         in.LandlordID,
		TenantID:           in.TenantID,
		LandlordOrg:        in.LandlordOrg,
		TenantOrg:          in.TenantOrg,
		LandlordCertID:     optional(in.LandlordCertID),
		TenantCertID:       optional(in.TenantCertID),
		LandlordSignedHash: in.SignedContractHash,
		RentAmount:         in.RentAmount,
		DepositAmount:      in.DepositAmount,
		Currency:           currency,
		StartDate:          domain.FormatTime(start),
		EndDate:            domain.FormatTime(end),
		Status:             domain.StatusPendingSignature,
		Signatures: domain.Signatures{
			Landlord: &domain.Signature{
				Metadata:       meta,
				SignedBy:       creatorID,
				ExpectedSigner: in.LandlordID,
				SignedAt:       ts,
				Status:         domain.SignatureStatusSigned,
			},
		},
		Penalties:    []domain.ContractPenalty{},
		Extensions:   []domain.Extension{},
		CreatedBy:    creatorID,
		CreatedByOrg: in.LandlordOrg,
		CreatedAt:    ts,
	}
	if err := m.save(ctx, stub, c); err != nil {
		return nil, err
	}

	indexKey, err := domain.EntityIndexKey(in.ContractID)
	if err != nil {
		return nil, err
	}
	if err := ledger.PutJSON(ctx, stub, indexKey, domain.EntityIndex{
		EntityType: domain.ObjectContract,
		EntityID:   in.ContractID,
		CreatedAt:  ts,
	}); err != nil {
		return nil, err
	}

	return c, ledger.EmitJSON(stub, domain.EventContractCreated, domain.ContractCreatedEvent{
		ContractID: c.ContractID,
		LandlordID: c.LandlordID,
		TenantID:   c.TenantID,
		Status:     c.Status,
		Timestamp:  ts,
	})
}

// TenantSignContract attaches the tenant's counter-signature and moves the
// contract to WAIT_DEPOSIT.
func (m *Manager) TenantSignContract(ctx context.Context, stub ledger.Stub, caller identity.Credential, in TenantSignInput) (*domain.Contract, error) {
	if err := requireFields("tenant signature",
		[2]string{"contractId", in.ContractID},
		[2]string{"fullySignedContractFileHash", in.FullySignedHash},
	); err != nil {
		return nil, err
	}

	c, err := Load(ctx, stub, in.ContractID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(c, domain.StatusPendingSignature, "record the tenant signature"); err != nil {
		return nil, err
	}
	signerID, err := m.guard.RequireExactIdentity(caller, c.TenantOrg, c.TenantID)
	if err != nil {
		return nil, err
	}
	meta, err := parseMetadata("tenantSignatureMeta", in.TenantSignatureMeta)
	if err != nil {
		return nil, err
	}

	ts := now(stub)
	c.Signatures.Tenant = &domain.Signature{
		Metadata:       meta,
		SignedBy:       signerID,
		ExpectedSigner: c.TenantID,
		SignedAt:       ts,
		Status:         domain.SignatureStatusSigned,
	}
	c.FullySignedHash = &in.FullySignedHash
	c.Status = domain.StatusWaitDeposit
	if err := m.save(ctx, stub, c); err != nil {
		return nil, err
	}

	return c, ledger.EmitJSON(stub, domain.EventTenantSigned, domain.TenantSignedEvent{
		ContractID: c.ContractID,
		SignedBy:   signerID,
		Status:     c.Status,
		Timestamp:  ts,
	})
}

// RecordDeposit stores one party's deposit. The contract moves to
// WAIT_FIRST_PAYMENT when the second deposit lands, in either order.
func (m *Manager) RecordDeposit(ctx context.Context, stub ledger.Stub, caller identity.Credential, in DepositInput) (*domain.Contract, error) {
	if err := requireFields("deposit", [2]string{"contractId", in.ContractID}); err != nil {
		return nil, err
	}
	if !in.Party.Valid() {
		return nil, domain.Validationf("invalid party %q for deposit, expected landlord or tenant", in.Party)
	}
	if !in.Amount.Positive() {
		return nil, domain.Validationf("deposit amount must be greater than 0, got %s", in.Amount)
	}

	c, err := Load(ctx, stub, in.ContractID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(c, domain.StatusWaitDeposit, "record a deposit"); err != nil {
		return nil, err
	}

	expectedOrg, expectedID := c.TenantOrg, c.TenantID
	if in.Party == domain.PartyLandlord {
		expectedOrg, expectedID = c.LandlordOrg, c.LandlordID
	}
	depositorID, err := m.guard.RequireExactIdentity(caller, expectedOrg, expectedID)
	if err != nil {
		return nil, err
	}
	if c.Deposit.Get(in.Party) != nil {
		return nil, domain.Conflictf("%s deposit for contract %s is already recorded", in.Party, c.ContractID).
			With("contractId", c.ContractID).
			With("party", string(in.Party))
	}

	ts := now(stub)
	c.Deposit.Set(in.Party, &domain.Deposit{
		Amount:            in.Amount,
		DepositTxRef:      in.DepositTxRef,
		DepositedBy:       depositorID,
		ExpectedDepositor: expectedID,
		DepositedAt:       ts,
	})
	if c.Deposit.Complete() {
		c.Status = domain.StatusWaitFirstPayment
	}
	if err := m.save(ctx, stub, c); err != nil {
		return nil, err
	}

	return c, ledger.EmitJSON(stub, domain.EventDepositRecorded, domain.DepositRecordedEvent{
		ContractID: c.ContractID,
		Party:      in.Party,
		Status:     c.Status,
		Timestamp:  ts,
	})
}

// RecordFirstPayment records period 1 and activates the contract. The
// amount must equal the rent exactly.
func (m *Manager) RecordFirstPayment(ctx context.Context, stub ledger.Stub, caller identity.Credential, in FirstPaymentInput) (*domain.Contract, error) {
	if err := requireFields("first payment", [2]string{"contractId", in.ContractID}); err != nil {
		return nil, err
	}

	c, err := Load(ctx, stub, in.ContractID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(c, domain.StatusWaitFirstPayment, "record the first payment"); err != nil {
		return nil, err
	}
	payerID, err := m.guard.RequireExactIdentity(caller, c.TenantOrg, c.TenantID)
	if err != nil {
		return nil, err
	}
	if in.Amount != c.RentAmount {
		return nil, domain.Validationf("payment amount %s does not match rent amount %s", in.Amount, c.RentAmount).
			With("amount", in.Amount.String()).
			With("rentAmount", c.RentAmount.String())
	}

	ts := now(stub)
	c.FirstPayment = &domain.FirstPayment{
		Amount:        in.Amount,
		PaymentTxRef:  in.PaymentTxRef,
		PaidBy:        payerID,
		ExpectedPayer: c.TenantID,
		PaidAt:        ts,
	}
	c.Status = domain.StatusActive
	c.ActivatedAt = ts
	if err := m.save(ctx, stub, c); err != nil {
		return nil, err
	}

	return c, ledger.EmitJSON(stub, domain.EventFirstPaymentRecorded, domain.FirstPaymentRecordedEvent{
		ContractID: c.ContractID,
		Status:     c.Status,
		Timestamp:  ts,
	})
}

// ActivateContract forces a fully signed contract to ACTIVE. It needs no
// particular caller; the record state alone decides.
func (m *Manager) ActivateContract(ctx context.Context, stub ledger.Stub, contractID string) (*domain.Contract, error) {
	c, err := Load(ctx, stub, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.StatusActive {
		return nil, domain.Conflictf("contract %s is already active", contractID).With("contractId", contractID)
	}
	if !c.Status.CanTransitionTo(domain.StatusActive) {
		return nil, domain.Statef("contract %s cannot be activated from status %s", contractID, c.Status).
			With("contractId", contractID).
			With("status", c.Status.String())
	}
	if !signed(c.Signatures.Landlord) || !signed(c.Signatures.Tenant) {
		return nil, domain.Statef("contract %s cannot be activated without both parties' signatures", contractID).
			With("contractId", contractID)
	}

	ts := now(stub)
	c.Status = domain.StatusActive
	if c.ActivatedAt == "" {
		c.ActivatedAt = ts
	}
	if err := m.save(ctx, stub, c); err != nil {
		return nil, err
	}

	return c, ledger.EmitJSON(stub, domain.EventContractActivated, domain.ContractActivatedEvent{
		ContractID: c.ContractID,
		Status:     c.Status,
		Timestamp:  ts,
	})
}

// TerminateContract ends the contract from any non-terminal state. Either
// party may terminate.
func (m *Manager) TerminateContract(ctx context.Context, stub ledger.Stub, caller identity.Credential, in TerminateInput) (*domain.Contract, error) {
	c, err := Load(ctx, stub, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.StatusTerminated {
		return nil, domain.Conflictf("contract %s is already terminated", c.ContractID).With("contractId", c.ContractID)
	}
	d, err := m.guard.RequireParty(caller, c)
	if err != nil {
		return nil, err
	}

	reason := in.Reason
	if reason == "" {
		reason = "Not specified"
	}

	ts := now(stub)
	c.Status = domain.StatusTerminated
	c.TerminatedBy = d.ActorID
	c.TerminatedByRole = d.Role()
	c.TerminatedAt = ts
	c.TerminationReason = reason
	c.SummaryHash = in.SummaryHash
	if err := m.save(ctx, stub, c); err != nil {
		return nil, err
	}

	return c, ledger.EmitJSON(stub, domain.EventContractTerminated, domain.ContractTerminatedEvent{
		ContractID: c.ContractID,
		Status:     c.Status,
		Reason:     reason,
		Timestamp:  ts,
	})
}

// RecordPenalty appends a contract-level penalty. Parties and privileged
// callers may record one in any status.
func (m *Manager) RecordPenalty(ctx context.Context, stub ledger.Stub, caller identity.Credential, in PenaltyInput) (*domain.Contract, error) {
	if err := requireFields("penalty",
		[2]string{"contractId", in.ContractID},
		[2]string{"reason", in.Reason},
	); err != nil {
		return nil, err
	}
	if !in.Party.Valid() {
		return nil, domain.Validationf("invalid party %q for penalty, expected landlord or tenant", in.Party)
	}
	if !in.Amount.Positive() {
		return nil, domain.Validationf("penalty amount must be greater than 0, got %s", in.Amount)
	}

	c, err := Load(ctx, stub, in.ContractID)
	if err != nil {
		return nil, err
	}
	d, err := m.guard.RequirePartyOrPrivileged(caller, c)
	if err != nil {
		return nil, err
	}

	ts := now(stub)
	c.Penalties = append(c.Penalties, domain.ContractPenalty{
		Party:          in.Party,
		Amount:         in.Amount,
		Reason:         in.Reason,
		RecordedBy:     d.ActorID,
		RecordedByRole: d.Role(),
		Timestamp:      ts,
	})
	if err := m.save(ctx, stub, c); err != nil {
		return nil, err
	}

	return c, ledger.EmitJSON(stub, domain.EventPenaltyRecorded, domain.PenaltyRecordedEvent{
		ContractID: c.ContractID,
		Party:      in.Party,
		Amount:     in.Amount,
		Reason:     in.Reason,
		Timestamp:  ts,
	})
}

func signed(s *domain.Signature) bool {
	return s != nil && s.Status == domain.SignatureStatusSigned
}
