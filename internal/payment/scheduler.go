package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/rentledger/internal/authz"
	"github.com/roach88/rentledger/internal/contract"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/identity"
	"github.com/roach88/rentledger/internal/ir"
	"github.com/roach88/rentledger/internal/ledger"
	"github.com/roach88/rentledger/internal/queryir"
)

// MaxPeriod is the highest period a schedule may reach. Periods are keyed
// with three digits, so going further would break key ordering.
const MaxPeriod = 999

// Scheduler generates and settles payment obligations. It is the only
// writer of payment documents and order-reference index records. It reads
// contracts but never writes them.
type Scheduler struct {
	guard    authz.Guard
	interval Interval
}

// NewScheduler creates a Scheduler stepping due dates by interval. A zero
// interval means monthly.
func NewScheduler(guard authz.Guard, interval Interval) *Scheduler {
	if interval.IsZero() {
		interval = Monthly()
	}
	return &Scheduler{guard: guard, interval: interval}
}

// Interval returns the configured cadence.
func (s *Scheduler) Interval() Interval { return s.interval }

// CreateMonthlyPaymentSchedule writes one SCHEDULED payment per interval
// after the first payment, from period 2, while the due date is before the
// contract end date.
func (s *Scheduler) CreateMonthlyPaymentSchedule(ctx context.Context, stub ledger.Stub, contractID string) ([]domain.Payment, error) {
	c, err := contract.Load(ctx, stub, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusActive || c.FirstPayment == nil {
		return nil, domain.Statef("contract %s is not active or has no first payment", contractID).
			With("contractId", contractID).
			With("status", c.Status.String())
	}
	anchor, err := domain.ParseDate(c.FirstPayment.PaidAt)
	if err != nil {
		return nil, domain.Statef("contract %s has an unreadable first payment date %q", contractID, c.FirstPayment.PaidAt)
	}
	end, err := domain.ParseDate(c.EndDate)
	if err != nil {
		return nil, domain.Statef("contract %s has an unreadable end date %q", contractID, c.EndDate)
	}

	schedules, err := s.generate(ctx, stub, c.ContractID, c.RentAmount, 0, anchor, end, 2)
	if err != nil {
		return nil, err
	}

	return schedules, ledger.EmitJSON(stub, domain.EventPaymentScheduleCreated, domain.PaymentScheduleCreatedEvent{
		ContractID:     contractID,
		TotalSchedules: len(schedules),
		Timestamp:      domain.FormatTime(stub.TxTimestamp()),
	})
}

// CreateExtensionPaymentSchedule writes the payments covering an
// extension, from its previous end date to its new end date, at the new
// rent. Numbering continues after the highest existing period, found by
// scanning the contract's payments.
func (s *Scheduler) CreateExtensionPaymentSchedule(ctx context.Context, stub ledger.Stub, contractID string, extensionNumber int) ([]domain.Payment, error) {
	if contractID == "" || extensionNumber <= 0 {
		return nil, domain.Validationf("missing required parameters: contractId, extensionNumber")
	}
	c, err := contract.Load(ctx, stub, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusActive {
		return nil, domain.Statef("contract %s must be ACTIVE, current status %s", contractID, c.Status).
			With("contractId", contractID).
			With("status", c.Status.String())
	}
	ext, ok := c.FindExtension(extensionNumber)
	if !ok {
		return nil, domain.Statef("extension number %d not found for contract %s", extensionNumber, contractID).
			With("contractId", contractID).
			With("extensionNumber", fmt.Sprint(extensionNumber))
	}

	existing, err := s.contractPayments(ctx, stub, contractID)
	if err != nil {
		return nil, err
	}
	lastPeriod := 1
	for _, p := range existing {
		if p.ExtensionNumber == extensionNumber {
			return nil, domain.Conflictf("payment schedule for extension %d of contract %s already exists", extensionNumber, contractID).
				With("contractId", contractID).
				With("extensionNumber", fmt.Sprint(extensionNumber))
		}
		lastPeriod = max(lastPeriod, p.Period)
	}

	anchor, err := domain.ParseDate(ext.PreviousEndDate)
	if err != nil {
		return nil, domain.Statef("extension %d has an unreadable previous end date %q", extensionNumber, ext.PreviousEndDate)
	}
	end, err := domain.ParseDate(ext.NewEndDate)
	if err != nil {
		return nil, domain.Statef("extension %d has an unreadable new end date %q", extensionNumber, ext.NewEndDate)
	}

	startPeriod := lastPeriod + 1
	schedules, err := s.generate(ctx, stub, contractID, ext.NewRentAmount, extensionNumber, anchor, end, startPeriod)
	if err != nil {
		return nil, err
	}

	return schedules, ledger.EmitJSON(stub, domain.EventExtensionPaymentScheduleCreated, domain.ExtensionPaymentScheduleCreatedEvent{
		ContractID:      contractID,
		ExtensionNumber: extensionNumber,
		TotalSchedules:  len(schedules),
		StartPeriod:     startPeriod,
		EndPeriod:       startPeriod + len(schedules) - 1,
		Timestamp:       domain.FormatTime(stub.TxTimestamp()),
	})
}

// generate writes schedule entries due at interval steps after anchor while
// strictly before end. An already existing payment key aborts the whole
// schedule.
func (s *Scheduler) generate(ctx context.Context, stub ledger.Stub, contractID string, amount domain.Amount, extensionNumber int, anchor, end time.Time, firstPeriod int) ([]domain.Payment, error) {
	ts := domain.FormatTime(stub.TxTimestamp())
	schedules := []domain.Payment{}
	for k := 1; ; k++ {
		due := s.interval.Due(anchor, k)
		if !due.Before(end) {
			break
		}
		period := firstPeriod + k - 1
		if period > MaxPeriod {
			return nil, domain.Validationf("schedule for contract %s would exceed %d periods", contractID, MaxPeriod)
		}

		key, err := domain.PaymentKey(contractID, period)
		if err != nil {
			return nil, err
		}
		prior, err := stub.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load payment %s: %w", key, err)
		}
		if prior != nil {
			return nil, domain.Conflictf("payment for contract %s period %d already exists", contractID, period).
				With("contractId", contractID).
				With("period", fmt.Sprint(period))
		}

		p := domain.Payment{
			ObjectType:      domain.ObjectPayment,
			PaymentID:       domain.PaymentID(contractID, period),
			ContractID:      contractID,
			Period:          period,
			Amount:          amount,
			Status:          domain.PaymentScheduled,
			DueDate:         domain.FormatTime(due),
			ExtensionNumber: extensionNumber,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}
		if err := ledger.PutJSON(ctx, stub, key, p); err != nil {
			return nil, err
		}
		schedules = append(schedules, p)
	}
	return schedules, nil
}

func (s *Scheduler) contractPayments(ctx context.Context, stub ledger.Stub, contractID string) ([]domain.Payment, error) {
	return ledger.QueryJSON[domain.Payment](ctx, stub, queryir.All(
		queryir.Eq("objectType", domain.ObjectPayment),
		queryir.Eq("contractId", contractID),
	))
}

// loadPayment reads a payment, failing with NotFound when absent.
func loadPayment(ctx context.Context, stub ledger.Stub, contractID string, period int) (*domain.Payment, ledger.Key, error) {
	key, err := domain.PaymentKey(contractID, period)
	if err != nil {
		return nil, "", err
	}
	var p domain.Payment
	found, err := ledger.GetJSON(ctx, stub, key, &p)
	if err != nil {
		return nil, "", fmt.Errorf("load payment: %w", err)
	}
	if !found {
		return nil, "", domain.NotFoundf("payment for contract %s period %d does not exist", contractID, period).
			With("contractId", contractID).
			With("period", fmt.Sprint(period))
	}
	return &p, key, nil
}

// RecordPaymentInput settles one scheduled period.
type RecordPaymentInput struct {
	ContractID string        `json:"contractId"`
	Period     int           `json:"period"`
	Amount     domain.Amount `json:"amount"`
	OrderRef   string        `json:"orderRef,omitempty"`
}

// RecordPayment marks a scheduled or overdue payment PAID. The amount must
// equal the scheduled amount exactly and the caller must be the tenant. An
// order reference, when given, is registered in the same transaction and
// can never be used again.
func (s *Scheduler) RecordPayment(ctx context.Context, stub ledger.Stub, caller identity.Credential, in RecordPaymentInput) (*domain.Payment, error) {
	p, key, err := loadPayment(ctx, stub, in.ContractID, in.Period)
	if err != nil {
		return nil, err
	}
	if p.Status == domain.PaymentPaid {
		return nil, domain.Conflictf("payment for contract %s period %d is already recorded", in.ContractID, in.Period).
			With("paymentId", p.PaymentID)
	}
	if !p.Status.CanTransitionTo(domain.PaymentPaid) {
		return nil, domain.Statef("payment %s cannot be paid from status %s", p.PaymentID, p.Status)
	}
	if in.Amount != p.Amount {
		return nil, domain.Validationf("payment amount %s does not match scheduled amount %s", in.Amount, p.Amount).
			With("amount", in.Amount.String()).
			With("scheduled", p.Amount.String())
	}

	c, err := contract.Load(ctx, stub, in.ContractID)
	if err != nil {
		return nil, err
	}
	payerID, err := s.guard.RequireExactIdentity(caller, c.TenantOrg, c.TenantID)
	if err != nil {
		return nil, err
	}

	ts := domain.FormatTime(stub.TxTimestamp())
	if in.OrderRef != "" {
		refKey, err := domain.OrderRefKey(in.OrderRef)
		if err != nil {
			return nil, err
		}
		used, err := stub.Get(ctx, refKey)
		if err != nil {
			return nil, fmt.Errorf("load order reference: %w", err)
		}
		if used != nil {
			return nil, domain.Conflictf("order reference %s is already used", in.OrderRef).
				With("orderRef", in.OrderRef)
		}
		if err := ledger.PutJSON(ctx, stub, refKey, domain.OrderRefIndex{
			OrderRef:   in.OrderRef,
			ContractID: in.ContractID,
			Period:     in.Period,
			PaymentID:  p.PaymentID,
			CreatedAt:  ts,
		}); err != nil {
			return nil, err
		}
		p.OrderRef = &in.OrderRef
	}

	p.Status = domain.PaymentPaid
	p.PaidAmount = in.Amount
	p.PaidBy = payerID
	p.ExpectedPayer = c.TenantID
	p.PaidAt = ts
	p.UpdatedAt = ts
	if err := ledger.PutJSON(ctx, stub, key, p); err != nil {
		return nil, err
	}

	return p, ledger.EmitJSON(stub, domain.EventPaymentRecorded, domain.PaymentRecordedEvent{
		PaymentID:  p.PaymentID,
		ContractID: in.ContractID,
		Period:     in.Period,
		Amount:     in.Amount,
		OrderRef:   p.OrderRef,
		Status:     p.Status,
		Timestamp:  ts,
	})
}

// MarkOverdue flags an unpaid payment whose due date has passed. The check
// is made against the transaction time and refuses to mark early.
func (s *Scheduler) MarkOverdue(ctx context.Context, stub ledger.Stub, contractID string, period int) (*domain.Payment, error) {
	p, key, err := loadPayment(ctx, stub, contractID, period)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case domain.PaymentPaid:
		return nil, domain.Statef("cannot mark paid payment %s as overdue", p.PaymentID).With("paymentId", p.PaymentID)
	case domain.PaymentOverdue:
		return nil, domain.Conflictf("payment %s is already overdue", p.PaymentID).With("paymentId", p.PaymentID)
	}

	due, err := domain.ParseDate(p.DueDate)
	if err != nil {
		return nil, domain.Statef("payment %s has an unreadable due date %q", p.PaymentID, p.DueDate)
	}
	now := stub.TxTimestamp()
	if !now.After(due) {
		return nil, domain.Statef("payment %s is not yet overdue, due date %s", p.PaymentID, p.DueDate).
			With("paymentId", p.PaymentID).
			With("dueDate", p.DueDate)
	}

	ts := domain.FormatTime(now)
	p.Status = domain.PaymentOverdue
	p.OverdueAt = ts
	p.UpdatedAt = ts
	if err := ledger.PutJSON(ctx, stub, key, p); err != nil {
		return nil, err
	}

	return p, ledger.EmitJSON(stub, domain.EventPaymentOverdue, domain.PaymentOverdueEvent{
		PaymentID:  p.PaymentID,
		ContractID: contractID,
		Period:     period,
		Status:     p.Status,
		Timestamp:  ts,
	})
}

// ApplyPenaltyInput attaches a penalty to one payment.
type ApplyPenaltyInput struct {
	ContractID string        `json:"contractId"`
	Period     int           `json:"period"`
	Amount     domain.Amount `json:"amount"`
	PolicyRef  string        `json:"policyRef,omitempty"`
	Reason     string        `json:"reason"`
}

// ApplyPenalty appends a penalty to a payment. Parties and privileged
// callers may apply one.
func (s *Scheduler) ApplyPenalty(ctx context.Context, stub ledger.Stub, caller identity.Credential, in ApplyPenaltyInput) (*domain.Payment, error) {
	if in.Reason == "" {
		return nil, domain.Validationf("penalty reason is required")
	}
	if !in.Amount.Positive() {
		return nil, domain.Validationf("penalty amount must be greater than 0, got %s", in.Amount)
	}

	c, err := contract.Load(ctx, stub, in.ContractID)
	if err != nil {
		return nil, err
	}
	d, err := s.guard.RequirePartyOrPrivileged(caller, c)
	if err != nil {
		return nil, err
	}
	p, key, err := loadPayment(ctx, stub, in.ContractID, in.Period)
	if err != nil {
		return nil, err
	}

	ts := domain.FormatTime(stub.TxTimestamp())
	p.Penalties = append(p.Penalties, domain.PaymentPenalty{
		Amount:        in.Amount,
		Reason:        in.Reason,
		PolicyRef:     in.PolicyRef,
		AppliedBy:     d.ActorID,
		AppliedByRole: d.Role(),
		AppliedAt:     ts,
	})
	p.UpdatedAt = ts
	if err := ledger.PutJSON(ctx, stub, key, p); err != nil {
		return nil, err
	}

	return p, ledger.EmitJSON(stub, domain.EventPenaltyApplied, domain.PenaltyAppliedEvent{
		PaymentID:     p.PaymentID,
		ContractID:    in.ContractID,
		Period:        in.Period,
		PenaltyAmount: in.Amount,
		Reason:        in.Reason,
		PolicyRef:     in.PolicyRef,
		Timestamp:     ts,
	})
}

// GetPayment returns one payment.
func (s *Scheduler) GetPayment(ctx context.Context, stub ledger.Stub, contractID string, period int) (*domain.Payment, error) {
	p, _, err := loadPayment(ctx, stub, contractID, period)
	return p, err
}

// ResolveByOrderRef returns the payment settled with orderRef.
func (s *Scheduler) ResolveByOrderRef(ctx context.Context, stub ledger.Stub, orderRef string) (*domain.Payment, error) {
	refKey, err := domain.OrderRefKey(orderRef)
	if err != nil {
		return nil, err
	}
	var idx domain.OrderRefIndex
	found, err := ledger.GetJSON(ctx, stub, refKey, &idx)
	if err != nil {
		return nil, fmt.Errorf("load order reference: %w", err)
	}
	if !found {
		return nil, domain.NotFoundf("no payment found with order reference %s", orderRef).With("orderRef", orderRef)
	}
	p, _, err := loadPayment(ctx, stub, idx.ContractID, idx.Period)
	if domain.IsNotFound(err) {
		return nil, domain.NotFoundf("payment data not found for order reference %s", orderRef).With("orderRef", orderRef)
	}
	return p, err
}

// QueryPaymentsByStatus lists payments in the given status, in key order.
func (s *Scheduler) QueryPaymentsByStatus(ctx context.Context, stub ledger.Stub, status string) ([]domain.Payment, error) {
	st, err := domain.ParsePaymentStatus(status)
	if err != nil {
		return nil, domain.Validationf("%v", err)
	}
	return ledger.QueryJSON[domain.Payment](ctx, stub, queryir.All(
		queryir.Eq("objectType", domain.ObjectPayment),
		queryir.Eq("status", st.String()),
	))
}

// QueryOverduePayments lists every OVERDUE payment.
func (s *Scheduler) QueryOverduePayments(ctx context.Context, stub ledger.Stub) ([]domain.Payment, error) {
	return s.QueryPaymentsByStatus(ctx, stub, domain.PaymentOverdue.String())
}

// QueryDuePayments lists SCHEDULED payments due strictly before t.
func (s *Scheduler) QueryDuePayments(ctx context.Context, stub ledger.Stub, t time.Time) ([]domain.Payment, error) {
	return ledger.QueryJSON[domain.Payment](ctx, stub, queryir.All(
		queryir.Eq("objectType", domain.ObjectPayment),
		queryir.Eq("status", domain.PaymentScheduled.String()),
		queryir.Compare{Field: "dueDate", Op: queryir.OpLt, Value: ir.String(domain.FormatTime(t))},
	))
}

// QueryPenaltiesByContract lists the contract's payments carrying at least
// one penalty.
func (s *Scheduler) QueryPenaltiesByContract(ctx context.Context, stub ledger.Stub, contractID string) ([]domain.Payment, error) {
	if contractID == "" {
		return nil, domain.Validationf("contract id is required")
	}
	candidates, err := ledger.QueryJSON[domain.Payment](ctx, stub, queryir.All(
		queryir.Eq("objectType", domain.ObjectPayment),
		queryir.Eq("contractId", contractID),
		queryir.Exists{Field: "penalties", Present: true},
		queryir.Compare{Field: "penalties", Op: queryir.OpNe, Value: ir.Null{}},
	))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0, len(candidates))
	for _, p := range candidates {
		if len(p.Penalties) > 0 {
			out = append(out, p)
		}
	}
	return out, nil
}
