// Package dispatch maps operation names to ledger calls.
//
// Each name is exactly the operation's name (CreateContract, RecordPayment,
// ...). Arguments arrive as one JSON object and are decoded strictly into
// the operation's input type.
package dispatch

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/roach88/rentledger/internal/authz"
	"github.com/roach88/rentledger/internal/contract"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/engine"
	"github.com/roach88/rentledger/internal/identity"
	"github.com/roach88/rentledger/internal/ledger"
	"github.com/roach88/rentledger/internal/payment"
)

// Handler runs one operation inside a transaction.
type Handler func(ctx context.Context, stub ledger.Stub, caller identity.Credential, args json.RawMessage) (any, error)

// Function describes a registered operation.
type Function struct {
	Name     string `json:"name"`
	ReadOnly bool   `json:"readOnly"`
	handler  Handler
}

// Router dispatches named operations through an engine.
type Router struct {
	engine    *engine.Engine
	guard     authz.Guard
	contracts *contract.Manager
	scheduler *payment.Scheduler
	functions map[string]Function
}

// New registers every contract and payment operation.
func New(e *engine.Engine, contracts *contract.Manager, scheduler *payment.Scheduler) *Router {
	r := &Router{
		engine:    e,
		guard:     contracts.Guard(),
		contracts: contracts,
		scheduler: scheduler,
		functions: make(map[string]Function),
	}
	r.registerContract()
	r.registerPayment()
	r.register("VersionInfo", true, func(context.Context, ledger.Stub, identity.Credential, json.RawMessage) (any, error) {
		return CurrentVersion(), nil
	})
	return r
}

func (r *Router) register(name string, readOnly bool, h Handler) {
	if _, dup := r.functions[name]; dup {
		panic("dispatch: function registered twice: " + name)
	}
	r.functions[name] = Function{Name: name, ReadOnly: readOnly, handler: h}
}

// Functions lists the registered operations by name.
func (r *Router) Functions() []Function {
	out := make([]Function, 0, len(r.functions))
	for _, f := range r.functions {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b Function) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Lookup returns the named operation.
func (r *Router) Lookup(name string) (Function, bool) {
	f, ok := r.functions[name]
	return f, ok
}

// Invoke submits mutating operations and evaluates read-only ones.
func (r *Router) Invoke(ctx context.Context, function string, caller identity.Credential, args json.RawMessage) (*engine.Result, error) {
	f, ok := r.functions[function]
	if !ok {
		return nil, engine.NewUnknownFunctionError(function)
	}
	if f.ReadOnly {
		return r.run(ctx, f, caller, args, r.engine.Evaluate)
	}
	return r.run(ctx, f, caller, args, r.engine.Submit)
}

// Submit runs function and commits, whatever its kind.
func (r *Router) Submit(ctx context.Context, function string, caller identity.Credential, args json.RawMessage) (*engine.Result, error) {
	f, ok := r.functions[function]
	if !ok {
		return nil, engine.NewUnknownFunctionError(function)
	}
	return r.run(ctx, f, caller, args, r.engine.Submit)
}

// Evaluate runs function and discards the transaction, whatever its kind.
func (r *Router) Evaluate(ctx context.Context, function string, caller identity.Credential, args json.RawMessage) (*engine.Result, error) {
	f, ok := r.functions[function]
	if !ok {
		return nil, engine.NewUnknownFunctionError(function)
	}
	return r.run(ctx, f, caller, args, r.engine.Evaluate)
}

type runner func(ctx context.Context, function string, op engine.Op) (*engine.Result, error)

// run requires a resolvable caller for every operation, including those
// whose rules do not depend on who calls.
func (r *Router) run(ctx context.Context, f Function, caller identity.Credential, args json.RawMessage, exec runner) (*engine.Result, error) {
	if _, _, err := r.guard.Caller(caller); err != nil {
		return nil, err
	}
	return exec(ctx, f.Name, func(ctx context.Context, stub ledger.Stub) (any, error) {
		return f.handler(ctx, stub, caller, args)
	})
}

// typed adapts an operation taking decoded input T.
func typed[T any](fn func(ctx context.Context, stub ledger.Stub, caller identity.Credential, in T) (any, error)) Handler {
	return func(ctx context.Context, stub ledger.Stub, caller identity.Credential, args json.RawMessage) (any, error) {
		in, err := decode[T](args)
		if err != nil {
			return nil, err
		}
		return fn(ctx, stub, caller, in)
	}
}

func (r *Router) registerContract() {
	m := r.contracts

	r.register("CreateContract", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contract.CreateInput) (any, error) {
		return m.CreateContract(ctx, stub, c, in)
	}))
	r.register("TenantSignContract", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contract.TenantSignInput) (any, error) {
		return m.TenantSignContract(ctx, stub, c, in)
	}))
	r.register("RecordDeposit", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contract.DepositInput) (any, error) {
		return m.RecordDeposit(ctx, stub, c, in)
	}))
	r.register("RecordFirstPayment", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contract.FirstPaymentInput) (any, error) {
		return m.RecordFirstPayment(ctx, stub, c, in)
	}))
	r.register("ActivateContract", false, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in contractArgs) (any, error) {
		if err := in.validate(); err != nil {
			return nil, err
		}
		return m.ActivateContract(ctx, stub, in.ContractID)
	}))
	r.register("TerminateContract", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contract.TerminateInput) (any, error) {
		return m.TerminateContract(ctx, stub, c, in)
	}))
	r.register("RecordContractExtension", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contract.ExtensionInput) (any, error) {
		return m.RecordContractExtension(ctx, stub, c, in)
	}))
	r.register("RecordPenalty", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contract.PenaltyInput) (any, error) {
		return m.RecordPenalty(ctx, stub, c, in)
	}))
	r.register("StoreContractPrivateDetails", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contract.PrivateDetailsInput) (any, error) {
		return m.StoreContractPrivateDetails(ctx, stub, c, in)
	}))

	r.register("GetContract", true, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contractArgs) (any, error) {
		if err := in.validate(); err != nil {
			return nil, err
		}
		return m.GetContract(ctx, stub, c, in.ContractID)
	}))
	r.register("QueryContractsByStatus", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in statusArgs) (any, error) {
		return m.QueryContractsByStatus(ctx, stub, in.Status)
	}))
	r.register("QueryContractsByParty", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in partyArgs) (any, error) {
		return m.QueryContractsByParty(ctx, stub, in.PartyID)
	}))
	r.register("QueryContractsByDateRange", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in dateRangeArgs) (any, error) {
		return m.QueryContractsByDateRange(ctx, stub, in.StartDate, in.EndDate)
	}))
	r.register("QueryContractExtensions", true, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contractArgs) (any, error) {
		if err := in.validate(); err != nil {
			return nil, err
		}
		return m.QueryContractExtensions(ctx, stub, c, in.ContractID)
	}))
	r.register("GetActiveExtension", true, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contractArgs) (any, error) {
		if err := in.validate(); err != nil {
			return nil, err
		}
		return m.GetActiveExtension(ctx, stub, c, in.ContractID)
	}))
	r.register("QueryContractsWithExtensions", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, _ struct{}) (any, error) {
		return m.QueryContractsWithExtensions(ctx, stub)
	}))
	r.register("GetContractHistory", true, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contractArgs) (any, error) {
		if err := in.validate(); err != nil {
			return nil, err
		}
		return m.GetContractHistory(ctx, stub, c, in.ContractID)
	}))
	r.register("GetContractPrivateDetails", true, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in contractArgs) (any, error) {
		if err := in.validate(); err != nil {
			return nil, err
		}
		return m.GetContractPrivateDetails(ctx, stub, c, in.ContractID)
	}))
}

func (r *Router) registerPayment() {
	s := r.scheduler

	r.register("CreateMonthlyPaymentSchedule", false, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in contractArgs) (any, error) {
		if err := in.validate(); err != nil {
			return nil, err
		}
		return s.CreateMonthlyPaymentSchedule(ctx, stub, in.ContractID)
	}))
	r.register("CreateExtensionPaymentSchedule", false, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in extensionScheduleArgs) (any, error) {
		return s.CreateExtensionPaymentSchedule(ctx, stub, in.ContractID, in.ExtensionNumber)
	}))
	r.register("RecordPayment", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in payment.RecordPaymentInput) (any, error) {
		if err := (periodArgs{ContractID: in.ContractID, Period: in.Period}).validate(); err != nil {
			return nil, err
		}
		return s.RecordPayment(ctx, stub, c, in)
	}))
	r.register("MarkOverdue", false, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in periodArgs) (any, error) {
		if err := in.validate(); err != nil {
			return nil, err
		}
		return s.MarkOverdue(ctx, stub, in.ContractID, in.Period)
	}))
	r.register("ApplyPenalty", false, typed(func(ctx context.Context, stub ledger.Stub, c identity.Credential, in payment.ApplyPenaltyInput) (any, error) {
		if err := (periodArgs{ContractID: in.ContractID, Period: in.Period}).validate(); err != nil {
			return nil, err
		}
		return s.ApplyPenalty(ctx, stub, c, in)
	}))

	r.register("GetPayment", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in periodArgs) (any, error) {
		if err := in.validate(); err != nil {
			return nil, err
		}
		return s.GetPayment(ctx, stub, in.ContractID, in.Period)
	}))
	r.register("ResolveByOrderRef", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in orderRefArgs) (any, error) {
		return s.ResolveByOrderRef(ctx, stub, in.OrderRef)
	}))
	r.register("QueryPaymentsByStatus", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in statusArgs) (any, error) {
		return s.QueryPaymentsByStatus(ctx, stub, in.Status)
	}))
	r.register("QueryOverduePayments", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, _ struct{}) (any, error) {
		return s.QueryOverduePayments(ctx, stub)
	}))
	r.register("QueryPenaltiesByContract", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in contractArgs) (any, error) {
		return s.QueryPenaltiesByContract(ctx, stub, in.ContractID)
	}))
	r.register("QueryDuePayments", true, typed(func(ctx context.Context, stub ledger.Stub, _ identity.Credential, in dueArgs) (any, error) {
		before := stub.TxTimestamp()
		if in.Before != "" {
			t, err := domain.ParseDate(in.Before)
			if err != nil {
				return nil, domain.Validationf("invalid before: %v", err)
			}
			before = t
		}
		return s.QueryDuePayments(ctx, stub, before)
	}))
}
