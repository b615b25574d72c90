// Package harness runs YAML scenarios against a throwaway ledger.
//
// A scenario names its callers, then lists steps that invoke operations
// by name through the same dispatch router the gateway and CLI use:
//
//	name: rental_lifecycle
//	description: "A contract from creation to its first overdue payment"
//	start: 2025-01-01
//	identities:
//	  landlord: { org: orgA, user: L }
//	  tenant:   { org: orgB, user: T }
//	setup:
//	  - invoke: CreateContract
//	    as: landlord
//	    args: { contractId: C1, ... }
//	flow:
//	  - invoke: RecordPayment
//	    as: tenant
//	    args: { contractId: C1, period: 2, amount: 5000000 }
//	  - invoke: MarkOverdue
//	    as: landlord
//	    at: 2025-03-02
//	    args: { contractId: C1, period: 3 }
//	    expect: { result: { status: OVERDUE } }
//	assertions:
//	  - type: event_order
//	    events: [PaymentRecorded, PaymentOverdue]
//	  - type: final_state
//	    query: GetPayment
//	    as: landlord
//	    args: { contractId: C1, period: 3 }
//	    expect: { status: OVERDUE }
//
// Setup steps must succeed. Flow steps are checked against their expect
// clause: an error code, a subset of the JSON result, or a list length.
// Without an expect clause a flow step must succeed.
//
// # Assertion Types
//
//   - event_contains: an event with the name and a payload containing the given fields
//   - event_order: first occurrences of the named events in order
//   - event_count: exactly N events with the name
//   - final_state: a read operation's result contains the expected fields
//
// # Determinism
//
// Every run uses an in-memory ledger, a clock frozen at the scenario's
// start (moved only by a step's at field) and sequential transaction ids.
// The trace is therefore identical across runs and is compared with a
// golden file by RunWithGolden.
package harness
