package domain

import (
	"fmt"
	"slices"
)

// ContractStatus is the lifecycle state of a contract.
//
// The zero value is invalid and never marshals, so an unset status cannot
// reach the ledger.
type ContractStatus uint8

const (
	_ ContractStatus = iota
	StatusPendingSignature
	StatusWaitDeposit
	StatusWaitFirstPayment
	StatusActive
	StatusTerminated
)

var contractStatusNames = map[ContractStatus]string{
	StatusPendingSignature: "PENDING_SIGNATURE",
	StatusWaitDeposit:      "WAIT_DEPOSIT",
	StatusWaitFirstPayment: "WAIT_FIRST_PAYMENT",
	StatusActive:           "ACTIVE",
	StatusTerminated:       "TERMINATED",
}

// contractTransitions is the complete transition graph. ACTIVE may also be
// reached from the deposit stages through ActivateContract once both
// signatures exist.
var contractTransitions = map[ContractStatus][]ContractStatus{
	StatusPendingSignature: {StatusWaitDeposit, StatusTerminated},
	StatusWaitDeposit:      {StatusWaitFirstPayment, StatusActive, StatusTerminated},
	StatusWaitFirstPayment: {StatusActive, StatusTerminated},
	StatusActive:           {StatusTerminated},
	StatusTerminated:       {},
}

func (s ContractStatus) String() string {
	if name, ok := contractStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ContractStatus(%d)", uint8(s))
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	return slices.Contains(contractTransitions[s], next)
}

// Terminal reports whether no transition leaves s.
func (s ContractStatus) Terminal() bool {
	targets, ok := contractTransitions[s]
	return ok && len(targets) == 0
}

// MarshalText implements encoding.TextMarshaler.
func (s ContractStatus) MarshalText() ([]byte, error) {
	name, ok := contractStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid contract status %d", uint8(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ContractStatus) UnmarshalText(text []byte) error {
	v, err := ParseContractStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseContractStatus parses the wire name of a contract status.
func ParseContractStatus(name string) (ContractStatus, error) {
	for s, n := range contractStatusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown contract status %q", name)
}

// PaymentStatus is the state of a scheduled payment.
type PaymentStatus uint8

const (
	_ PaymentStatus = iota
	PaymentScheduled
	PaymentPaid
	PaymentOverdue
)

var paymentStatusNames = map[PaymentStatus]string{
	PaymentScheduled: "SCHEDULED",
	PaymentPaid:      "PAID",
	PaymentOverdue:   "OVERDUE",
}

// paymentTransitions: PAID is terminal; an OVERDUE payment can still be
// settled late.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentScheduled: {PaymentPaid, PaymentOverdue},
	PaymentOverdue:   {PaymentPaid},
	PaymentPaid:      {},
}

func (s PaymentStatus) String() string {
	if name, ok := paymentStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PaymentStatus(%d)", uint8(s))
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return slices.Contains(paymentTransitions[s], next)
}

// MarshalText implements encoding.TextMarshaler.
func (s PaymentStatus) MarshalText() ([]byte, error) {
	name, ok := paymentStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid payment status %d", uint8(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PaymentStatus) UnmarshalText(text []byte) error {
	v, err := ParsePaymentStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParsePaymentStatus parses the wire name of a payment status.
func ParsePaymentStatus(name string) (PaymentStatus, error) {
	for s, n := range paymentStatusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown payment status %q", name)
}

// Party names one side of a contract.
type Party string

const (
	PartyLandlord Party = "landlord"
	PartyTenant   Party = "tenant"
)

// Valid reports whether p is landlord or tenant.
func (p Party) Valid() bool {
	return p == PartyLandlord || p == PartyTenant
}

// Role attributes an action in audit records.
type Role string

const (
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
	RoleAdmin    Role = "admin"
)
