package domain

import (
	"fmt"

	"github.com/roach88/rentledger/internal/ledger"
)

// Composite key namespaces.
const (
	NamespacePayment     = "payment"
	NamespaceOrderRef    = "orderRef"
	NamespaceEntityIndex = "SBE"
)

// PrivateCollection is the restricted collection for per-contract details.
const PrivateCollection = "contractPrivate"

// FormatPeriod zero-pads a period to three digits so keys sort by period.
func FormatPeriod(period int) string {
	return fmt.Sprintf("%03d", period)
}

// PaymentID is the human-readable payment identifier, e.g. C1-payment-002.
func PaymentID(contractID string, period int) string {
	return contractID + "-payment-" + FormatPeriod(period)
}

// ContractKey validates a contract id and returns its ledger key.
func ContractKey(contractID string) (ledger.Key, error) {
	k, err := ledger.SimpleKey(contractID)
	if err != nil {
		return "", Validationf("invalid contract id: %v", err).With("contractId", contractID)
	}
	return k, nil
}

// PaymentKey returns the composite key of a payment.
func PaymentKey(contractID string, period int) (ledger.Key, error) {
	if contractID == "" {
		return "", Validationf("contract id is required")
	}
	if period <= 0 {
		return "", Validationf("period must be positive, got %d", period).
			With("period", fmt.Sprint(period))
	}
	k, err := ledger.CompositeKey(NamespacePayment, contractID, FormatPeriod(period))
	if err != nil {
		return "", Validationf("invalid payment key: %v", err).With("contractId", contractID)
	}
	return k, nil
}

// OrderRefKey returns the uniqueness-index key for an order reference.
func OrderRefKey(orderRef string) (ledger.Key, error) {
	if orderRef == "" {
		return "", Validationf("order reference is required")
	}
	k, err := ledger.CompositeKey(NamespaceOrderRef, orderRef)
	if err != nil {
		return "", Validationf("invalid order reference: %v", err).With("orderRef", orderRef)
	}
	return k, nil
}

// EntityIndexKey returns the entity-index key for a contract.
func EntityIndexKey(contractID string) (ledger.Key, error) {
	k, err := ledger.CompositeKey(NamespaceEntityIndex, contractID)
	if err != nil {
		return "", Validationf("invalid entity index key: %v", err).With("contractId", contractID)
	}
	return k, nil
}
