package contract

import (
	"encoding/json"

	"github.com/roach88/rentledger/internal/domain"
)

type CreateInput struct {
	ContractID            string          `json:"contractId"`
	LandlordID            string          `json:"landlordId"`
	TenantID              string          `json:"tenantId"`
	LandlordOrg           string          `json:"landlordOrg"`
	TenantOrg             string          `json:"tenantOrg"`
	LandlordCertID        string          `json:"landlordCertId,omitempty"`
	TenantCertID          string          `json:"tenantCertId,omitempty"`
	SignedContractHash    string          `json:"signedContractFileHash"`
	LandlordSignatureMeta json.RawMessage `json:"landlordSignatureMeta"`
	RentAmount            domain.Amount   `json:"rentAmount"`
	DepositAmount         domain.Amount   `json:"depositAmount"`
	Currency              string          `json:"currency,omitempty"`
	StartDate             string          `json:"startDate"`
	EndDate               string          `json:"endDate"`
}

type TenantSignInput struct {
	ContractID          string          `json:"contractId"`
	FullySignedHash     string          `json:"fullySignedContractFileHash"`
	TenantSignatureMeta json.RawMessage `json:"tenantSignatureMeta"`
}

type DepositInput struct {
	ContractID   string        `json:"contractId"`
	Party        domain.Party  `json:"party"`
	Amount       domain.Amount `json:"amount"`
	DepositTxRef string        `json:"depositTxRef,omitempty"`
}

type FirstPaymentInput struct {
	ContractID   string        `json:"contractId"`
	Amount       domain.Amount `json:"amount"`
	PaymentTxRef string        `json:"paymentTxRef,omitempty"`
}

type TerminateInput struct {
	ContractID  string `json:"contractId"`
	SummaryHash string `json:"summaryHash,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type ExtensionInput struct {
	ContractID             string        `json:"contractId"`
	NewEndDate             string        `json:"newEndDate"`
	NewRentAmount          domain.Amount `json:"newRentAmount"`
	ExtensionAgreementHash string        `json:"extensionAgreementHash,omitempty"`
	Notes                  string        `json:"extensionNotes,omitempty"`
}

type PenaltyInput struct {
	ContractID string        `json:"contractId"`
	Party      domain.Party  `json:"party"`
	Amount     domain.Amount `json:"amount"`
	Reason     string        `json:"reason"`
}

type PrivateDetailsInput struct {
	ContractID string          `json:"contractId"`
	Details    json.RawMessage `json:"details"`
}
