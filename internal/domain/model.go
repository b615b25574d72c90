package domain

import "encoding/json"

// Object types stored in the objectType field of ledger documents.
const (
	ObjectContract = "contract"
	ObjectPayment  = "payment"
)

// SignatureStatusSigned is the only signature status ever recorded.
const SignatureStatusSigned = "SIGNED"

// ExtensionStatusActive marks an appended extension.
const ExtensionStatusActive = "ACTIVE"

// Contract is the ledger document keyed by its contract id.
type Contract struct {
	ObjectType         string         `json:"objectType"`
	ContractID         string         `json:"contractId"`
	LandlordID         string         `json:"landlordId"`
	TenantID           string         `json:"tenantId"`
	LandlordOrg        string         `json:"landlordOrg"`
	TenantOrg          string         `json:"tenantOrg"`
	LandlordCertID     *string        `json:"landlordCertId"`
	TenantCertID       *string        `json:"tenantCertId"`
	LandlordSignedHash string         `json:"landlordSignedHash"`
	FullySignedHash    *string        `json:"fullySignedHash"`
	RentAmount         Amount         `json:"rentAmount"`
	DepositAmount      Amount         `json:"depositAmount"`
	Currency           string         `json:"currency"`
	StartDate          string         `json:"startDate"`
	EndDate            string         `json:"endDate"`
	Status             ContractStatus `json:"status"`
	Signatures         Signatures     `json:"signatures"`
	Deposit            Deposits       `json:"deposit"`
	FirstPayment       *FirstPayment  `json:"firstPayment"`

	Penalties              []ContractPenalty `json:"penalties"`
	CurrentExtensionNumber int               `json:"currentExtensionNumber"`
	Extensions             []Extension       `json:"extensions"`

	CreatedBy    string `json:"createdBy"`
	CreatedByOrg string `json:"createdByOrg"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	ActivatedAt  string `json:"activatedAt,omitempty"`

	TerminatedBy      string `json:"terminatedBy,omitempty"`
	TerminatedByRole  Role   `json:"terminatedByRole,omitempty"`
	TerminatedAt      string `json:"terminatedAt,omitempty"`
	TerminationReason string `json:"terminationReason,omitempty"`
	SummaryHash       string `json:"summaryHash,omitempty"`
}

// Signatures holds at most one signature per party.
type Signatures struct {
	Landlord *Signature `json:"landlord,omitempty"`
	Tenant   *Signature `json:"tenant,omitempty"`
}

// Signature records signing metadata. Document signatures are not verified;
// only the hash and the metadata supplied by the signer are kept.
type Signature struct {
	Metadata       json.RawMessage `json:"metadata"`
	SignedBy       string          `json:"signedBy"`
	ExpectedSigner string          `json:"expectedSigner,omitempty"`
	SignedAt       string          `json:"signedAt"`
	Status         string          `json:"status"`
}

// Deposits holds at most one deposit per party. Both are null until paid.
type Deposits struct {
	Landlord *Deposit `json:"landlord"`
	Tenant   *Deposit `json:"tenant"`
}

// Get returns the deposit recorded for party.
func (d Deposits) Get(p Party) *Deposit {
	if p == PartyLandlord {
		return d.Landlord
	}
	return d.Tenant
}

// Set records the deposit for party.
func (d *Deposits) Set(p Party, dep *Deposit) {
	if p == PartyLandlord {
		d.Landlord = dep
		return
	}
	d.Tenant = dep
}

// Complete reports whether both parties have deposited.
func (d Deposits) Complete() bool {
	return d.Landlord != nil && d.Tenant != nil
}

// Deposit is one party's security deposit.
type Deposit struct {
	Amount            Amount `json:"amount"`
	DepositTxRef      string `json:"depositTxRef"`
	DepositedBy       string `json:"depositedBy"`
	ExpectedDepositor string `json:"expectedDepositor"`
	DepositedAt       string `json:"depositedAt"`
}

// FirstPayment is period 1 of the rent, recorded on the contract itself.
type FirstPayment struct {
	Amount        Amount `json:"amount"`
	PaymentTxRef  string `json:"paymentTxRef"`
	PaidBy        string `json:"paidBy"`
	ExpectedPayer string `json:"expectedPayer"`
	PaidAt        string `json:"paidAt"`
}

// ContractPenalty is a contract-level penalty entry.
type ContractPenalty struct {
	Party          Party  `json:"party"`
	Amount         Amount `json:"amount"`
	Reason         string `json:"reason"`
	RecordedBy     string `json:"recordedBy"`
	RecordedByRole Role   `json:"recordedByRole"`
	Timestamp      string `json:"timestamp"`
}

// Extension is an immutable record of a term extension.
type Extension struct {
	ExtensionNumber        int     `json:"extensionNumber"`
	PreviousEndDate        string  `json:"previousEndDate"`
	NewEndDate             string  `json:"newEndDate"`
	PreviousRentAmount     Amount  `json:"previousRentAmount"`
	NewRentAmount          Amount  `json:"newRentAmount"`
	ExtensionAgreementHash *string `json:"extensionAgreementHash"`
	Notes                  string  `json:"notes"`
	RecordedBy             string  `json:"recordedBy"`
	RecordedByRole         Role    `json:"recordedByRole"`
	RecordedAt             string  `json:"recordedAt"`
	Status                 string  `json:"status"`
}

// FindExtension returns the extension with the given number.
func (c *Contract) FindExtension(number int) (Extension, bool) {
	for _, ext := range c.Extensions {
		if ext.ExtensionNumber == number {
			return ext, true
		}
	}
	return Extension{}, false
}

// Payment is a scheduled rent obligation keyed by (contractId, period).
type Payment struct {
	ObjectType      string           `json:"objectType"`
	PaymentID       string           `json:"paymentId"`
	ContractID      string           `json:"contractId"`
	Period          int              `json:"period"`
	Amount          Amount           `json:"amount"`
	Status          PaymentStatus    `json:"status"`
	DueDate         string           `json:"dueDate"`
	ExtensionNumber int              `json:"extensionNumber,omitempty"`
	OrderRef        *string          `json:"orderRef"`
	PaidAmount      Amount           `json:"paidAmount,omitempty"`
	PaidBy          string           `json:"paidBy,omitempty"`
	ExpectedPayer   string           `json:"expectedPayer,omitempty"`
	PaidAt          string           `json:"paidAt,omitempty"`
	OverdueAt       string           `json:"overdueAt,omitempty"`
	Penalties       []PaymentPenalty `json:"penalties,omitempty"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
}

// PaymentPenalty is a penalty applied to a single payment.
type PaymentPenalty struct {
	Amount        Amount `json:"amount"`
	Reason        string `json:"reason"`
	PolicyRef     string `json:"policyRef"`
	AppliedBy     string `json:"appliedBy"`
	AppliedByRole Role   `json:"appliedByRole"`
	AppliedAt     string `json:"appliedAt"`
}

// OrderRefIndex maps an external gateway reference to the payment it settled.
type OrderRefIndex struct {
	OrderRef   string `json:"orderRef"`
	ContractID string `json:"contractId"`
	Period     int    `json:"period"`
	PaymentID  string `json:"paymentId"`
	CreatedAt  string `json:"createdAt"`
}

// EntityIndex marks an id as belonging to an entity type.
type EntityIndex struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	CreatedAt  string `json:"createdAt"`
}
