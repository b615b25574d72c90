package domain

// Event names. Each mutating operation emits exactly one.
const (
	EventContractCreated                 = "ContractCreated"
	EventTenantSigned                    = "TenantSigned"
	EventDepositRecorded                 = "DepositRecorded"
	EventFirstPaymentRecorded            = "FirstPaymentRecorded"
	EventContractActivated               = "ContractActivated"
	EventContractExtended                = "ContractExtended"
	EventContractTerminated              = "ContractTerminated"
	EventPenaltyRecorded                 = "PenaltyRecorded"
	EventPaymentScheduleCreated          = "PaymentScheduleCreated"
	EventExtensionPaymentScheduleCreated = "ExtensionPaymentScheduleCreated"
	EventPaymentRecorded                 = "PaymentRecorded"
	EventPaymentOverdue                  = "PaymentOverdue"
	EventPenaltyApplied                  = "PenaltyApplied"
	EventPrivateDetailsStored            = "PrivateDetailsStored"
)

type ContractCreatedEvent struct {
	ContractID string         `json:"contractId"`
	LandlordID string         `json:"landlordId"`
	TenantID   string         `json:"tenantId"`
	Status     ContractStatus `json:"status"`
	Timestamp  string         `json:"timestamp"`
}

type TenantSignedEvent struct {
	ContractID string         `json:"contractId"`
	SignedBy   string         `json:"signedBy"`
	Status     ContractStatus `json:"status"`
	Timestamp  string         `json:"timestamp"`
}

type DepositRecordedEvent struct {
	ContractID string         `json:"contractId"`
	Party      Party          `json:"party"`
	Status     ContractStatus `json:"status"`
	Timestamp  string         `json:"timestamp"`
}

type FirstPaymentRecordedEvent struct {
	ContractID string         `json:"contractId"`
	Status     ContractStatus `json:"status"`
	Timestamp  string         `json:"timestamp"`
}

type ContractActivatedEvent struct {
	ContractID string         `json:"contractId"`
	Status     ContractStatus `json:"status"`
	Timestamp  string         `json:"timestamp"`
}

type ContractExtendedEvent struct {
	ContractID         string `json:"contractId"`
	ExtensionNumber    int    `json:"extensionNumber"`
	PreviousEndDate    string `json:"previousEndDate"`
	NewEndDate         string `json:"newEndDate"`
	PreviousRentAmount Amount `json:"previousRentAmount"`
	NewRentAmount      Amount `json:"newRentAmount"`
	Timestamp          string `json:"timestamp"`
}

type ContractTerminatedEvent struct {
	ContractID string         `json:"contractId"`
	Status     ContractStatus `json:"status"`
	Reason     string         `json:"reason"`
	Timestamp  string         `json:"timestamp"`
}

type PenaltyRecordedEvent struct {
	ContractID string `json:"contractId"`
	Party      Party  `json:"party"`
	Amount     Amount `json:"amount"`
	Reason     string `json:"reason"`
	Timestamp  string `json:"timestamp"`
}

type PaymentScheduleCreatedEvent struct {
	ContractID     string `json:"contractId"`
	TotalSchedules int    `json:"totalSchedules"`
	Timestamp      string `json:"timestamp"`
}

type ExtensionPaymentScheduleCreatedEvent struct {
	ContractID      string `json:"contractId"`
	ExtensionNumber int    `json:"extensionNumber"`
	TotalSchedules  int    `json:"totalSchedules"`
	StartPeriod     int    `json:"startPeriod"`
	EndPeriod       int    `json:"endPeriod"`
	Timestamp       string `json:"timestamp"`
}

type PaymentRecordedEvent struct {
	PaymentID  string        `json:"paymentId"`
	ContractID string        `json:"contractId"`
	Period     int           `json:"period"`
	Amount     Amount        `json:"amount"`
	OrderRef   *string       `json:"orderRef"`
	Status     PaymentStatus `json:"status"`
	Timestamp  string        `json:"timestamp"`
}

type PaymentOverdueEvent struct {
	PaymentID  string        `json:"paymentId"`
	ContractID string        `json:"contractId"`
	Period     int           `json:"period"`
	Status     PaymentStatus `json:"status"`
	Timestamp  string        `json:"timestamp"`
}

type PenaltyAppliedEvent struct {
	PaymentID     string `json:"paymentId"`
	ContractID    string `json:"contractId"`
	Period        int    `json:"period"`
	PenaltyAmount Amount `json:"penaltyAmount"`
	Reason        string `json:"reason"`
	PolicyRef     string `json:"policyRef"`
	Timestamp     string `json:"timestamp"`
}

type PrivateDetailsStoredEvent struct {
	ContractID string `json:"contractId"`
	Timestamp  string `json:"timestamp"`
}
