package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/roach88/rentledger/internal/domain"
)

// decode reads args into a T. Unknown fields and trailing data are
// rejected; empty args decode as {}.
func decode[T any](args json.RawMessage) (T, error) {
	var v T
	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, domain.Validationf("invalid arguments: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return v, domain.Validationf("invalid arguments: unexpected data after the JSON object")
	}
	return v, nil
}

type contractArgs struct {
	ContractID string `json:"contractId"`
}

func (a contractArgs) validate() error {
	if a.ContractID == "" {
		return domain.Validationf("contractId is required")
	}
	return nil
}

type statusArgs struct {
	Status string `json:"status"`
}

type partyArgs struct {
	PartyID string `json:"partyId"`
}

type dateRangeArgs struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type periodArgs struct {
	ContractID string `json:"contractId"`
	Period     int    `json:"period"`
}

func (a periodArgs) validate() error {
	if a.ContractID == "" || a.Period <= 0 {
		return domain.Validationf("contractId and a positive period are required")
	}
	return nil
}

type extensionScheduleArgs struct {
	ContractID      string `json:"contractId"`
	ExtensionNumber int    `json:"extensionNumber"`
}

type orderRefArgs struct {
	OrderRef string `json:"orderRef"`
}

type dueArgs struct {
	// Before defaults to the transaction time.
	Before string `json:"before,omitempty"`
}
