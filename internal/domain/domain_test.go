package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rentledger/internal/ledger"
)

func TestCurrencyPolicy(t *testing.T) {
	p := DefaultCurrencyPolicy()
	require.NoError(t, p.Validate())

	got, err := p.Normalize("usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", got)

	got, err = p.Normalize("")
	require.NoError(t, err)
	assert.Equal(t, "VND", got)

	_, err = p.Normalize("JPY")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "VND, USD, EUR, SGD")
}

func TestCurrencyPolicyValidate(t *testing.T) {
	assert.Error(t, CurrencyPolicy{}.Validate())
	assert.Error(t, CurrencyPolicy{Allowed: []string{"XXQ"}, Default: "XXQ"}.Validate())
	assert.Error(t, CurrencyPolicy{Allowed: []string{"USD"}, Default: "VND"}.Validate())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2025-01-01", "2025-01-01T00:00:00Z"},
		{"2025-12-31T00:00:00Z", "2025-12-31T00:00:00Z"},
		{"2025-03-01T07:00:00+07:00", "2025-03-01T00:00:00Z"},
		{"2025-03-01T00:00:00.999Z", "2025-03-01T00:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDate("")
	assert.Error(t, err)
	_, err = ParseDate("31/12/2025")
	assert.Error(t, err)
}

func TestFormatTimeSortsChronologically(t *testing.T) {
	a := FormatTime(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))
	b := FormatTime(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, a, b)
}

func TestPaymentKeys(t *testing.T) {
	assert.Equal(t, "002", FormatPeriod(2))
	assert.Equal(t, "120", FormatPeriod(120))
	assert.Equal(t, "C1-payment-007", PaymentID("C1", 7))

	k, err := PaymentKey("C1", 2)
	require.NoError(t, err)
	assert.Equal(t, "payment/C1/002", k.String())

	k10, err := PaymentKey("C1", 10)
	require.NoError(t, err)
	assert.Less(t, string(k), string(k10))

	_, err = PaymentKey("C1", 0)
	assert.True(t, IsValidation(err))
	_, err = PaymentKey("", 1)
	assert.True(t, IsValidation(err))
}

func TestKeyNamespacesDoNotCollide(t *testing.T) {
	// An order reference shaped like a payment key must still land elsewhere.
	pay, err := PaymentKey("C1", 2)
	require.NoError(t, err)
	ref, err := OrderRefKey("C1")
	require.NoError(t, err)
	sbe, err := EntityIndexKey("C1")
	require.NoError(t, err)
	contract, err := ContractKey("C1")
	require.NoError(t, err)

	keys := map[ledger.Key]bool{pay: true, ref: true, sbe: true, contract: true}
	assert.Len(t, keys, 4)
	assert.False(t, contract.IsComposite())
}

func TestContractKeyValidation(t *testing.T) {
	_, err := ContractKey("")
	assert.True(t, IsValidation(err))
	_, err = ContractKey("\x00payment")
	assert.True(t, IsValidation(err))
	_, err = OrderRefKey("")
	assert.True(t, IsValidation(err))
}

func TestErrorKinds(t *testing.T) {
	err := Conflictf("contract %s already exists", "C1").With("contractId", "C1")
	assert.Equal(t, "CONFLICT: contract C1 already exists", err.Error())
	assert.Equal(t, "C1", err.Details["contractId"])

	wrapped := fmt.Errorf("submit: %w", err)
	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsState(wrapped))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))

	assert.True(t, IsValidation(Validationf("x")))
	assert.True(t, IsNotFound(NotFoundf("x")))
	assert.True(t, IsAuthorization(Unauthorizedf("x")))
	assert.True(t, IsState(Statef("x")))
	assert.True(t, IsIdentityExtraction(IdentityExtractionf("x")))
}

func TestDeposits(t *testing.T) {
	var d Deposits
	assert.False(t, d.Complete())

	d.Set(PartyTenant, &Deposit{Amount: 10})
	assert.Nil(t, d.Get(PartyLandlord))
	assert.Equal(t, Amount(10), d.Get(PartyTenant).Amount)
	assert.False(t, d.Complete())

	d.Set(PartyLandlord, &Deposit{Amount: 10})
	assert.True(t, d.Complete())
}

func TestFindExtension(t *testing.T) {
	c := Contract{Extensions: []Extension{{ExtensionNumber: 1}, {ExtensionNumber: 2, Notes: "second"}}}
	ext, ok := c.FindExtension(2)
	require.True(t, ok)
	assert.Equal(t, "second", ext.Notes)
	_, ok = c.FindExtension(3)
	assert.False(t, ok)
}
