package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Amount
		wantErr bool
	}{
		{"integer", `5000000`, 5000000, false},
		{"integer string", `"10000000"`, 10000000, false},
		{"negative", `-5`, -5, false},
		{"padded string", `" 42 "`, 42, false},
		{"fraction", `5000.50`, 0, true},
		{"exponent", `5e6`, 0, true},
		{"fraction string", `"12.5"`, 0, true},
		{"null", `null`, 0, true},
		{"empty string", `""`, 0, true},
		{"word", `"abc"`, 0, true},
		{"overflow", `99999999999999999999`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.input), &a)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestAmountMarshalsAsInteger(t *testing.T) {
	b, err := json.Marshal(struct {
		Rent Amount `json:"rent"`
	}{Rent: 5000000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rent":5000000}`, string(b))
}

func TestAmountPositive(t *testing.T) {
	assert.True(t, Amount(1).Positive())
	assert.False(t, Amount(0).Positive())
	assert.False(t, Amount(-1).Positive())
}
