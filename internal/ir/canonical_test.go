package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(5000000), "5000000"},
		{"negative int", Int(-100), "-100"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array", Array{Int(1), String("a"), Null{}}, `[1,"a",null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Canonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestCanonicalSortsNestedKeys(t *testing.T) {
	obj := Object{
		"status": String("ACTIVE"),
		"deposit": Object{
			"tenant":   Object{"amount": Int(10)},
			"landlord": Object{"amount": Int(10)},
		},
		"contractId": String("C1"),
	}

	out, err := Canonical(obj)
	require.NoError(t, err)
	assert.Equal(t,
		`{"contractId":"C1","deposit":{"landlord":{"amount":10},"tenant":{"amount":10}},"status":"ACTIVE"}`,
		string(out))
}

func TestCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting 0xD800, which sorts
	// before U+E000 in UTF-16 but after it in UTF-8.
	obj := Object{
		"\uE000":     Int(1),
		"\U00010000": Int(2),
	}

	out, err := Canonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(out))
}

func TestCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"html untouched", "<a & b>", `"<a & b>"`},
		{"quote and backslash", `say "hi" \ bye`, `"say \"hi\" \\ bye"`},
		{"newline and tab", "a\nb\tc", `"a\nb\tc"`},
		{"control char", "\x01", `"\u0001"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"nfc normalized", "e\u0301", "\"\u00e9\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Canonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestCanonicalJSONStruct(t *testing.T) {
	type payload struct {
		ContractID string  `json:"contractId"`
		Amount     int64   `json:"amount"`
		Note       *string `json:"note"`
	}

	out, err := CanonicalJSON(payload{ContractID: "C1", Amount: 5000000})
	require.NoError(t, err)
	assert.Equal(t, `{"amount":5000000,"contractId":"C1","note":null}`, string(out))
}

func TestCanonicalJSONRejectsFloats(t *testing.T) {
	_, err := CanonicalJSON(map[string]any{"amount": 12.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are not allowed")
}

func TestCanonicalDeterministic(t *testing.T) {
	v := map[string]any{"b": int64(2), "a": []any{"x", int64(1)}}
	first, err := CanonicalJSON(v)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := CanonicalJSON(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
