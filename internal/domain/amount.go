package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a monetary value in integer minor units of the contract
// currency. Fractional input is rejected rather than rounded.
type Amount int64

// ParseAmount parses a decimal integer string.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	if strings.ContainsAny(s, ".eE") {
		return 0, fmt.Errorf("amount %q has a fractional part; amounts are integer minor units", s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not an integer", s)
	}
	return Amount(n), nil
}

// UnmarshalJSON accepts a JSON integer or a string holding one.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = v
		return nil
	}
	if string(data) == "null" {
		return fmt.Errorf("amount must not be null")
	}
	v, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Positive reports whether the amount is strictly greater than zero.
func (a Amount) Positive() bool { return a > 0 }

func (a Amount) String() string { return strconv.FormatInt(int64(a), 10) }
