package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/engine"
	"github.com/roach88/rentledger/internal/ledger"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"contractId": "C1"}
	require.NoError(t, formatter.Error("CONFLICT", "contract C1 already exists", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
	assert.Equal(t, "contract C1 already exists", resp.Error.Message)
	assert.Equal(t, map[string]any{"contractId": "C1"}, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error("STATE", "payment is not yet overdue", map[string]string{"dueDate": "2025-03-01"}))
			assert.Contains(t, buf.String(), "Error [STATE]: payment is not yet overdue")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_Result(t *testing.T) {
	ts := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	committed := &engine.Result{
		TxID:      "tx-1",
		Timestamp: ts,
		Value:     map[string]any{"status": "OVERDUE"},
		Event:     &ledger.Event{Name: domain.EventPaymentOverdue},
	}

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, (&OutputFormatter{Format: "json", Writer: buf}).Result(committed))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "tx-1", resp.TxID)
		assert.Equal(t, "2025-03-02T00:00:00Z", resp.Timestamp)
		assert.Equal(t, "PaymentOverdue", resp.Event)
		assert.Equal(t, map[string]any{"status": "OVERDUE"}, resp.Data)
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, (&OutputFormatter{Format: "text", Writer: buf}).Result(committed))
		assert.Contains(t, buf.String(), `"status": "OVERDUE"`)
		assert.Contains(t, buf.String(), "tx tx-1 committed at 2025-03-02T00:00:00Z (PaymentOverdue)")
	})

	t.Run("text evaluation", func(t *testing.T) {
		buf, errBuf := &bytes.Buffer{}, &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf, ErrWriter: errBuf, Verbose: true}
		require.NoError(t, f.Result(&engine.Result{TxID: "tx-2", Timestamp: ts, Value: []string{}}))
		assert.Equal(t, "[]\n", buf.String())
		assert.Contains(t, errBuf.String(), "evaluated in tx tx-2")
	})
}

func TestOutputFormatter_Rejection(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Rejection("RecordPayment",
		domain.Conflictf("order reference ORD-1 is already used").With("orderRef", "ORD-1"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "RecordPayment rejected with CONFLICT")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
	assert.Equal(t, map[string]any{"orderRef": "ORD-1"}, resp.Error.Details)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			formatter.VerboseLog("calling %s", "GetContract")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "calling GetContract")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "rejected", errors.New("x"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := WrapExitError(ExitCommandError, "failed to open database", errors.New("disk full"))
	assert.Equal(t, "failed to open database: disk full", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "disk full")
}
