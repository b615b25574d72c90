package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/rentledger/internal/dispatch"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/engine"
)

// CLIResponse is the JSON envelope printed with --format json. The gateway
// answers HTTP calls with the same shape.
type CLIResponse struct {
	Status    string    `json:"status"` // "ok" or "error"
	Data      any       `json:"data,omitempty"`
	TxID      string    `json:"tx_id,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	Event     string    `json:"event,omitempty"` // set only when a submission committed an event
	Error     *CLIError `json:"error,omitempty"`
}

// CLIError describes a rejection. Code is a domain error kind or a runtime
// code such as MVCC_READ_CONFLICT.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or as CLIResponse JSON.
// Diagnostics go to ErrWriter so they never interleave with JSON on Writer.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

func (f *OutputFormatter) emit(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success prints data on its own.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.emit(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Result prints what a ledger call returned. In text form the value is
// pretty-printed, and a committed submission adds a line naming its
// transaction and event.
func (f *OutputFormatter) Result(res *engine.Result) error {
	resp := CLIResponse{
		Status:    "ok",
		Data:      res.Value,
		TxID:      res.TxID,
		Timestamp: domain.FormatTime(res.Timestamp),
	}
	if res.Event != nil {
		resp.Event = res.Event.Name
	}
	if f.isJSON() {
		return f.emit(resp)
	}

	body, err := json.MarshalIndent(res.Value, "", "  ")
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	fmt.Fprintf(f.Writer, "%s\n", body)
	if resp.Event == "" {
		f.VerboseLog("evaluated in tx %s at %s", resp.TxID, resp.Timestamp)
		return nil
	}
	fmt.Fprintf(f.Writer, "tx %s committed at %s (%s)\n", resp.TxID, resp.Timestamp, resp.Event)
	return nil
}

// Error prints a coded error. Text output shows details only when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.emit(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Rejection prints err as the ledger's refusal of function and returns an
// ExitFailure error naming the code.
func (f *OutputFormatter) Rejection(function string, err error) error {
	code := dispatch.ErrorCode(err)
	var details any
	if d := dispatch.ErrorDetails(err); len(d) > 0 {
		details = d
	}
	if werr := f.Error(code, err.Error(), details); werr != nil {
		return werr
	}
	return WrapExitError(ExitFailure, fmt.Sprintf("%s rejected with %s", function, code), err)
}

// VerboseLog writes a diagnostic line when verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter is ErrWriter, falling back to Writer when unset.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}
