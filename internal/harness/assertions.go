package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/rentledger/internal/dispatch"
	"github.com/roach88/rentledger/internal/ledger"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Events   []ledger.Event // Committed events for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nCommitted events:\n")
		for _, ev := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.TxID, ev.Name, ev.Payload)
		}
	}
	return buf.String()
}

// assertEventContains checks for an event with the given name whose
// payload contains the expected fields.
func assertEventContains(events []ledger.Event, a Assertion) error {
	for _, ev := range events {
		if ev.Name != a.Event {
			continue
		}
		if len(a.Payload) == 0 {
			return nil
		}
		actual, err := decodeJSON(ev.Payload)
		if err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Name, err)
		}
		if matchSubset(a.Payload, actual) == "" {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("event %s with payload %v", a.Event, a.Payload),
		Actual:   "not found",
		Events:   events,
	}
}

// assertEventOrder checks that the first occurrences of the named events
// appear in order. Other events may occur in between.
func assertEventOrder(events []ledger.Event, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range events {
		if _, seen := positions[ev.Name]; !seen {
			positions[ev.Name] = i + 1
		}
	}

	for _, name := range a.Events {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all events present: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", name),
				Events:   events,
			}
		}
	}
	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Events: events,
			}
		}
	}
	return nil
}

// assertEventCount checks the exact number of events with a name.
func assertEventCount(events []ledger.Event, a Assertion) error {
	count := 0
	for _, ev := range events {
		if ev.Name == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Events:   events,
		}
	}
	return nil
}

// assertFinalState evaluates a read operation and matches its result.
func (h *Harness) assertFinalState(ctx context.Context, a Assertion) error {
	args, err := json.Marshal(a.Args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	res, err := h.router.Evaluate(ctx, a.Query, h.scenario.Identities[a.As].Credential(), args)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s to succeed", a.Query),
			Actual:   fmt.Sprintf("%s: %v", dispatch.ErrorCode(err), err),
		}
	}
	actual, err := normalize(res.Value)
	if err != nil {
		return fmt.Errorf("normalize %s result: %w", a.Query, err)
	}
	if msg := matchSubset(a.Expect, actual); msg != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s result to contain %v", a.Query, a.Expect),
			Actual:   msg,
		}
	}
	return nil
}

// evaluateAssertions returns one message per failed assertion.
func (h *Harness) evaluateAssertions(ctx context.Context, result *Result) []string {
	var failures []string
	for i, a := range h.scenario.Assertions {
		var err error
		switch a.Type {
		case AssertEventContains:
			err = assertEventContains(result.Events, a)
		case AssertEventOrder:
			err = assertEventOrder(result.Events, a)
		case AssertEventCount:
			err = assertEventCount(result.Events, a)
		case AssertFinalState:
			err = h.assertFinalState(ctx, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

// normalize round-trips v through JSON so that results, YAML literals and
// event payloads compare in one representation. Numbers stay json.Number.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// matchSubset reports where actual fails to contain expected, or "" if it
// does. Objects match when every expected key matches; extra keys are
// ignored. Arrays must have the same length and match element-wise. An
// expected null also matches an absent key.
func matchSubset(expected, actual any) string {
	exp, err := normalize(expected)
	if err != nil {
		return fmt.Sprintf("cannot encode expected value: %v", err)
	}
	return subset("$", exp, actual)
}

func subset(path string, expected, actual any) string {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return fmt.Sprintf("%s: expected an object, got %s", path, describe(actual))
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			av, present := act[k]
			if !present {
				if exp[k] == nil {
					continue
				}
				return fmt.Sprintf("%s.%s: missing", path, k)
			}
			if msg := subset(path+"."+k, exp[k], av); msg != "" {
				return msg
			}
		}
		return ""
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return fmt.Sprintf("%s: expected an array, got %s", path, describe(actual))
		}
		if len(act) != len(exp) {
			return fmt.Sprintf("%s: expected %d elements, got %d", path, len(exp), len(act))
		}
		for i := range exp {
			if msg := subset(fmt.Sprintf("%s[%d]", path, i), exp[i], act[i]); msg != "" {
				return msg
			}
		}
		return ""
	default:
		if !reflect.DeepEqual(expected, actual) {
			return fmt.Sprintf("%s: expected %s, got %s", path, describe(expected), describe(actual))
		}
		return ""
	}
}

func describe(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
