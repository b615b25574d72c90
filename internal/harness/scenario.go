package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/identity"
)

// Scenario is a scripted sequence of ledger operations with expected
// outcomes and assertions on the resulting events and state.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the initial transaction time, a date or an RFC 3339
	// timestamp. Defaults to 2025-01-01.
	Start string `yaml:"start,omitempty"`

	// Interval is the payment interval ("monthly" or a Go duration).
	Interval string `yaml:"interval,omitempty"`

	// TxPrefix prefixes the sequential transaction ids. Defaults to "tx".
	TxPrefix string `yaml:"tx_prefix,omitempty"`

	// Identities names the callers steps act as.
	Identities map[string]Identity `yaml:"identities"`

	// Setup steps must all succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are checked against their expect clauses.
	Flow []Step `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Identity describes a caller. When ID is empty the x509 identity string
// for Org and User is used.
type Identity struct {
	Org   string            `yaml:"org"`
	User  string            `yaml:"user,omitempty"`
	ID    string            `yaml:"id,omitempty"`
	Attrs map[string]string `yaml:"attrs,omitempty"`
}

// Credential returns the caller the identity describes.
func (i Identity) Credential() identity.Static {
	full := i.ID
	if full == "" {
		full = identity.X509ID(i.Org, i.User)
	}
	return identity.Static{Org: i.Org, Full: full, Attrs: i.Attrs}
}

// Step invokes one operation.
type Step struct {
	// Invoke is the operation name.
	Invoke string `yaml:"invoke"`

	// As names the caller in Scenario.Identities.
	As string `yaml:"as"`

	// Args is the operation's argument object.
	Args map[string]any `yaml:"args,omitempty"`

	// At moves the clock before the step runs.
	At string `yaml:"at,omitempty"`

	// Query evaluates the step instead of submitting it.
	Query bool `yaml:"query,omitempty"`

	// Expect checks the outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes a step's outcome.
type Expect struct {
	// Error is the expected error code (a domain kind such as CONFLICT, or
	// a runtime code such as UNKNOWN_FUNCTION). Empty means success.
	Error string `yaml:"error,omitempty"`

	// Result is matched as a subset of the JSON result.
	Result any `yaml:"result,omitempty"`

	// Count is the expected length of a list result.
	Count *int `yaml:"count,omitempty"`
}

// Assertion checks the committed events or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is the event name (event_contains, event_count).
	Event string `yaml:"event,omitempty"`

	// Payload is matched as a subset of the event payload (event_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Events is the expected order of first occurrences (event_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Query, As and Args name a read operation (final_state); Expect is
	// matched as a subset of its result.
	Query  string         `yaml:"query,omitempty"`
	As     string         `yaml:"as,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`
	Expect any            `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalState    = "final_state"
)

// DefaultStart is the clock's initial time when a scenario names none.
var DefaultStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Validate checks required fields and references between them.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if _, err := s.StartTime(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	for name, id := range s.Identities {
		if id.Org == "" {
			return fmt.Errorf("identities.%s: org is required", name)
		}
		if id.User == "" && id.ID == "" {
			return fmt.Errorf("identities.%s: user or id is required", name)
		}
	}

	check := func(section string, steps []Step) error {
		for i, step := range steps {
			if step.Invoke == "" {
				return fmt.Errorf("%s[%d]: invoke is required", section, i)
			}
			if _, ok := s.Identities[step.As]; !ok {
				return fmt.Errorf("%s[%d]: unknown identity %q", section, i, step.As)
			}
			if step.At != "" {
				if _, err := parseTime(step.At); err != nil {
					return fmt.Errorf("%s[%d].at: %w", section, i, err)
				}
			}
		}
		return nil
	}
	if err := check("setup", s.Setup); err != nil {
		return err
	}
	if err := check("flow", s.Flow); err != nil {
		return err
	}

	for i, a := range s.Assertions {
		if err := s.validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertEventContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_contains", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalState:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for final_state", index)
		}
		if _, ok := s.Identities[a.As]; !ok {
			return fmt.Errorf("assertions[%d]: unknown identity %q", index, a.As)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// StartTime returns the scenario's initial clock time.
func (s *Scenario) StartTime() (time.Time, error) {
	if s.Start == "" {
		return DefaultStart, nil
	}
	return parseTime(s.Start)
}

func parseTime(s string) (time.Time, error) {
	return domain.ParseDate(s)
}
