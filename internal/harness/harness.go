package harness

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/rentledger/internal/authz"
	"github.com/roach88/rentledger/internal/contract"
	"github.com/roach88/rentledger/internal/dispatch"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/engine"
	"github.com/roach88/rentledger/internal/payment"
	"github.com/roach88/rentledger/internal/store"
	"github.com/roach88/rentledger/internal/testutil"
)

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger *zap.Logger
}

// WithLogger routes engine logs to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Harness runs one scenario against a fresh ledger.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	router   *dispatch.Router
	clock    *testutil.FixedClock
	logger   *zap.Logger
}

// Run executes a scenario and returns the result.
//
// Each run gets its own in-memory ledger, a clock frozen at the
// scenario's start and sequential transaction ids, so the same scenario
// produces the same trace on every run. A failed setup step or an
// infrastructure failure is returned as an error; unmet expectations are
// recorded in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	start, err := scenario.StartTime()
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	intervalSpec := scenario.Interval
	if intervalSpec == "" {
		intervalSpec = "monthly"
	}
	interval, err := payment.ParseInterval(intervalSpec)
	if err != nil {
		return nil, fmt.Errorf("interval: %w", err)
	}
	prefix := scenario.TxPrefix
	if prefix == "" {
		prefix = "tx"
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewFixedClock(start)
	eng := engine.New(st,
		engine.WithClock(clock),
		engine.WithTxIDGenerator(testutil.NewSequentialTxIDs(prefix)),
		engine.WithLogger(cfg.logger),
	)
	guard := authz.DefaultGuard()
	h := &Harness{
		scenario: scenario,
		store:    st,
		router: dispatch.New(eng,
			contract.NewManager(guard, domain.DefaultCurrencyPolicy()),
			payment.NewScheduler(guard, interval),
		),
		clock:  clock,
		logger: cfg.logger.Named("harness"),
	}

	result := NewResult()
	for i, step := range scenario.Setup {
		_, err := h.execute(ctx, "setup", step, result)
		if err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Invoke, err)
		}
	}
	for i, step := range scenario.Flow {
		value, err := h.execute(ctx, "flow", step, result)
		if msg := checkExpect(step.Expect, value, err); msg != "" {
			result.AddError(fmt.Sprintf("flow[%d] %s as %s: %s", i, step.Invoke, step.As, msg))
		}
	}

	events, err := st.Events(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	result.Events = events

	for _, msg := range h.evaluateAssertions(ctx, result) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step and records it in the trace.
func (h *Harness) execute(ctx context.Context, phase string, step Step, result *Result) (any, error) {
	if step.At != "" {
		t, err := parseTime(step.At)
		if err != nil {
			return nil, err
		}
		h.clock.Set(t)
	}

	args, err := json.Marshal(step.Args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	caller := h.scenario.Identities[step.As].Credential()

	call := h.router.Submit
	if step.Query {
		call = h.router.Evaluate
	}
	res, err := call(ctx, step.Invoke, caller, args)

	ev := TraceEvent{Phase: phase, Function: step.Invoke, Caller: step.As, Outcome: OutcomeOK}
	if err != nil {
		ev.Outcome = dispatch.ErrorCode(err)
		result.addTrace(ev)
		h.logger.Debug("step rejected", zap.String("function", step.Invoke), zap.String("outcome", ev.Outcome))
		return nil, err
	}
	if !step.Query {
		ev.TxID = res.TxID
		if res.Event != nil {
			ev.Event = res.Event.Name
		}
	}
	result.addTrace(ev)
	return res.Value, nil
}

// checkExpect returns a failure message, or "" when the outcome matches.
func checkExpect(expect *Expect, value any, err error) string {
	want := ""
	if expect != nil {
		want = expect.Error
	}
	got := dispatch.ErrorCode(err)
	if got != want {
		if want == "" {
			return fmt.Sprintf("expected success, got %v", err)
		}
		if err == nil {
			return fmt.Sprintf("expected %s, got success", want)
		}
		return fmt.Sprintf("expected %s, got %s: %v", want, got, err)
	}
	if err != nil || expect == nil {
		return ""
	}

	actual, nerr := normalize(value)
	if nerr != nil {
		return fmt.Sprintf("cannot compare result: %v", nerr)
	}
	if expect.Count != nil {
		list, ok := actual.([]any)
		if !ok {
			return fmt.Sprintf("expected a list of %d, got %T", *expect.Count, actual)
		}
		if len(list) != *expect.Count {
			return fmt.Sprintf("expected %d results, got %d", *expect.Count, len(list))
		}
	}
	if expect.Result != nil {
		if msg := matchSubset(expect.Result, actual); msg != "" {
			return "result " + msg
		}
	}
	return ""
}
