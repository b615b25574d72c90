package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/roach88/rentledger/internal/dispatch"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/identity"
)

// Sweeper marks payments overdue once their due date has passed.
type Sweeper struct {
	router *dispatch.Router
	caller identity.Credential
	logger *zap.Logger
}

// SweepReport counts the outcome of one sweep.
type SweepReport struct {
	Due    int `json:"due"`
	Marked int `json:"marked"`
	Failed int `json:"failed"`
}

// NewSweeper returns a Sweeper acting as caller.
func NewSweeper(router *dispatch.Router, caller identity.Credential, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{router: router, caller: caller, logger: logger.Named("sweeper")}
}

// Sweep lists SCHEDULED payments due before the transaction time and
// submits MarkOverdue for each as its own transaction. A failed payment
// is logged and skipped; only a failed listing is returned as an error.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	res, err := s.router.Evaluate(ctx, "QueryDuePayments", s.caller, nil)
	if err != nil {
		return report, fmt.Errorf("query due payments: %w", err)
	}
	due, ok := res.Value.([]domain.Payment)
	if !ok {
		return report, fmt.Errorf("query due payments: unexpected result %T", res.Value)
	}
	report.Due = len(due)

	for _, p := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		args, err := json.Marshal(map[string]any{"contractId": p.ContractID, "period": p.Period})
		if err != nil {
			return report, err
		}
		if _, err := s.router.Submit(ctx, "MarkOverdue", s.caller, args); err != nil {
			report.Failed++
			s.logger.Warn("mark overdue failed",
				zap.String("contract_id", p.ContractID),
				zap.Int("period", p.Period),
				zap.String("error_kind", dispatch.ErrorCode(err)),
				zap.Error(err),
			)
			continue
		}
		report.Marked++
	}

	s.logger.Info("sweep finished",
		zap.Int("due", report.Due),
		zap.Int("marked", report.Marked),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// Schedule returns a cron runner that sweeps on spec. Runs never overlap.
// The caller starts and stops it.
func (s *Sweeper) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	logger := cron.PrintfLogger(zap.NewStdLog(s.logger))
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", spec, err)
	}
	return c, nil
}
