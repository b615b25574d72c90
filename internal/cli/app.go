package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/rentledger/internal/config"
	"github.com/roach88/rentledger/internal/contract"
	"github.com/roach88/rentledger/internal/dispatch"
	"github.com/roach88/rentledger/internal/engine"
	"github.com/roach88/rentledger/internal/events"
	"github.com/roach88/rentledger/internal/logger"
	"github.com/roach88/rentledger/internal/payment"
	"github.com/roach88/rentledger/internal/store"
)

// app is one opened ledger with everything wired to it.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	router *dispatch.Router

	closers []func()
}

// loadConfig resolves the configuration named by the global flags.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Ledger.Path = opts.Database
	}
	return cfg, nil
}

// newLogger builds the process logger. Short-lived commands keep stdout
// for their output, so they only log (to stderr) when verbose.
func newLogger(opts *RootOptions, cfg *config.Config, service bool) (*zap.Logger, error) {
	if service {
		level := cfg.Log.Level
		if opts.Verbose {
			level = "debug"
		}
		return logger.NewLogger(level, cfg.Log.Format, logger.ServiceName)
	}
	if opts.Verbose {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

// openApp opens the ledger database, connects the event publishers and
// builds the router. service selects the long-running logger.
func openApp(ctx context.Context, opts *RootOptions, service bool) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(opts, cfg, service)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create logger", err)
	}
	interval, err := cfg.Interval()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid schedule interval", err)
	}

	a := &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	log.Debug("opening ledger", zap.String("path", cfg.Ledger.Path))
	st, err := store.Open(cfg.Ledger.Path)
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	a.store = st
	a.closers = append(a.closers, func() {
		if err := st.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
		}
	})

	pub, closePub, err := events.Open(ctx, cfg.Events.Redis, cfg.Events.MQTT, log)
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to connect event publishers", err)
	}
	a.closers = append(a.closers, closePub)

	eng := engine.New(st,
		engine.WithPublisher(pub),
		engine.WithLogger(log.Named("engine")),
	)
	guard := cfg.Guard()
	a.router = dispatch.New(eng,
		contract.NewManager(guard, cfg.Currencies()),
		payment.NewScheduler(guard, interval),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func describeFunction(f dispatch.Function) string {
	kind := "submit"
	if f.ReadOnly {
		kind = "query"
	}
	return fmt.Sprintf("%-32s %s", f.Name, kind)
}
