package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/rentledger/internal/gateway"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	SweepCron string
	NoSweep   bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Serve the ledger over HTTP.

Starts the transaction gateway (POST /v1/transactions/{function} and
POST /v1/queries/{function}, bearer JWT credentials) and, unless disabled,
the overdue sweep on its cron schedule. Runs until interrupted.

Example:
  RENTLEDGER_JWT_SECRET=s3cret rentledger serve --db ./ledger.db
  rentledger serve --config rentledger.yaml --addr :9090 --no-sweep`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides gateway.addr)")
	cmd.Flags().StringVar(&opts.SweepCron, "sweep-cron", "", "cron spec for the overdue sweep (overrides gateway.sweep_cron)")
	cmd.Flags().BoolVar(&opts.NoSweep, "no-sweep", false, "do not run the overdue sweep")

	return cmd
}

func serve(opts *ServeOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(commandContext(cmd.Context()))
	defer cancel()

	a, err := openApp(ctx, opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.logger

	secret := a.cfg.Gateway.JWTSecret
	if secret == "" {
		return NewExitError(ExitCommandError, "gateway.jwt_secret (RENTLEDGER_JWT_SECRET) is required to serve")
	}
	addr := a.cfg.Gateway.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	sweepSpec := a.cfg.Gateway.SweepCron
	if opts.SweepCron != "" {
		sweepSpec = opts.SweepCron
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	if !opts.NoSweep && sweepSpec != "" {
		sweeper := gateway.NewSweeper(a.router, a.cfg.Sweeper(), log)
		c, err := sweeper.Schedule(ctx, sweepSpec)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid sweep schedule", err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		log.Info("overdue sweep scheduled", zap.String("spec", sweepSpec))
	}

	server := gateway.NewServer(a.router, []byte(secret), log)
	fmt.Fprintf(cmd.ErrOrStderr(), "Gateway listening on %s. Press Ctrl-C to stop.\n", addr)
	if err := server.ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, "gateway error", err)
	}

	log.Info("gateway stopped gracefully")
	return nil
}
