package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rentledger/internal/authz"
	"github.com/roach88/rentledger/internal/contract"
	"github.com/roach88/rentledger/internal/dispatch"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/engine"
	"github.com/roach88/rentledger/internal/identity"
	"github.com/roach88/rentledger/internal/payment"
	"github.com/roach88/rentledger/internal/store"
)

// InvokeOptions holds flags for the invoke and query commands.
type InvokeOptions struct {
	*RootOptions
	Args     string
	Identity string
}

// IdentityFile is the YAML form of a caller:
//
//	mspid: OrgTenantMSP
//	user: tenant-1          # or id: x509::/O=.../CN=tenant-1::/O=.../CN=ca
//	attrs:
//	  role: admin
type IdentityFile struct {
	MSPID string            `yaml:"mspid"`
	User  string            `yaml:"user,omitempty"`
	ID    string            `yaml:"id,omitempty"`
	Attrs map[string]string `yaml:"attrs,omitempty"`
}

// Credential returns the caller the file describes.
func (f IdentityFile) Credential() identity.Static {
	full := f.ID
	if full == "" && f.User != "" {
		full = identity.X509ID(f.MSPID, f.User)
	}
	return identity.Static{Org: f.MSPID, Full: full, Attrs: f.Attrs}
}

// LoadIdentityFile reads a caller from a YAML file.
func LoadIdentityFile(path string) (identity.Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return identity.Static{}, fmt.Errorf("failed to read identity file: %w", err)
	}
	var f IdentityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return identity.Static{}, fmt.Errorf("failed to parse identity file: %w", err)
	}
	if f.MSPID == "" {
		return identity.Static{}, fmt.Errorf("identity file %s: mspid is required", path)
	}
	if f.ID == "" && f.User == "" {
		return identity.Static{}, fmt.Errorf("identity file %s: user or id is required", path)
	}
	return f.Credential(), nil
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <function>",
		Short: "Submit a ledger transaction",
		Long: `Submit a ledger transaction.

The function runs as one transaction against the ledger database and, on
success, commits its writes and emits its event.

Exit codes:
  0 - Committed
  1 - Rejected by the ledger (see error code)
  2 - Command error (bad flags, unreadable identity, database unavailable)

Example:
  rentledger invoke RecordPayment --identity tenant.yaml \
    --args '{"contractId":"C1","period":2,"amount":5000000,"orderRef":"ORD-2"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return callFunction(opts, args[0], false, cmd)
		},
	}
	addCallFlags(cmd, opts)
	return cmd
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <function>",
		Short: "Evaluate a function without committing",
		Long: `Evaluate a function without committing.

The transaction is always discarded, so nothing is written and no event is
emitted, whichever function is named.

Example:
  rentledger query GetContract --identity landlord.yaml --args '{"contractId":"C1"}'
  rentledger query QueryDuePayments --identity admin.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return callFunction(opts, args[0], true, cmd)
		},
	}
	addCallFlags(cmd, opts)
	return cmd
}

func addCallFlags(cmd *cobra.Command, opts *InvokeOptions) {
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "function arguments as a JSON object")
	cmd.Flags().StringVar(&opts.Identity, "identity", "", "path to the caller's identity file (required)")
	_ = cmd.MarkFlagRequired("identity")
}

func callFunction(opts *InvokeOptions, function string, evaluate bool, cmd *cobra.Command) error {
	if !json.Valid([]byte(opts.Args)) {
		return NewExitError(ExitCommandError, "invalid --args JSON")
	}
	caller, err := LoadIdentityFile(opts.Identity)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid identity", err)
	}

	ctx := commandContext(cmd.Context())
	a, err := openApp(ctx, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer a.Close()

	call := a.router.Submit
	if evaluate {
		call = a.router.Evaluate
	}
	out := opts.formatter(cmd)
	out.VerboseLog("calling %s as %s", function, caller.Full)

	res, err := call(ctx, function, caller, json.RawMessage(opts.Args))
	if err != nil {
		return out.Rejection(function, err)
	}
	return out.Result(res)
}

// NewFunctionsCommand creates the functions command.
func NewFunctionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "functions",
		Short:         "List the ledger's functions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listFunctions(rootOpts, cmd)
		},
	}
	return cmd
}

func listFunctions(opts *RootOptions, cmd *cobra.Command) error {
	// Only the registry is needed, so the router sits on an in-memory
	// ledger and never touches the configured database.
	st, err := store.Open(":memory:")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open in-memory ledger", err)
	}
	defer st.Close()
	guard := authz.DefaultGuard()
	router := dispatch.New(engine.New(st),
		contract.NewManager(guard, domain.DefaultCurrencyPolicy()),
		payment.NewScheduler(guard, payment.Monthly()),
	)

	fns := router.Functions()
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(fns)
	}
	w := cmd.OutOrStdout()
	for _, f := range fns {
		fmt.Fprintln(w, describeFunction(f))
	}
	return nil
}
