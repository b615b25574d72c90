package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rentledger/internal/authz"
	"github.com/roach88/rentledger/internal/contract"
	"github.com/roach88/rentledger/internal/dispatch"
	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/engine"
	"github.com/roach88/rentledger/internal/identity"
	"github.com/roach88/rentledger/internal/payment"
	"github.com/roach88/rentledger/internal/store"
	"github.com/roach88/rentledger/internal/testutil"
)

var (
	secret   = []byte("test-secret")
	landlord = identity.NewUser("orgA", "L")
	tenant   = identity.NewUser("orgB", "T")
	sweeper  = identity.NewUser("OrgPropMSP", "overdue-sweeper")
)

type fixture struct {
	router *dispatch.Router
	clock  *testutil.FixedClock
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.NewFixedClock(testutil.Epoch)
	e := engine.New(testutil.OpenStore(t),
		engine.WithClock(clock),
		engine.WithTxIDGenerator(testutil.NewSequentialTxIDs("tx")),
	)
	guard := authz.DefaultGuard()
	router := dispatch.New(e,
		contract.NewManager(guard, domain.DefaultCurrencyPolicy()),
		payment.NewScheduler(guard, payment.Monthly()),
	)
	srv := httptest.NewServer(NewServer(router, secret, nil).Handler())
	t.Cleanup(srv.Close)
	return &fixture{router: router, clock: clock, server: srv}
}

func bearer(t *testing.T, cred identity.Static) string {
	t.Helper()
	token, err := IssueToken(secret, cred, time.Now(), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *fixture) post(t *testing.T, path, auth, body string) (int, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

const createBody = `{
	"contractId": "C1",
	"landlordId": "L", "tenantId": "T",
	"landlordOrg": "orgA", "tenantOrg": "orgB",
	"signedContractFileHash": "sha256:l",
	"landlordSignatureMeta": {"kid": "L-key"},
	"rentAmount": 5000000, "depositAmount": 10000000,
	"startDate": "2025-01-01", "endDate": "2025-12-31"
}`

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	resp, err := f.server.Client().Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestBearerRequired(t *testing.T) {
	f := newFixture(t)

	other, err := IssueToken([]byte("other-secret"), landlord, time.Now(), time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(secret, landlord, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name string
		auth string
	}{
		{"missing", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + other},
		{"expired", "Bearer " + expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.post(t, "/v1/transactions/CreateContract", tt.auth, createBody)
			assert.Equal(t, http.StatusForbidden, status)
			require.NotNil(t, body.Error)
			assert.Equal(t, "IDENTITY_EXTRACTION", body.Error.Code)
		})
	}
}

func TestSubmitThenQuery(t *testing.T) {
	f := newFixture(t)

	status, body := f.post(t, "/v1/transactions/CreateContract", bearer(t, landlord), createBody)
	require.Equal(t, http.StatusOK, status, "%+v", body.Error)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "tx-000001", body.TxID)
	assert.Equal(t, "2025-01-01T00:00:00Z", body.Timestamp)
	require.NotNil(t, body.Event)
	assert.Equal(t, domain.EventContractCreated, body.Event.Name)

	status, body = f.post(t, "/v1/queries/GetContract", bearer(t, tenant), `{"contractId":"C1"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body.Event)
	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "PENDING_SIGNATURE", data["status"])
	assert.Equal(t, "VND", data["currency"])
}

func TestQueriesNeverCommit(t *testing.T) {
	f := newFixture(t)

	status, _ := f.post(t, "/v1/queries/CreateContract", bearer(t, landlord), createBody)
	require.Equal(t, http.StatusOK, status)

	status, body := f.post(t, "/v1/queries/GetContract", bearer(t, landlord), `{"contractId":"C1"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestErrorStatuses(t *testing.T) {
	f := newFixture(t)
	status, _ := f.post(t, "/v1/transactions/CreateContract", bearer(t, landlord), createBody)
	require.Equal(t, http.StatusOK, status)

	tests := []struct {
		name   string
		path   string
		caller identity.Static
		body   string
		status int
		code   string
	}{
		{"duplicate", "/v1/transactions/CreateContract", landlord, createBody, http.StatusConflict, "CONFLICT"},
		{"not found", "/v1/queries/GetContract", landlord, `{"contractId":"C9"}`, http.StatusNotFound, "NOT_FOUND"},
		{"unknown function", "/v1/transactions/CreatePaymentSchedule", landlord, `{}`, http.StatusNotFound, "UNKNOWN_FUNCTION"},
		{"malformed args", "/v1/queries/GetContract", landlord, `{"id":"C1"}`, http.StatusBadRequest, "VALIDATION"},
		{"not the tenant", "/v1/transactions/TenantSignContract", landlord,
			`{"contractId":"C1","fullySignedContractFileHash":"h","tenantSignatureMeta":{}}`, http.StatusForbidden, "AUTHORIZATION"},
		{"wrong state", "/v1/transactions/ActivateContract", landlord, `{"contractId":"C1"}`, http.StatusUnprocessableEntity, "STATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.post(t, tt.path, bearer(t, tt.caller), tt.body)
			assert.Equal(t, tt.status, status)
			require.NotNil(t, body.Error)
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestStatusFor(t *testing.T) {
	conflict := &engine.RuntimeError{Code: engine.ErrCodeReadConflict, Key: "C1", Err: store.ErrReadConflict}

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validationf("x"), http.StatusBadRequest, "VALIDATION"},
		{domain.IdentityExtractionf("x"), http.StatusForbidden, "IDENTITY_EXTRACTION"},
		{fmt.Errorf("wrapped: %w", domain.Statef("x")), http.StatusUnprocessableEntity, "STATE"},
		{conflict, http.StatusConflict, "MVCC_READ_CONFLICT"},
		{&engine.RuntimeError{Code: engine.ErrCodeDuplicateTx}, http.StatusConflict, "DUPLICATE_TX"},
		{errors.New("disk full"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusFor(tt.err), tt.err.Error())
		assert.Equal(t, tt.code, dispatch.ErrorCode(tt.err))
	}
	assert.Equal(t, map[string]string{"key": "C1"}, dispatch.ErrorDetails(conflict))
}

func TestTokenRoundTrip(t *testing.T) {
	cred := identity.Static{Org: "AdminMSP", Full: "x509::/O=AdminMSP/CN=root::/O=AdminMSP/CN=ca", Attrs: map[string]string{"role": "admin"}}
	token, err := IssueToken(secret, cred, time.Now(), 0)
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, cred, claims.Credential())
	assert.Nil(t, claims.ExpiresAt)

	_, err = IssueToken(nil, cred, time.Now(), 0)
	assert.Error(t, err)
}

func submit(t *testing.T, r *dispatch.Router, fn string, caller identity.Credential, args string) {
	t.Helper()
	_, err := r.Submit(context.Background(), fn, caller, json.RawMessage(args))
	require.NoError(t, err, fn)
}

func activeWithSchedule(t *testing.T, r *dispatch.Router) {
	t.Helper()
	submit(t, r, "CreateContract", landlord, createBody)
	submit(t, r, "TenantSignContract", tenant, `{"contractId":"C1","fullySignedContractFileHash":"sha256:f","tenantSignatureMeta":{}}`)
	submit(t, r, "RecordDeposit", landlord, `{"contractId":"C1","party":"landlord","amount":10000000}`)
	submit(t, r, "RecordDeposit", tenant, `{"contractId":"C1","party":"tenant","amount":10000000}`)
	submit(t, r, "RecordFirstPayment", tenant, `{"contractId":"C1","amount":5000000}`)
	submit(t, r, "CreateMonthlyPaymentSchedule", landlord, `{"contractId":"C1"}`)
}

func TestSweeper_MarksDuePayments(t *testing.T) {
	f := newFixture(t)
	activeWithSchedule(t, f.router)
	s := NewSweeper(f.router, sweeper, nil)

	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{}, report, "nothing is due on the start date")

	f.clock.Set(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	report, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Due: 2, Marked: 2}, report)

	res, err := f.router.Evaluate(context.Background(), "QueryOverduePayments", sweeper, nil)
	require.NoError(t, err)
	overdue := res.Value.([]domain.Payment)
	require.Len(t, overdue, 2)
	assert.Equal(t, 2, overdue[0].Period)
	assert.Equal(t, 3, overdue[1].Period)

	report, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{}, report, "overdue payments are no longer due")
}

func TestSweeper_UnresolvableCaller(t *testing.T) {
	f := newFixture(t)
	s := NewSweeper(f.router, identity.Static{Org: "OrgPropMSP"}, nil)

	_, err := s.Sweep(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsIdentityExtraction(err))
}

func TestSweeper_Schedule(t *testing.T) {
	f := newFixture(t)
	s := NewSweeper(f.router, sweeper, nil)

	c, err := s.Schedule(context.Background(), "@hourly")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = s.Schedule(context.Background(), "every fortnight")
	assert.Error(t, err)
}
