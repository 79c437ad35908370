package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contriblog/internal/ledger"
	"github.com/roach88/contriblog/internal/metrics"
	"github.com/roach88/contriblog/internal/store"
	"github.com/roach88/contriblog/internal/testutil"
)

type fixture struct {
	store  *store.Store
	ledger *ledger.Ledger
	server *Server
	alice  *ledger.Keypair
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	reg := prometheus.NewPedanticRegistry()
	l := ledger.New(s,
		ledger.WithClock(testutil.NewDeterministicClock(1700000000, 1)),
		ledger.WithMetrics(metrics.New(reg)),
	)
	alice, err := ledger.KeypairFromSeed(testutil.Seed("alice"))
	require.NoError(t, err)
	_, err = l.Airdrop(context.Background(), alice.Public(), 10_000_000_000)
	require.NoError(t, err)

	return &fixture{store: s, ledger: l, server: New(l, reg, nil), alice: alice}
}

func (f *fixture) submit(t *testing.T, codeHash string) {
	t.Helper()
	var (
		tx  ledger.Transaction
		err error
	)
	if codeHash == "" {
		tx, err = ledger.NewInitialize(f.ledger.ProgramID(), f.alice)
	} else {
		tx, err = ledger.NewLogContribution(f.ledger.ProgramID(), f.alice, codeHash)
	}
	require.NoError(t, err)
	_, err = f.ledger.Submit(context.Background(), tx)
	require.NoError(t, err)
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(t)
	w := f.get(t, "/v1/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAddressHandler(t *testing.T) {
	f := newFixture(t)
	w := f.get(t, "/v1/address")
	require.Equal(t, http.StatusOK, w.Code)

	d, err := f.ledger.Address()
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, d.Address.String(), body["address"])
	assert.Equal(t, float64(d.Bump), body["bump"])
	assert.Equal(t, "log_state", body["seed"])
	assert.Equal(t, ledger.DefaultProgramID.String(), body["program_id"])
}

func TestLogHandlerNotInitialized(t *testing.T) {
	f := newFixture(t)
	w := f.get(t, "/v1/log")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_INITIALIZED"`)
}

func TestLogHandlerReturnsWholeLog(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "")

	w := f.get(t, "/v1/log")
	require.Equal(t, http.StatusOK, w.Code)
	var empty LogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Contributions)
	assert.Equal(t, 44, empty.Space)

	f.submit(t, "abc123")
	f.submit(t, "def456")

	w = f.get(t, "/v1/log")
	require.Equal(t, http.StatusOK, w.Code)
	var resp LogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, f.alice.Public(), resp.Authority)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 44+50+50, resp.Space)
	require.Len(t, resp.Contributions, 2)
	assert.Equal(t, "abc123", resp.Contributions[0].CodeHash)
	assert.Equal(t, "def456", resp.Contributions[1].CodeHash)
	assert.Less(t, resp.Contributions[0].Timestamp, resp.Contributions[1].Timestamp)
	assert.Len(t, resp.Digest, 64)
	assert.NotEqual(t, empty.Digest, resp.Digest)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "")

	w := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `contriblog_transactions_total{instruction="initialize",outcome="committed"} 1`)
	assert.Contains(t, w.Body.String(), "contriblog_log_slot_bytes 44")
}

func TestMetricsReportsLogWrittenElsewhere(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "")
	f.submit(t, "abc123")
	f.submit(t, "def456")

	// A second view over the same backend, as a separate serve process
	// would have: it has submitted nothing itself.
	reg := prometheus.NewPedanticRegistry()
	view := ledger.New(f.store, ledger.WithMetrics(metrics.New(reg)))
	f.server = New(view, reg, nil)

	w := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "contriblog_log_records 2")
	assert.Contains(t, body, "contriblog_log_slot_bytes 144")
	assert.NotContains(t, body, `contriblog_transactions_total{`)

	f.submit(t, "0a0b0c")
	body = f.get(t, "/metrics").Body.String()
	assert.Contains(t, body, "contriblog_log_records 3")
	assert.Contains(t, body, "contriblog_log_slot_bytes 194")
}

func TestMetricsBeforeInitialize(t *testing.T) {
	f := newFixture(t)
	w := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "contriblog_log_records 0")
}

func TestMetricsNotMountedWithoutGatherer(t *testing.T) {
	f := newFixture(t)
	f.server = New(f.ledger, nil, nil)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/metrics").Code)
}

func TestWritesAreNotRouted(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/log", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.ListenAndServe(ctx, "127.0.0.1:0") }()

	require.Eventually(t, func() bool { return f.server.Addr() != nil }, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + f.server.Addr().String() + "/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
