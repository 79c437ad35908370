package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServe runs serve over dataDir on a free port and returns its
// address and a channel carrying runServe's result.
func startServe(t *testing.T, ctx context.Context, dataDir string) (string, <-chan error) {
	t.Helper()
	ready := make(chan string, 1)
	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text", DataDir: dataDir},
		Addr:        "127.0.0.1:0",
		ready:       func(addr string) { ready <- addr },
	}
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	done := make(chan error, 1)
	go func() { done <- runServe(opts, cmd) }()

	select {
	case addr := <-ready:
		return addr, done
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	return "", nil
}

func scrape(t *testing.T, addr string) string {
	t.Helper()
	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestServe_ServesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, done := startServe(t, ctx, filepath.Join(t.TempDir(), "data"))

	resp, err := http.Get("http://" + addr + "/v1/healthz")
	require.NoError(t, err)
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])

	resp, err = http.Get("http://" + addr + "/v1/log")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := scrape(t, addr)
	assert.Contains(t, body, "contriblog_storage_read_seconds")
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "contriblog_log_records 0")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServe_MetricsReflectExistingLog(t *testing.T) {
	w := seededWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, done := startServe(t, ctx, w.dir)
	body := scrape(t, addr)
	assert.Contains(t, body, "contriblog_log_records 2")
	assert.Contains(t, body, "contriblog_log_slot_bytes 141")

	// A write from another process shows up on the next scrape.
	_, err := w.run(t, "log", "--keypair", w.alice, "0a0b")
	require.NoError(t, err)
	body = scrape(t, addr)
	assert.Contains(t, body, "contriblog_log_records 3")
	assert.Contains(t, body, "contriblog_log_slot_bytes 189")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServe_BadAddress(t *testing.T) {
	w := newWorkspace(t, "")
	_, err := w.run(t, "serve", "--addr", "not-an-address")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
