package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failingWith(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func getReport(t *testing.T, serve http.HandlerFunc) (int, report) {
	t.Helper()

	w := httptest.NewRecorder()
	serve(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var rep report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rep))
	return w.Code, rep
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("one", time.Second, passing())
	h.AddLivenessCheck("two", time.Second, passing())

	code, rep := getReport(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", rep.Status)
}

func TestLiveEndpoint_FailureThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failingWith("connection refused"))
	c := h.liveness[0]
	ctx := context.Background()

	// Two consecutive failures keep the check healthy.
	c.run(ctx)
	c.run(ctx)
	code, _ := getReport(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)

	// The third flips it.
	c.run(ctx)
	code, rep := getReport(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", rep.Status)
	assert.Equal(t, "connection refused", rep.Checks["db"])
}

func TestCheckRecovery(t *testing.T) {
	down := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(_ context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	c := h.liveness[0]
	ctx := context.Background()

	for range failAfter {
		c.run(ctx)
	}
	healthy, _ := c.status()
	assert.False(t, healthy)

	// One pass is enough to recover.
	down = false
	c.run(ctx)
	healthy, _ = c.status()
	assert.True(t, healthy)
}

func TestReadyEndpoint_ManualGate(t *testing.T) {
	h := New()
	h.AddReadinessCheck("store", time.Second, passing())

	// Not ready until SetReady(true).
	code, rep := getReport(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, rep.Checks, "ready")

	h.SetReady(true)
	code, rep = getReport(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", rep.Status)

	// Draining closes the gate again.
	h.SetReady(false)
	code, _ = getReport(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadyEndpoint_OneFailingCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("store", time.Second, passing())
	h.AddReadinessCheck("cache", time.Second, failingWith("cache miss"))
	h.SetReady(true)

	ctx := context.Background()
	for range failAfter {
		h.readiness[1].run(ctx)
	}

	code, rep := getReport(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, rep.Checks, "cache")
	assert.NotContains(t, rep.Checks, "store")
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("store", time.Second, passing())

	assert.False(t, h.IsReady())
	h.SetReady(true)
	assert.True(t, h.IsReady())
	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestEndpointsWithNoChecks(t *testing.T) {
	h := New()
	h.SetReady(true)

	code, _ := getReport(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)

	code, _ = getReport(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestStopIsIdempotent(t *testing.T) {
	h := New()
	h.AddLivenessCheck("noop", time.Second, passing())

	h.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flap", time.Second, failingWith("err"))
	h.AddReadinessCheck("store", time.Second, passing())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				getReport(t, h.LiveEndpoint)
				getReport(t, h.ReadyEndpoint)
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit 0")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
