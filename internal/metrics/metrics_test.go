package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveInvocation(t *testing.T) {
	m := New()
	m.ObserveInvocation("executed", 10*time.Millisecond)
	m.ObserveInvocation("executed", 20*time.Millisecond)
	m.ObserveInvocation("pending", time.Millisecond)

	if got := testutil.ToFloat64(m.invocations.WithLabelValues("executed")); got != 2 {
		t.Errorf("metrics:metrics_test - executed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.invocations.WithLabelValues("pending")); got != 1 {
		t.Errorf("metrics:metrics_test - pending = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 2 {
		t.Errorf("metrics:metrics_test - duration series = %d, want 2", got)
	}
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("invoke", true)
	m.ObserveRequest("invoke", false)
	m.ObserveRequest("invoke", false)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("invoke", "false")); got != 2 {
		t.Errorf("metrics:metrics_test - invoke/false = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("invoke", "true")); got != 1 {
		t.Errorf("metrics:metrics_test - invoke/true = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("keys", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `command_registry_requests_total{method="keys",ok="true"} 1`) {
		t.Errorf("metrics:metrics_test - exposition missing request counter:\n%s", body)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveRequest("health", true)
	if got := testutil.ToFloat64(b.requests.WithLabelValues("health", "true")); got != 0 {
		t.Errorf("metrics:metrics_test - second instance saw %v requests", got)
	}
}
