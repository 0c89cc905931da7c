package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAction(t *testing.T) {
	m := New()
	m.ObserveAction("found", "mark_owner_received", OutcomeRejected)
	m.ObserveAction("found", "mark_owner_received", OutcomeRejected)
	m.ObserveAction("found", "mark_owner_received", OutcomeApplied)

	got := testutil.ToFloat64(m.actions.WithLabelValues("found", "mark_owner_received", OutcomeRejected))
	if got != 2 {
		t.Errorf("expected 2 rejections, got %v", got)
	}
}

func TestHandlerExposesRequests(t *testing.T) {
	m := New()
	m.ObserveRequest("GET /api/lost", "GET", 200, 15*time.Millisecond)
	m.ObserveUpload("stored")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`lostfound_http_requests_total{method="GET",route="GET /api/lost",status="200"} 1`,
		`lostfound_image_uploads_total{outcome="stored"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}
