package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	coremetrics "github.com/link-bedside-nurses/dispatch/core/metrics"
)

func newWriteCapture(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, &body
}

func TestInfluxSink_RecordMatchResult(t *testing.T) {
	srv, body := newWriteCapture(t)

	sink := NewInfluxSink(coremetrics.Config{
		InfluxURL: srv.URL, InfluxToken: "token", InfluxOrg: "org", InfluxBucket: "bucket",
	})
	defer sink.Close()

	res := coremetrics.MatchResult{
		AppointmentID: "a1",
		Candidates:    6,
		Filtered:      4,
		Returned:      2,
		Latency:       30 * time.Millisecond,
		Time:          time.Now(),
	}
	if err := sink.RecordMatchResult(res); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if !strings.HasPrefix(*body, "match,") {
		t.Fatalf("unexpected measurement: %q", *body)
	}
	if !strings.Contains(*body, "appointment_id=a1") {
		t.Fatalf("missing appointment tag: %q", *body)
	}
	if !strings.Contains(*body, "returned=2i") {
		t.Fatalf("missing returned field: %q", *body)
	}
}

func TestInfluxSink_RecordTransition(t *testing.T) {
	srv, body := newWriteCapture(t)

	sink := NewInfluxSink(coremetrics.Config{
		InfluxURL: srv.URL, InfluxToken: "token", InfluxOrg: "org", InfluxBucket: "bucket",
	})
	defer sink.Close()

	ev := coremetrics.TransitionEvent{
		AppointmentID: "a1",
		Action:        "decline",
		From:          "ASSIGNED",
		To:            "PENDING",
		Succeeded:     true,
		Time:          time.Now(),
	}
	if err := sink.RecordTransition(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if !strings.HasPrefix(*body, "transition,") {
		t.Fatalf("unexpected measurement: %q", *body)
	}
	if !strings.Contains(*body, "action=decline") {
		t.Fatalf("missing action tag: %q", *body)
	}
}
