package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testEvent(typ EventType) Event {
	return Event{
		Type:      typ,
		RunID:     "run-123",
		IssueRef:  "octocat/hello#42",
		Message:   "something happened",
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
	}
}

func TestWebhookNotifier(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if got := r.Header.Get("X-Token"); got != "secret" {
			t.Errorf("X-Token = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, map[string]string{"X-Token": "secret"})
	if err := n.Notify(context.Background(), testEvent(EventPRCreated)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if received.Type != EventPRCreated || received.IssueRef != "octocat/hello#42" {
		t.Errorf("received = %+v", received)
	}
}

func TestWebhookNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, nil)
	if err := n.Notify(context.Background(), testEvent(EventRunFailed)); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestSlackNotifier(t *testing.T) {
	var payload slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, WithSlackChannel("#fixes"), WithSlackUsername("fixbot"))
	event := testEvent(EventVerificationFailed)
	event.Severity = SeverityWarning
	event.Metadata = map[string]any{"attempt": 2}

	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if payload.Channel != "#fixes" || payload.Username != "fixbot" {
		t.Errorf("payload = %+v", payload)
	}
	if len(payload.Attachments) != 1 {
		t.Fatalf("attachments = %d", len(payload.Attachments))
	}
	att := payload.Attachments[0]
	if att.Color != "warning" {
		t.Errorf("color = %q", att.Color)
	}
	if att.Title != string(EventVerificationFailed) {
		t.Errorf("title = %q", att.Title)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "attempt" {
		t.Errorf("fields = %+v", att.Fields)
	}
}

type failingNotifier struct{ err error }

func (f *failingNotifier) Notify(context.Context, Event) error { return f.err }

type recordingNotifier struct{ events []Event }

func (r *recordingNotifier) Notify(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return nil
}

func TestMultiNotifier_ContinuesPastFailures(t *testing.T) {
	rec := &recordingNotifier{}
	multi := NewMultiNotifier(
		&failingNotifier{err: errors.New("down")},
		rec,
	)

	err := multi.Notify(context.Background(), testEvent(EventRunCompleted))
	if err == nil {
		t.Error("expected last error to surface")
	}
	if len(rec.events) != 1 {
		t.Errorf("second notifier got %d events", len(rec.events))
	}
}

func TestNotifierContext(t *testing.T) {
	if got := NotifierFromContext(context.Background()); got != nil {
		t.Errorf("empty context notifier = %v", got)
	}

	rec := &recordingNotifier{}
	ctx := WithNotifier(context.Background(), rec)
	if got := NotifierFromContext(ctx); got != rec {
		t.Error("notifier did not round-trip through context")
	}
}

func TestLogNotifier_NeverErrors(t *testing.T) {
	n := NewLogNotifier(nil)
	for _, sev := range []string{SeverityInfo, SeverityWarning, SeverityError} {
		e := testEvent(EventRunStarted)
		e.Severity = sev
		if err := n.Notify(context.Background(), e); err != nil {
			t.Errorf("Notify(%s): %v", sev, err)
		}
	}
}
