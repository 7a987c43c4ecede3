package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/candidatesuite/shortlist/internal/schema"
)

func sampleCandidate() schema.Candidate {
	return schema.Candidate{
		Name:             "Ada Lovelace",
		Email:            "ada@example.com",
		Mobile:           "919876543210",
		OverallScore:     "9",
		Organization:     "Initech",
		TechnicalSkills:  "Python, Go",
		JobRoleCandidate: "Backend Engineer",
	}
}

func TestSendPostsDecisionPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL).Send(context.Background(), sampleCandidate(), DecisionAccept); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["Type"] != "Accept" {
		t.Fatalf("type = %q", got["Type"])
	}
	// The consumer was built against the raw export, drifted labels included.
	if got["Name "] != "Ada Lovelace" {
		t.Fatalf("missing drifted name label: %v", got)
	}
	if got["Overall Score "] != "9" {
		t.Fatalf("missing drifted score label: %v", got)
	}
	if got["Current Organization\n"] != "Initech" {
		t.Fatalf("missing drifted organization label: %v", got)
	}
}

func TestSendRejectDiscriminator(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL).Send(context.Background(), sampleCandidate(), DecisionReject); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["Type"] != "Reject" {
		t.Fatalf("type = %q", got["Type"])
	}
}

func TestSendNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).Send(context.Background(), sampleCandidate(), DecisionAccept)
	var se *SendError
	if !errors.As(err, &se) {
		t.Fatalf("expected SendError, got %v", err)
	}
	if se.Status == "" {
		t.Fatalf("expected status recorded")
	}
}

func TestPayloadFallsBackToUnknownName(t *testing.T) {
	p := Payload(schema.Candidate{Email: "x@example.com"}, DecisionAccept)
	if p["Name "] != "Unknown" {
		t.Fatalf("name = %q", p["Name "])
	}
}
