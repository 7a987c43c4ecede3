// Package notify posts decision notifications to the downstream webhook. The
// webhook is the system of record for the hiring pipeline, so a failed send
// aborts the whole transition: no roster write may happen without it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/candidatesuite/shortlist/internal/schema"
)

const defaultTimeout = 15 * time.Second

// Decision is the two-outcome discriminator carried in every payload.
type Decision string

const (
	DecisionAccept Decision = "Accept"
	DecisionReject Decision = "Reject"
)

// SendError reports a failed notification delivery.
type SendError struct {
	Status string
	Err    error
}

func (e *SendError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("notify: webhook: %s", e.Status)
	}
	return fmt.Sprintf("notify: webhook: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Webhook delivers candidate decisions. Fire-and-forget with respect to
// retries: one POST, response body ignored beyond the status code.
type Webhook struct {
	url    string
	client *http.Client
}

// Option customizes Webhook construction.
type Option func(*Webhook)

// WithClient overrides the HTTP client, primarily for tests.
func WithClient(c *http.Client) Option {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// NewWebhook builds a sink for the given endpoint URL.
func NewWebhook(url string, opts ...Option) *Webhook {
	w := &Webhook{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Send posts the full candidate snapshot plus the decision discriminator.
// The payload keeps the source sheet's labels, drift included, because the
// downstream consumer was built against the raw export.
func (w *Webhook) Send(ctx context.Context, c schema.Candidate, d Decision) error {
	if w.url == "" {
		return &SendError{Err: fmt.Errorf("no webhook URL configured")}
	}
	body, err := json.Marshal(Payload(c, d))
	if err != nil {
		return &SendError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &SendError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return &SendError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SendError{Status: resp.Status}
	}
	return nil
}

// Payload mirrors the candidate under the consumer's expected keys.
func Payload(c schema.Candidate, d Decision) map[string]string {
	return map[string]string{
		"Name ":                         c.DisplayName(),
		"Mobile no":                     c.Mobile,
		"Email":                         c.Email,
		"Designation":                   c.Designation,
		"Education":                     c.Education,
		"Years of relevent experience":  c.ExperienceYears,
		"Years of total experience":     c.TotalExperienceYears,
		"Experience Type":               c.ExperienceType,
		"Technical Score":               c.TechnicalScore,
		"Experience Score":              c.ExperienceScore,
		"Achievements Score":            c.AchievementsScore,
		"Education Score":               c.EducationScore,
		"Overall Score ":                c.OverallScore,
		"Current Organization\n":        c.Organization,
		"Projects & Achievements\n":     c.ProjectsAndAchievements,
		"Job Role Candidate":            c.JobRoleCandidate,
		"Summry":                        c.Summary,
		"Quick read":                    c.QuickRead,
		"Technical skill":               c.TechnicalSkills,
		"Type":                          string(d),
	}
}
