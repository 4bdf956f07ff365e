// Package mailer delivers transactional notifications through the Resend
// HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSendFailure wraps any delivery problem reported by the provider.
var ErrSendFailure = errors.New("mailer: send failure")

// Mailer sends a single HTML message and returns the provider's message
// identifier.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// Resend talks to the Resend REST API.
type Resend struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// ResendOption configures the Resend client.
type ResendOption func(*Resend)

// WithBaseURL points the client at a different API endpoint (used in tests).
func WithBaseURL(u string) ResendOption {
	return func(r *Resend) {
		r.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) ResendOption {
	return func(r *Resend) {
		if c != nil {
			r.client = c
		}
	}
}

// NewResend constructs a Resend client sending from the given address.
func NewResend(apiKey, from string, opts ...ResendOption) (*Resend, error) {
	if apiKey == "" {
		return nil, errors.New("mailer: api key is required")
	}
	if from == "" {
		return nil, errors.New("mailer: from address is required")
	}
	r := &Resend{
		apiKey:  apiKey,
		from:    from,
		baseURL: "https://api.resend.com",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send delivers one message. Recipient, subject and body must all be
// non-empty and the recipient must look like an email address.
func (r *Resend) Send(ctx context.Context, to, subject, html string) (string, error) {
	if !strings.Contains(to, "@") {
		return "", fmt.Errorf("%w: invalid recipient address", ErrSendFailure)
	}
	if subject == "" {
		return "", fmt.Errorf("%w: subject cannot be empty", ErrSendFailure)
	}
	if html == "" {
		return "", fmt.Errorf("%w: body cannot be empty", ErrSendFailure)
	}

	payload, err := json.Marshal(sendRequest{
		From:    r.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("%w: provider returned %d: %s", ErrSendFailure, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailure, err)
	}
	return out.ID, nil
}
