// Package linkcheck holds both sides of the broken-link check: the client the
// dashboard uses to call the check-broken-links function, and the probe that
// function runs against a destination.
package linkcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

type checkRequest struct {
	URL    string `json:"url"`
	LinkID string `json:"linkId"`
}

// RemoteChecker calls the check-broken-links function with the service credential.
type RemoteChecker struct {
	endpoint   string
	serviceKey string
	client     *http.Client
}

func NewRemoteChecker(endpoint, serviceKey string, timeout time.Duration) *RemoteChecker {
	return &RemoteChecker{
		endpoint:   endpoint,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
	}
}

func (c *RemoteChecker) Check(ctx context.Context, url, linkID string) (*domain.HealthCheck, json.RawMessage, error) {
	payload, err := json.Marshal(checkRequest{URL: url, LinkID: linkID})
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("calling link check: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("reading link check response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &domain.CheckFailedError{Status: resp.StatusCode, Details: string(body)}
	}

	var result domain.HealthCheck
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil, fmt.Errorf("decoding link check response: %w", err)
	}
	return &result, json.RawMessage(body), nil
}

var _ ports.LinkChecker = (*RemoteChecker)(nil)

// Prober performs the actual destination request: one GET, no retries.
type Prober struct {
	client *http.Client
}

func NewProber(timeout time.Duration) *Prober {
	return &Prober{client: &http.Client{Timeout: timeout}}
}

// NewProberWithClient is used by tests to inject an httptest client.
func NewProberWithClient(client *http.Client) *Prober {
	return &Prober{client: client}
}

// Probe marks a destination broken on transport errors and on 4xx/5xx.
func (p *Prober) Probe(ctx context.Context, url, linkID string) domain.HealthCheck {
	result := domain.HealthCheck{URL: url, LinkID: linkID, CheckedAt: time.Now().UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Broken = true
		result.Error = err.Error()
		return result
	}
	req.Header.Set("User-Agent", "LoopyLink-LinkChecker/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		result.Broken = true
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	result.Status = resp.StatusCode
	result.Broken = resp.StatusCode >= 400
	return result
}

var _ ports.LinkProber = (*Prober)(nil)
