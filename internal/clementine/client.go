// Package clementine is the gateway's client for the integration
// subsystem, which owns the full lifecycle of third-party integrations
// (CMS plugins and similar). The gateway only relays operations keyed by
// bot and integration id; authorization is delegated entirely to the
// subsystem's own checks.
package clementine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/botgrid/gateway/pkg/models"
)

// ErrNoContent is returned by Get when the lookup succeeded but no
// integration exists for the given keys. Distinct from a subsystem
// failure; callers surface it as a 204-equivalent.
var ErrNoContent = errors.New("no integration found")

// CreateIntegrationRequest registers a new integration for a bot. It is
// constructed at the HTTP boundary when the inbound payload carries no
// uuid.
type CreateIntegrationRequest struct {
	Bot    string          `json:"bot"`
	Name   string          `json:"name,omitempty"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

// UpdateIntegrationRequest replaces an existing integration's settings.
// It is constructed at the HTTP boundary when the inbound payload
// carries a uuid, eliminating any ambiguity between missing and empty
// values further down.
type UpdateIntegrationRequest struct {
	UUID   uuid.UUID       `json:"uuid"`
	Bot    string          `json:"bot"`
	Name   string          `json:"name,omitempty"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Client forwards integration operations to the subsystem.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the integration subsystem at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Create registers a new integration and returns the stored record.
func (c *Client) Create(ctx context.Context, req CreateIntegrationRequest) (*models.Integration, error) {
	var integration models.Integration
	err := c.do(ctx, http.MethodPost, c.baseURL+"/integration", req, &integration)
	if err != nil {
		return nil, fmt.Errorf("create integration: %w", err)
	}
	return &integration, nil
}

// Update replaces an existing integration and returns the stored record.
func (c *Client) Update(ctx context.Context, req UpdateIntegrationRequest) (*models.Integration, error) {
	var integration models.Integration
	err := c.do(ctx, http.MethodPut, c.baseURL+"/integration/"+req.UUID.String(), req, &integration)
	if err != nil {
		return nil, fmt.Errorf("update integration: %w", err)
	}
	return &integration, nil
}

// Delete removes the integration identified by bot and uuid.
func (c *Client) Delete(ctx context.Context, bot string, id uuid.UUID) error {
	target := fmt.Sprintf("%s/integration/%s?bot=%s", c.baseURL, id, url.QueryEscape(bot))
	if err := c.do(ctx, http.MethodDelete, target, nil, nil); err != nil {
		return fmt.Errorf("delete integration: %w", err)
	}
	return nil
}

// Get returns the integration identified by bot and uuid, or
// ErrNoContent when none exists.
func (c *Client) Get(ctx context.Context, bot string, id uuid.UUID) (*models.Integration, error) {
	target := fmt.Sprintf("%s/integration/%s?bot=%s", c.baseURL, id, url.QueryEscape(bot))

	body, status, err := c.raw(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	if status == http.StatusNoContent || status == http.StatusNotFound {
		return nil, ErrNoContent
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("get integration: subsystem returned status %d", status)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNoContent
	}

	var integration models.Integration
	if err := json.Unmarshal(body, &integration); err != nil {
		return nil, fmt.Errorf("get integration: decode response: %w", err)
	}
	return &integration, nil
}

// List returns the integrations registered for a bot, optionally
// filtered by integration type.
func (c *Client) List(ctx context.Context, bot, integrationType string) ([]models.Integration, error) {
	query := url.Values{}
	if bot != "" {
		query.Set("bot", bot)
	}
	if integrationType != "" {
		query.Set("type", integrationType)
	}
	target := c.baseURL + "/integrations"
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var integrations []models.Integration
	if err := c.do(ctx, http.MethodGet, target, nil, &integrations); err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	return integrations, nil
}

// GenerateConfig returns the generated embed body for an integration.
func (c *Client) GenerateConfig(ctx context.Context, id string) (json.RawMessage, error) {
	target := c.baseURL + "/integration/" + url.PathEscape(id) + "/body"
	body, status, err := c.raw(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("generate integration config: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("generate integration config: subsystem returned status %d", status)
	}
	return body, nil
}

// do issues a call and decodes the JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, target string, payload, out any) error {
	body, status, err := c.raw(ctx, method, target, payload)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("subsystem returned status %d", status)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, target string, payload any) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encode payload: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
