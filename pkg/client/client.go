// Package client wraps the Sentinel control surface for CLI usage
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/api"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// Client talks to a running sentinel daemon over HTTP
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the daemon at addr (host:port)
func NewClient(addr string) *Client {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the daemon status
func (c *Client) Status() (*api.StatusResponse, error) {
	var status api.StatusResponse
	if err := c.do(http.MethodGet, "/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetKillSwitch activates or deactivates the kill switch
func (c *Client) SetKillSwitch(active bool) error {
	return c.do(http.MethodPut, "/v1/killswitch", api.KillSwitchRequest{Active: active}, nil)
}

// SetAutonomyLevel sets the autonomy level (0-4)
func (c *Client) SetAutonomyLevel(level int) error {
	return c.do(http.MethodPut, "/v1/autonomy-level", api.AutonomyRequest{Level: level}, nil)
}

// ListActions fetches the most recent audit records, newest first
func (c *Client) ListActions(limit int) ([]*types.AuditRecord, error) {
	var records []*types.AuditRecord
	path := fmt.Sprintf("/v1/actions?limit=%d", limit)
	if err := c.do(http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) do(method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sentinel daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d for %s %s", resp.StatusCode, method, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
