// Package executor dispatches remediation actions to the external
// execution backend over HTTP. The backend owns the actual cluster
// operations; Sentinel only decides and requests.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// HTTPExecutor posts actions to {base}/v1/execute
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutor creates an executor. The timeout bounds each dispatch in
// addition to the context the engine passes.
func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type executeRequest struct {
	Action           string            `json:"action"`
	Args             map[string]string `json:"args,omitempty"`
	ApprovalImplicit bool              `json:"approvalImplicit"`
}

// Execute dispatches one action and returns the backend's result
func (e *HTTPExecutor) Execute(ctx context.Context, action string, args map[string]string, approvalImplicit bool) (*types.ExecutionResult, error) {
	body, err := json.Marshal(executeRequest{
		Action:           action,
		Args:             args,
		ApprovalImplicit: approvalImplicit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execution backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("execution backend returned %d for action %s", resp.StatusCode, action)
	}

	var result types.ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode execute response: %w", err)
	}
	return &result, nil
}
