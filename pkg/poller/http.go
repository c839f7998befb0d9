package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// HTTPSource reads fleet snapshots from the cluster status endpoint:
// GET {base}/v1/targets for the fleet, GET {base}/v1/targets/{id} for a
// single target.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source. The timeout bounds each request.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Snapshots returns the current view of every target in the fleet
func (s *HTTPSource) Snapshots(ctx context.Context) ([]types.TargetSnapshot, error) {
	var snapshots []types.TargetSnapshot
	if err := s.get(ctx, s.baseURL+"/v1/targets", &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Snapshot returns a fresh view of one target, used for post-remediation
// verification
func (s *HTTPSource) Snapshot(ctx context.Context, targetID string) (*types.TargetSnapshot, error) {
	var snapshot types.TargetSnapshot
	if err := s.get(ctx, s.baseURL+"/v1/targets/"+targetID, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *HTTPSource) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("status source unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status source returned %d for %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode status response: %w", err)
	}
	return nil
}
