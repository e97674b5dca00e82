// Package eligibility calls the practice-management server's bulk-move
// eligibility endpoint.
package eligibility

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

	"github.com/rivergate/tally/internal/app"
	"github.com/rivergate/tally/internal/domain"
)

// DefaultTimeout defines a package constant value.
const DefaultTimeout = 10 * time.Second

// Client represents client data used by this package.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new value for this package.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("eligibility base URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// requestPayload is the wire form of one eligibility check. The server keys
// its rule on project_type_id and target_stage; the IDs and origin stage are
// carried for auditing.
type requestPayload struct {
	ProjectTypeID string   `json:"project_type_id"`
	TargetStage   string   `json:"target_stage"`
	ProjectIDs    []string `json:"project_ids"`
	FromStage     string   `json:"from_stage"`
}

// responsePayload is the wire form of the server's answer.
type responsePayload struct {
	Eligible     bool `json:"eligible"`
	ValidReasons []struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	} `json:"valid_reasons"`
	Restrictions []string `json:"restrictions"`
}

// CheckBulkEligibility implements app.EligibilityChecker.
func (c *Client) CheckBulkEligibility(ctx context.Context, req app.EligibilityRequest) (domain.EligibilityResult, error) {
	body, err := json.Marshal(requestPayload{
		ProjectTypeID: req.ProjectTypeID,
		TargetStage:   req.ToStage,
		ProjectIDs:    req.ProjectIDs,
		FromStage:     req.FromStage,
	})
	if err != nil {
		return domain.EligibilityResult{}, fmt.Errorf("encode eligibility request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/bulk-moves/eligibility", bytes.NewReader(body))
	if err != nil {
		return domain.EligibilityResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.EligibilityResult{}, fmt.Errorf("eligibility check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.EligibilityResult{}, fmt.Errorf("eligibility check: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload responsePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.EligibilityResult{}, fmt.Errorf("decode eligibility response: %w", err)
	}

	result := domain.EligibilityResult{Eligible: payload.Eligible}
	if payload.Eligible {
		result.ValidReasons = make([]domain.ValidReason, 0, len(payload.ValidReasons))
		for _, reason := range payload.ValidReasons {
			result.ValidReasons = append(result.ValidReasons, domain.ValidReason{
				ID:     reason.ID,
				Reason: reason.Reason,
			})
		}
	} else {
		result.Restrictions = append([]string(nil), payload.Restrictions...)
	}
	return result, nil
}
