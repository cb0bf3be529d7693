package identify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPIdentifier posts the image to a remote recognition endpoint. It
// makes one request per call; retries belong to the Pipeline.
type HTTPIdentifier struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

type identifyRequest struct {
	Image string `json:"image"`
}

// NewHTTPIdentifier throttles outgoing requests to rps per second. A
// non-positive rps disables throttling.
func NewHTTPIdentifier(endpoint string, rps float64) *HTTPIdentifier {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &HTTPIdentifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(limit, 1),
	}
}

func (h *HTTPIdentifier) Identify(ctx context.Context, image string) (FishResult, error) {
	if image == "" {
		return FishResult{}, ErrNoImage
	}
	if err := h.limiter.Wait(ctx); err != nil {
		return FishResult{}, fmt.Errorf("identify: rate limiter wait failed: %w", err)
	}

	body, err := json.Marshal(identifyRequest{Image: image})
	if err != nil {
		return FishResult{}, fmt.Errorf("identify: failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return FishResult{}, fmt.Errorf("identify: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return FishResult{}, fmt.Errorf("identify: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return FishResult{}, fmt.Errorf("identify: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out FishResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return FishResult{}, fmt.Errorf("identify: failed to decode response: %w", err)
	}
	if out.Species == "" {
		return FishResult{}, fmt.Errorf("identify: response has no species")
	}
	if out.Confidence < 0 || out.Confidence > 100 {
		return FishResult{}, fmt.Errorf("identify: confidence %d out of range", out.Confidence)
	}
	return out, nil
}
