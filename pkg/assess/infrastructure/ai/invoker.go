// Package ai implements the AI flow invoker over the provider's HTTP
// API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

const moduleName = "ai_invoker"

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 4 << 20

// HTTPInvoker invokes AI flows through the provider's HTTP endpoint.
type HTTPInvoker struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPInvoker creates an invoker from the AI connection settings.
func NewHTTPInvoker(cfg config.AIConfig) *HTTPInvoker {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPInvoker{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// invokeRequest is the wire format of a flow invocation.
type invokeRequest struct {
	Input port.AIInput `json:"input"`
}

// Invoke POSTs the input to the flow and returns the provider response.
// HTTP 429 and 5xx responses are flagged retryable so the per-invocation
// retry policy can act on them.
func (i *HTTPInvoker) Invoke(ctx context.Context, flowID string, input port.AIInput) (*port.AIResponse, error) {
	body, err := json.Marshal(invokeRequest{Input: input})
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to encode invocation request", err, false, false)
	}

	url := fmt.Sprintf("%s/v1/flows/%s/invoke", i.endpoint, flowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to build invocation request", err, false, false)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+i.apiKey)
	req.Header.Set("X-Request-Id", requestID)

	startedAt := time.Now()
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "flow invocation failed", err, false, true)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to read flow response", err, false, true)
	}
	logger.Debugf("Flow %s invocation %s: HTTP %d in %s (%d bytes).",
		flowID, requestID, resp.StatusCode, time.Since(startedAt).Round(time.Millisecond), len(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, exception.NewBatchErrorf(moduleName,
			"flow %s returned HTTP %d", flowID, resp.StatusCode, false, retryable)
	}

	// The payload stays nil when the body is not a JSON object; the
	// analyzer falls back to the raw bytes.
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload = nil
	}
	return &port.AIResponse{Payload: payload, Raw: raw}, nil
}

var _ port.AIInvoker = (*HTTPInvoker)(nil)
