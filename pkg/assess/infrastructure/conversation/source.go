// Package conversation implements the conversation source over the
// platform's HTTP search and transcript APIs.
package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/config"
	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

const moduleName = "conversation_source"

const maxResponseBytes = 16 << 20

// HTTPSource is the HTTP-backed conversation source.
type HTTPSource struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPSource creates a source from the conversation connection
// settings.
func NewHTTPSource(cfg config.ConversationConfig) *HTTPSource {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// searchRequest is the wire format of one search page request.
type searchRequest struct {
	AccountID string   `json:"accountId"`
	DateFrom  string   `json:"dateFrom"`
	DateTo    string   `json:"dateTo"`
	Status    []string `json:"status,omitempty"`
	SkillIDs  []string `json:"skillIds,omitempty"`
	AgentIDs  []string `json:"agentIds,omitempty"`
	Sort      string   `json:"sort,omitempty"`
	Offset    int      `json:"offset"`
	Limit     int      `json:"limit"`
}

// Search returns one page of conversations matching the query.
func (s *HTTPSource) Search(ctx context.Context, accountID string, query port.SearchQuery) (*port.ConversationPage, error) {
	req := searchRequest{
		AccountID: accountID,
		DateFrom:  query.DateFrom.UTC().Format(time.RFC3339),
		DateTo:    query.DateTo.UTC().Format(time.RFC3339),
		Status:    query.Status,
		SkillIDs:  query.SkillIDs,
		AgentIDs:  query.AgentIDs,
		Sort:      query.Sort,
		Offset:    query.Offset,
		Limit:     query.Limit,
	}

	var page port.ConversationPage
	if err := s.post(ctx, "/v1/conversations/search", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// transcriptsRequest is the wire format of a transcript batch request.
type transcriptsRequest struct {
	AccountID       string   `json:"accountId"`
	ConversationIDs []string `json:"conversationIds"`
}

// transcriptsResponse is the wire format of a transcript batch response.
type transcriptsResponse struct {
	Transcripts []port.Transcript `json:"transcripts"`
}

// GetByIDs returns transcripts for the given conversation ids.
func (s *HTTPSource) GetByIDs(ctx context.Context, accountID string, ids []string) ([]port.Transcript, error) {
	req := transcriptsRequest{AccountID: accountID, ConversationIDs: ids}
	var resp transcriptsResponse
	if err := s.post(ctx, "/v1/conversations/transcripts", req, &resp); err != nil {
		return nil, err
	}
	return resp.Transcripts, nil
}

// post sends one JSON request and decodes the JSON response into out.
func (s *HTTPSource) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to encode request for "+path, err, false, false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to build request for "+path, err, false, false)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	startedAt := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return exception.NewBatchError(moduleName, "request to "+path+" failed", err, false, true)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to read response from "+path, err, false, true)
	}
	logger.Debugf("Conversation API %s: HTTP %d in %s (%d bytes).",
		path, resp.StatusCode, time.Since(startedAt).Round(time.Millisecond), len(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return exception.NewBatchErrorf(moduleName,
			"%s returned HTTP %d", path, resp.StatusCode, false, retryable)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to decode response from %s", path), err, false, false)
	}
	return nil
}

var _ port.ConversationSource = (*HTTPSource)(nil)
