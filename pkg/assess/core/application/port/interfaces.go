// Package port declares the contracts of the external collaborators the
// batch assessment engine depends on: the conversation platform, the
// framework and account-settings stores, and the AI invocation service.
// Implementations live under infrastructure; tests substitute fakes.
package port

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
)

// ErrFrameworkNotFound is returned by FrameworkStore when the framework
// does not exist.
var ErrFrameworkNotFound = errors.New("framework not found")

// ErrSettingNotFound is returned by SettingsStore when the named setting
// is absent for the account.
var ErrSettingNotFound = errors.New("account setting not found")

// SearchQuery is one page of a filtered conversation search.
type SearchQuery struct {
	DateFrom time.Time
	DateTo   time.Time
	Status   []string
	SkillIDs []string
	AgentIDs []string
	// Sort is the source-side ordering, e.g. "start_time:desc".
	Sort   string
	Offset int
	Limit  int
}

// ConversationRecord is a single search hit. Only the ID is required by
// the selection phase.
type ConversationRecord struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Status    string    `json:"status,omitempty"`
	SkillID   string    `json:"skillId,omitempty"`
	AgentID   string    `json:"agentId,omitempty"`
}

// ConversationPage is the result of one search call.
type ConversationPage struct {
	Records []ConversationRecord `json:"records"`
	// TotalCount is the source-reported number of matches across all pages.
	TotalCount int `json:"totalCount"`
}

// TranscriptMessage is one message line of a conversation transcript.
type TranscriptMessage struct {
	Sender string `json:"sender"`
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	SentAt string `json:"sentAt,omitempty"`
}

// Transcript is the full message log of one conversation.
type Transcript struct {
	ConversationID string              `json:"conversationId"`
	Messages       []TranscriptMessage `json:"messages"`
}

// ConversationSource is the paginated search and transcript retrieval
// contract of the conversation platform.
type ConversationSource interface {
	// Search returns one page of conversations matching the query.
	Search(ctx context.Context, accountID string, query SearchQuery) (*ConversationPage, error)
	// GetByIDs returns transcripts for the given conversation ids. Partial
	// results on partial failure are acceptable.
	GetByIDs(ctx context.Context, accountID string, ids []string) ([]Transcript, error)
}

// FrameworkStore loads read-only scoring framework definitions.
type FrameworkStore interface {
	GetByID(ctx context.Context, frameworkID string) (*model.Framework, error)
}

// SettingsStore reads named per-account settings.
type SettingsStore interface {
	// GetSetting returns the setting value, or ErrSettingNotFound when the
	// account has no value for the name.
	GetSetting(ctx context.Context, accountID, name string) (string, error)
}

// AIInput is the input document passed to an AI flow invocation.
type AIInput struct {
	Text string `json:"text"`
}

// AIResponse is the opaque provider response. Payload holds the decoded
// JSON body when the provider returned one; Raw always holds the exact
// response bytes.
type AIResponse struct {
	Payload map[string]interface{}
	Raw     []byte
}

// AIInvoker invokes a configured AI flow with a prompt and returns the
// provider response. The response text is expected, but not guaranteed,
// to contain a JSON object.
type AIInvoker interface {
	Invoke(ctx context.Context, flowID string, input AIInput) (*AIResponse, error)
}

// JobExecutionListener observes job lifecycle boundaries.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, job *model.BatchJob)
	AfterJob(ctx context.Context, job *model.BatchJob)
}

// PhaseExecutionListener observes pipeline phase boundaries within a job.
type PhaseExecutionListener interface {
	BeforePhase(ctx context.Context, job *model.BatchJob, phase string)
	AfterPhase(ctx context.Context, job *model.BatchJob, phase string)
}
