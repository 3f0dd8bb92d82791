// Package model defines the domain objects of the batch assessment
// engine: the BatchJob aggregate with its status state machine, the
// immutable job configuration, the mutable progress block, the bounded
// per-conversation result log, and the scoring framework definition.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a batch assessment job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusFetching   JobStatus = "fetching"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is one of the three terminal
// states. Terminal jobs are never mutated again.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// validTransitions is the job status DAG. Fatal failures may occur before
// the fetch phase starts, so queued -> failed is permitted.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:     {JobStatusFetching, JobStatusFailed, JobStatusCancelled},
	JobStatusFetching:   {JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range validTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// ItemStatus represents the outcome recorded for a single conversation.
type ItemStatus string

const (
	ItemStatusCompleted ItemStatus = "completed"
	ItemStatusFailed    ItemStatus = "failed"
	ItemStatusSkipped   ItemStatus = "skipped"
)

// PriorityOrder is the policy for ordering matched conversations before
// sampling.
type PriorityOrder string

const (
	PriorityNewestFirst PriorityOrder = "newest_first"
	PriorityOldestFirst PriorityOrder = "oldest_first"
	PriorityRandom      PriorityOrder = "random"
	// PriorityMCSLowest is accepted but currently has no observable effect
	// on selection; the fetcher falls back to newest-first ordering.
	PriorityMCSLowest PriorityOrder = "mcs_lowest"
)

// IsValid reports whether the priority order is a known policy. The empty
// string is valid and means newest-first.
func (p PriorityOrder) IsValid() bool {
	switch p {
	case "", PriorityNewestFirst, PriorityOldestFirst, PriorityRandom, PriorityMCSLowest:
		return true
	default:
		return false
	}
}

// Default selection bounds applied when the submitted configuration leaves
// them unset.
const (
	DefaultSamplingRate     = 100
	DefaultMaxConversations = 100
	// RecentResultsCap bounds the per-job result log. Oldest entries are
	// dropped, never the newest.
	RecentResultsCap = 100
)

// ConversationFilters restricts the conversation search. DateFrom and
// DateTo are required at job submission.
type ConversationFilters struct {
	DateFrom time.Time `json:"dateFrom"`
	DateTo   time.Time `json:"dateTo"`
	Status   []string  `json:"status,omitempty"`
	SkillIDs []string  `json:"skillIds,omitempty"`
	AgentIDs []string  `json:"agentIds,omitempty"`
}

// BatchJobConfig is the job configuration submitted at creation. It is
// immutable once the job starts and is returned verbatim on every status
// read; effective defaults are resolved at use time, never written back.
type BatchJobConfig struct {
	Name                string              `json:"name"`
	FrameworkID         string              `json:"frameworkId"`
	Filters             ConversationFilters `json:"filters"`
	SamplingRate        int                 `json:"samplingRate,omitempty"`
	MaxConversations    int                 `json:"maxConversations,omitempty"`
	PriorityOrder       PriorityOrder       `json:"priorityOrder,omitempty"`
	SkipAlreadyAssessed bool                `json:"skipAlreadyAssessed,omitempty"`
}

// EffectiveSamplingRate resolves the sampling rate, applying the default
// when unset.
func (c BatchJobConfig) EffectiveSamplingRate() int {
	if c.SamplingRate <= 0 || c.SamplingRate > 100 {
		return DefaultSamplingRate
	}
	return c.SamplingRate
}

// EffectiveMaxConversations resolves the selection cap, applying the
// default when unset.
func (c BatchJobConfig) EffectiveMaxConversations() int {
	if c.MaxConversations <= 0 {
		return DefaultMaxConversations
	}
	return c.MaxConversations
}

// Value implements driver.Valuer, storing the config as a JSON document.
func (c BatchJobConfig) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for the JSON document column.
func (c *BatchJobConfig) Scan(value interface{}) error {
	return scanJSON(value, c, "BatchJobConfig")
}

// BatchJobProgress is the progress block mutated only by the pipeline.
type BatchJobProgress struct {
	TotalConversations     int      `json:"totalConversations"`
	FetchedConversations   int      `json:"fetchedConversations"`
	ProcessedConversations int      `json:"processedConversations"`
	SuccessfulAssessments  int      `json:"successfulAssessments"`
	FailedAssessments      int      `json:"failedAssessments"`
	AverageScore           *float64 `json:"averageScore,omitempty"`
	CurrentConversationID  string   `json:"currentConversationId,omitempty"`
}

// Value implements driver.Valuer, storing progress as a JSON document.
func (p BatchJobProgress) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for the JSON document column.
func (p *BatchJobProgress) Scan(value interface{}) error {
	return scanJSON(value, p, "BatchJobProgress")
}

// AssessmentItem is the immutable record of one processed conversation.
type AssessmentItem struct {
	ConversationID string     `json:"conversationId"`
	Status         ItemStatus `json:"status"`
	Score          *float64   `json:"score,omitempty"`
	Passed         *bool      `json:"passed,omitempty"`
	Error          string     `json:"error,omitempty"`
	ProcessedAt    time.Time  `json:"processedAt"`
	// AssessmentID references the persisted detailed assessment, present
	// only for successfully scored conversations.
	AssessmentID string `json:"assessmentId,omitempty"`
}

// AssessmentItemList is the bounded, newest-first per-job result log.
type AssessmentItemList []AssessmentItem

// Value implements driver.Valuer, storing the list as a JSON array.
func (l AssessmentItemList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for the JSON array column.
func (l *AssessmentItemList) Scan(value interface{}) error {
	if value == nil {
		*l = make(AssessmentItemList, 0)
		return nil
	}
	return scanJSON(value, l, "AssessmentItemList")
}

// BatchJob is the job aggregate. It is owned exclusively by the job
// manager and the pipeline's progress tracker for writes; the polling API
// only ever sees repository snapshots.
type BatchJob struct {
	ID            string
	AccountID     string
	Status        JobStatus
	Config        BatchJobConfig
	Progress      BatchJobProgress
	RecentResults AssessmentItemList
	ErrorMessage  string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// NewBatchJob creates a queued job for the given account and config.
func NewBatchJob(accountID string, config BatchJobConfig, createdBy string) *BatchJob {
	now := time.Now()
	return &BatchJob{
		ID:            uuid.New().String(),
		AccountID:     accountID,
		Status:        JobStatusQueued,
		Config:        config,
		RecentResults: make(AssessmentItemList, 0),
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// TransitionTo moves the job to the next status, validating the move
// against the status DAG and stamping CompletedAt on terminal states.
func (j *BatchJob) TransitionTo(next JobStatus) error {
	if !j.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid state transition from %s to %s for job %s", j.Status, next, j.ID)
	}
	j.Status = next
	j.UpdatedAt = time.Now()
	if next.IsTerminal() {
		now := j.UpdatedAt
		j.CompletedAt = &now
	}
	return nil
}

// MarkFailed forces the job into the failed terminal state with the given
// message. Used for fatal pipeline errors regardless of the current phase.
func (j *BatchJob) MarkFailed(message string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = message
	j.UpdatedAt = time.Now()
	now := j.UpdatedAt
	j.CompletedAt = &now
}

// MarkCancelled forces the job into the cancelled terminal state.
func (j *BatchJob) MarkCancelled() {
	j.Status = JobStatusCancelled
	j.UpdatedAt = time.Now()
	now := j.UpdatedAt
	j.CompletedAt = &now
}

// RecordResult prepends an assessment item to the result log, trims the
// log to RecentResultsCap, and updates the progress counters. For
// successful items the running average score is updated incrementally.
func (j *BatchJob) RecordResult(item AssessmentItem) {
	j.RecentResults = append(AssessmentItemList{item}, j.RecentResults...)
	if len(j.RecentResults) > RecentResultsCap {
		j.RecentResults = j.RecentResults[:RecentResultsCap]
	}

	j.Progress.ProcessedConversations++
	switch item.Status {
	case ItemStatusCompleted:
		prev := j.Progress.SuccessfulAssessments
		j.Progress.SuccessfulAssessments++
		if item.Score != nil {
			avg := 0.0
			if j.Progress.AverageScore != nil {
				avg = *j.Progress.AverageScore
			}
			next := (avg*float64(prev) + *item.Score) / float64(prev+1)
			j.Progress.AverageScore = &next
		}
	case ItemStatusFailed:
		j.Progress.FailedAssessments++
	}
	j.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the job, preventing callers from mutating
// repository-held state through a returned snapshot.
func (j *BatchJob) Clone() *BatchJob {
	clone := *j
	clone.Config.Filters.Status = append([]string(nil), j.Config.Filters.Status...)
	clone.Config.Filters.SkillIDs = append([]string(nil), j.Config.Filters.SkillIDs...)
	clone.Config.Filters.AgentIDs = append([]string(nil), j.Config.Filters.AgentIDs...)
	clone.RecentResults = append(AssessmentItemList(nil), j.RecentResults...)
	if j.Progress.AverageScore != nil {
		avg := *j.Progress.AverageScore
		clone.Progress.AverageScore = &avg
	}
	if j.CompletedAt != nil {
		completed := *j.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}

// scanJSON decodes a TEXT/BLOB database value into dst.
func scanJSON(value interface{}, dst interface{}, what string) error {
	if value == nil {
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for %s: %T", what, value)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s JSON: %w", what, err)
	}
	return nil
}
