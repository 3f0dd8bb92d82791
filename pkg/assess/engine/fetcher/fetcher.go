// Package fetcher implements the conversation selection phase: a
// paginated search against the conversation source followed by
// prioritization, sampling and truncation to the configured bound.
package fetcher

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/engine/progress"
	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

const moduleName = "fetcher"

// Selector picks the bounded working set of conversation ids for a job.
type Selector struct {
	source   port.ConversationSource
	pageSize int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector paging through source with the given
// page size.
func NewSelector(source port.ConversationSource, pageSize int) *Selector {
	if pageSize < 1 {
		pageSize = 100
	}
	return &Selector{
		source:   source,
		pageSize: pageSize,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Select pages through the conversation search until a short page is
// returned or the sampled share of the accumulated ids reaches the cap,
// then orders, samples and truncates the id list. The total estimate in the job progress is
// refreshed after every page and set to the final count on return.
//
// Select checks ctx before issuing each page request and stops early
// without error when it is done; the pipeline decides how a cancelled
// fetch finalizes the job.
func (s *Selector) Select(ctx context.Context, job *model.BatchJob, tracker *progress.Tracker) ([]string, error) {
	cfg := job.Config
	rate := cfg.EffectiveSamplingRate()
	maxConversations := cfg.EffectiveMaxConversations()

	if cfg.SkipAlreadyAssessed {
		// Accepted in configuration but not enforced during selection; the
		// assessment history lives outside the conversation search index.
		logger.Warnf("Job %s: skipAlreadyAssessed is set but is not enforced by the selection phase.", job.ID)
	}

	sort := sortFor(job.ID, cfg.PriorityOrder)

	var ids []string
	offset := 0
	for {
		if ctx.Err() != nil {
			logger.Infof("Job %s: cancellation observed before page at offset %d; stopping fetch.", job.ID, offset)
			return ids, nil
		}

		page, err := s.source.Search(ctx, job.AccountID, port.SearchQuery{
			DateFrom: cfg.Filters.DateFrom,
			DateTo:   cfg.Filters.DateTo,
			Status:   cfg.Filters.Status,
			SkillIDs: cfg.Filters.SkillIDs,
			AgentIDs: cfg.Filters.AgentIDs,
			Sort:     sort,
			Offset:   offset,
			Limit:    s.pageSize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ids, nil
			}
			return nil, exception.NewBatchError(moduleName, "conversation search failed", err, false, true)
		}

		for _, record := range page.Records {
			ids = append(ids, record.ID)
		}

		estimate := ceilPercent(page.TotalCount, rate)
		if estimate > maxConversations {
			estimate = maxConversations
		}
		tracker.Apply(func(j *model.BatchJob) {
			j.Progress.TotalConversations = estimate
		})
		logger.Debugf("Job %s: fetched page at offset %d (%d records, total estimate %d).",
			job.ID, offset, len(page.Records), estimate)

		// Sampling applies to everything the filters matched, so paging must
		// continue until the sampled share of the accumulated ids covers the
		// cap, not until the raw accumulation does.
		if len(page.Records) < s.pageSize || ceilPercent(len(ids), rate) >= maxConversations {
			break
		}
		offset += s.pageSize
	}

	ids = s.applySelection(ids, cfg.PriorityOrder, rate, maxConversations)

	final := len(ids)
	tracker.Apply(func(j *model.BatchJob) {
		j.Progress.TotalConversations = final
	})
	logger.Infof("Job %s: selected %d conversations (sampling rate %d%%, cap %d).",
		job.ID, final, rate, maxConversations)
	return ids, nil
}

// applySelection orders the collected ids, samples the first
// ceil(n*rate/100), and truncates to the cap.
func (s *Selector) applySelection(ids []string, order model.PriorityOrder, rate, maxConversations int) []string {
	if order == model.PriorityRandom {
		s.mu.Lock()
		s.rng.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
		s.mu.Unlock()
	}

	sampled := ceilPercent(len(ids), rate)
	if sampled < len(ids) {
		ids = ids[:sampled]
	}
	if len(ids) > maxConversations {
		ids = ids[:maxConversations]
	}
	return ids
}

// sortFor maps the priority order to the source-side sort parameter.
func sortFor(jobID string, order model.PriorityOrder) string {
	switch order {
	case model.PriorityOldestFirst:
		return "start_time:asc"
	case model.PriorityMCSLowest:
		// Known limitation: the source exposes no MCS sort; selection falls
		// back to newest-first ordering.
		logger.Warnf("Job %s: priority order 'mcs_lowest' has no effect; using newest-first ordering.", jobID)
		return "start_time:desc"
	default:
		return "start_time:desc"
	}
}

// ceilPercent returns ceil(n * rate / 100).
func ceilPercent(n, rate int) int {
	return (n*rate + 99) / 100
}
