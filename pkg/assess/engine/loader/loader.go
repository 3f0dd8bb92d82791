// Package loader implements the transcript loading phase: batched
// retrieval of full transcripts for the selected conversation set. A
// failing chunk is logged and skipped; its ids are simply absent from
// downstream processing.
package loader

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
	"github.com/tigerroll/scorin/pkg/assess/engine/progress"
	"github.com/tigerroll/scorin/pkg/assess/support/util/logger"
)

// TranscriptLoader retrieves transcripts in fixed-size chunks.
type TranscriptLoader struct {
	source    port.ConversationSource
	chunkSize int
}

// NewTranscriptLoader creates a loader fetching chunkSize transcripts per
// call.
func NewTranscriptLoader(source port.ConversationSource, chunkSize int) *TranscriptLoader {
	if chunkSize < 1 {
		chunkSize = 100
	}
	return &TranscriptLoader{source: source, chunkSize: chunkSize}
}

// Load fetches transcripts for ids chunk by chunk. It returns the
// transcripts obtained keyed by conversation id, the ids with content in
// selection order, and the accumulated chunk errors. Chunk errors never
// abort the job; the caller logs them.
//
// Load checks ctx before each chunk and stops early when it is done.
// progress.fetchedConversations is updated to the running map size after
// every chunk.
func (l *TranscriptLoader) Load(ctx context.Context, job *model.BatchJob, ids []string, tracker *progress.Tracker) (map[string]port.Transcript, []string, error) {
	transcripts := make(map[string]port.Transcript, len(ids))
	var chunkErrs *multierror.Error

	for start := 0; start < len(ids); start += l.chunkSize {
		if ctx.Err() != nil {
			logger.Infof("Job %s: cancellation observed before transcript chunk at %d; stopping load.", job.ID, start)
			break
		}

		end := start + l.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		records, err := l.source.GetByIDs(ctx, job.AccountID, chunk)
		if err != nil {
			logger.Warnf("Job %s: transcript chunk [%d:%d] failed and was skipped: %v", job.ID, start, end, err)
			chunkErrs = multierror.Append(chunkErrs, err)
			continue
		}
		for _, t := range records {
			if t.ConversationID == "" {
				continue
			}
			transcripts[t.ConversationID] = t
		}

		fetched := len(transcripts)
		tracker.Apply(func(j *model.BatchJob) {
			j.Progress.FetchedConversations = fetched
		})
	}

	// Preserve selection order for the ids that produced content.
	ordered := make([]string, 0, len(transcripts))
	for _, id := range ids {
		if _, ok := transcripts[id]; ok {
			ordered = append(ordered, id)
		}
	}

	logger.Infof("Job %s: loaded %d of %d transcripts.", job.ID, len(ordered), len(ids))
	return transcripts, ordered, chunkErrs.ErrorOrNil()
}
