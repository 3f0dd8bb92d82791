// Package cancellation implements the cooperative cancellation mechanism
// for running pipelines. The job manager sets a per-job token; pipeline
// phases check it at phase boundaries and before dispatching new work.
// Work already dispatched when the token fires runs to completion.
package cancellation

import (
	"context"
	"sync"
)

// Token is the per-job cancellation handle. It is created when the
// pipeline is detached and passed by value into every phase.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// newToken derives a token from the given parent context.
func newToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Context returns the context that is cancelled when the token fires.
// Blocking calls inside the pipeline should be issued with this context.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Cancel fires the token. Safe to call multiple times.
func (t *Token) Cancel() {
	t.cancel()
}

// Cancelled reports whether the token has fired.
func (t *Token) Cancelled() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// Registry maps running job ids to their cancellation tokens. Entries are
// registered by the job manager at submission and removed by the pipeline
// on exit so the registry does not grow over the life of the process.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]*Token)}
}

// Register creates and stores a token for the job, derived from parent.
// Registering a job id twice replaces the previous token.
func (r *Registry) Register(parent context.Context, jobID string) *Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := newToken(parent)
	r.tokens[jobID] = token
	return token
}

// Cancel fires the token for the job if one is registered. It returns
// whether a token was found.
func (r *Registry) Cancel(jobID string) bool {
	r.mu.Lock()
	token, ok := r.tokens[jobID]
	r.mu.Unlock()
	if ok {
		token.Cancel()
	}
	return ok
}

// Remove releases the token for the job. The token's context is cancelled
// on removal to free any derived resources.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	token, ok := r.tokens[jobID]
	if ok {
		delete(r.tokens, jobID)
	}
	r.mu.Unlock()
	if ok {
		token.cancel()
	}
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
