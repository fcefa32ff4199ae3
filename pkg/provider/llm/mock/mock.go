// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the pipeline stages send correct
// CompletionRequests and to feed controlled responses without a live LLM
// backend. All fields are safe to set before calling any method; mutating
// them during a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    Responses: []llm.CompletionResponse{{Content: "Hello!"}},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/captionforge/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider. Exactly one of
// RespondFunc or Responses should be set; Err wins over both.
type Provider struct {
	mu   sync.Mutex
	next int

	// RespondFunc, if non-nil, computes the response for each call. It runs
	// under the mock's lock, so it must not call back into the Provider.
	RespondFunc func(req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// Responses is consumed one per Complete call, in call order. Running
	// past the end is an error, so tests notice unexpected extra calls.
	Responses []llm.CompletionResponse

	// Err, if non-nil, is returned as the error from Complete.
	Err error

	// Calls records every invocation of Complete in order.
	Calls []CompleteCall
}

// Complete records the call and returns the next configured response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, CompleteCall{Ctx: ctx, Req: req})

	if p.Err != nil {
		return nil, p.Err
	}
	if p.RespondFunc != nil {
		return p.RespondFunc(req)
	}
	if p.next >= len(p.Responses) {
		return nil, fmt.Errorf("mock: no response configured for call %d", p.next+1)
	}
	resp := p.Responses[p.next]
	p.next++
	return &resp, nil
}

// Reset clears all recorded calls and rewinds the response queue. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
	p.next = 0
}

var _ llm.Provider = (*Provider)(nil)
