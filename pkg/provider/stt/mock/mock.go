// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/captionforge/pkg/provider/stt"
	"github.com/MrWong99/captionforge/pkg/segment"
)

// Provider is a mock implementation of stt.Provider.
// Set Collection and Err before use; Calls records every invocation.
type Provider struct {
	mu sync.Mutex

	// Collection is returned by Transcribe (cloned per call, so tests can
	// mutate results without cross-talk).
	Collection *segment.Collection

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every request passed to Transcribe, in order.
	Calls []stt.Request
}

// Transcribe records the call and returns a clone of Collection, or Err.
func (p *Provider) Transcribe(_ context.Context, req stt.Request) (*segment.Collection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Collection == nil {
		return segment.NewCollection(req.Source, req.Language, 0, nil), nil
	}
	return p.Collection.Clone(), nil
}

var _ stt.Provider = (*Provider)(nil)
