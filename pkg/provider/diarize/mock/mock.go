// Package mock provides a test double for the diarize.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/captionforge/pkg/provider/diarize"
	"github.com/MrWong99/captionforge/pkg/segment"
)

// Provider is a mock implementation of diarize.Provider.
// Set Intervals and Err before use; Calls records every invocation.
type Provider struct {
	mu sync.Mutex

	// Intervals is returned by Diarize.
	Intervals []segment.SpeakerInterval

	// Err, if non-nil, is returned as the error from Diarize.
	Err error

	// Calls records every request passed to Diarize, in order.
	Calls []diarize.Request
}

// Diarize records the call and returns Intervals, Err.
func (p *Provider) Diarize(_ context.Context, req diarize.Request) ([]segment.SpeakerInterval, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]segment.SpeakerInterval, len(p.Intervals))
	copy(out, p.Intervals)
	return out, nil
}

var _ diarize.Provider = (*Provider)(nil)
