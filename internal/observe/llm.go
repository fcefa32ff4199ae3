package observe

import (
	"context"

	"github.com/MrWong99/captionforge/pkg/provider/llm"
)

// InstrumentLLM wraps provider so every completion records a request counter,
// an error counter on failure, and the reply's token usage under the given
// provider name. The wrapper is transparent otherwise: requests, responses,
// and errors pass through unchanged.
func InstrumentLLM(name string, provider llm.Provider, m *Metrics) llm.Provider {
	return &instrumentedLLM{name: name, provider: provider, metrics: m}
}

type instrumentedLLM struct {
	name     string
	provider llm.Provider
	metrics  *Metrics
}

func (p *instrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.provider.Complete(ctx, req)
	if err != nil {
		p.metrics.RecordProviderRequest(ctx, p.name, "llm", "error")
		p.metrics.RecordProviderError(ctx, p.name, "llm")
		return nil, err
	}
	p.metrics.RecordProviderRequest(ctx, p.name, "llm", "ok")
	p.metrics.RecordTokens(ctx, p.name, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

var _ llm.Provider = (*instrumentedLLM)(nil)
