package fixflow

import (
	"context"
	"sync"

	llm "github.com/randalmurphal/llmkit/claude"
)

// UsageAccumulator collects token usage across every model call in a run.
// Collaborator interfaces return domain results, not raw completions, so
// usage is captured at the client layer instead.
type UsageAccumulator struct {
	mu        sync.Mutex
	tokensIn  int
	tokensOut int
	calls     int
}

// NewUsageAccumulator creates an empty accumulator.
func NewUsageAccumulator() *UsageAccumulator {
	return &UsageAccumulator{}
}

// Add records one completion's token counts.
func (u *UsageAccumulator) Add(in, out int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tokensIn += in
	u.tokensOut += out
	u.calls++
}

// Totals returns accumulated input tokens, output tokens, and call count.
func (u *UsageAccumulator) Totals() (in, out, calls int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokensIn, u.tokensOut, u.calls
}

// Reset clears the accumulator.
func (u *UsageAccumulator) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tokensIn, u.tokensOut, u.calls = 0, 0, 0
}

// meteredClient wraps an llm.Client and records usage from each completion.
type meteredClient struct {
	llm.Client
	usage *UsageAccumulator
}

// MeterClient wraps client so every successful completion's token usage is
// recorded in usage. A nil usage returns client unchanged.
func MeterClient(client llm.Client, usage *UsageAccumulator) llm.Client {
	if usage == nil || client == nil {
		return client
	}
	return &meteredClient{Client: client, usage: usage}
}

func (m *meteredClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := m.Client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	m.usage.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return resp, nil
}
