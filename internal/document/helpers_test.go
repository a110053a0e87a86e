package document

import (
	"context"
	"sync"
	"time"

	"studybuddy/internal/ai"
	"studybuddy/internal/retry"
)

type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	failAt  int
	presets []ai.Preset
	prompts []string
	sizes   []int
}

func (f *fakeLLM) Complete(_ context.Context, preset ai.Preset, messages []ai.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presets = append(f.presets, preset)
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	f.sizes = append(f.sizes, len(messages))
	if f.err != nil && (f.failAt == 0 || len(f.presets) >= f.failAt) {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "ok", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.presets)
}

func newTestPipeline(llm ai.Completer) *Pipeline {
	policy := retry.LLM
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	return NewPipeline(llm, nil, WithRetryPolicy(policy))
}
