package document

import (
	"context"
	"errors"

	"studybuddy/internal/ai"
	"studybuddy/internal/pkg/logger"
	"studybuddy/internal/pkg/reqctx"
	"studybuddy/internal/retry"
)

var errNoCompleter = errors.New("connection: no llm client configured")

// Pipeline answers, summarizes and suggests questions over document text.
type Pipeline struct {
	llm    ai.Completer
	policy retry.Policy
	log    *logger.Logger
}

type Option func(*Pipeline)

func WithRetryPolicy(p retry.Policy) Option {
	return func(pl *Pipeline) { pl.policy = p }
}

func NewPipeline(llm ai.Completer, log *logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pipeline{
		llm:    llm,
		policy: retry.LLM,
		log:    log.With("component", "document.Pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) complete(ctx context.Context, preset ai.Preset, messages []ai.ChatMessage) (string, error) {
	if p.llm == nil {
		return "", errNoCompleter
	}
	return retry.Do(ctx, p.policy, func(ctx context.Context) (string, error) {
		return p.llm.Complete(ctx, preset, messages)
	})
}

func (p *Pipeline) logFailure(ctx context.Context, op string, err error, kv ...interface{}) {
	fields := append([]interface{}{"error_id", reqctx.RequestID(ctx), "op", op, "error", err}, kv...)
	p.log.Warn("llm call failed, using fallback", fields...)
}
