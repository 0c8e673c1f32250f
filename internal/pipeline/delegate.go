package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/stages"
)

// Delegate performs one stage's text-understanding task. It returns free-form
// text that may or may not contain JSON.
type Delegate interface {
	Invoke(ctx context.Context, stage stages.Stage, instruction string) (string, error)
}

// DelegateFunc adapts a function to the Delegate interface.
type DelegateFunc func(ctx context.Context, stage stages.Stage, instruction string) (string, error)

// Invoke calls f.
func (f DelegateFunc) Invoke(ctx context.Context, stage stages.Stage, instruction string) (string, error) {
	return f(ctx, stage, instruction)
}

// LLMDelegate runs stages against an llm.Client, retrying transient failures.
// Each attempt gets its own timeout.
type LLMDelegate struct {
	client         llm.Client
	retry          llm.RetryConfig
	attemptTimeout time.Duration
	logger         *zap.Logger
}

// NewLLMDelegate creates a delegate backed by client. A zero timeout disables the per-attempt deadline.
func NewLLMDelegate(client llm.Client, retry llm.RetryConfig, attemptTimeout time.Duration, log *zap.Logger) *LLMDelegate {
	return &LLMDelegate{
		client:         client,
		retry:          retry,
		attemptTimeout: attemptTimeout,
		logger:         logger.OrNop(log),
	}
}

// Invoke sends the instruction using the stage's model tier. An empty provider
// response is returned as empty text so the run degrades to defaults.
func (d *LLMDelegate) Invoke(ctx context.Context, stage stages.Stage, instruction string) (string, error) {
	log := d.logger.With(
		zap.String(logger.FieldStage, string(stage.ID)),
		zap.String(logger.FieldModel, d.client.GetModel(stage.Tier)),
	)

	text, err := llm.RetryDo(ctx, d.retry, log, func(ctx context.Context) (string, error) {
		if d.attemptTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.attemptTimeout)
			defer cancel()
		}
		return d.client.GenerateContent(ctx, instruction, stage.Tier)
	})
	if errors.Is(err, llm.ErrEmptyResponse) {
		log.Warn("delegate returned no text")
		return "", nil
	}
	return text, err
}
