package llmclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/smartfill/internal/observability"
)

// Oracle result labels.
const (
	ResultOK    = "ok"
	ResultEmpty = "empty"
	ResultError = "error"
)

// Instrumented wraps a Client with request metrics and an optional per-call timeout.
type Instrumented struct {
	next    Client
	metrics *observability.Metrics
	timeout time.Duration
	logger  *zap.Logger
}

// NewInstrumented wraps next. A nil metrics disables recording; a zero
// timeout leaves the caller's context untouched.
func NewInstrumented(next Client, metrics *observability.Metrics, timeout time.Duration, logger *zap.Logger) (*Instrumented, error) {
	if next == nil {
		return nil, fmt.Errorf("an underlying client must be provided")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{
		next:    next,
		metrics: metrics,
		timeout: timeout,
		logger:  logger.Named("llm_client"),
	}, nil
}

// Generate forwards to the wrapped client.
func (c *Instrumented) Generate(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.next.Generate(ctx, req)
	elapsed := time.Since(start)

	result := ResultOK
	switch {
	case errors.Is(err, ErrEmptyResponse):
		result = ResultEmpty
	case err != nil:
		result = ResultError
	}
	c.metrics.ObserveOracle(result, elapsed)
	c.logger.Debug("Oracle request finished.",
		zap.String("result", result),
		zap.Duration("duration", elapsed),
		zap.Int("prompt_bytes", len(req.Prompt)))
	return text, err
}
