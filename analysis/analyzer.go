package analysis

import (
	"context"
	"time"

	"github.com/191-iota/textreflex/config"
	"github.com/191-iota/textreflex/provider"
	"go.uber.org/zap"
)

// retryDelay is the fixed backoff before the single bounded retry.
const retryDelay = 500 * time.Millisecond

// rawLogLimit bounds how much raw provider output lands in logs when
// parsing fails. The raw body is logged for diagnosis, never returned
// to the client.
const rawLogLimit = 500

// Analyzer runs one analysis end to end: compose the prompt, call the
// upstream client, parse the reply. It holds no per-request state;
// concurrent calls are independent.
type Analyzer struct {
	composer *Composer
	client   provider.Client
	logger   *zap.Logger

	// maxRetries additional attempts after a transient failure, 0 or 1.
	maxRetries int
	backoff    time.Duration
}

// NewAnalyzer wires the composer and client together. cfg supplies the
// retry budget; the client already carries endpoint and timeout.
func NewAnalyzer(composer *Composer, client provider.Client, cfg config.ProviderConfig, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		composer:   composer,
		client:     client,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		backoff:    retryDelay,
	}
}

// Analyze validates and analyzes text. Validation failures return
// before any network activity. Transient upstream failures (timeout,
// 5xx) are retried at most maxRetries times with a fixed backoff;
// every other failure returns immediately. Errors are classified with
// the analysis and provider sentinels so callers can map them
// exhaustively.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Result, error) {
	prompt, err := a.composer.Compose(text)
	if err != nil {
		return nil, err
	}

	req := provider.Request{
		System: SystemInstruction,
		Prompt: prompt,
	}

	raw, err := a.callWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := ParseResult(raw)
	if err != nil {
		// The raw body is model prose; log a bounded snippet for
		// diagnosis but never surface it to the client.
		a.logger.Error("failed to parse provider response",
			zap.Error(err),
			zap.String("provider", a.client.Name()),
			zap.String("raw_snippet", truncate(raw, rawLogLimit)),
		)
		return nil, err
	}

	return result, nil
}

func (a *Analyzer) callWithRetry(ctx context.Context, req provider.Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			a.logger.Warn("retrying upstream call",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(a.backoff):
			case <-ctx.Done():
				return "", lastErr
			}
		}

		raw, err := a.client.Complete(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !provider.Retryable(err) || ctx.Err() != nil {
			return "", err
		}
	}

	return "", lastErr
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
