package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/191-iota/textreflex/config"
	"go.uber.org/zap"
)

// Pollinations speaks to a Pollinations-style text endpoint: an OpenAI
// message payload goes out, a raw text body comes back. There is no
// response envelope to unwrap; the body is the completion.
type Pollinations struct {
	endpoint string
	apiKey   string
	model    string
	logger   *zap.Logger
	http     *http.Client
}

// Fixed generation parameters. The seed keeps the provider as
// deterministic as it is willing to be for identical prompts.
const (
	completionSeed = 42
	// logSnippetLen bounds how much raw provider output lands in logs.
	logSnippetLen = 500
)

// NewPollinations builds a client from the immutable provider config.
// The http.Client timeout backstops the per-request context deadline.
func NewPollinations(cfg config.ProviderConfig, logger *zap.Logger) *Pollinations {
	return &Pollinations{
		endpoint: strings.TrimRight(cfg.Endpoint, "/") + "/",
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		logger:   logger,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements Client.
func (p *Pollinations) Name() string {
	return "pollinations"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Messages []chatMessage `json:"messages"`
	Model    string        `json:"model"`
	JSONMode bool          `json:"jsonMode"`
	Seed     int           `json:"seed"`
}

// Complete implements Client. It performs exactly one HTTP POST; the
// response body is drained and closed on every exit path so the
// connection is released even on errors.
func (p *Pollinations) Complete(ctx context.Context, req Request) (string, error) {
	body := completionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Model:    p.model,
		JSONMode: true,
		Seed:     completionSeed,
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.http.Do(httpReq)
	if err != nil {
		return "", p.classifyTransportError(err, time.Since(start))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		// A timeout can fire mid-body; classify it like any other
		// transport failure so late timeouts still map to ErrTimeout.
		return "", p.classifyTransportError(fmt.Errorf("reading response body: %w", err), time.Since(start))
	}

	p.logger.Debug("upstream call completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.Int("body_bytes", len(raw)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("upstream returned non-2xx status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", snippet(string(raw))),
		)
		return "", &StatusError{Status: resp.StatusCode}
	}

	return string(raw), nil
}

// classifyTransportError reduces transport failures to the package
// sentinels. Context deadline and net timeouts map to ErrTimeout;
// everything else is unavailability.
func (p *Pollinations) classifyTransportError(err error, elapsed time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		p.logger.Warn("upstream call timed out", zap.Duration("elapsed", elapsed))
		return fmt.Errorf("%w after %s", ErrTimeout, elapsed.Round(time.Millisecond))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		p.logger.Warn("upstream call timed out", zap.Duration("elapsed", elapsed))
		return fmt.Errorf("%w after %s", ErrTimeout, elapsed.Round(time.Millisecond))
	}
	if errors.Is(err, context.Canceled) {
		// Client went away; propagate cancellation untouched.
		return err
	}
	p.logger.Warn("upstream call failed", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// snippet truncates raw provider output for logging.
func snippet(s string) string {
	if len(s) > logSnippetLen {
		return s[:logSnippetLen]
	}
	return s
}
