package analysis

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Input validation sentinels. Both are caught before any network
// activity and surface as validation errors at the HTTP boundary.
var (
	ErrEmptyText   = errors.New("text is empty")
	ErrTextTooLong = errors.New("text exceeds the length limit")
)

// SystemInstruction pins the provider to raw JSON output. Sent as the
// system message on every call.
const SystemInstruction = "You must output ONLY valid JSON. Do not include any markdown code fences or explanatory text, just the raw JSON object."

// promptTemplate is the fixed analysis instruction. It names the
// strategy vocabulary and severity scale and spells out the exact JSON
// schema the parser expects, to minimize downstream parsing ambiguity.
const promptTemplate = `Analyze the following text for emotional-manipulation strategies:
- Identify each strategy (fear, urgency, scapegoating, polarization, tone).
- Rate each on scale <none/low/mid/high/very_high: why>.
- Provide the exact character or sentence ranges for each rating.
- Call out any false or misleading ("BS") claims with brief reasoning and ranges.
- List the top three most manipulative passages under "top_passages".
Be ultra-concise. Output ONLY valid JSON matching this schema exactly:

{
  "ratings": { /* strategy: "level: short label" */ },
  "passages": { /* strategy: "start-end" */ },
  "bs_claims": [ { "claim": "quoted claim", "reasoning": "why it misleads", "passage": "start-end" } ],
  "top_passages": ["start-end", ...],
  "conclusion": "cold logic meta analysis about the ulterior manipulative motive OF THE TEXT: what does the text as a whole try to achieve? how does it try to change the perception of the reader? should be meta motive analysis not a rhetorical analysis"
}

Text to analyze:
{{.Text}}`

// Composer builds the analysis prompt from user text and the fixed
// instruction template. It is a pure function of its input: the same
// text always yields the same prompt.
type Composer struct {
	maxChars  int
	maxTokens int
	counter   *TokenCounter
	tmpl      *template.Template
	logger    *zap.Logger
}

// NewComposer creates a composer bounded to maxChars of input text.
// maxTokens optionally bounds the composed prompt in tokens; zero or a
// nil counter disables the check. The template is parsed at init to
// fail fast.
func NewComposer(maxChars, maxTokens int, counter *TokenCounter, logger *zap.Logger) (*Composer, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max chars must be positive: %d", maxChars)
	}

	tmpl, err := template.New("analysis").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	return &Composer{
		maxChars:  maxChars,
		maxTokens: maxTokens,
		counter:   counter,
		tmpl:      tmpl,
		logger:    logger,
	}, nil
}

// Compose validates text and returns the full analysis prompt with the
// trimmed text embedded verbatim exactly once. Empty or over-length
// input is rejected here, before any network call.
func (c *Composer) Compose(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyText
	}
	// The bound is in characters, not bytes; multibyte text must not
	// lose budget to its encoding.
	if n := utf8.RuneCountInString(trimmed); n > c.maxChars {
		return "", fmt.Errorf("%w: %d chars, limit %d", ErrTextTooLong, n, c.maxChars)
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, struct{ Text string }{Text: trimmed}); err != nil {
		return "", fmt.Errorf("prompt template execution failed: %w", err)
	}
	prompt := buf.String()

	if c.counter != nil {
		tokens := c.counter.Count(prompt)
		c.logger.Debug("composed analysis prompt",
			zap.Int("text_chars", len(trimmed)),
			zap.Int("prompt_tokens", tokens),
		)
		if c.maxTokens > 0 && tokens > c.maxTokens {
			return "", fmt.Errorf("%w: %d tokens, limit %d", ErrTextTooLong, tokens, c.maxTokens)
		}
	}

	return prompt, nil
}
