// Package egress wraps every LLM-backed planner call with the outbound
// controls a production deployment needs before it ever talks to a cloud
// provider: rate limiting, secret redaction, and an audit trail.
package egress

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/time/rate"
)

// redactionPattern pairs a compiled regex with a replacement label. Order
// matters: more specific patterns must precede less specific ones so a
// key isn't partially redacted by a broader pattern first.
type redactionPattern struct {
	pattern     *regexp.Regexp
	replacement string
}

var redactionPatterns = []redactionPattern{
	{regexp.MustCompile(`sk-ant-api03-[A-Za-z0-9_-]{20,}`), "[REDACTED:anthropic_key]"},
	{regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`), "[REDACTED:openai_key]"},
	{regexp.MustCompile(`AIza[A-Za-z0-9_-]{30,}`), "[REDACTED:gemini_key]"},
}

// Redact replaces any recognizable provider API key in s with a labeled
// placeholder, so planner prompts and responses are safe to pass to slog.
func Redact(s string) string {
	for _, p := range redactionPatterns {
		s = p.pattern.ReplaceAllString(s, p.replacement)
	}
	return s
}

// Credential holds a provider API key in locked, zeroed-on-close memory.
// The key never appears in a Go string after construction, only in the
// memguard-managed buffer.
type Credential struct {
	enclave *memguard.Enclave
}

// NewCredential locks apiKey into a memguard enclave. The caller's copy of
// apiKey is not cleared by this call; callers should avoid retaining it.
func NewCredential(apiKey string) *Credential {
	buf := memguard.NewBufferFromBytes([]byte(apiKey))
	return &Credential{enclave: buf.Seal()}
}

// Reveal decrypts the credential for the duration of use fn, then wipes
// the decrypted copy before returning.
func (c *Credential) Reveal(fn func(apiKey string) error) error {
	if c == nil || c.enclave == nil {
		return fmt.Errorf("egress: credential not configured")
	}
	lb, err := c.enclave.Open()
	if err != nil {
		return fmt.Errorf("egress: opening credential enclave: %w", err)
	}
	defer lb.Destroy()
	return fn(string(lb.Bytes()))
}

// Decision is one audited egress event: a single planner call to a named
// cloud provider.
type Decision struct {
	RequestID string
	Provider  string
	Model     string
}

// Auditor logs egress decisions via structured logging. Message bodies are
// never logged verbatim; only redacted text reaches the log.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor builds an Auditor. A nil logger falls back to slog.Default().
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{logger: logger, enabled: enabled}
}

func (a *Auditor) LogBefore(d Decision) {
	if !a.enabled {
		return
	}
	a.logger.Info("egress: dispatching planner call",
		slog.String("request_id", d.RequestID),
		slog.String("provider", d.Provider),
		slog.String("model", d.Model),
	)
}

func (a *Auditor) LogAfter(d Decision, duration time.Duration, err error) {
	if !a.enabled {
		return
	}
	attrs := []any{
		slog.String("request_id", d.RequestID),
		slog.String("provider", d.Provider),
		slog.String("model", d.Model),
		slog.Duration("duration", duration),
	}
	if err != nil {
		a.logger.Warn("egress: planner call failed", append(attrs, slog.String("error", Redact(err.Error())))...)
		return
	}
	a.logger.Info("egress: planner call completed", attrs...)
}

// Limiter bounds outbound request rate per provider using a token-bucket
// limiter per provider name. Providers with no configured limit (e.g. a
// local Ollama deployment) are never throttled.
type Limiter struct {
	limiters map[string]*rate.Limiter
}

// NewLimiter builds a Limiter from a per-provider requests-per-minute map.
// A provider absent from ratesPerMinute is never throttled.
func NewLimiter(ratesPerMinute map[string]int) *Limiter {
	limiters := make(map[string]*rate.Limiter, len(ratesPerMinute))
	for provider, perMinute := range ratesPerMinute {
		if perMinute <= 0 {
			continue
		}
		limiters[provider] = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	}
	return &Limiter{limiters: limiters}
}

// Wait blocks until provider is allowed to make a request, or ctx is done.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	lim, ok := l.limiters[provider]
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}

// Guard wraps a planner call with rate limiting and audit logging. Call()
// is the single entry point every LLM-backed planner backend routes
// through before issuing its HTTP request.
type Guard struct {
	Limiter *Limiter
	Auditor *Auditor
}

// NewGuard builds a Guard. Either field may be left zero-valued; a nil
// Limiter never throttles, and a disabled Auditor never logs.
func NewGuard(limiter *Limiter, auditor *Auditor) *Guard {
	if limiter == nil {
		limiter = &Limiter{limiters: map[string]*rate.Limiter{}}
	}
	if auditor == nil {
		auditor = NewAuditor(nil, false)
	}
	return &Guard{Limiter: limiter, Auditor: auditor}
}

// Call runs fn under rate limiting and audit logging for the given
// provider/model pair.
func (g *Guard) Call(ctx context.Context, d Decision, fn func(ctx context.Context) (string, error)) (string, error) {
	if err := g.Limiter.Wait(ctx, d.Provider); err != nil {
		return "", fmt.Errorf("egress: rate limit wait: %w", err)
	}

	g.Auditor.LogBefore(d)
	start := time.Now()
	out, err := fn(ctx)
	g.Auditor.LogAfter(d, time.Since(start), err)
	return out, err
}
