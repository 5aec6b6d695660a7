package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Kind buckets a failure for retry/fallback policy decisions.
type Kind string

const (
	KindAuth        Kind = "auth"         // never retried, never falls back
	KindNetwork     Kind = "network"      // retried with backoff
	KindTimeout     Kind = "timeout"      // retried with backoff
	KindRateLimit   Kind = "rate_limit"   // upstream 429/quota, retried with backoff
	KindLocalBudget Kind = "local_budget" // our own limiter said no, retried with backoff
	KindParse       Kind = "parse"        // not retried, falls back immediately
	KindCapability  Kind = "capability"   // feature disabled, falls back immediately
	KindUnknown     Kind = "unknown"      // retried with backoff
)

// classified wraps an error with an explicit kind so callers can tag
// failures at the source instead of relying on string sniffing.
type classified struct {
	kind Kind
	err  error
}

func (c *classified) Error() string { return c.err.Error() }
func (c *classified) Unwrap() error { return c.err }

// WithKind tags err with an explicit failure kind.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &classified{kind: kind, err: err}
}

// Classify determines the failure kind of err. Explicit tags win; otherwise
// it falls back to inspecting the error chain and message.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var c *classified
	if errors.As(err, &c) {
		return c.kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "401"):
		return KindAuth
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "429"):
		return KindRateLimit
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline"):
		return KindTimeout
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "unavailable"):
		return KindNetwork
	case strings.Contains(msg, "parse"),
		strings.Contains(msg, "unmarshal"),
		strings.Contains(msg, "malformed"),
		strings.Contains(msg, "unexpected end of json"):
		return KindParse
	default:
		return KindUnknown
	}
}

// Retryable reports whether a failure of the given kind should be retried
// against the primary operation. Auth failures surface immediately; parse
// failures skip straight to fallbacks.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindRateLimit, KindLocalBudget, KindUnknown:
		return true
	default:
		return false
	}
}
