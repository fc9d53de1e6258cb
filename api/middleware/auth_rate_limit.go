package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nanumlink/nanumlink-backend/api/responses"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy throttles one auth surface (login, signup) along two
// dimensions: the caller's IP and the submitted email. Either limit can be
// zero to disable that dimension.
type AuthRateLimitPolicy struct {
	surface    string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewAuthRateLimitPolicy builds a policy for the named surface.
func NewAuthRateLimitPolicy(surface string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	cleaned := strings.ToLower(strings.TrimSpace(surface))
	if cleaned == "" {
		cleaned = "auth"
	}
	return AuthRateLimitPolicy{
		surface:    cleaned,
		window:     window,
		ipLimit:    ipLimit,
		emailLimit: emailLimit,
	}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// counterKey namespaces one dimension's window counter. Emails are hashed
// before they get here so raw addresses never reach redis.
func (p AuthRateLimitPolicy) counterKey(dimension, subject string) string {
	return fmt.Sprintf("rl:%s:%s:%s", dimension, p.surface, subject)
}

// AuthRateLimit caps repeated auth attempts per IP and per email within the
// policy window. The email dimension reads the request body, so the body is
// restored before the next handler runs.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					blocked, err := overLimit(ctx, logg, store, policy, "ip", ip, policy.ipLimit)
					if err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if blocked {
						responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
						return
					}
				}
			}

			if policy.emailLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if subject := emailDigest(body); subject != "" {
					blocked, err := overLimit(ctx, logg, store, policy, "email", subject, policy.emailLimit)
					if err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if blocked {
						responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func overLimit(ctx context.Context, logg *logger.Logger, store rateLimiterStore, policy AuthRateLimitPolicy, dimension, subject string, limit int) (bool, error) {
	attempts, err := store.IncrWithTTL(ctx, policy.counterKey(dimension, subject), policy.window)
	if err != nil {
		return false, err
	}
	if attempts <= int64(limit) {
		return false, nil
	}
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"surface":        policy.surface,
			"dimension":      dimension,
			"subject":        subject,
			"attempts":       attempts,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	return true, nil
}

// emailDigest pulls the email out of the JSON body, normalizes it, and
// returns its sha256 hex. Empty when the body carries no usable email.
func emailDigest(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// clientIP resolves the caller address, trusting proxy headers when present.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
