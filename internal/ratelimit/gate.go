// Package ratelimit implements the sliding-window Rate Gate of spec §4.C:
// per-credential and per-client-ip scopes, admitted atomically per key
// against an externalized store, with a deliberate fail-open policy when
// that store is unavailable (spec §9 Open Questions).
package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/valstan/setka/internal/core"
)

// Scope names the two budgets spec §4.C defines.
type Scope string

const (
	ScopeCredential Scope = "credential"
	ScopeClientIP   Scope = "client_ip"
)

// Limit is the admission budget for one scope: at most Max requests in any
// trailing Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Defaults per spec §4.C.
var (
	DefaultCredentialLimit = Limit{Max: 3, Window: time.Second}
	DefaultClientIPLimit   = Limit{Max: 100, Window: time.Minute}
	// ClientIPBurstMax is the steady-state 100/min plus a 20-request burst,
	// expressed as one Max on the same sliding window, since the store only
	// tracks one window per key. DefaultClientIPLimit does not include the
	// burst, and nothing in this package applies ClientIPBurstMax.
	ClientIPBurstMax = DefaultClientIPLimit.Max + 20
)

// Decision is the result of an admission check.
type Decision struct {
	Admitted    bool
	RetryAfter  time.Duration
	FailedOpen  bool
	Blacklisted bool
}

// Store is the sliding-window admission primitive: atomically trim entries
// older than window, count what's left, and — if admitting — add now. A
// production implementation backs this with a shared key-value store (spec
// §9: "explicitly externalized ... so that horizontally scaled workers
// share budgets"); see RedisStore. Tests use the in-memory implementation.
type Store interface {
	// Admit atomically prunes timestamps before now-window, counts the
	// remainder, and if count < limit records now and returns ok=true. If
	// it returns false, oldest is the earliest timestamp still in the
	// window (used to compute retry_after).
	Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (ok bool, oldest time.Time, err error)
}

// ListStore consults named allow/deny lists before the sliding-window check
// runs at all (spec §4.C: "Whitelist and blacklist are consulted before the
// sliding-window check").
type ListStore interface {
	IsWhitelisted(ctx context.Context, scope Scope, key string) (bool, error)
	IsBlacklisted(ctx context.Context, scope Scope, key string) (bool, error)
}

// Metrics receives fail-open events so operators can distinguish a gate
// outage from genuine abuse (spec §9 Open Questions).
type Metrics interface {
	RecordFailOpen(scope Scope)
	RecordDenied(scope Scope)
	RecordAdmitted(scope Scope)
}

type nopMetrics struct{}

func (nopMetrics) RecordFailOpen(Scope) {}
func (nopMetrics) RecordDenied(Scope)   {}
func (nopMetrics) RecordAdmitted(Scope) {}

// Gate is the Rate Gate component.
type Gate struct {
	Store   Store
	Lists   ListStore
	Metrics Metrics
	Logger  core.Logger
}

// New constructs a Gate; lists and metrics may be nil (no lists consulted,
// metrics discarded).
func New(store Store, lists ListStore, metrics Metrics, logger core.Logger) *Gate {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Gate{Store: store, Lists: lists, Metrics: metrics, Logger: logger}
}

// Admit runs the full admission pipeline for key under scope at limit:
// blacklist/whitelist first, then the sliding-window check, per spec §4.C.
// On a store failure the gate fails open (admits, logs, increments the
// fail-open metric) rather than denying service.
func (g *Gate) Admit(ctx context.Context, scope Scope, key string, limit Limit) Decision {
	now := time.Now()

	if g.Lists != nil {
		if blacklisted, err := g.Lists.IsBlacklisted(ctx, scope, key); err == nil && blacklisted {
			g.Metrics.RecordDenied(scope)
			return Decision{Admitted: false, Blacklisted: true}
		}
		if whitelisted, err := g.Lists.IsWhitelisted(ctx, scope, key); err == nil && whitelisted {
			g.Metrics.RecordAdmitted(scope)
			return Decision{Admitted: true}
		}
	}

	ok, oldest, err := g.Store.Admit(ctx, string(scope)+":"+key, now, limit.Window, limit.Max)
	if err != nil {
		g.Logger.Warnf("rate gate store unavailable for %s:%s, failing open: %v", scope, key, err)
		g.Metrics.RecordFailOpen(scope)
		return Decision{Admitted: true, FailedOpen: true}
	}
	if ok {
		g.Metrics.RecordAdmitted(scope)
		return Decision{Admitted: true}
	}

	g.Metrics.RecordDenied(scope)
	retryAfter := limit.Window - now.Sub(oldest)
	if retryAfter < 0 {
		retryAfter = 0
	}
	// Round up to the nearest whole second, per spec §4.C.
	seconds := math.Ceil(retryAfter.Seconds())
	return Decision{Admitted: false, RetryAfter: time.Duration(seconds) * time.Second}
}
