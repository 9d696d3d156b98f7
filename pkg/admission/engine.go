package admission

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"arbiter-hq/turnstile/pkg/admission/distributed"
	"arbiter-hq/turnstile/pkg/admission/load"
	"arbiter-hq/turnstile/pkg/admission/quota"
	"arbiter-hq/turnstile/pkg/admission/window"
)

// FailureMode controls behavior when the shared store is unreachable.
type FailureMode string

const (
	// FailClosed denies requests when the shared store is unavailable.
	// This is the default: an outage never silently lifts the limits.
	FailClosed FailureMode = "fail_closed"

	// FailOpen admits requests when the shared store is unavailable.
	// Opt-in for low-stakes deployments only.
	FailOpen FailureMode = "fail_open"
)

// EngineOptions contains the collaborators and settings for an Engine.
type EngineOptions struct {
	// Policies is the tier policy table. Defaults to DefaultPolicyTable.
	Policies *PolicyTable

	// Counter is the fleet-wide window counter. Defaults to an in-process
	// counter, which is only correct for single-instance deployments.
	Counter distributed.Counter

	// Scaler computes the load-adaptive scaling factor. Defaults to a
	// /proc-backed scaler with default thresholds.
	Scaler *load.Scaler

	// Quota tracks daily per-subject consumption. Defaults to a fresh tracker.
	Quota *quota.Tracker

	// Window is the local sliding-log throttle. Defaults to a fresh log.
	Window *window.SlidingLog

	// Metrics records decision outcomes. Optional.
	Metrics *Metrics

	// FailureMode selects fail-open or fail-closed store failure handling.
	// Default: FailClosed.
	FailureMode FailureMode
}

// Engine orchestrates the admission checks into one allow/deny decision.
//
// # Check Order
//
//  1. Tier policy lookup; PREMIUM short-circuits to allow.
//  2. Distributed fixed-window counter (shared store, bounded timeout).
//  3. Load-adaptive effective limit computation.
//  4. Daily quota.
//  5. Local sliding-window throttle at the effective limit.
//
// The first failing check denies with its reason. A check that denies
// never charges the request; a check that passes consumes its slot even
// if a later check denies.
//
// # Concurrency
//
// Engine is safe for concurrent use. Local per-key state is guarded by the
// collaborators' own locks; the shared store is only touched through the
// Counter's atomic increment.
type Engine struct {
	policies    atomic.Pointer[PolicyTable]
	counter     distributed.Counter
	scaler      *load.Scaler
	quota       *quota.Tracker
	window      *window.SlidingLog
	metrics     *Metrics
	failureMode FailureMode
	logger      *slog.Logger
}

// NewEngine creates an admission engine, applying defaults for any
// collaborator left nil in opts.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Policies == nil {
		opts.Policies = DefaultPolicyTable()
	}
	if opts.Counter == nil {
		opts.Counter = distributed.NewMemoryCounter()
	}
	if opts.Scaler == nil {
		opts.Scaler = load.NewScaler(load.Config{}, nil)
	}
	if opts.Quota == nil {
		opts.Quota = quota.NewTracker()
	}
	if opts.Window == nil {
		opts.Window = window.NewSlidingLog()
	}
	if opts.FailureMode == "" {
		opts.FailureMode = FailClosed
	}

	e := &Engine{
		counter:     opts.Counter,
		scaler:      opts.Scaler,
		quota:       opts.Quota,
		window:      opts.Window,
		metrics:     opts.Metrics,
		failureMode: opts.FailureMode,
		logger:      slog.Default().With("component", "admission.engine"),
	}
	e.policies.Store(opts.Policies)
	return e
}

// Check decides whether the request identified by subject, tier, and
// resource may proceed. It returns data only; the caller maps a denial to
// a transport response.
func (e *Engine) Check(ctx context.Context, subject string, tier Tier, resource string) Decision {
	start := time.Now()
	decision := e.check(ctx, subject, tier, resource)

	if e.metrics != nil {
		e.metrics.RecordDecision(tier, decision)
		e.metrics.RecordCheckDuration(time.Since(start).Seconds())
	}
	return decision
}

func (e *Engine) check(ctx context.Context, subject string, tier Tier, resource string) Decision {
	policy := e.policies.Load().PolicyFor(tier)
	if policy.Unlimited {
		return Decision{Allowed: true}
	}

	key := KeyFor(subject, resource)

	// Fleet-wide counter first: it is the only check whose correctness
	// spans instances, so a locally admitted request must never skip it.
	within, err := e.counter.Increment(ctx, key.String(), policy.Limit, policy.Window)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordStoreError()
		}
		if e.failureMode == FailOpen {
			e.logger.Warn("shared store unavailable, failing open",
				"subject", subject, "resource", resource, "error", err)
		} else {
			e.logger.Warn("shared store unavailable, failing closed",
				"subject", subject, "resource", resource, "error", err)
			return Decision{
				Allowed:    false,
				Reason:     ReasonStoreUnavailable,
				RetryAfter: untilNextBucket(policy.Window),
			}
		}
	} else if !within {
		return Decision{
			Allowed:    false,
			Reason:     ReasonDistributedLimit,
			RetryAfter: untilNextBucket(policy.Window),
		}
	}

	factor := e.scaler.Factor()
	effectiveLimit := load.Apply(factor, policy.Limit)
	if e.metrics != nil {
		e.metrics.UpdateScalingFactor(factor)
	}

	if !e.quota.Consume(uint64(key), policy.DailyQuota) {
		return Decision{
			Allowed:        false,
			Reason:         ReasonQuotaExceeded,
			RetryAfter:     time.Until(e.quota.NextReset()),
			EffectiveLimit: effectiveLimit,
		}
	}

	if !e.window.Allow(uint64(key), effectiveLimit, policy.Window) {
		return Decision{
			Allowed:        false,
			Reason:         ReasonWindowExceeded,
			RetryAfter:     e.windowRetryAfter(key, policy.Window),
			EffectiveLimit: effectiveLimit,
		}
	}

	return Decision{Allowed: true, EffectiveLimit: effectiveLimit}
}

// ReloadPolicies swaps the tier policy table atomically. In-flight checks
// finish against the table they started with.
func (e *Engine) ReloadPolicies(table *PolicyTable) {
	if table == nil {
		return
	}
	e.policies.Store(table)
	e.logger.Info("tier policies reloaded")
}

// windowRetryAfter derives a retry hint from the oldest timestamp still
// inside the sliding window: a slot frees when that entry expires.
func (e *Engine) windowRetryAfter(key WindowKey, window time.Duration) time.Duration {
	oldest, ok := e.window.OldestInWindow(uint64(key), window)
	if !ok {
		return 0
	}
	wait := time.Until(oldest.Add(window))
	if wait < 0 {
		return 0
	}
	return wait
}

// untilNextBucket returns the time until the current fixed window bucket
// rolls over.
func untilNextBucket(window time.Duration) time.Duration {
	secs := int64(window / time.Second)
	if secs <= 0 {
		return 0
	}
	now := time.Now().Unix()
	return time.Duration(secs-now%secs) * time.Second
}
