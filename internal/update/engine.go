package update

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"nudge/internal/debug"
	apperrors "nudge/internal/errors"
	"nudge/internal/state"
)

// Reason explains a decision.
type Reason string

// Decision reasons.
const (
	ReasonPresent           Reason = "present"
	ReasonTooSoon           Reason = "too-soon"
	ReasonNoData            Reason = "no-data"
	ReasonNotAvailable      Reason = "not-available"
	ReasonSnoozed           Reason = "snoozed"
	ReasonAlreadyPresenting Reason = "already-presenting"
	ReasonError             Reason = "error"
)

// Decision is the outcome of Engine.Decide. Info is set only when Present is
// true. Err carries the fault behind a no-data or error outcome, if any.
type Decision struct {
	Present bool
	Reason  Reason
	Info    *UpdateInfo
	Err     error
}

func skip(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Engine decides whether to present an update prompt.
//
// An Engine owns a single presentation guard: while one Present decision is
// outstanding, further decisions that would present are demoted to
// already-presenting. The guard is released by MarkAccepted, MarkDismissed or
// MarkClosed. Separate engines never contend.
type Engine struct {
	source     Source
	store      state.Store
	debugBuild bool
	onError    func(error)
	now        func() time.Time

	presenting atomic.Bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDebugBuild marks the host as a debug build, enabling ForceShow.
func WithDebugBuild(debugBuild bool) EngineOption {
	return func(e *Engine) {
		e.debugBuild = debugBuild
	}
}

// WithErrorHandler sets the developer-facing error side channel.
func WithErrorHandler(fn func(error)) EngineOption {
	return func(e *Engine) {
		e.onError = fn
	}
}

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine reading from source and persisting to store.
func NewEngine(source Source, store state.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		source: source,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide runs one decision cycle. force bypasses the check interval.
// Decide never returns an error: faults are reported through the error
// handler and surface as a skip.
func (e *Engine) Decide(ctx context.Context, policy Policy, force bool) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.New(apperrors.CodeEnginePanic, "decide", fmt.Errorf("%v", r))
			e.report(err)
			d = Decision{Reason: ReasonError, Err: err}
		}
	}()

	now := e.now()
	forced := policy.forceActive(e.debugBuild)

	st, err := e.store.Load(ctx)
	if err != nil {
		return e.fail(apperrors.New(apperrors.CodeStateIO, "load check state", err))
	}

	if !force && !forced && policy.CheckInterval > 0 && !st.LastCheckedAt.IsZero() {
		if now.Sub(st.LastCheckedAt) < policy.CheckInterval {
			debug.Logf("engine: skip too-soon, last check %s", st.LastCheckedAt.Format(time.RFC3339))
			return skip(ReasonTooSoon)
		}
	}

	info, err := e.source.FetchUpdateInfo(ctx)
	if err != nil {
		wrapped := apperrors.New(apperrors.CodeSourceFetch, "fetch update info", err)
		e.report(wrapped)
		return Decision{Reason: ReasonNoData, Err: wrapped}
	}
	if info == nil {
		debug.Log("engine: skip no-data")
		return skip(ReasonNoData)
	}

	if policy.CheckInterval > 0 {
		if err := e.store.SaveLastChecked(ctx, now); err != nil {
			return e.fail(apperrors.New(apperrors.CodeStateIO, "save last check", err))
		}
	}

	shouldShow := info.IsUpdateAvailable()
	if forced {
		shouldShow = true
	}
	if !shouldShow {
		debug.Logf("engine: skip not-available, current %s latest %s", info.CurrentVersion, info.LatestVersion)
		return skip(ReasonNotAvailable)
	}

	if !forced && !info.IsCritical && !st.LastDismissedAt.IsZero() {
		if now.Sub(st.LastDismissedAt) < policy.SnoozeDuration {
			debug.Logf("engine: skip snoozed, dismissed %s", st.LastDismissedAt.Format(time.RFC3339))
			return skip(ReasonSnoozed)
		}
	}

	if !e.presenting.CompareAndSwap(false, true) {
		debug.Log("engine: skip already-presenting")
		return skip(ReasonAlreadyPresenting)
	}

	debug.Logf("engine: present %s -> %s (critical=%t)", info.CurrentVersion, info.LatestVersion, info.IsCritical)
	return Decision{Present: true, Reason: ReasonPresent, Info: info}
}

// MarkDismissed records a snooze at now and releases the presentation guard.
// The guard is released even if persisting fails.
func (e *Engine) MarkDismissed(ctx context.Context, now time.Time) error {
	defer e.presenting.Store(false)
	if err := e.store.SaveLastDismissed(ctx, now); err != nil {
		wrapped := apperrors.New(apperrors.CodeStateIO, "save dismissal", err)
		e.report(wrapped)
		return wrapped
	}
	debug.Logf("engine: dismissed at %s", now.Format(time.RFC3339))
	return nil
}

// MarkAccepted releases the presentation guard. Accepting persists nothing:
// the next launch re-checks normally.
func (e *Engine) MarkAccepted() {
	e.presenting.Store(false)
	debug.Log("engine: accepted")
}

// MarkClosed releases the presentation guard after a dismissal without action.
func (e *Engine) MarkClosed() {
	e.presenting.Store(false)
}

// Presenting reports whether a presentation is outstanding.
func (e *Engine) Presenting() bool {
	return e.presenting.Load()
}

func (e *Engine) fail(err error) Decision {
	e.report(err)
	return Decision{Reason: ReasonError, Err: err}
}

func (e *Engine) report(err error) {
	debug.Logf("engine: %v", err)
	if e.onError != nil {
		e.onError(err)
	}
}
