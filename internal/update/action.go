package update

import (
	"context"
	"fmt"
	"strings"

	"nudge/internal/debug"
	apperrors "nudge/internal/errors"
)

// Flow selects a native in-app update flow.
type Flow int

const (
	// FlowNone skips native flows and goes straight to the store redirect.
	FlowNone Flow = iota
	// FlowImmediate blocks the app until the update completes.
	FlowImmediate
	// FlowFlexible downloads in the background.
	FlowFlexible
)

// String returns the config name of a Flow.
func (f Flow) String() string {
	switch f {
	case FlowImmediate:
		return "immediate"
	case FlowFlexible:
		return "flexible"
	default:
		return "none"
	}
}

// ParseFlow maps a config name to a Flow.
func ParseFlow(s string) (Flow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FlowNone, nil
	case "immediate":
		return FlowImmediate, nil
	case "flexible":
		return FlowFlexible, nil
	default:
		return FlowNone, fmt.Errorf("unknown update flow %q (want none, immediate or flexible)", s)
	}
}

// FlowFromFlags resolves the pair of boolean switches some hosts expose.
// Requesting both is an error: only one native flow may run.
func FlowFromFlags(immediate, flexible bool) (Flow, error) {
	switch {
	case immediate && flexible:
		return FlowNone, ErrConflictingFlows
	case immediate:
		return FlowImmediate, nil
	case flexible:
		return FlowFlexible, nil
	default:
		return FlowNone, nil
	}
}

// NativeUpdater starts platform in-app update flows.
type NativeUpdater interface {
	StartUpdate(ctx context.Context, handle NativeHandle, flow Flow) error
}

// URLLauncher opens URLs or store intents.
type URLLauncher interface {
	CanLaunch(url string) bool
	Launch(ctx context.Context, url string) error
}

// Dispatcher carries out an accepted update. It prefers the native flow,
// then the store intent for the package, then the UpdateURL from the info.
type Dispatcher struct {
	packageName string
	native      NativeUpdater
	launcher    URLLauncher
	onError     func(error)
	onComplete  func(Flow)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNativeUpdater enables native in-app update flows.
func WithNativeUpdater(n NativeUpdater) DispatcherOption {
	return func(d *Dispatcher) {
		d.native = n
	}
}

// WithLauncher overrides the URL launcher.
func WithLauncher(l URLLauncher) DispatcherOption {
	return func(d *Dispatcher) {
		d.launcher = l
	}
}

// WithDispatchErrorHandler sets the error side channel.
func WithDispatchErrorHandler(fn func(error)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onError = fn
	}
}

// WithCompletionHandler is called after a native flow finishes.
func WithCompletionHandler(fn func(Flow)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onComplete = fn
	}
}

// NewDispatcher creates a dispatcher for packageName. Without WithLauncher it
// uses SystemLauncher.
func NewDispatcher(packageName string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		packageName: strings.TrimSpace(packageName),
		launcher:    SystemLauncher{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// StoreIntentURL returns the store deep link for packageName.
func StoreIntentURL(packageName string) string {
	return "market://details?id=" + packageName
}

// PerformUpdate runs the fallback chain for info. A native failure is
// reported and falls through to the URL path.
func (d *Dispatcher) PerformUpdate(ctx context.Context, info *UpdateInfo, flow Flow) error {
	if info == nil {
		return apperrors.New(apperrors.CodeUpdateAction, "perform update", fmt.Errorf("nil update info"))
	}

	if handle, ok := info.PlatformMetadata.(NativeHandle); ok && flow != FlowNone && d.native != nil {
		if handle.Allows(flow) {
			err := d.native.StartUpdate(ctx, handle, flow)
			if err == nil {
				debug.Logf("action: native %s flow completed", flow)
				if d.onComplete != nil {
					d.onComplete(flow)
				}
				return nil
			}
			d.report(apperrors.New(apperrors.CodeUpdateAction, "native "+flow.String()+" flow", err))
		} else {
			debug.Logf("action: native handle does not allow %s flow", flow)
		}
	}

	var targets []string
	if d.packageName != "" {
		targets = append(targets, StoreIntentURL(d.packageName))
	}
	if u := strings.TrimSpace(info.UpdateURL); u != "" {
		targets = append(targets, u)
	}

	for _, target := range targets {
		if !d.launcher.CanLaunch(target) {
			debug.Logf("action: cannot launch %s", target)
			continue
		}
		if err := d.launcher.Launch(ctx, target); err != nil {
			d.report(apperrors.New(apperrors.CodeUpdateAction, "launch "+target, err))
			continue
		}
		debug.Logf("action: launched %s", target)
		return nil
	}

	return apperrors.New(apperrors.CodeUpdateAction, "perform update", ErrNoUpdateTarget)
}

func (d *Dispatcher) report(err error) {
	debug.Logf("action: %v", err)
	if d.onError != nil {
		d.onError(err)
	}
}
