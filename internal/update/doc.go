// Package update decides when to show an update prompt and what happens
// when the user accepts it.
//
// This package handles:
//   - Parsing and comparing semantic versions
//   - Gating prompts on a check interval, a snooze window and critical flags
//   - Guarding against two prompts being presented at once
//   - Dispatching an accepted update to a native flow, a store intent or a URL
//
// It does not fetch anything itself. A Source (see package source) supplies
// UpdateInfo and a state.Store remembers when the last check and dismissal
// happened.
//
// Example usage:
//
//	engine := update.NewEngine(src, store, update.WithErrorHandler(logErr))
//	d := engine.Decide(ctx, update.DefaultPolicy(), false)
//	if d.Present {
//	    // show d.Info, then call MarkAccepted or MarkDismissed
//	}
package update
