package update

import "time"

// Default policy values.
const (
	DefaultCheckInterval  = 24 * time.Hour
	DefaultSnoozeDuration = 3 * 24 * time.Hour
)

// Policy configures a single decision. It is never mutated by the engine.
type Policy struct {
	// CheckInterval is the minimum time between source fetches.
	// Zero disables rate limiting.
	CheckInterval time.Duration
	// SnoozeDuration is how long a dismissal suppresses the prompt.
	SnoozeDuration time.Duration
	// ForceShow presents the prompt even when no newer version exists.
	ForceShow bool
	// ForceShowOnlyInDebug restricts ForceShow to debug builds.
	ForceShowOnlyInDebug bool
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		CheckInterval:        DefaultCheckInterval,
		SnoozeDuration:       DefaultSnoozeDuration,
		ForceShowOnlyInDebug: true,
	}
}

// forceActive reports whether ForceShow applies to a build.
func (p Policy) forceActive(debugBuild bool) bool {
	return p.ForceShow && (debugBuild || !p.ForceShowOnlyInDebug)
}
