package update

import (
	"context"
	"fmt"
)

// Error variables for specific error conditions.
var (
	ErrInvalidVersion    = fmt.Errorf("invalid version format")
	ErrNetworkFailure    = fmt.Errorf("network request failed")
	ErrInvalidResponse   = fmt.Errorf("invalid response")
	ErrNativeUnavailable = fmt.Errorf("native update check unavailable")
	ErrConflictingFlows  = fmt.Errorf("immediate and flexible update flows are mutually exclusive")
	ErrNoUpdateTarget    = fmt.Errorf("no launchable update target")
)

// UpdateInfo is the result of a successful source fetch.
// It is built fresh on every fetch and never mutated afterwards.
type UpdateInfo struct {
	CurrentVersion Version
	LatestVersion  Version
	ReleaseNotes   string
	UpdateURL      string
	IsCritical     bool

	// PlatformMetadata is an opaque, source-specific payload. Store sources
	// put a NativeHandle here when the platform update check succeeded.
	PlatformMetadata any
}

// IsUpdateAvailable reports whether LatestVersion is newer than CurrentVersion.
func (i *UpdateInfo) IsUpdateAvailable() bool {
	if i == nil {
		return false
	}
	return i.LatestVersion.GreaterThan(i.CurrentVersion)
}

// Source produces update information from a remote origin.
//
// FetchUpdateInfo returns (info, nil) when data was found, (nil, nil) when
// the origin genuinely has nothing, and (nil, err) on a fault. The engine
// treats both empty outcomes as "no data" and reports faults separately.
type Source interface {
	FetchUpdateInfo(ctx context.Context) (*UpdateInfo, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*UpdateInfo, error)

// FetchUpdateInfo implements Source.
func (f SourceFunc) FetchUpdateInfo(ctx context.Context) (*UpdateInfo, error) {
	return f(ctx)
}

// NativeHandle describes the platform's in-app update availability.
type NativeHandle struct {
	UpdateAvailable  bool
	VersionCode      int
	ImmediateAllowed bool
	FlexibleAllowed  bool
	// Token is whatever the platform needs to start a flow.
	Token any
}

// Allows reports whether the handle permits flow.
func (h NativeHandle) Allows(flow Flow) bool {
	switch flow {
	case FlowImmediate:
		return h.ImmediateAllowed
	case FlowFlexible:
		return h.FlexibleAllowed
	default:
		return false
	}
}
