package source

import (
	"context"
	"errors"
	"strings"

	"nudge/internal/update"
)

// PackageInfo identifies the installed application.
type PackageInfo struct {
	// Name is the package or bundle identifier.
	Name    string
	Version update.Version
}

// ErrNoPackageName is returned by sources that need an identifier to query.
var ErrNoPackageName = errors.New("package name is not configured")

// PackageInfoProvider resolves the installed application.
type PackageInfoProvider interface {
	PackageInfo(ctx context.Context) (PackageInfo, error)
}

// StaticPackage is a PackageInfoProvider with fixed values, typically read
// from configuration.
type StaticPackage struct {
	Name    string
	Version string
}

// PackageInfo implements PackageInfoProvider.
func (p StaticPackage) PackageInfo(context.Context) (PackageInfo, error) {
	return PackageInfo{Name: strings.TrimSpace(p.Name), Version: update.ParseVersion(p.Version)}, nil
}

// NativeChecker asks the platform whether an in-app update is available.
// Returning an error means the native path is unavailable.
type NativeChecker interface {
	CheckNative(ctx context.Context, pkg PackageInfo) (update.NativeHandle, error)
}

// NativeCheckerFunc adapts a function to NativeChecker.
type NativeCheckerFunc func(ctx context.Context, pkg PackageInfo) (update.NativeHandle, error)

// CheckNative implements NativeChecker.
func (f NativeCheckerFunc) CheckNative(ctx context.Context, pkg PackageInfo) (update.NativeHandle, error) {
	return f(ctx, pkg)
}
