package source

import (
	"context"
	"net/url"
	"strings"

	"nudge/internal/debug"
	apperrors "nudge/internal/errors"
	"nudge/internal/update"
)

// DefaultListingURL is the public store listing page.
const DefaultListingURL = "https://play.google.com/store/apps/details"

// Store resolves the latest version from a store listing page, combined
// with the platform's native availability check when one is configured.
type Store struct {
	settings
	pkg PackageInfoProvider
}

// NewStore creates a store listing source for the package reported by pkg.
func NewStore(pkg PackageInfoProvider, opts ...Option) *Store {
	return &Store{
		settings: newSettings(DefaultListingURL, opts),
		pkg:      pkg,
	}
}

// ListingURL returns the listing page for name.
func (s *Store) ListingURL(name string) (string, error) {
	query := url.Values{"id": {name}}
	if s.language != "" {
		query.Set("hl", s.language)
	}
	if s.country != "" {
		query.Set("gl", strings.ToUpper(s.country))
	}
	return s.endpoint(query)
}

// FetchUpdateInfo implements update.Source.
//
// When the native check reports an update, the scraped version is used if
// there is one and the next patch of the current version otherwise. When it
// reports none, a scraped version is only surfaced if it is newer. Without a
// native check the scraped version is all there is.
func (s *Store) FetchUpdateInfo(ctx context.Context) (*update.UpdateInfo, error) {
	pkg, err := s.pkg.PackageInfo(ctx)
	if err != nil {
		return nil, apperrors.New(apperrors.CodePackageInfo, "resolve package", err)
	}
	if pkg.Name == "" {
		return nil, apperrors.New(apperrors.CodePackageInfo, "resolve package", ErrNoPackageName)
	}

	handle, nativeOK := s.checkNative(ctx, pkg)

	listing, err := s.ListingURL(pkg.Name)
	if err != nil {
		return nil, err
	}

	var (
		scraped    update.Version
		haveScrape bool
		notes      string
		fetchErr   error
	)
	body, err := s.get(ctx, listing, "text/html")
	if err != nil {
		debug.Logf("source: listing fetch failed: %v", err)
		fetchErr = err
	} else {
		p := parsePage(body)
		var how string
		scraped, how, haveScrape = scrapeVersion(p, pkg.Version)
		if haveScrape {
			debug.Logf("source: listing version %s via %s", scraped, how)
		} else {
			debug.Log("source: no version found on listing")
		}
		notes = scrapeNotes(p)
	}

	info := &update.UpdateInfo{
		CurrentVersion: pkg.Version,
		ReleaseNotes:   notes,
		UpdateURL:      listing,
	}

	switch {
	case nativeOK && handle.UpdateAvailable:
		// The platform decides availability. A stale listing only names it.
		info.LatestVersion = pkg.Version.Bump()
		if haveScrape && scraped.GreaterThan(pkg.Version) {
			info.LatestVersion = scraped
		}
		info.PlatformMetadata = handle
	case nativeOK:
		info.LatestVersion = pkg.Version
		if haveScrape && scraped.GreaterThan(pkg.Version) {
			info.LatestVersion = scraped
		}
		info.PlatformMetadata = handle
	default:
		if !haveScrape {
			// Nothing to go on. Surface the fetch failure, if any.
			return nil, fetchErr
		}
		info.LatestVersion = scraped
	}

	return info, nil
}

func (s *Store) checkNative(ctx context.Context, pkg PackageInfo) (update.NativeHandle, bool) {
	if s.native == nil {
		return update.NativeHandle{}, false
	}
	handle, err := s.native.CheckNative(ctx, pkg)
	if err != nil {
		debug.Logf("source: %v: %v", update.ErrNativeUnavailable, err)
		return update.NativeHandle{}, false
	}
	debug.Logf("source: native check available=%t code=%d", handle.UpdateAvailable, handle.VersionCode)
	return handle, true
}
