package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"nudge/internal/debug"
	apperrors "nudge/internal/errors"
	"nudge/internal/update"
)

// DefaultLookupURL is the public bundle-id lookup endpoint.
const DefaultLookupURL = "https://itunes.apple.com/lookup"

type lookupResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []lookupResult `json:"results"`
}

type lookupResult struct {
	Version      string `json:"version"`
	TrackViewURL string `json:"trackViewUrl"`
	ReleaseNotes string `json:"releaseNotes"`
}

// Lookup queries the store lookup API by bundle id.
type Lookup struct {
	settings
	pkg PackageInfoProvider
}

// NewLookup creates a lookup source. The bundle id is the package name
// reported by pkg.
func NewLookup(pkg PackageInfoProvider, opts ...Option) *Lookup {
	return &Lookup{
		settings: newSettings(DefaultLookupURL, opts),
		pkg:      pkg,
	}
}

// FetchUpdateInfo implements update.Source. A result count of zero yields
// no info and no error.
func (l *Lookup) FetchUpdateInfo(ctx context.Context) (*update.UpdateInfo, error) {
	pkg, err := l.pkg.PackageInfo(ctx)
	if err != nil {
		return nil, apperrors.New(apperrors.CodePackageInfo, "resolve package", err)
	}
	if pkg.Name == "" {
		return nil, apperrors.New(apperrors.CodePackageInfo, "resolve package", ErrNoPackageName)
	}

	query := url.Values{"bundleId": {pkg.Name}}
	if l.country != "" {
		query.Set("country", strings.ToLower(l.country))
	}
	endpoint, err := l.endpoint(query)
	if err != nil {
		return nil, err
	}

	body, err := l.get(ctx, endpoint, "application/json")
	if err != nil {
		return nil, err
	}

	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.New(apperrors.CodeParseFailed, "decode lookup",
			fmt.Errorf("%w: %v", update.ErrInvalidResponse, err))
	}
	if resp.ResultCount == 0 || len(resp.Results) == 0 {
		debug.Logf("source: lookup has no results for %s", pkg.Name)
		return nil, nil
	}

	r := resp.Results[0]
	info := &update.UpdateInfo{
		CurrentVersion: pkg.Version,
		LatestVersion:  update.ParseVersion(r.Version),
		ReleaseNotes:   cleanNotes(r.ReleaseNotes),
		UpdateURL:      r.TrackViewURL,
	}
	debug.Logf("source: lookup latest %s", info.LatestVersion)
	return info, nil
}
