package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nudge/internal/debug"
	apperrors "nudge/internal/errors"
	"nudge/internal/update"
)

// Feed is the JSON endpoint document.
type Feed struct {
	LatestVersion string `json:"latestVersion"`
	URL           string `json:"url,omitempty"`
	ReleaseNotes  string `json:"releaseNotes,omitempty"`
	Critical      bool   `json:"critical,omitempty"`
}

// JSON reads update information from a JSON endpoint.
type JSON struct {
	settings
	pkg PackageInfoProvider
}

// NewJSON creates a source for the document at url.
func NewJSON(url string, pkg PackageInfoProvider, opts ...Option) *JSON {
	return &JSON{
		settings: newSettings(url, opts),
		pkg:      pkg,
	}
}

// FetchUpdateInfo implements update.Source. Any transport, status or
// decoding problem is returned as an error.
func (j *JSON) FetchUpdateInfo(ctx context.Context) (*update.UpdateInfo, error) {
	pkg, err := j.pkg.PackageInfo(ctx)
	if err != nil {
		return nil, apperrors.New(apperrors.CodePackageInfo, "resolve package", err)
	}

	body, err := j.get(ctx, j.baseURL, "application/json")
	if err != nil {
		return nil, err
	}

	var feed Feed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, apperrors.New(apperrors.CodeParseFailed, "decode feed",
			fmt.Errorf("%w: %v", update.ErrInvalidResponse, err))
	}
	if strings.TrimSpace(feed.LatestVersion) == "" {
		return nil, apperrors.New(apperrors.CodeParseFailed, "decode feed",
			fmt.Errorf("%w: missing latestVersion", update.ErrInvalidResponse))
	}

	info := &update.UpdateInfo{
		CurrentVersion: pkg.Version,
		LatestVersion:  update.ParseVersion(feed.LatestVersion),
		ReleaseNotes:   cleanNotes(feed.ReleaseNotes),
		UpdateURL:      strings.TrimSpace(feed.URL),
		IsCritical:     feed.Critical,
	}
	debug.Logf("source: json latest %s (critical=%t)", info.LatestVersion, info.IsCritical)
	return info, nil
}
