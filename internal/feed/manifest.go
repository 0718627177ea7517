// Package feed serves update documents for the JSON source from a YAML
// manifest of release channels.
package feed

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"nudge/internal/source"
	"nudge/internal/update"
)

// Channel is one release channel in the manifest.
type Channel struct {
	LatestVersion string `yaml:"latestVersion"`
	URL           string `yaml:"url"`
	ReleaseNotes  string `yaml:"releaseNotes"`
	Critical      bool   `yaml:"critical"`
}

// Manifest maps channel names to their current release.
type Manifest struct {
	Channels map[string]Channel `yaml:"channels"`
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if len(m.Channels) == 0 {
		return nil, fmt.Errorf("manifest has no channels")
	}
	for name, ch := range m.Channels {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("manifest has a channel without a name")
		}
		if _, err := update.ParseVersionStrict(ch.LatestVersion); err != nil {
			return nil, fmt.Errorf("channel %q: %w", name, err)
		}
	}
	return &m, nil
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	//nolint:gosec // G304: manifest path comes from configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseManifest(f)
}

// Feed returns the wire document for channel.
func (m *Manifest) Feed(channel string) (source.Feed, bool) {
	ch, ok := m.Channels[channel]
	if !ok {
		return source.Feed{}, false
	}
	return source.Feed{
		LatestVersion: update.ParseVersion(ch.LatestVersion).String(),
		URL:           ch.URL,
		ReleaseNotes:  ch.ReleaseNotes,
		Critical:      ch.Critical,
	}, true
}

// Names returns the channel names in sorted order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Channels))
	for name := range m.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
