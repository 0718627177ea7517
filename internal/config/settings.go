package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nudge/internal/update"
)

// Source kinds accepted by KeySourceKind.
const (
	SourceJSON   = "json"
	SourceStore  = "store"
	SourceLookup = "lookup"
)

// Policy builds the decision policy from configuration.
func Policy() update.Policy {
	return update.Policy{
		CheckInterval:        GetDuration(KeyCheckInterval),
		SnoozeDuration:       GetDuration(KeySnoozeDuration),
		ForceShow:            GetBool(KeyForceShow),
		ForceShowOnlyInDebug: GetBool(KeyForceShowOnlyInDebug),
	}
}

// Flow returns the configured native update flow. The deprecated boolean
// keys are honoured when set, and setting both is rejected.
func Flow() (update.Flow, error) {
	immediate := GetBool(KeyActionImmediate)
	flexible := GetBool(KeyActionFlexible)
	if immediate || flexible {
		return update.FlowFromFlags(immediate, flexible)
	}
	return update.ParseFlow(GetString(KeyActionFlow))
}

// SourceKind returns the normalised source kind.
func SourceKind() (string, error) {
	kind := strings.ToLower(strings.TrimSpace(GetString(KeySourceKind)))
	switch kind {
	case SourceJSON, SourceStore, SourceLookup:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown source kind %q (want json, store or lookup)", kind)
	}
}

// Headers returns the extra request headers for the JSON source.
func Headers() map[string]string {
	v, err := getViper()
	if err != nil {
		return nil
	}
	return v.GetStringMapString(KeySourceHeaders)
}

// StatePath returns the configured state path, or the default location for
// backend under ~/.nudge.
func StatePath(backend string) (string, error) {
	if p := strings.TrimSpace(GetString(KeyStatePath)); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	name := "state.db"
	if strings.EqualFold(strings.TrimSpace(backend), "file") {
		name = "state.json"
	}
	return filepath.Join(home, DirName, name), nil
}
