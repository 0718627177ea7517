package update

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// SystemLauncher opens http(s) URLs with the desktop's default handler.
// Store intents are not launchable outside a device and are skipped.
type SystemLauncher struct{}

// CanLaunch reports whether raw is an absolute http or https URL.
func (SystemLauncher) CanLaunch(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Launch starts the platform opener for raw without waiting for it to exit.
func (l SystemLauncher) Launch(ctx context.Context, raw string) error {
	if !l.CanLaunch(raw) {
		return fmt.Errorf("unsupported url %q", raw)
	}
	name, args := openCommand(runtime.GOOS, raw)
	//nolint:gosec // G204: url validated above, opener is fixed per OS
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func openCommand(goos, raw string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{raw}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", raw}
	default:
		return "xdg-open", []string{raw}
	}
}
