package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"nudge/internal/update"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func testInfo(critical bool) *update.UpdateInfo {
	return &update.UpdateInfo{
		CurrentVersion: update.ParseVersion("1.0.1"),
		LatestVersion:  update.ParseVersion("1.2.0"),
		ReleaseNotes:   "Faster sync\nFixed login bug",
		UpdateURL:      "https://example.com/app",
		IsCritical:     critical,
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		critical bool
		msg      tea.KeyMsg
		want     Outcome
		wantDone bool
	}{
		{"enter accepts", false, tea.KeyMsg{Type: tea.KeyEnter}, OutcomeAccept, true},
		{"u accepts", false, runes("u"), OutcomeAccept, true},
		{"l snoozes", false, runes("l"), OutcomeLater, true},
		{"esc closes", false, tea.KeyMsg{Type: tea.KeyEsc}, OutcomeClose, true},
		{"q closes", false, runes("q"), OutcomeClose, true},
		{"critical ignores later", true, runes("l"), OutcomeClose, false},
		{"critical still accepts", true, tea.KeyMsg{Type: tea.KeyEnter}, OutcomeAccept, true},
		{"other keys ignored", false, runes("x"), OutcomeClose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(testInfo(tt.critical), "plain")
			next, cmd := m.Update(tt.msg)
			got := next.(Model)

			if got.Done() != tt.wantDone {
				t.Fatalf("Done() = %t, want %t", got.Done(), tt.wantDone)
			}
			if got.Outcome() != tt.want {
				t.Errorf("Outcome() = %s, want %s", got.Outcome(), tt.want)
			}
			if tt.wantDone && cmd == nil {
				t.Error("finishing should return tea.Quit")
			}
			if !tt.wantDone && cmd != nil {
				t.Error("ignored key should not return a command")
			}
		})
	}
}

func TestViewShowsVersionsAndNotes(t *testing.T) {
	view := NewModel(testInfo(false), "plain").View()

	for _, want := range []string{"Update available", "1.0.1", "1.2.0", "Faster sync", "later", "update now"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "critical") {
		t.Errorf("non-critical view should not be flagged:\n%s", view)
	}
}

func TestViewCriticalHidesLater(t *testing.T) {
	view := NewModel(testInfo(true), "plain").View()

	if !strings.Contains(view, "critical") {
		t.Errorf("critical view should be flagged:\n%s", view)
	}
	if strings.Contains(view, "later") {
		t.Errorf("critical view should not offer later:\n%s", view)
	}
}

func TestViewEmptyWhenDone(t *testing.T) {
	next, _ := NewModel(testInfo(false), "plain").Update(runes("q"))
	if v := next.View(); v != "" {
		t.Errorf("View() after finish = %q, want empty", v)
	}
}

func TestWindowResizeRewrapsNotes(t *testing.T) {
	info := testInfo(false)
	info.ReleaseNotes = strings.Repeat("word ", 30)
	m := NewModel(info, "plain")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	resized := next.(Model)
	if resized.width != 36 {
		t.Fatalf("width = %d, want 36", resized.width)
	}
	for _, line := range strings.Split(resized.notes, "\n") {
		if lipgloss.Width(strings.TrimRight(line, " ")) > 32 {
			t.Errorf("line wider than wrap width: %q", line)
		}
	}
}

func TestSummary(t *testing.T) {
	got := Summary(testInfo(true), "plain", 60)
	for _, want := range []string{"Update available: 1.0.1 -> 1.2.0 (critical)", "Fixed login bug", "https://example.com/app"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary missing %q:\n%s", want, got)
		}
	}
	if Summary(nil, "plain", 60) != "" {
		t.Error("Summary(nil) should be empty")
	}
}

func TestRunReadsChoiceFromInput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	outcome, err := Run(ctx, testInfo(false), "plain", strings.NewReader("l"), &out)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome != OutcomeLater {
		t.Errorf("Run() = %s, want later", outcome)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{OutcomeAccept: "accept", OutcomeLater: "later", OutcomeClose: "close"}
	for o, want := range tests {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", o, o.String(), want)
		}
	}
}
