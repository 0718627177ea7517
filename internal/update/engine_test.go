package update

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "nudge/internal/errors"
	"nudge/internal/state"
)

var testNow = time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC)

type countingSource struct {
	calls atomic.Int32
	info  *UpdateInfo
	err   error
}

func (s *countingSource) FetchUpdateInfo(context.Context) (*UpdateInfo, error) {
	s.calls.Add(1)
	return s.info, s.err
}

type failingStore struct {
	state.Store
	loadErr error
	saveErr error
}

func (f failingStore) Load(ctx context.Context) (state.CheckState, error) {
	if f.loadErr != nil {
		return state.CheckState{}, f.loadErr
	}
	return f.Store.Load(ctx)
}

func (f failingStore) SaveLastDismissed(ctx context.Context, at time.Time) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.SaveLastDismissed(ctx, at)
}

func newInfo(current, latest string) *UpdateInfo {
	return &UpdateInfo{
		CurrentVersion: ParseVersion(current),
		LatestVersion:  ParseVersion(latest),
		UpdateURL:      "https://example.com/app",
	}
}

func seededStore(t *testing.T, checked, dismissed time.Time) state.Store {
	t.Helper()
	store := state.New(state.NewMemoryKV())
	ctx := context.Background()
	if !checked.IsZero() {
		if err := store.SaveLastChecked(ctx, checked); err != nil {
			t.Fatalf("seed last checked: %v", err)
		}
	}
	if !dismissed.IsZero() {
		if err := store.SaveLastDismissed(ctx, dismissed); err != nil {
			t.Fatalf("seed last dismissed: %v", err)
		}
	}
	return store
}

func newTestEngine(src Source, store state.Store, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithClock(func() time.Time { return testNow })}, opts...)
	return NewEngine(src, store, opts...)
}

func TestDecide(t *testing.T) {
	policy := Policy{CheckInterval: 24 * time.Hour, SnoozeDuration: 72 * time.Hour, ForceShowOnlyInDebug: true}

	tests := []struct {
		name       string
		policy     Policy
		debugBuild bool
		force      bool
		checked    time.Time
		dismissed  time.Time
		info       *UpdateInfo
		want       Reason
		wantFetch  bool
	}{
		{
			name:      "no prior check fetches and presents",
			policy:    policy,
			info:      newInfo("1.0.0", "1.1.0"),
			want:      ReasonPresent,
			wantFetch: true,
		},
		{
			name:    "too soon skips fetch",
			policy:  policy,
			checked: testNow.Add(-time.Hour),
			info:    newInfo("1.0.0", "1.1.0"),
			want:    ReasonTooSoon,
		},
		{
			name:      "force bypasses interval",
			policy:    policy,
			force:     true,
			checked:   testNow.Add(-time.Hour),
			info:      newInfo("1.0.0", "1.1.0"),
			want:      ReasonPresent,
			wantFetch: true,
		},
		{
			name:      "interval elapsed",
			policy:    policy,
			checked:   testNow.Add(-25 * time.Hour),
			info:      newInfo("1.0.0", "1.1.0"),
			want:      ReasonPresent,
			wantFetch: true,
		},
		{
			name:      "zero interval never rate limits",
			policy:    Policy{SnoozeDuration: time.Hour},
			checked:   testNow.Add(-time.Second),
			info:      newInfo("1.0.0", "1.1.0"),
			want:      ReasonPresent,
			wantFetch: true,
		},
		{
			name:      "no data",
			policy:    policy,
			want:      ReasonNoData,
			wantFetch: true,
		},
		{
			name:      "same version not available",
			policy:    policy,
			info:      newInfo("2.0.0", "2.0.0"),
			want:      ReasonNotAvailable,
			wantFetch: true,
		},
		{
			name:      "older latest not available",
			policy:    policy,
			info:      newInfo("2.0.0", "1.9.9"),
			want:      ReasonNotAvailable,
			wantFetch: true,
		},
		{
			name:      "snoozed",
			policy:    policy,
			dismissed: testNow.Add(-24 * time.Hour),
			info:      newInfo("1.0.0", "1.1.0"),
			want:      ReasonSnoozed,
			wantFetch: true,
		},
		{
			name:      "snooze expired",
			policy:    policy,
			dismissed: testNow.Add(-73 * time.Hour),
			info:      newInfo("1.0.0", "1.1.0"),
			want:      ReasonPresent,
			wantFetch: true,
		},
		{
			name:      "critical bypasses snooze",
			policy:    policy,
			dismissed: testNow.Add(-time.Hour),
			info: func() *UpdateInfo {
				i := newInfo("1.0.0", "1.1.0")
				i.IsCritical = true
				return i
			}(),
			want:      ReasonPresent,
			wantFetch: true,
		},
		{
			name:       "force show in debug build presents same version",
			policy:     Policy{CheckInterval: 24 * time.Hour, ForceShow: true, ForceShowOnlyInDebug: true},
			debugBuild: true,
			checked:    testNow.Add(-time.Hour),
			dismissed:  testNow.Add(-time.Hour),
			info:       newInfo("2.0.0", "2.0.0"),
			want:       ReasonPresent,
			wantFetch:  true,
		},
		{
			name:      "force show ignored in release build",
			policy:    Policy{CheckInterval: 24 * time.Hour, ForceShow: true, ForceShowOnlyInDebug: true},
			info:      newInfo("2.0.0", "2.0.0"),
			want:      ReasonNotAvailable,
			wantFetch: true,
		},
		{
			name:      "force show allowed outside debug when unrestricted",
			policy:    Policy{CheckInterval: 24 * time.Hour, ForceShow: true},
			info:      newInfo("2.0.0", "2.0.0"),
			want:      ReasonPresent,
			wantFetch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &countingSource{info: tt.info}
			engine := newTestEngine(src, seededStore(t, tt.checked, tt.dismissed), WithDebugBuild(tt.debugBuild))

			d := engine.Decide(context.Background(), tt.policy, tt.force)
			if d.Reason != tt.want {
				t.Fatalf("Reason = %q, want %q", d.Reason, tt.want)
			}
			if d.Present != (tt.want == ReasonPresent) {
				t.Errorf("Present = %t, want %t", d.Present, tt.want == ReasonPresent)
			}
			if d.Present && d.Info != tt.info {
				t.Error("Info should be the fetched UpdateInfo")
			}
			if !d.Present && d.Info != nil {
				t.Error("Info should be nil when not presenting")
			}
			if got := src.calls.Load() > 0; got != tt.wantFetch {
				t.Errorf("fetched = %t, want %t", got, tt.wantFetch)
			}
		})
	}
}

func TestDecideRecordsLastChecked(t *testing.T) {
	store := seededStore(t, time.Time{}, time.Time{})
	engine := newTestEngine(&countingSource{info: newInfo("1.0.0", "1.0.0")}, store)

	d := engine.Decide(context.Background(), DefaultPolicy(), false)
	if d.Reason != ReasonNotAvailable {
		t.Fatalf("Reason = %q, want not-available", d.Reason)
	}

	st, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !st.LastCheckedAt.Equal(testNow) {
		t.Errorf("LastCheckedAt = %s, want %s", st.LastCheckedAt, testNow)
	}
}

func TestDecideNoDataLeavesLastCheckedUntouched(t *testing.T) {
	store := seededStore(t, time.Time{}, time.Time{})
	engine := newTestEngine(&countingSource{}, store)

	engine.Decide(context.Background(), DefaultPolicy(), false)

	st, _ := store.Load(context.Background())
	if !st.LastCheckedAt.IsZero() {
		t.Errorf("LastCheckedAt = %s, want zero", st.LastCheckedAt)
	}
}

func TestDecideZeroIntervalDoesNotRecord(t *testing.T) {
	store := seededStore(t, time.Time{}, time.Time{})
	engine := newTestEngine(&countingSource{info: newInfo("1.0.0", "1.1.0")}, store)

	engine.Decide(context.Background(), Policy{}, false)

	st, _ := store.Load(context.Background())
	if !st.LastCheckedAt.IsZero() {
		t.Errorf("LastCheckedAt = %s, want zero", st.LastCheckedAt)
	}
}

func TestDecideSourceErrorReported(t *testing.T) {
	var reported []error
	boom := errors.New("boom")
	engine := newTestEngine(&countingSource{err: boom}, seededStore(t, time.Time{}, time.Time{}),
		WithErrorHandler(func(err error) { reported = append(reported, err) }))

	d := engine.Decide(context.Background(), DefaultPolicy(), false)
	if d.Present || d.Reason != ReasonNoData {
		t.Fatalf("Decision = %+v, want no-data skip", d)
	}
	if !errors.Is(d.Err, boom) {
		t.Errorf("Err = %v, want wrapping boom", d.Err)
	}
	if len(reported) != 1 || !apperrors.IsCode(reported[0], apperrors.CodeSourceFetch) {
		t.Errorf("reported = %v, want one source_fetch error", reported)
	}
}

func TestDecideStateLoadError(t *testing.T) {
	var reported error
	store := failingStore{Store: state.New(state.NewMemoryKV()), loadErr: errors.New("disk gone")}
	src := &countingSource{info: newInfo("1.0.0", "2.0.0")}
	engine := newTestEngine(src, store, WithErrorHandler(func(err error) { reported = err }))

	d := engine.Decide(context.Background(), DefaultPolicy(), false)
	if d.Present || d.Reason != ReasonError {
		t.Fatalf("Decision = %+v, want error skip", d)
	}
	if !apperrors.IsCode(reported, apperrors.CodeStateIO) {
		t.Errorf("reported = %v, want state_io", reported)
	}
	if src.calls.Load() != 0 {
		t.Error("source should not be fetched when state cannot be read")
	}
}

func TestDecideRecoversPanic(t *testing.T) {
	src := SourceFunc(func(context.Context) (*UpdateInfo, error) {
		panic("source exploded")
	})
	engine := newTestEngine(src, seededStore(t, time.Time{}, time.Time{}))

	d := engine.Decide(context.Background(), DefaultPolicy(), false)
	if d.Present || d.Reason != ReasonError {
		t.Fatalf("Decision = %+v, want error skip", d)
	}
	if !apperrors.IsCode(d.Err, apperrors.CodeEnginePanic) {
		t.Errorf("Err = %v, want engine_panic", d.Err)
	}
}

func TestDecideAlreadyPresenting(t *testing.T) {
	engine := newTestEngine(&countingSource{info: newInfo("1.0.0", "1.1.0")}, seededStore(t, time.Time{}, time.Time{}))
	policy := Policy{SnoozeDuration: time.Hour}
	ctx := context.Background()

	if d := engine.Decide(ctx, policy, false); !d.Present {
		t.Fatalf("first Decide = %+v, want present", d)
	}
	if d := engine.Decide(ctx, policy, false); d.Reason != ReasonAlreadyPresenting {
		t.Fatalf("second Decide = %q, want already-presenting", d.Reason)
	}

	engine.MarkAccepted()
	if engine.Presenting() {
		t.Error("MarkAccepted should release the guard")
	}
	if d := engine.Decide(ctx, policy, false); !d.Present {
		t.Fatalf("Decide after accept = %+v, want present", d)
	}

	engine.MarkClosed()
	if d := engine.Decide(ctx, policy, false); !d.Present {
		t.Fatalf("Decide after close = %+v, want present", d)
	}
}

func TestDecideConcurrentSinglePresenter(t *testing.T) {
	engine := newTestEngine(&countingSource{info: newInfo("1.0.0", "1.1.0")}, seededStore(t, time.Time{}, time.Time{}))
	policy := Policy{SnoozeDuration: time.Hour}

	const n = 16
	var (
		wg        sync.WaitGroup
		presented atomic.Int32
		blocked   atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d := engine.Decide(context.Background(), policy, false)
			switch d.Reason {
			case ReasonPresent:
				presented.Add(1)
			case ReasonAlreadyPresenting:
				blocked.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if presented.Load() != 1 {
		t.Errorf("presented = %d, want 1", presented.Load())
	}
	if blocked.Load() != n-1 {
		t.Errorf("already-presenting = %d, want %d", blocked.Load(), n-1)
	}
}

func TestMarkDismissedSnoozes(t *testing.T) {
	store := seededStore(t, time.Time{}, time.Time{})
	engine := newTestEngine(&countingSource{info: newInfo("1.0.0", "1.1.0")}, store)
	policy := Policy{SnoozeDuration: 72 * time.Hour}
	ctx := context.Background()

	if d := engine.Decide(ctx, policy, false); !d.Present {
		t.Fatalf("Decide = %+v, want present", d)
	}
	if err := engine.MarkDismissed(ctx, testNow); err != nil {
		t.Fatalf("MarkDismissed() error: %v", err)
	}
	if engine.Presenting() {
		t.Error("MarkDismissed should release the guard")
	}

	st, _ := store.Load(ctx)
	if !st.LastDismissedAt.Equal(testNow) {
		t.Errorf("LastDismissedAt = %s, want %s", st.LastDismissedAt, testNow)
	}
	if d := engine.Decide(ctx, policy, false); d.Reason != ReasonSnoozed {
		t.Errorf("Decide after dismiss = %q, want snoozed", d.Reason)
	}
}

func TestMarkDismissedReleasesGuardOnError(t *testing.T) {
	store := failingStore{Store: state.New(state.NewMemoryKV()), saveErr: errors.New("read-only")}
	engine := newTestEngine(&countingSource{info: newInfo("1.0.0", "1.1.0")}, store)
	ctx := context.Background()

	engine.Decide(ctx, Policy{}, false)
	err := engine.MarkDismissed(ctx, testNow)
	if !apperrors.IsCode(err, apperrors.CodeStateIO) {
		t.Errorf("MarkDismissed() error = %v, want state_io", err)
	}
	if engine.Presenting() {
		t.Error("guard should be released even when persisting fails")
	}
}

func TestEnginesDoNotShareGuard(t *testing.T) {
	policy := Policy{}
	a := newTestEngine(&countingSource{info: newInfo("1.0.0", "1.1.0")}, seededStore(t, time.Time{}, time.Time{}))
	b := newTestEngine(&countingSource{info: newInfo("1.0.0", "1.1.0")}, seededStore(t, time.Time{}, time.Time{}))

	if !a.Decide(context.Background(), policy, false).Present {
		t.Fatal("engine a should present")
	}
	if !b.Decide(context.Background(), policy, false).Present {
		t.Fatal("engine b should present independently")
	}
}

func TestPolicyForceActive(t *testing.T) {
	tests := []struct {
		policy Policy
		debug  bool
		want   bool
	}{
		{Policy{}, true, false},
		{Policy{ForceShow: true, ForceShowOnlyInDebug: true}, true, true},
		{Policy{ForceShow: true, ForceShowOnlyInDebug: true}, false, false},
		{Policy{ForceShow: true}, false, true},
	}
	for _, tt := range tests {
		if got := tt.policy.forceActive(tt.debug); got != tt.want {
			t.Errorf("%+v.forceActive(%t) = %t, want %t", tt.policy, tt.debug, got, tt.want)
		}
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.CheckInterval != 24*time.Hour {
		t.Errorf("CheckInterval = %s, want 24h", p.CheckInterval)
	}
	if p.SnoozeDuration != 72*time.Hour {
		t.Errorf("SnoozeDuration = %s, want 72h", p.SnoozeDuration)
	}
	if p.ForceShow || !p.ForceShowOnlyInDebug {
		t.Errorf("force flags = %t/%t, want false/true", p.ForceShow, p.ForceShowOnlyInDebug)
	}
}

func TestUpdateInfoIsUpdateAvailable(t *testing.T) {
	var nilInfo *UpdateInfo
	if nilInfo.IsUpdateAvailable() {
		t.Error("nil info should not report an update")
	}
	if !newInfo("1.0.0", "1.0.1").IsUpdateAvailable() {
		t.Error("1.0.1 > 1.0.0 should be available")
	}
	if newInfo("v1.0", "1.0.0").IsUpdateAvailable() {
		t.Error("v1.0 and 1.0.0 are equal")
	}
}
