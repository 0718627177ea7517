package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"nudge/internal/config"
	"nudge/internal/debug"
	"nudge/internal/source"
	"nudge/internal/state"
	"nudge/internal/update"
)

// launcher opens store intents and update URLs. Tests replace it.
var launcher update.URLLauncher = update.SystemLauncher{}

// app holds the wired components for one command invocation.
type app struct {
	source     update.Source
	store      state.Store
	closer     io.Closer
	engine     *update.Engine
	dispatcher *update.Dispatcher
	timeout    time.Duration
	format     string
	errors     []error
}

func newApp(ctx context.Context) (*app, error) {
	src, err := buildSource()
	if err != nil {
		return nil, err
	}

	backend := config.GetString(config.KeyStateBackend)
	path, err := config.StatePath(backend)
	if err != nil {
		return nil, err
	}
	store, closer, err := state.Open(ctx, backend, path)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	a := &app{
		source:  src,
		store:   store,
		closer:  closer,
		timeout: config.GetDuration(config.KeyCheckTimeout),
		format:  config.GetString(config.KeyOutputFormat),
	}
	report := func(err error) {
		a.errors = append(a.errors, err)
		debug.Logf("nudge: %v", err)
	}

	a.engine = update.NewEngine(src, store,
		update.WithDebugBuild(config.GetBool(config.KeyDebugBuild)),
		update.WithErrorHandler(report),
	)
	a.dispatcher = update.NewDispatcher(config.GetString(config.KeyAppPackage),
		update.WithLauncher(launcher),
		update.WithDispatchErrorHandler(report),
		update.WithCompletionHandler(func(f update.Flow) {
			debug.Logf("nudge: %s update flow finished", f)
		}),
	)
	return a, nil
}

func (a *app) Close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

// withTimeout bounds a source fetch by check.timeout.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func buildSource() (update.Source, error) {
	kind, err := config.SourceKind()
	if err != nil {
		return nil, err
	}
	pkg := source.StaticPackage{
		Name:    config.GetString(config.KeyAppPackage),
		Version: config.GetString(config.KeyAppVersion),
	}
	opts := []source.Option{source.WithUserAgent("nudge/" + Version)}
	if base := strings.TrimSpace(config.GetString(config.KeySourceURL)); base != "" && kind != config.SourceJSON {
		opts = append(opts, source.WithBaseURL(base))
	}

	switch kind {
	case config.SourceStore:
		opts = append(opts,
			source.WithLanguage(config.GetString(config.KeyStoreLanguage)),
			source.WithCountry(config.GetString(config.KeyStoreCountry)))
		return source.NewStore(pkg, opts...), nil
	case config.SourceLookup:
		if id := strings.TrimSpace(config.GetString(config.KeyLookupBundle)); id != "" {
			pkg.Name = id
		}
		opts = append(opts, source.WithCountry(config.GetString(config.KeyLookupCountry)))
		return source.NewLookup(pkg, opts...), nil
	default:
		url := strings.TrimSpace(config.GetString(config.KeySourceURL))
		if url == "" {
			return nil, fmt.Errorf("%s is required for the json source", config.KeySourceURL)
		}
		opts = append(opts, source.WithHeaders(config.Headers()))
		return source.NewJSON(url, pkg, opts...), nil
	}
}
