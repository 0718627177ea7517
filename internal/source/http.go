// Package source fetches update information from remote origins.
//
// Three variants implement update.Source:
//   - JSON reads a small JSON document from a URL
//   - Store scrapes a public store listing, optionally combined with a native check
//   - Lookup queries a bundle-id keyed lookup API
//
// All of them share the same functional options for HTTP behaviour.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"nudge/internal/debug"
	"nudge/internal/update"
)

// Default configuration values.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultUserAgent = "nudge-update-checker"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 4 << 20
)

type settings struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	baseURL    string
	headers    map[string]string
	language   string
	country    string
	native     NativeChecker
}

// Option configures a source.
type Option func(*settings)

// WithHTTPClient sets a custom HTTP client for the source. A nil client
// keeps the default.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout. It applies to a copy of the client,
// so a shared client passed through WithHTTPClient is left untouched.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		s.userAgent = ua
	}
}

// WithBaseURL replaces the endpoint a source talks to. Query parameters are
// still added by the source.
func WithBaseURL(base string) Option {
	return func(s *settings) {
		s.baseURL = base
	}
}

// WithHeaders adds request headers.
func WithHeaders(headers map[string]string) Option {
	return func(s *settings) {
		if s.headers == nil {
			s.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			s.headers[k] = v
		}
	}
}

// WithLanguage sets the listing language (store listing only).
func WithLanguage(lang string) Option {
	return func(s *settings) {
		s.language = lang
	}
}

// WithCountry sets the storefront country.
func WithCountry(country string) Option {
	return func(s *settings) {
		s.country = country
	}
}

// WithNativeChecker enables the platform availability check (store listing only).
func WithNativeChecker(n NativeChecker) Option {
	return func(s *settings) {
		s.native = n
	}
}

func newSettings(defaultBase string, opts []Option) settings {
	s := settings{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
		baseURL:    defaultBase,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.timeout > 0 {
		c := *s.httpClient
		c.Timeout = s.timeout
		s.httpClient = &c
	}
	return s
}

// endpoint returns the base URL with query appended.
func (s settings) endpoint(query url.Values) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// get fetches rawURL and returns the body of a 200 response.
func (s settings) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", s.userAgent)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", update.ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", update.ErrNetworkFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", update.ErrNetworkFailure, err)
	}
	debug.Logf("source: GET %s -> %d bytes", rawURL, len(body))
	return body, nil
}
