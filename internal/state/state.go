// Package state persists the timestamps that gate update prompts.
//
// Two entries are kept under fixed keys, each an RFC 3339 timestamp string:
//
//	nudge.lastCheckedAt    last time a check reached the update source
//	nudge.lastDismissedAt  last time the user snoozed a prompt
//
// Entries are overwritten, never accumulated. Backends only need to provide
// string get/set (KV); Store layers the timestamp encoding on top.
package state

import (
	"context"
	"fmt"
	"time"
)

// Fixed keys shared by every backend.
const (
	KeyLastCheckedAt   = "nudge.lastCheckedAt"
	KeyLastDismissedAt = "nudge.lastDismissedAt"
)

// CheckState is the persisted pair of timestamps. A zero time means the
// entry has never been written.
type CheckState struct {
	LastCheckedAt   time.Time
	LastDismissedAt time.Time
}

// KV is a minimal string key-value backend.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value for key.
	Set(ctx context.Context, key, value string) error
}

// Store reads and writes CheckState.
type Store interface {
	Load(ctx context.Context) (CheckState, error)
	SaveLastChecked(ctx context.Context, at time.Time) error
	SaveLastDismissed(ctx context.Context, at time.Time) error
}

type kvStore struct {
	kv KV
}

// New returns a Store backed by kv.
func New(kv KV) Store {
	return &kvStore{kv: kv}
}

func (s *kvStore) Load(ctx context.Context) (CheckState, error) {
	var st CheckState
	var err error
	if st.LastCheckedAt, err = s.load(ctx, KeyLastCheckedAt); err != nil {
		return CheckState{}, err
	}
	if st.LastDismissedAt, err = s.load(ctx, KeyLastDismissedAt); err != nil {
		return CheckState{}, err
	}
	return st, nil
}

func (s *kvStore) SaveLastChecked(ctx context.Context, at time.Time) error {
	return s.save(ctx, KeyLastCheckedAt, at)
}

func (s *kvStore) SaveLastDismissed(ctx context.Context, at time.Time) error {
	return s.save(ctx, KeyLastDismissedAt, at)
}

func (s *kvStore) load(ctx context.Context, key string) (time.Time, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", key, err)
	}
	return t, nil
}

func (s *kvStore) save(ctx context.Context, key string, at time.Time) error {
	if err := s.kv.Set(ctx, key, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
