package state

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds a Store for the named backend. The returned Closer must be
// closed when the store is no longer needed.
func Open(ctx context.Context, backend, path string) (Store, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite, "":
		kv, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return New(kv), kv, nil
	case BackendFile:
		kv, err := NewFileKV(path)
		if err != nil {
			return nil, nil, err
		}
		return New(kv), nopCloser{}, nil
	case BackendMemory:
		return New(NewMemoryKV()), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q (want sqlite, file or memory)", backend)
	}
}
