// Package debug provides the diagnostic log for nudge.
// --debug (or debug: true) writes the log to ~/.nudge/debug.log, or to
// debug-log when set, truncated on each launch. --verbose mirrors the same
// lines to stderr. Without either, logging is a no-op.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// LogFileName is the name of the debug log file.
	LogFileName = "debug.log"
	// LogDirName is the name of the directory containing the log file.
	LogDirName = ".nudge"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  *log.Logger
	logFile *os.File

	// getLogPath is a function variable to allow overriding in tests.
	getLogPath = defaultGetLogPath
)

// Option adjusts Init.
type Option func(*initOptions)

type initOptions struct {
	path   string
	mirror io.Writer
}

// WithPath writes the log file to path instead of ~/.nudge/debug.log.
func WithPath(path string) Option {
	return func(o *initOptions) { o.path = path }
}

// WithMirror copies every log line to w.
func WithMirror(w io.Writer) Option {
	return func(o *initOptions) { o.mirror = w }
}

// Init initializes the debug logging system.
// enable turns on the log file. A mirror alone (--verbose without --debug)
// logs to the mirror only. With neither, all logging operations are no-ops.
func Init(enable bool, opts ...Option) error {
	mu.Lock()
	defer mu.Unlock()

	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}

	closeLocked()
	enabled = enable || o.mirror != nil
	if !enabled {
		logger = log.New(io.Discard, "", 0)
		return nil
	}

	var writers []io.Writer
	if enable {
		f, err := openLogFile(o.path)
		if err != nil {
			enabled = o.mirror != nil
			logger = log.New(io.Discard, "", 0)
			if o.mirror != nil {
				logger = log.New(o.mirror, "", log.Ltime)
			}
			return err
		}
		logFile = f
		_, _ = fmt.Fprintf(f, "=== nudge debug log started at %s ===\n", time.Now().Format(time.RFC3339))
		writers = append(writers, f)
	}
	if o.mirror != nil {
		writers = append(writers, o.mirror)
	}
	logger = log.New(io.MultiWriter(writers...), "", log.Ldate|log.Ltime|log.Lmicroseconds)

	return nil
}

func openLogFile(path string) (*os.File, error) {
	logPath := path
	if logPath == "" {
		p, err := getLogPath()
		if err != nil {
			return nil, fmt.Errorf("determine log path: %w", err)
		}
		logPath = p
	}

	//nolint:gosec // G301: user config directory needs standard permissions
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	//nolint:gosec // G304: log path is computed from user home or config
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Close closes the debug log file if open.
// Safe to call even if logging is disabled.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// Log writes a debug message if debug logging is enabled.
// Arguments are handled in the manner of fmt.Print.
func Log(v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if !enabled || logger == nil {
		return
	}
	logger.Print(v...)
}

// Logf writes a formatted debug message if debug logging is enabled.
// Arguments are handled in the manner of fmt.Printf.
func Logf(format string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if !enabled || logger == nil {
		return
	}
	logger.Printf(format, v...)
}

// Enabled returns whether debug logging is currently enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func defaultGetLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, LogDirName, LogFileName), nil
}

// GetLogPath returns the default path of the debug log file.
func GetLogPath() (string, error) {
	return getLogPath()
}
