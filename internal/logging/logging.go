// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the subnet manager's logger: a slog.Logger
// backed by a rotating file, honoring the log_flags bitmask, log_prefix,
// log_max_size, force_log_flush and accum_log_file options.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Flag is the log_flags bitmask; bit layout matches opensm's osm_log
// verbosity flags so operators migrating config files keep familiar values.
type Flag uint32

const (
	FlagError Flag = 1 << iota
	FlagInfo
	FlagVerbose
	FlagDebug
	FlagSys
	FlagFuncs
)

const defaultFlags = FlagError | FlagInfo | FlagSys

// Options configures the logger; field names mirror the config options
// so config.Options can be passed through directly.
type Options struct {
	LogFile       string
	LogMaxSizeMB  int
	LogFlags      Flag
	ForceFlush    bool
	AccumLogFile  bool
	LogPrefix     string
}

// Logger wraps slog with rotation and a forced-flush option. Safe for
// concurrent use; every dispatcher/pacer/receiver goroutine logs through
// the same instance.
type Logger struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	maxBytes   int64
	written    int64
	forceFlush bool
	prefix     string
	flags      Flag
	slog       *slog.Logger
}

// New opens (or creates) the log destination and returns a ready Logger.
// An empty LogFile logs to stderr.
func New(opt Options) (*Logger, error) {
	l := &Logger{
		maxBytes:   int64(opt.LogMaxSizeMB) * 1024 * 1024,
		forceFlush: opt.ForceFlush,
		prefix:     opt.LogPrefix,
		flags:      opt.LogFlags,
		path:       opt.LogFile,
	}
	if l.flags == 0 {
		l.flags = defaultFlags
	}
	if opt.LogFile == "" {
		l.slog = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		return l, nil
	}
	flags := os.O_CREATE | os.O_WRONLY
	if opt.AccumLogFile {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(opt.LogFile, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", opt.LogFile, err)
	}
	l.file = f
	if st, err := f.Stat(); err == nil {
		l.written = st.Size()
	}
	l.slog = slog.New(slog.NewTextHandler(l, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return l, nil
}

// Write implements io.Writer, performing size-based rotation and the
// optional forced flush/sync after every record.
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return os.Stderr.Write(p)
	}
	if l.maxBytes > 0 && l.written+int64(len(p)) > l.maxBytes {
		if err := l.rotateLocked(); err != nil {
			return 0, err
		}
	}
	var out io.Writer = l.file
	if l.prefix != "" {
		p = append([]byte(l.prefix), p...)
	}
	n, err := out.Write(p)
	l.written += int64(n)
	if l.forceFlush {
		_ = l.file.Sync()
	}
	return n, err
}

func (l *Logger) rotateLocked() error {
	rotated := l.path + ".1"
	_ = l.file.Close()
	_ = os.Rename(l.path, rotated)
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("rotating log file %s: %w", l.path, err)
	}
	l.file = f
	l.written = 0
	return nil
}

// Enabled reports whether the given verbosity flag is active.
func (l *Logger) Enabled(f Flag) bool { return l.flags&f != 0 }

func (l *Logger) log(level slog.Level, f Flag, msg string, args ...any) {
	if !l.Enabled(f) {
		return
	}
	l.slog.Log(context.Background(), level, msg, args...)
}

func (l *Logger) Error(msg string, args ...any)   { l.log(slog.LevelError, FlagError, msg, args...) }
func (l *Logger) Info(msg string, args ...any)    { l.log(slog.LevelInfo, FlagInfo, msg, args...) }
func (l *Logger) Verbose(msg string, args ...any) { l.log(slog.LevelInfo, FlagVerbose, msg, args...) }
func (l *Logger) Debug(msg string, args ...any)   { l.log(slog.LevelDebug, FlagDebug, msg, args...) }

// Close flushes and releases the underlying file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
