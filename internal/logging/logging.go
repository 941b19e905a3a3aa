// Package logging builds the charm logger used by the commands.
package logging

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// timestampWriter prefixes each flushed line with an RFC3339 timestamp.
type timestampWriter struct {
	w   io.Writer
	buf bytes.Buffer
	mu  sync.Mutex
	now func() time.Time
}

// Write buffers bytes until a newline is found; each full line is written to
// the underlying writer with a timestamp. Partial lines stay buffered.
func (t *timestampWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, _ := t.buf.Write(p)
	for {
		line, err := t.buf.ReadString('\n')
		if err != nil {
			// put the partial line back
			t.buf.WriteString(line)
			break
		}
		ts := t.now().Format(time.RFC3339)
		if _, err := t.w.Write([]byte(ts + " " + line)); err != nil {
			return n, err
		}
	}
	return n, nil
}

// terminalWriter exposes Fd so the logger's TTY detection works through
// wrapped writers.
type terminalWriter struct {
	w  io.Writer
	fd uintptr
}

func (tw *terminalWriter) Write(p []byte) (int, error) { return tw.w.Write(p) }

// Fd returns the underlying file descriptor (e.g. os.Stderr.Fd()).
func (tw *terminalWriter) Fd() uintptr { return tw.fd }

// Options configures New.
type Options struct {
	// File, when set, receives a copy of every line (append mode).
	File    string
	Level   string
	Verbose bool
	Prefix  string
	// Out defaults to os.Stderr.
	Out *os.File
}

// ParseLevel maps a config string to a level. Unknown values report ok=false
// and fall back to info.
func ParseLevel(s string) (log.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, true
	case "info", "":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	default:
		return log.InfoLevel, false
	}
}

// New returns a logger and a closer for the optional log file. The closer is
// never nil.
func New(o Options) (*log.Logger, func() error) {
	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	var dst io.Writer = out
	closer := func() error { return nil }
	var fileErr error
	if o.File != "" {
		f, err := os.OpenFile(o.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			dst = io.MultiWriter(out, f)
			closer = f.Close
		} else {
			fileErr = err
		}
	}
	if fi, err := out.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		_ = os.Setenv("FORCE_COLOR", "1")
	}

	tw := &timestampWriter{w: dst, now: time.Now}
	logger := log.New(&terminalWriter{w: tw, fd: out.Fd()})
	if o.Prefix != "" {
		logger.SetPrefix(o.Prefix)
	}

	if o.Verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		lvl, ok := ParseLevel(o.Level)
		logger.SetLevel(lvl)
		if !ok {
			logger.Warn("unknown log_level, defaulting to info", "provided", o.Level)
		}
	}
	if fileErr != nil {
		logger.Warn("log_file could not be opened; logging to stderr only", "path", o.File, "err", fileErr)
	}
	return logger, closer
}
