package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
)

// LogEntry is one parsed line of a JSON log file.
type LogEntry struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs map[string]any
	// Raw is the original line; Valid is false when it was not JSON.
	Raw   string
	Valid bool
}

// ViewerConfig filters the entries a Viewer returns.
type ViewerConfig struct {
	// MinLevel drops entries below this level. Empty keeps everything.
	MinLevel string
	Pattern  *regexp.Regexp
}

// Viewer reads amandocs log files.
type Viewer struct {
	cfg      ViewerConfig
	minLevel int
}

// NewViewer creates a viewer with cfg.
func NewViewer(cfg ViewerConfig) *Viewer {
	return &Viewer{cfg: cfg, minLevel: levelRank(cfg.MinLevel)}
}

// Tail returns the last n matching entries of path.
func (v *Viewer) Tail(path string, n int) ([]LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var entries []LogEntry
	for sc.Scan() {
		e := ParseLine(sc.Text())
		if !v.keep(e) {
			continue
		}
		entries = append(entries, e)
		if n > 0 && len(entries) > n {
			entries = entries[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return entries, nil
}

// Follow calls fn for every matching line appended to path until ctx ends.
func (v *Viewer) Follow(ctx context.Context, path string, fn func(LogEntry)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	r := bufio.NewReader(f)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				chunk, err := r.ReadString('\n')
				partial += chunk
				if err != nil {
					break
				}
				line := strings.TrimRight(partial, "\r\n")
				partial = ""
				if line == "" {
					continue
				}
				if e := ParseLine(line); v.keep(e) {
					fn(e)
				}
			}
		}
	}
}

func (v *Viewer) keep(e LogEntry) bool {
	if v.minLevel > 0 && e.Valid && levelRank(e.Level) < v.minLevel {
		return false
	}
	if v.cfg.Pattern != nil && !v.cfg.Pattern.MatchString(e.Raw) {
		return false
	}
	return true
}

// ParseLine decodes one JSON log line. Non-JSON lines are returned with
// Valid unset and Msg holding the raw text.
func ParseLine(line string) LogEntry {
	e := LogEntry{Raw: line, Msg: line}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return e
	}

	e.Valid = true
	if s, ok := fields["msg"].(string); ok {
		e.Msg = s
	}
	if s, ok := fields["level"].(string); ok {
		e.Level = strings.ToUpper(s)
	}
	if s, ok := fields["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			e.Time = t
		}
	}
	delete(fields, "msg")
	delete(fields, "level")
	delete(fields, "time")
	e.Attrs = fields
	return e
}

func levelRank(level string) int {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return 1
	case "INFO":
		return 2
	case "WARN", "WARNING":
		return 3
	case "ERROR":
		return 4
	default:
		return 0
	}
}
