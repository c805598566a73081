package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/amandocs/internal/corpus"
	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/output"
)

// CheckStatus is the result of a check.
type CheckStatus int

const (
	// StatusPass indicates the check passed.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical problem.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status by name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult holds the result of a single check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical reports whether a required check failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Target describes the project under inspection.
type Target struct {
	ProjectDir    string
	CorpusDir     string
	CorpusOptions corpus.LoadOptions
	IndexDir      string
	CacheBackend  string
	CachePath     string
	// MinMemory is the semantic-mode memory floor in bytes.
	MinMemory uint64
}

// ModelFactory creates the configured embedding model, unloaded.
type ModelFactory func() (*embed.Model, error)

// Checker runs checks against a Target.
type Checker struct {
	target      Target
	newModel    ModelFactory
	loadTimeout time.Duration
	verbose     bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithModel enables the embedder check.
func WithModel(fn ModelFactory) Option {
	return func(c *Checker) {
		c.newModel = fn
	}
}

// WithLoadTimeout bounds the embedder check.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.loadTimeout = d
	}
}

// WithVerbose prints check details.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// New creates a Checker for target.
func New(target Target, opts ...Option) *Checker {
	c := &Checker{
		target:      target,
		loadTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check in a fixed order.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	results := []CheckResult{
		c.CheckDiskSpace(c.target.ProjectDir),
		c.CheckWritePermissions(c.target.IndexDir),
		c.CheckFileDescriptors(),
		c.CheckMemory(),
		c.CheckCorpus(ctx),
		c.CheckIndex(),
		c.CheckCache(ctx),
	}
	if c.newModel != nil {
		results = append(results, c.CheckEmbedder(ctx))
	}
	return results
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns ready, ready_with_warnings or failed.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status == StatusWarn || r.Status == StatusFail {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints results through w.
func (c *Checker) PrintResults(w *output.Writer, results []CheckResult) {
	st := w.Styles()
	w.Header("amandocs doctor")
	w.Newline()

	for _, r := range results {
		var icon string
		switch r.Status {
		case StatusPass:
			icon = st.Success.Render("PASS")
		case StatusWarn:
			icon = st.Warning.Render("WARN")
		default:
			icon = st.Error.Render("FAIL")
		}
		w.Statusf("["+icon+"]", "%s: %s", r.Name, r.Message)
		if c.verbose && r.Details != "" {
			w.Status("      ", st.Dim.Render(r.Details))
		}
	}

	w.Newline()
	_, _ = fmt.Fprintf(w.Out(), "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))
}

// CheckWritePermissions checks that dir can be created and written.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{Name: "write_permissions", Required: true}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}
	f, err := os.CreateTemp(dir, ".amandocs-doctor-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "OK"
	result.Details = filepath.Clean(dir)
	return result
}
