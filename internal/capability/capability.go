// Package capability decides whether this process should attempt semantic
// search. The decision is a pure function of a Profile gathered once per
// session; the session also remembers load failures so a failed model is
// never retried in the same session.
package capability

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMinMemory is the least available memory that permits semantic mode (1 GiB).
const DefaultMinMemory uint64 = 1 << 30

// Reasons reported in a Decision.
const (
	ReasonEnabled      = "semantic search enabled"
	ReasonOverride     = "keyword-only mode requested"
	ReasonPriorFailure = "semantic loading already failed in this session"
	ReasonLowMemory    = "insufficient memory"
	ReasonNoCPU        = "no usable CPU"
)

// Profile describes the environment a decision is made for.
type Profile struct {
	AvailableMemory uint64
	CPUs            int
	PriorFailures   int
	KeywordOnly     bool
	// MinMemory overrides DefaultMinMemory when non-zero.
	MinMemory uint64
}

// Decision is the outcome of Assess.
type Decision struct {
	SemanticEnabled bool
	Reason          string
}

// Assess decides whether semantic mode is allowed. Checks run in a fixed
// order and the first refusal wins.
func Assess(p Profile) Decision {
	minMemory := p.MinMemory
	if minMemory == 0 {
		minMemory = DefaultMinMemory
	}

	switch {
	case p.KeywordOnly:
		return Decision{Reason: ReasonOverride}
	case p.PriorFailures > 0:
		return Decision{Reason: ReasonPriorFailure}
	case p.AvailableMemory < minMemory:
		return Decision{Reason: fmt.Sprintf("%s: %s available, %s required",
			ReasonLowMemory, FormatBytes(p.AvailableMemory), FormatBytes(minMemory))}
	case p.CPUs < 1:
		return Decision{Reason: ReasonNoCPU}
	default:
		return Decision{SemanticEnabled: true, Reason: ReasonEnabled}
	}
}

// Failure is a recorded semantic load failure.
type Failure struct {
	At     time.Time
	Reason string
}

// Session is the lifetime of one search process.
type Session struct {
	id string

	mu       sync.Mutex
	failures []Failure
}

// NewSession starts a session with a fresh ID.
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// RecordFailure notes a failed semantic load.
func (s *Session) RecordFailure(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, Failure{At: time.Now(), Reason: reason})
}

// Failures returns a copy of the recorded failures.
func (s *Session) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Failure(nil), s.failures...)
}

// DetectProfile gathers the current profile for session.
func DetectProfile(session *Session, keywordOnly bool, minMemory uint64) Profile {
	p := Profile{
		AvailableMemory: EstimateAvailableMemory(),
		CPUs:            runtime.NumCPU(),
		KeywordOnly:     keywordOnly,
		MinMemory:       minMemory,
	}
	if session != nil {
		p.PriorFailures = len(session.Failures())
	}
	return p
}

// FormatBytes formats bytes as a human-readable string.
func FormatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
