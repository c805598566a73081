package search

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

const topTermsCapacity = 100

// Stats aggregates query statistics in memory. Safe for concurrent use.
type Stats struct {
	mu          sync.Mutex
	queries     int64
	zeroResults int64
	modes       map[Mode]int64
	latencies   map[LatencyBucket]int64
	topTerms    *lru.Cache[string, int64]
	startTime   time.Time
}

// NewStats creates an empty collector.
func NewStats() *Stats {
	topTerms, _ := lru.New[string, int64](topTermsCapacity)
	return &Stats{
		modes:     make(map[Mode]int64),
		latencies: make(map[LatencyBucket]int64),
		topTerms:  topTerms,
		startTime: time.Now(),
	}
}

// Record captures one completed query.
func (s *Stats) Record(mode Mode, terms []string, results int, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries++
	s.modes[mode]++
	if results == 0 {
		s.zeroResults++
	}
	s.latencies[LatencyToBucket(latency)]++
	for _, term := range terms {
		count, _ := s.topTerms.Get(term)
		s.topTerms.Add(term, count+1)
	}
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// StatsSnapshot is a point-in-time copy of the statistics.
type StatsSnapshot struct {
	Queries             int64                   `json:"queries"`
	ZeroResults         int64                   `json:"zero_results"`
	Modes               map[Mode]int64          `json:"modes"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	Uptime              time.Duration           `json:"uptime"`
}

// Snapshot returns the current statistics. TopTerms is sorted by count.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Queries:             s.queries,
		ZeroResults:         s.zeroResults,
		Modes:               make(map[Mode]int64, len(s.modes)),
		LatencyDistribution: make(map[LatencyBucket]int64, len(s.latencies)),
		Uptime:              time.Since(s.startTime),
	}
	for k, v := range s.modes {
		snap.Modes[k] = v
	}
	for k, v := range s.latencies {
		snap.LatencyDistribution[k] = v
	}
	for _, term := range s.topTerms.Keys() {
		if count, ok := s.topTerms.Peek(term); ok {
			snap.TopTerms = append(snap.TopTerms, TermCount{Term: term, Count: count})
		}
	}
	sort.SliceStable(snap.TopTerms, func(i, j int) bool {
		if snap.TopTerms[i].Count != snap.TopTerms[j].Count {
			return snap.TopTerms[i].Count > snap.TopTerms[j].Count
		}
		return snap.TopTerms[i].Term < snap.TopTerms[j].Term
	})
	return snap
}
