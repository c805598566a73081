package capability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssess(t *testing.T) {
	healthy := Profile{AvailableMemory: 8 << 30, CPUs: 4}

	tests := []struct {
		name    string
		mutate  func(p *Profile)
		enabled bool
		reason  string
	}{
		{name: "healthy", mutate: func(*Profile) {}, enabled: true, reason: ReasonEnabled},
		{name: "override wins over everything", mutate: func(p *Profile) { p.KeywordOnly = true; p.PriorFailures = 1; p.AvailableMemory = 0 }, reason: ReasonOverride},
		{name: "prior failure", mutate: func(p *Profile) { p.PriorFailures = 1 }, reason: ReasonPriorFailure},
		{name: "low memory", mutate: func(p *Profile) { p.AvailableMemory = 512 << 20 }, reason: ReasonLowMemory},
		{name: "custom minimum", mutate: func(p *Profile) { p.MinMemory = 16 << 30 }, reason: ReasonLowMemory},
		{name: "no cpu", mutate: func(p *Profile) { p.CPUs = 0 }, reason: ReasonNoCPU},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthy
			tt.mutate(&p)

			d := Assess(p)

			assert.Equal(t, tt.enabled, d.SemanticEnabled)
			assert.Contains(t, d.Reason, tt.reason)
		})
	}
}

func TestSession_FailureDisablesSemantic(t *testing.T) {
	s := NewSession()
	assert.NotEmpty(t, s.ID())

	s.RecordFailure("model load timed out")
	p := DetectProfile(s, false, 1)

	assert.Equal(t, 1, p.PriorFailures)
	assert.False(t, Assess(p).SemanticEnabled)
	assert.Equal(t, "model load timed out", s.Failures()[0].Reason)
}

func TestSession_IDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewSession().ID(), NewSession().ID())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestEstimateFrom(t *testing.T) {
	dir := t.TempDir()
	meminfo := writeFile(t, dir, "meminfo", "MemTotal:       16000000 kB\nMemFree:         1000000 kB\nMemAvailable:    2000000 kB\n")
	limit := writeFile(t, dir, "memory.max", "3221225472\n")
	usage := writeFile(t, dir, "memory.current", "1073741824\n")
	unlimited := writeFile(t, dir, "unlimited", "max\n")
	v1huge := writeFile(t, dir, "v1", "9223372036854771712\n")

	tests := []struct {
		name string
		src  memorySources
		want uint64
	}{
		{name: "cgroup v2 headroom", src: memorySources{cgroupV2Max: limit, cgroupV2Current: usage, meminfo: meminfo}, want: 2 << 30},
		{name: "cgroup max falls through to meminfo", src: memorySources{cgroupV2Max: unlimited, meminfo: meminfo}, want: 2000000 * 1024},
		{name: "cgroup v1 unlimited falls through", src: memorySources{cgroupV1Limit: v1huge, meminfo: meminfo}, want: 2000000 * 1024},
		{name: "nothing readable", src: memorySources{meminfo: filepath.Join(dir, "missing")}, want: FallbackMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, estimateFrom(tt.src))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "1.0 GB", FormatBytes(1<<30))
	assert.Equal(t, "512 bytes", FormatBytes(512))
}
