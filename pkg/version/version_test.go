package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_IsNotEmpty(t *testing.T) {
	assert.NotEmpty(t, Version)
}

func TestString_ContainsProgramAndVersion(t *testing.T) {
	// Given: the version package defaults

	// When: formatting the version string
	str := String()

	// Then: it names the program and includes build details
	assert.Contains(t, str, "amandocs")
	assert.Contains(t, str, Version)
	assert.Contains(t, str, "commit")
	assert.Contains(t, str, "go")
}

func TestShort_ReturnsVersion(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestGetInfo_ReportsRuntime(t *testing.T) {
	info := GetInfo()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
}

func TestGetInfo_IsJSONSerializable(t *testing.T) {
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(data, &parsed))
	for _, key := range []string{"version", "commit", "date", "go_version", "os", "arch"} {
		assert.Contains(t, parsed, key)
	}
}

func TestApplyVCS_FillsDefaultsOnly(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
	}

	// Given: info still at its ldflags defaults
	info := BuildInfo{Commit: "unknown", Date: "unknown"}

	// When: applying VCS settings
	applyVCS(&info, settings)

	// Then: the revision is shortened and the time copied
	assert.Equal(t, "0123456789ab", info.Commit)
	assert.Equal(t, "2026-01-02T03:04:05Z", info.Date)

	// Given: info injected via ldflags
	injected := BuildInfo{Commit: "abc", Date: "today"}

	// When: applying the same settings
	applyVCS(&injected, settings)

	// Then: injected values win
	assert.Equal(t, "abc", injected.Commit)
	assert.Equal(t, "today", injected.Date)
}
