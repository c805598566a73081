package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     any
		wantErr  bool
	}{
		{name: "empty defaults to static", provider: "", want: &StaticEmbedder{}},
		{name: "static", provider: "static", want: &StaticEmbedder{}},
		{name: "ollama case insensitive", provider: "Ollama", want: &OllamaEmbedder{}},
		{name: "unknown", provider: "word2vec", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Provider = tt.provider

			e, err := NewEmbedder(cfg)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, e)
			_ = e.Close()
		})
	}
}

func TestNewModelFromConfig_QueryModelIsCached(t *testing.T) {
	m, err := NewModelFromConfig(DefaultConfig(), true)
	require.NoError(t, err)

	assert.IsType(t, &CachedEmbedder{}, m.backend)
	assert.False(t, m.Loaded())
}
