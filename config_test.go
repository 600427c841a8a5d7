package vkframe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Renderer.FramesInFlight)
	assert.Equal(t, time.Second, cfg.Renderer.FenceTimeout.Std())
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
app_name = "cube"
debug = true

[renderer]
frames_in_flight = 3
fence_timeout = "250ms"

[swapchain]
desired_images = 4
prefer_mailbox = false
`))
	require.NoError(t, err)

	assert.Equal(t, "cube", cfg.AppName)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 3, cfg.Renderer.FramesInFlight)
	assert.Equal(t, 250*time.Millisecond, cfg.Renderer.FenceTimeout.Std())
	assert.Equal(t, 4, cfg.Swapchain.DesiredImages)
	assert.False(t, cfg.Swapchain.PreferMailbox)
	// unset keys keep their defaults
	assert.Equal(t, time.Second, cfg.Swapchain.AcquireTimeout.Std())
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero frames":  "[renderer]\nframes_in_flight = 0\n",
		"bad duration": "[renderer]\nfence_timeout = \"soon\"\n",
		"neg images":   "[swapchain]\ndesired_images = -1\n",
		"not toml":     "[renderer\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vkframe.toml")

	cfg := DefaultConfig()
	cfg.Renderer.FramesInFlight = 3
	data, err := cfg.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
