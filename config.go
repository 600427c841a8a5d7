package vkframe

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads and writes as a string such as
// "500ms" in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// RendererConfig configures the frame loop.
type RendererConfig struct {
	// FramesInFlight is the number of frames the CPU may record ahead of the
	// GPU. It is fixed for the lifetime of a Renderer.
	FramesInFlight int `toml:"frames_in_flight"`
	// FenceTimeout bounds the wait for a frame slot's fence. Exceeding it is
	// treated as device loss.
	FenceTimeout Duration `toml:"fence_timeout"`
}

// SwapchainOptions configures image acquisition and recreation.
type SwapchainOptions struct {
	AcquireTimeout Duration `toml:"acquire_timeout"`
	// DesiredImages is the requested image count; 0 lets the backend pick.
	DesiredImages int  `toml:"desired_images"`
	PreferMailbox bool `toml:"prefer_mailbox"`
	// MinimizedPoll is the interval used while waiting for a minimized
	// surface to become visible again.
	MinimizedPoll Duration `toml:"minimized_poll"`
}

// Config is the top level configuration of a Context.
type Config struct {
	AppName   string           `toml:"app_name"`
	Debug     bool             `toml:"debug"`
	Renderer  RendererConfig   `toml:"renderer"`
	Swapchain SwapchainOptions `toml:"swapchain"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		AppName: "vkframe",
		Renderer: RendererConfig{
			FramesInFlight: 2,
			FenceTimeout:   Duration(time.Second),
		},
		Swapchain: SwapchainOptions{
			AcquireTimeout: Duration(time.Second),
			PreferMailbox:  true,
			MinimizedPoll:  Duration(50 * time.Millisecond),
		},
	}
}

// ParseConfig decodes TOML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the TOML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Renderer.FramesInFlight < 1 {
		return fmt.Errorf("renderer.frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if c.Renderer.FenceTimeout <= 0 {
		return fmt.Errorf("renderer.fence_timeout must be positive")
	}
	if c.Swapchain.AcquireTimeout <= 0 {
		return fmt.Errorf("swapchain.acquire_timeout must be positive")
	}
	if c.Swapchain.DesiredImages < 0 {
		return fmt.Errorf("swapchain.desired_images must not be negative")
	}
	if c.Swapchain.MinimizedPoll <= 0 {
		return fmt.Errorf("swapchain.minimized_poll must be positive")
	}
	return nil
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
