package emu

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
)

// Config is the machine configuration read from a TOML file. Command line
// flags override it.
type Config struct {
	Region string      `toml:"region"` // auto, ntsc or pal
	Frames int         `toml:"frames"`
	Log    []string    `toml:"log"` // modules with debug output
	DMA    DMAConfig   `toml:"dma"`
	Trace  TraceConfig `toml:"trace"`
}

type DMAConfig struct {
	// FastSource lists 68K source windows, as [start, end) pairs, whose
	// DMA transfers skip the first word. Unset keeps the default window.
	FastSource [][2]uint32 `toml:"fast_source"`
}

type TraceConfig struct {
	Path string `toml:"path"` // JSON lines event trace, empty to disable
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Region: "auto",
		Frames: 60,
	}
}

// LoadConfig decodes the TOML file at path over the defaults. A missing
// file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undec[0].String())
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, _, err := ParseRegion(c.Region); err != nil {
		return err
	}
	if c.Frames < 0 {
		return fmt.Errorf("frames must not be negative (got %d)", c.Frames)
	}
	for _, w := range c.DMA.FastSource {
		if w[0] >= w[1] {
			return fmt.Errorf("empty fast DMA window [%06X, %06X)", w[0], w[1])
		}
	}
	return nil
}

// FastDMAWindows converts the configured windows. nil means the file did
// not set any.
func (c Config) FastDMAWindows() []AddressRange {
	if c.DMA.FastSource == nil {
		return nil
	}
	windows := make([]AddressRange, 0, len(c.DMA.FastSource))
	for _, w := range c.DMA.FastSource {
		windows = append(windows, AddressRange{Start: w[0], End: w[1]})
	}
	return windows
}
