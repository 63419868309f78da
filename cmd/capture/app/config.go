package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/rigol-scope/internal/scope"
	"github.com/roman-kulish/rigol-scope/internal/usbtmc"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	defaultOutputFile = "capture"
	defaultWidth      = 1200
	defaultHeight     = 600

	minWidth  = 240
	minHeight = 160
)

type ImageFormat string

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

// Config represents the capture configuration file
type Config struct {
	Settings    Settings          `yaml:"settings"`
	Device      DeviceConfig      `yaml:"device"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Channel     int               `yaml:"channel"`
	Output      OutputConfig      `yaml:"output"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses LogLevel; an empty value is INFO
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if s.LogLevel == "" {
		return level, nil
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	return level, nil
}

// DeviceConfig selects the oscilloscope and the pacing of commands
type DeviceConfig struct {
	usbtmc.Config `yaml:",inline"`
	SettleDelay   *usbtmc.Duration `yaml:"settleDelay"`
}

// AcquisitionConfig holds the instrument settings applied before capturing.
// Nil values leave the instrument untouched.
type AcquisitionConfig struct {
	Auto        bool     `yaml:"auto"`
	Run         bool     `yaml:"run"`
	TimeMode    *string  `yaml:"timeMode"`
	TimeScale   *float64 `yaml:"timeScale"`
	TimeOffset  *float64 `yaml:"timeOffset"`
	AcquireMode *string  `yaml:"acquireMode"`
	Averages    *int     `yaml:"averages"`
	MemoryDepth *string  `yaml:"memoryDepth"`
	KeysLocked  *bool    `yaml:"keysLocked"`
}

// OutputConfig describes the rendered plot
type OutputConfig struct {
	File   string      `yaml:"file"`
	Format ImageFormat `yaml:"format"`
	Theme  Theme       `yaml:"theme"`
	Width  int         `yaml:"width"`
	Height int         `yaml:"height"`
}

// Path returns File with the image format extension appended when it has none
func (o OutputConfig) Path() string {
	if filepath.Ext(o.File) != "" {
		return o.File
	}
	return fmt.Sprintf("%s.%s", o.File, o.Format)
}

func NewConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: "info"},
		Device:   DeviceConfig{Config: usbtmc.DefaultConfig()},
		Acquisition: AcquisitionConfig{
			Auto: true,
			Run:  true,
		},
		Channel: 1,
		Output: OutputConfig{
			File:   defaultOutputFile,
			Format: ImagePNG,
			Theme:  ClassicTheme,
			Width:  defaultWidth,
			Height: defaultHeight,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults and validates the result
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML data over the defaults and validates the result
func ParseConfig(data []byte) (*Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	c.Device.Config = c.Device.Config.WithDefaults()
	c.Output.Format = ImageFormat(strings.ToLower(string(c.Output.Format)))
	c.Output.Theme = Theme(strings.ToLower(string(c.Output.Theme)))

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if _, err := c.Settings.Level(); err != nil {
		return usbtmc.NewConfigError("settings: %s", err)
	}
	if err := c.Device.Config.Validate(); err != nil {
		return err
	}
	if c.Device.SettleDelay != nil && *c.Device.SettleDelay < 0 {
		return usbtmc.NewConfigError("device: settle delay must not be negative: %s", c.Device.SettleDelay)
	}
	if err := c.Acquisition.Validate(); err != nil {
		return err
	}
	if c.Channel < 1 || c.Channel > scope.Channels {
		return usbtmc.NewConfigError("channel must be between 1 and %d: %d", scope.Channels, c.Channel)
	}
	return c.Output.Validate()
}

func (a *AcquisitionConfig) Validate() error {
	if a.TimeMode != nil {
		if _, ok := scope.ParseTimeMode(*a.TimeMode); !ok {
			return usbtmc.NewConfigError("acquisition: invalid time mode: %s", *a.TimeMode)
		}
	}
	if a.TimeScale != nil && *a.TimeScale <= 0 {
		return usbtmc.NewConfigError("acquisition: time scale must be positive: %g", *a.TimeScale)
	}
	if a.AcquireMode != nil {
		if _, ok := scope.ParseAcquireMode(*a.AcquireMode); !ok {
			return usbtmc.NewConfigError("acquisition: invalid acquire mode: %s", *a.AcquireMode)
		}
	}
	if a.Averages != nil && !scope.ValidAverages(*a.Averages) {
		return usbtmc.NewConfigError("acquisition: averages must be a power of 2 from 2 to 128: %d", *a.Averages)
	}
	if a.MemoryDepth != nil {
		if _, ok := scope.ParseMemoryDepth(*a.MemoryDepth); !ok {
			return usbtmc.NewConfigError("acquisition: invalid memory depth: %s", *a.MemoryDepth)
		}
	}
	return nil
}

func (o *OutputConfig) Validate() error {
	if o.File == "" {
		return usbtmc.NewConfigError("output: file is required")
	}
	if _, ok := validImageFormats[o.Format]; !ok {
		return usbtmc.NewConfigError("output: invalid image format: %s", o.Format)
	}
	if _, ok := themes[o.Theme]; !ok {
		return usbtmc.NewConfigError("output: invalid theme: %s", o.Theme)
	}
	if o.Width < minWidth || o.Height < minHeight {
		return usbtmc.NewConfigError("output: image must be at least %dx%d: %dx%d", minWidth, minHeight, o.Width, o.Height)
	}
	return nil
}
