package usbtmc

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultVendorID is Rigol Technologies
	DefaultVendorID = 0x1AB1

	// DefaultProductID is the DS1000 series oscilloscope
	DefaultProductID = 0x0588

	DefaultTimeout = 5000 * time.Millisecond

	// DefaultMaxTransferSize bounds a single REQUEST_DEV_DEP_MSG_IN transfer
	DefaultMaxTransferSize = 1024 * 1024
)

// Duration is a time.Duration that reads from and writes to YAML and JSON
// as a Go duration string, e.g. "5s" or "10ms".
type Duration time.Duration

func NewDuration(d time.Duration) Duration {
	return Duration(d)
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("usbtmc.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("usbtmc.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config describes which device to open and how to talk to it
type Config struct {
	VendorID        uint16   `yaml:"vendorID" json:"vendorID"`               // USB vendor ID
	ProductID       uint16   `yaml:"productID" json:"productID"`             // USB product ID
	Timeout         Duration `yaml:"timeout" json:"timeout"`                 // per transfer timeout (default: 5s)
	MaxTransferSize int      `yaml:"maxTransferSize" json:"maxTransferSize"` // bytes per IN transfer (default: 1MiB)
}

// DefaultConfig returns the configuration for a Rigol DS1000 oscilloscope
func DefaultConfig() Config {
	return Config{
		VendorID:        DefaultVendorID,
		ProductID:       DefaultProductID,
		Timeout:         Duration(DefaultTimeout),
		MaxTransferSize: DefaultMaxTransferSize,
	}
}

// WithDefaults returns a copy of c with zero values replaced by defaults
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.VendorID == 0 {
		c.VendorID = def.VendorID
	}
	if c.ProductID == 0 {
		c.ProductID = def.ProductID
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxTransferSize == 0 {
		c.MaxTransferSize = def.MaxTransferSize
	}
	return c
}

func (c *Config) Validate() error {
	if c.VendorID == 0 {
		return NewConfigError("usbtmc.Config: vendor ID is required")
	}
	if c.ProductID == 0 {
		return NewConfigError("usbtmc.Config: product ID is required")
	}
	if c.Timeout < 0 {
		return NewConfigError("usbtmc.Config: timeout must not be negative: %s", c.Timeout)
	}
	if c.MaxTransferSize < 0 {
		return NewConfigError("usbtmc.Config: max transfer size must not be negative: %d", c.MaxTransferSize)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%04x:%04x", c.VendorID, c.ProductID)
}
