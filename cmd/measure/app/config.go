package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/rigol-scope/internal/scope"
	"github.com/roman-kulish/rigol-scope/internal/usbtmc"
)

type Config struct {
	Device       usbtmc.Config
	SettleDelay  time.Duration
	Channel      int
	Measurements []scope.Measurement
	Verbose      bool
}

func NewConfig() *Config {
	return &Config{
		Device:       usbtmc.DefaultConfig(),
		SettleDelay:  scope.DefaultSettleDelay,
		Channel:      1,
		Measurements: scope.AllMeasurements,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c, err := ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		flag.Usage()
		return nil, err
	}
	return c, nil
}

// ParseFlags parses args with fs, which must not have been parsed yet
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var vid, pid, list string
	var timeout time.Duration
	fs.StringVar(&vid, "vid", fmt.Sprintf("0x%04X", c.Device.VendorID), "USB vendor ID (hex)")
	fs.StringVar(&pid, "pid", fmt.Sprintf("0x%04X", c.Device.ProductID), "USB product ID (hex)")
	fs.DurationVar(&timeout, "timeout", c.Device.Timeout.Duration(), "USB transfer timeout")
	fs.DurationVar(&c.SettleDelay, "settle", c.SettleDelay, "Pause after every command")
	fs.IntVar(&c.Channel, "ch", c.Channel, "Channel number [1, 2]")
	fs.StringVar(&list, "m", "", "Comma separated measurements, e.g. vpp,freq,rise (default: all)")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if c.Device.VendorID, err = parseUSBID(vid); err != nil {
		return nil, fmt.Errorf("invalid vendor ID: %w", err)
	}
	if c.Device.ProductID, err = parseUSBID(pid); err != nil {
		return nil, fmt.Errorf("invalid product ID: %w", err)
	}
	c.Device.Timeout = usbtmc.NewDuration(timeout)

	if list != "" {
		if c.Measurements, err = parseMeasurements(list); err != nil {
			return nil, err
		}
	}

	switch {
	case c.Channel < 1 || c.Channel > scope.Channels:
		err = fmt.Errorf("channel must be between 1 and %d: %d", scope.Channels, c.Channel)
	case timeout <= 0:
		err = errors.New("timeout must be positive")
	case c.SettleDelay < 0:
		err = errors.New("settle delay must not be negative")
	default:
		err = c.Device.Validate()
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// parseUSBID reads a 16 bit hexadecimal ID with or without the 0x prefix
func parseUSBID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func parseMeasurements(list string) ([]scope.Measurement, error) {
	var result []scope.Measurement
	seen := make(map[scope.Measurement]struct{})

	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		m, err := scope.ParseMeasurement(name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		result = append(result, m)
	}

	if len(result) == 0 {
		return nil, errors.New("no measurements selected")
	}
	return result, nil
}
