package usbtmc

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceNotFound is returned when no device matches the configured VID/PID
	ErrDeviceNotFound = errors.New("usbtmc: device not found")

	// ErrNoBulkEndpoints is returned when the claimed interface lacks a bulk IN or OUT endpoint
	ErrNoBulkEndpoints = errors.New("usbtmc: bulk endpoints not found")

	// ErrTimeout is returned when a transfer does not complete within the configured timeout
	ErrTimeout = errors.New("usbtmc: transfer timed out")

	// ErrShortWrite is returned when the device accepted fewer bytes than sent
	ErrShortWrite = errors.New("usbtmc: short write")

	// ErrClosed is returned by operations on a closed device
	ErrClosed = errors.New("usbtmc: device closed")
)

// ConfigError is a custom error type for configuration errors
type ConfigError struct {
	msg string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return e.msg
}

// HeaderError reports a bulk-IN message header that does not match the request
type HeaderError struct {
	Field    string
	Expected int
	Got      int
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("usbtmc: invalid response header: %s is %d, expected %d", e.Field, e.Got, e.Expected)
}
