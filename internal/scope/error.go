package scope

import (
	"errors"
	"fmt"
)

// ErrInvalidSetting is returned by setters given a value the instrument does not accept
var ErrInvalidSetting = errors.New("invalid setting")

// TransportError is returned when a command or query could not be exchanged
// with the instrument, including timeouts.
type TransportError struct {
	Op      string // "command", "query" or "read"
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("scope: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("scope: %s %q: %v", e.Op, e.Command, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a reply cannot be converted to the expected type
type ParseError struct {
	Command string
	Reply   string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("scope: parsing reply %q to %q: %v", e.Reply, e.Command, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SettingError describes a rejected setter argument. It unwraps to ErrInvalidSetting.
type SettingError struct {
	Setting string
	Value   any
}

func (e *SettingError) Error() string {
	return fmt.Sprintf("scope: %s: %v: %v", ErrInvalidSetting, e.Setting, e.Value)
}

func (e *SettingError) Unwrap() error {
	return ErrInvalidSetting
}
