package scope

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/rigol-scope/internal/usbtmc"
)

const (
	// DefaultSettleDelay is the pause after every command that lets the
	// instrument apply it before the next request.
	DefaultSettleDelay = 10 * time.Millisecond

	// Channels is the number of analog channels of the DS1000 series
	Channels = 2
)

// Transport is the byte level link to the instrument
type Transport interface {
	Write(p []byte) error
	ReadRaw(maxLen int) ([]byte, error)
	Reset() error
	Close() error
}

// Instrument is the capability a Channel needs from the session
type Instrument interface {
	Query(command string) (string, error)
	Command(command string) error
	ReadRaw(maxBytes int) ([]byte, error)
}

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) func(s *Session) {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithSettleDelay overrides the pause after every command
func WithSettleDelay(delay time.Duration) func(s *Session) {
	return func(s *Session) {
		s.settleDelay = delay
	}
}

// Session exchanges SCPI commands with one oscilloscope. Every method
// performs I/O with the instrument; nothing is cached between calls.
//
// A Session is not safe for concurrent use.
type Session struct {
	transport   Transport
	settleDelay time.Duration
	logger      *slog.Logger
}

// NewSession creates a session over an already open transport
func NewSession(t Transport, options ...func(s *Session)) *Session {
	s := Session{
		transport:   t,
		settleDelay: DefaultSettleDelay,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Open connects to the USB oscilloscope described by config
func Open(config usbtmc.Config, options ...func(s *Session)) (*Session, error) {
	s := NewSession(nil, options...)

	dev, err := usbtmc.Open(config, usbtmc.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("unable to establish connection with oscilloscope: %w", err)
	}

	s.transport = dev
	return s, nil
}

// Close releases the transport
func (s *Session) Close() error {
	if err := s.transport.Close(); err != nil {
		return &TransportError{Op: "close", Err: err}
	}
	return nil
}

// Reset resets the underlying device
func (s *Session) Reset() error {
	if err := s.transport.Reset(); err != nil {
		return &TransportError{Op: "reset", Err: err}
	}
	return nil
}

// Query sends command and returns the reply with surrounding whitespace removed
func (s *Session) Query(command string) (string, error) {
	if err := s.transport.Write([]byte(command)); err != nil {
		return "", &TransportError{Op: "query", Command: command, Err: err}
	}

	reply, err := s.transport.ReadRaw(-1)
	if err != nil {
		return "", &TransportError{Op: "query", Command: command, Err: err}
	}

	answer := strings.TrimSpace(string(reply))
	s.logger.Debug("query", slog.String("command", command), slog.String("reply", answer))
	return answer, nil
}

// Command sends command and waits for the settle delay. No reply is read.
func (s *Session) Command(command string) error {
	if err := s.transport.Write([]byte(command)); err != nil {
		return &TransportError{Op: "command", Command: command, Err: err}
	}

	s.logger.Debug("command", slog.String("command", command))
	if s.settleDelay > 0 {
		time.Sleep(s.settleDelay)
	}
	return nil
}

// ReadRaw reads up to maxBytes of reply data; maxBytes <= 0 reads a whole message
func (s *Session) ReadRaw(maxBytes int) ([]byte, error) {
	data, err := s.transport.ReadRaw(maxBytes)
	if err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}
	return data, nil
}

// Channel returns the accessor for channel n, counted from 1
func (s *Session) Channel(n int) (*Channel, error) {
	if n < 1 || n > Channels {
		return nil, &SettingError{Setting: "channel", Value: n}
	}
	return NewChannel(n, s), nil
}

func queryFloat(inst Instrument, command string) (float64, error) {
	reply, err := inst.Query(command)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, &ParseError{Command: command, Reply: reply, Err: unwrapNumError(err)}
	}
	return v, nil
}

func queryInt(inst Instrument, command string) (int, error) {
	reply, err := inst.Query(command)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(reply)
	if err != nil {
		// some firmware prints integers in float notation
		f, fErr := strconv.ParseFloat(reply, 64)
		if fErr != nil || f != float64(int(f)) {
			return 0, &ParseError{Command: command, Reply: reply, Err: unwrapNumError(err)}
		}
		v = int(f)
	}
	return v, nil
}

func unwrapNumError(err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return numErr.Err
	}
	return err
}
