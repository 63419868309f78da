package usbtmc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/gousb"
)

const defaultPacketSize = 64

type bulkOut interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

type bulkIn interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// WithLogger sets the logger for the device
func WithLogger(logger *slog.Logger) func(d *Device) {
	return func(d *Device) {
		d.logger = logger.With(slog.String("usb", d.config.String()))
	}
}

// Device is an open USBTMC instrument. It owns the USB context, the device
// handle and the claimed interface until Close is called.
//
// A Device is not safe for concurrent use.
type Device struct {
	config Config

	usb  opener
	dev  usbHandle
	done func() // releases the claimed interface

	out        bulkOut
	in         bulkIn
	packetSize int
	tag        uint8

	closed bool
	logger *slog.Logger
}

// Open opens the first device matching config. If the device cannot be
// opened or its interface cannot be claimed, every matching device is reset
// once and opening is attempted again; a second failure is returned.
func Open(config Config, options ...func(d *Device)) (*Device, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return open(newGousbOpener(), config, options...)
}

// open runs the open, reset, open sequence over usb and takes ownership of it
func open(usb opener, config Config, options ...func(d *Device)) (*Device, error) {
	d := newDevice(config)
	for _, option := range options {
		option(d)
	}
	d.usb = usb

	l, err := usb.openDevice(d.config)
	if err != nil {
		d.logger.Warn(fmt.Sprintf("opening device failed, resetting: %s", err.Error()))

		if rErr := resetMatching(usb, d.config); rErr != nil {
			_ = usb.Close()
			return nil, fmt.Errorf("opening %s: %w", d.config, errors.Join(err, rErr))
		}

		if l, err = usb.openDevice(d.config); err != nil {
			_ = usb.Close()
			return nil, fmt.Errorf("opening %s after reset: %w", d.config, err)
		}
	}

	d.dev = l.dev
	d.done = l.done
	d.out = l.out
	d.in = l.in
	d.packetSize = l.packetSize

	d.logger.Info("connected to device", slog.String("device", d.dev.String()))
	return d, nil
}

func newDevice(config Config) *Device {
	return &Device{
		config:     config.WithDefaults(),
		packetSize: defaultPacketSize,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}
}

// resetMatching resets every device matching config and releases it
func resetMatching(usb opener, config Config) error {
	devs, err := usb.openDevices(config)
	if len(devs) == 0 {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
		}
		return ErrDeviceNotFound
	}

	var errs []error
	for _, dev := range devs {
		if rErr := dev.Reset(); rErr != nil {
			errs = append(errs, fmt.Errorf("resetting %s: %w", dev, rErr))
		}
		_ = dev.Close()
	}
	return errors.Join(errs...)
}

func (d *Device) nextTag() uint8 {
	d.tag++
	if d.tag == 0 {
		d.tag = 1 // bTag must not be zero
	}
	return d.tag
}

func (d *Device) transferContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.config.Timeout.Duration())
}

// Write sends p as one device dependent message. Payloads longer than the
// max transfer size are split, only the last transfer carries EOM.
func (d *Device) Write(p []byte) error {
	if d.closed {
		return ErrClosed
	}

	chunk := d.config.MaxTransferSize
	for start := 0; start < len(p) || start == 0; start += chunk {
		end := min(start+chunk, len(p))
		msg := encodeDevDepMsgOut(d.nextTag(), p[start:end], end == len(p))

		if err := d.send(msg); err != nil {
			return err
		}
		if end == len(p) {
			break
		}
	}
	return nil
}

func (d *Device) send(msg []byte) error {
	ctx, cancel := d.transferContext()
	defer cancel()

	n, err := d.out.WriteContext(ctx, msg)
	if err != nil {
		return transferError(ctx, "writing", err)
	}
	if n != len(msg) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(msg))
	}
	return nil
}

// ReadRaw reads up to maxLen bytes of device dependent data. If maxLen is
// zero or negative, transfers are requested until the device flags the end
// of the message.
func (d *Device) ReadRaw(maxLen int) ([]byte, error) {
	if d.closed {
		return nil, ErrClosed
	}

	var data []byte
	for {
		want := d.config.MaxTransferSize
		if maxLen > 0 {
			want = min(want, maxLen-len(data))
		}

		tag := d.nextTag()
		if err := d.send(encodeRequestDevDepMsgIn(tag, want)); err != nil {
			return data, fmt.Errorf("requesting data: %w", err)
		}

		payload, eom, err := d.receive(tag, want)
		data = append(data, payload...)
		if err != nil {
			return data, err
		}

		if eom || (maxLen > 0 && len(data) >= maxLen) {
			return data, nil
		}
		if len(payload) == 0 {
			// device answered without data and without EOM, nothing more will come
			return data, nil
		}
	}
}

// receive reads one DEV_DEP_MSG_IN transfer answering the request with tag
func (d *Device) receive(tag uint8, want int) ([]byte, bool, error) {
	ctx, cancel := d.transferContext()
	defer cancel()

	buf := make([]byte, roundUp(headerSize+want+3, d.packetSize))
	n, err := d.in.ReadContext(ctx, buf)
	if err != nil {
		return nil, false, transferError(ctx, "reading", err)
	}

	h, err := decodeDevDepMsgIn(buf[:n], tag)
	if err != nil {
		return nil, false, err
	}

	size := int(h.TransferSize)
	if size > want {
		return nil, false, &HeaderError{Field: "TransferSize", Expected: want, Got: size}
	}
	payload := make([]byte, 0, size)
	payload = append(payload, buf[headerSize:n]...)

	// continuation packets carry no header
	for len(payload) < size {
		n, err = d.in.ReadContext(ctx, buf)
		if err != nil {
			return payload, false, transferError(ctx, "reading", err)
		}
		if n == 0 {
			break
		}
		payload = append(payload, buf[:n]...)
	}

	if len(payload) > size {
		payload = payload[:size] // alignment padding
	}

	return payload, h.endOfMessage(), nil
}

func transferError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, gousb.TransferTimedOut) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Reset issues a USB port reset of the device
func (d *Device) Reset() error {
	if d.closed || d.dev == nil {
		return ErrClosed
	}
	if err := d.dev.Reset(); err != nil {
		return fmt.Errorf("resetting device: %w", err)
	}
	return nil
}

// Close releases the interface, the device and the USB context.
// It is safe to call Close multiple times.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.done != nil {
		d.done()
	}
	if d.dev != nil {
		if err := d.dev.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing device: %w", err))
		}
	}
	if d.usb != nil {
		if err := d.usb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing usb context: %w", err))
		}
	}

	d.logger.Info("device closed")
	return errors.Join(errs...)
}
