package usbtmc

import (
	"fmt"

	"github.com/google/gousb"
)

// usbHandle is an opened USB device
type usbHandle interface {
	Reset() error
	Close() error
	String() string
}

// link is a device with its interface claimed and bulk endpoints located
type link struct {
	dev        usbHandle
	done       func() // releases the claimed interface
	out        bulkOut
	in         bulkIn
	packetSize int
}

// opener is the part of the USB stack used to open and reset devices
type opener interface {
	// openDevice opens the first device matching config and claims it
	openDevice(config Config) (*link, error)

	// openDevices opens every device matching config
	openDevices(config Config) ([]usbHandle, error)

	Close() error
}

// gousbOpener is the libusb backed opener
type gousbOpener struct {
	usbctx *gousb.Context
}

func newGousbOpener() *gousbOpener {
	return &gousbOpener{usbctx: gousb.NewContext()}
}

// openDevice opens the device, claims its default interface and locates the
// bulk endpoints. On error nothing is left open.
func (o *gousbOpener) openDevice(config Config) (l *link, err error) {
	dev, err := o.usbctx.OpenDeviceWithVIDPID(gousb.ID(config.VendorID), gousb.ID(config.ProductID))
	if err != nil {
		if dev != nil {
			_ = dev.Close()
		}
		return nil, fmt.Errorf("opening device: %w", err)
	}
	if dev == nil {
		return nil, ErrDeviceNotFound
	}
	defer func() {
		if err != nil {
			_ = dev.Close()
		}
	}()

	if err = dev.SetAutoDetach(true); err != nil {
		return nil, fmt.Errorf("enabling kernel driver auto detach: %w", err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		return nil, fmt.Errorf("claiming interface: %w", err)
	}

	outNum, inNum, packetSize, err := bulkEndpoints(intf.Setting)
	if err != nil {
		done()
		return nil, err
	}

	out, err := intf.OutEndpoint(outNum)
	if err != nil {
		done()
		return nil, fmt.Errorf("opening OUT endpoint %d: %w", outNum, err)
	}

	in, err := intf.InEndpoint(inNum)
	if err != nil {
		done()
		return nil, fmt.Errorf("opening IN endpoint %d: %w", inNum, err)
	}

	return &link{dev: dev, done: done, out: out, in: in, packetSize: packetSize}, nil
}

func (o *gousbOpener) openDevices(config Config) ([]usbHandle, error) {
	devs, err := o.usbctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(config.VendorID) && desc.Product == gousb.ID(config.ProductID)
	})

	handles := make([]usbHandle, len(devs))
	for i, dev := range devs {
		handles[i] = dev
	}
	return handles, err
}

func (o *gousbOpener) Close() error {
	return o.usbctx.Close()
}

// bulkEndpoints returns the numbers of the first bulk OUT and bulk IN
// endpoints of setting and the IN endpoint max packet size.
func bulkEndpoints(setting gousb.InterfaceSetting) (out, in, packetSize int, err error) {
	out, in = -1, -1
	for _, ep := range setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionIn && in < 0:
			in = ep.Number
			packetSize = ep.MaxPacketSize
		case ep.Direction == gousb.EndpointDirectionOut && out < 0:
			out = ep.Number
		}
	}
	if out < 0 || in < 0 {
		return 0, 0, 0, ErrNoBulkEndpoints
	}
	if packetSize <= 0 {
		packetSize = defaultPacketSize
	}
	return out, in, packetSize, nil
}
