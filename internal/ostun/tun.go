// Package ostun creates and owns TUN virtual network interfaces via
// github.com/songgao/water, mirroring the retry/verify idiom the
// teacher's wireguard/tuntap.go uses for device creation.
package ostun

import (
	"time"

	"github.com/aurabx/wgagentd/internal/werrors"
	"github.com/songgao/water"
)

const (
	maxCreateRetries = 3
	retryDelay       = 2 * time.Second
)

// Device wraps a water.Interface, recording the actual interface name
// the kernel assigned (which may differ from what was requested).
type Device struct {
	iface *water.Interface
	name  string
	mtu   int
}

// MARK: Create
// Creates a TUN device, retrying transient failures, and returns once
// the kernel has handed back a concrete interface name.
func Create(requestedName string, mtu int) (*Device, error) {
	cfg := water.Config{DeviceType: water.TUN}
	if requestedName != "" {
		cfg.Name = requestedName
	}

	var iface *water.Interface
	var err error
	for attempt := 1; attempt <= maxCreateRetries; attempt++ {
		iface, err = water.New(cfg)
		if err == nil {
			break
		}
		if attempt < maxCreateRetries {
			time.Sleep(retryDelay)
			continue
		}
		return nil, werrors.Wrap(werrors.TunDevice, "creating TUN device", err)
	}

	actualName := iface.Name()
	if actualName == "" {
		iface.Close()
		return nil, werrors.New(werrors.TunDevice, "kernel did not report an interface name")
	}

	return &Device{iface: iface, name: actualName, mtu: mtu}, nil
}

// MARK: Read
// Blocks until a packet is available, mirroring the core's expectation
// of a dedicated reader loop; Close unblocks it with an error.
func (d *Device) Read(buf []byte) (int, error) {
	return d.iface.Read(buf)
}

// MARK: Write
func (d *Device) Write(buf []byte) (int, error) {
	return d.iface.Write(buf)
}

// MARK: Name
// Returns the actual interface name the kernel assigned, which may
// differ from what was requested (e.g. utun7 on Darwin).
func (d *Device) Name() string {
	return d.name
}

// MARK: MTU
func (d *Device) MTU() int {
	return d.mtu
}

// MARK: Close
func (d *Device) Close() error {
	if d.iface == nil {
		return nil
	}
	return d.iface.Close()
}
