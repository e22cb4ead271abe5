//go:build linux

package link

import (
	"net/netip"
	"os"

	"github.com/hashicorp/go-hclog"
)

// cloneDevicePath is a variable so tests can point device creation at a
// file that is not a TUN/TAP clone device.
var cloneDevicePath = CloneDevice

// Config holds the options applied when a device is created.
type Config struct {
	// PacketInformation keeps the 4 byte flags/protocol header the kernel
	// prepends to every frame. When false IFF_NO_PI is requested.
	PacketInformation bool

	// Logger is the parent logger. hclog.Default() is used when nil.
	Logger hclog.Logger
}

func (c *Config) EnablePacketInformation() *Config {
	c.PacketInformation = true
	return c
}

func (c *Config) DisablePacketInformation() *Config {
	c.PacketInformation = false
	return c
}

func (c *Config) flags(mode Flags) Flags {
	if c == nil || !c.PacketInformation {
		mode |= IFF_NO_PI
	}
	return mode
}

func (c *Config) logger() hclog.Logger {
	if c == nil || c.Logger == nil {
		return hclog.Default().Named("link")
	}
	return c.Logger.Named("link")
}

// Device is a TUN or TAP interface backed by an open /dev/net/tun file.
type Device struct {
	file *os.File
	name string
}

// NewTun creates a point-to-point IP tunnel interface.
func NewTun(name string, cfg *Config) (*Device, error) {
	return newDevice(name, cfg.flags(IFF_TUN), cfg.logger())
}

// NewTap creates an Ethernet tap interface.
func NewTap(name string, cfg *Config) (*Device, error) {
	return newDevice(name, cfg.flags(IFF_TAP), cfg.logger())
}

func newSetIffRequest(name string, flags Flags) (*Ifreq, error) {
	req, err := NewIfreq(name)
	if err != nil {
		return nil, err
	}
	req.SetPayload(flags)
	return req, nil
}

func newDevice(name string, flags Flags, logger hclog.Logger) (*Device, error) {
	req, err := newSetIffRequest(name, flags)
	if err != nil {
		logger.Error("Invalid interface name.", "Device Name", name)
		return nil, err
	}

	file, err := os.OpenFile(cloneDevicePath, os.O_RDWR, 0)
	if err != nil {
		logger.Error("Open clone device failed.", "Path", cloneDevicePath, "Error", err.Error())
		return nil, err
	}

	if err := ioctlFile(file, TUNSETIFF, req); err != nil {
		file.Close()
		logger.Error("TUNSETIFF failed.", "Device Name", name, "Flags", flags, "Error", err.Error())
		return nil, err
	}

	logger.Debug("Device created.", "Device Name", req.Name(), "Flags", flags)
	return &Device{file: file, name: req.Name()}, nil
}

// FromFile wraps a file that was already opened and configured elsewhere.
// The file is not checked to be a TUN/TAP device.
func FromFile(file *os.File, name string) *Device {
	return &Device{file: file, name: name}
}

// IntoFile hands ownership of the underlying file back to the caller. The
// Device must not be used afterwards.
func (d *Device) IntoFile() *os.File {
	file := d.file
	d.file = nil
	d.name = ""
	return file
}

// Name returns the interface name.
func (d *Device) Name() string {
	return d.name
}

// Fd returns the file descriptor of the device.
func (d *Device) Fd() uintptr {
	return d.file.Fd()
}

// Read reads one frame.
func (d *Device) Read(buf []byte) (int, error) {
	return d.file.Read(buf)
}

// Write injects one frame.
func (d *Device) Write(buf []byte) (int, error) {
	return d.file.Write(buf)
}

// Flush is a no-op: writes go straight to the kernel.
func (d *Device) Flush() error {
	return nil
}

// Close closes the device. Unless the interface was made persistent the
// kernel removes it.
func (d *Device) Close() error {
	return d.file.Close()
}

func (d *Device) MTU() (int, error) {
	return InterfaceMTU(d.name)
}

func (d *Device) SetMTU(mtu int) error {
	return SetInterfaceMTU(d.name, mtu)
}

// Up sets IFF_UP and IFF_RUNNING on the interface.
func (d *Device) Up() error {
	return SetUp(d.name)
}

func (d *Device) SetAddr(addr netip.Addr) error {
	return SetInterfaceAddr(d.name, netip.AddrPortFrom(addr, 0))
}

// AddPrefix assigns an address with its prefix length over netlink.
func (d *Device) AddPrefix(prefix netip.Prefix) error {
	return AddPrefix(d.name, prefix, nil)
}
