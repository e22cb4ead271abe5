//go:build linux

package link

import (
	"bytes"
	"fmt"
	"net/netip"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Interface ioctls go through a throwaway AF_INET datagram socket, like
// ifconfig does.
func withControlSocket(fn func(fd uintptr) error) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return os.NewSyscallError("socket", err)
	}
	defer unix.Close(fd)
	return fn(uintptr(fd))
}

func ifreqCall(name string, code uint, p Payload) (*Ifreq, error) {
	req, err := NewIfreq(name)
	if err != nil {
		return nil, err
	}
	if p != nil {
		req.SetPayload(p)
	}
	err = withControlSocket(func(fd uintptr) error {
		if err := ioctlIfreq(fd, code, req); err != nil {
			return os.NewSyscallError("ioctl", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return req, nil
}

// InterfaceFlags returns the IFF_* flags of the interface (SIOCGIFFLAGS).
func InterfaceFlags(name string) (Flags, error) {
	req, err := ifreqCall(name, unix.SIOCGIFFLAGS, nil)
	if err != nil {
		return 0, err
	}
	return req.Flags(), nil
}

// SetInterfaceFlags replaces the IFF_* flags of the interface (SIOCSIFFLAGS).
func SetInterfaceFlags(name string, flags Flags) error {
	_, err := ifreqCall(name, unix.SIOCSIFFLAGS, flags)
	return err
}

func SetUp(name string) error {
	flags, err := InterfaceFlags(name)
	if err != nil {
		return err
	}
	return SetInterfaceFlags(name, flags|unix.IFF_UP|unix.IFF_RUNNING)
}

func SetDown(name string) error {
	flags, err := InterfaceFlags(name)
	if err != nil {
		return err
	}
	return SetInterfaceFlags(name, flags&^unix.IFF_UP)
}

func InterfaceMTU(name string) (int, error) {
	req, err := ifreqCall(name, unix.SIOCGIFMTU, nil)
	if err != nil {
		return 0, err
	}
	return int(req.MTU()), nil
}

func SetInterfaceMTU(name string, mtu int) error {
	_, err := ifreqCall(name, unix.SIOCSIFMTU, MTU(mtu))
	return err
}

func InterfaceIndex(name string) (int, error) {
	req, err := ifreqCall(name, unix.SIOCGIFINDEX, nil)
	if err != nil {
		return 0, err
	}
	return int(req.IntValue()), nil
}

// InterfaceAddr returns the primary IPv4 address of the interface
// (SIOCGIFADDR).
func InterfaceAddr(name string) (netip.Addr, error) {
	req, err := ifreqCall(name, unix.SIOCGIFADDR, nil)
	if err != nil {
		return netip.Addr{}, err
	}
	ap, ok := req.SocketAddr()
	if !ok {
		return netip.Addr{}, fmt.Errorf("%s: unexpected address family %d", name, req.Family())
	}
	return ap.Addr(), nil
}

// SetInterfaceAddr sets the interface address (SIOCSIFADDR). The kernel only
// accepts AF_INET here; IPv6 addresses fail with the kernel's error.
func SetInterfaceAddr(name string, addr netip.AddrPort) error {
	_, err := ifreqCall(name, unix.SIOCSIFADDR, SockaddrFrom(addr))
	return err
}

// RenameInterface renames a down interface (SIOCSIFNAME).
func RenameInterface(name, newName string) error {
	n, err := ParseName(newName)
	if err != nil {
		return err
	}
	_, err = ifreqCall(name, unix.SIOCSIFNAME, NewName(n))
	return err
}

const ethtoolGDrvInfo = 0x3

// struct ethtool_drvinfo
type ethtoolDrvInfo struct {
	cmd         uint32
	driver      [32]byte
	version     [32]byte
	fwVersion   [32]byte
	busInfo     [32]byte
	eromVersion [32]byte
	_           [12]byte
	nPrivFlags  uint32
	nStats      uint32
	testInfoLen uint32
	eedumpLen   uint32
	regdumpLen  uint32
}

// InterfaceDriver returns the name of the driver behind the interface, "tun"
// for TUN/TAP devices (SIOCETHTOOL, ETHTOOL_GDRVINFO).
func InterfaceDriver(name string) (string, error) {
	req, err := NewIfreq(name)
	if err != nil {
		return "", err
	}
	info := ethtoolDrvInfo{cmd: ethtoolGDrvInfo}
	data := req.withData(unsafe.Pointer(&info))
	err = withControlSocket(func(fd uintptr) error {
		if err := ioctlIfreqData(fd, unix.SIOCETHTOOL, &data); err != nil {
			return os.NewSyscallError("ioctl", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(bytes.TrimRight(info.driver[:], "\x00")), nil
}
