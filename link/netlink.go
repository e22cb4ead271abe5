//go:build linux

package link

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/hashicorp/go-hclog"
	"github.com/vishvananda/netlink"
)

func prefixToIPNet(prefix netip.Prefix) *net.IPNet {
	return &net.IPNet{
		IP:   net.IP(prefix.Addr().AsSlice()),
		Mask: net.CIDRMask(prefix.Bits(), prefix.Addr().BitLen()),
	}
}

// AddPrefix assigns prefix (address and length) to the interface, the
// equivalent of "ip addr add 10.0.0.1/24 dev tun0".
func AddPrefix(name string, prefix netip.Prefix, parentLogger hclog.Logger) error {
	logger := hclog.Default().Named("AddPrefix")
	if parentLogger != nil {
		logger = parentLogger.Named("AddPrefix")
	}

	if !prefix.IsValid() {
		return fmt.Errorf("invalid prefix %v", prefix)
	}

	link, err := netlink.LinkByName(name)
	if err != nil {
		logger.Error("netlink.LinkByName() failed.", "Device Name", name, "Error", err.Error())
		return err
	}

	addr := &netlink.Addr{IPNet: prefixToIPNet(prefix)}
	if err := netlink.AddrAdd(link, addr); err != nil {
		logger.Error("netlink.AddrAdd() failed.", "Device Name", name, "Error", err.Error())
		return err
	}

	logger.Info("Device add Addr success.", "cmd", fmt.Sprintf("ip addr add %s dev %s", prefix, name))
	return nil
}

// AddRoute routes dst through the interface, the equivalent of
// "ip route add 10.1.0.0/16 dev tun0".
func AddRoute(name string, dst netip.Prefix, parentLogger hclog.Logger) error {
	logger := hclog.Default().Named("AddRoute")
	if parentLogger != nil {
		logger = parentLogger.Named("AddRoute")
	}

	if !dst.IsValid() {
		return fmt.Errorf("invalid prefix %v", dst)
	}

	link, err := netlink.LinkByName(name)
	if err != nil {
		logger.Error("netlink.LinkByName() failed.", "Device Name", name, "Error", err.Error())
		return err
	}

	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Scope:     netlink.SCOPE_LINK,
		Dst:       prefixToIPNet(dst.Masked()),
	}
	if err := netlink.RouteAdd(route); err != nil {
		logger.Error("netlink.RouteAdd() failed.", "Device Name", name, "Error", err.Error())
		return err
	}

	logger.Info("Device add Route success.", "cmd", fmt.Sprintf("ip route add %s dev %s", dst.Masked(), name))
	return nil
}
