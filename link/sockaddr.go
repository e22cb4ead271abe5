//go:build linux

package link

import (
	"encoding/binary"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

// SockaddrInet4 is a struct sockaddr_in payload (ifr_addr for AF_INET).
type SockaddrInet4 struct {
	Port uint16
	Addr [4]byte
}

// SockaddrInet6 is a struct sockaddr_in6 payload.
type SockaddrInet6 struct {
	Port     uint16
	FlowInfo uint32
	Addr     [16]byte
	ScopeID  uint32
}

/*
	struct sockaddr_in {           struct sockaddr_in6 {
		sa_family_t    sin_family;     sa_family_t     sin6_family;   // 0
		in_port_t      sin_port;       in_port_t       sin6_port;     // 2
		struct in_addr sin_addr;       uint32_t        sin6_flowinfo; // 4
		char           sin_zero[8];    struct in6_addr sin6_addr;     // 8
	};                                 uint32_t        sin6_scope_id; // 24
	                               };
*/

func (sa SockaddrInet4) put(b []byte) {
	binary.NativeEndian.PutUint16(b[0:], unix.AF_INET)
	binary.BigEndian.PutUint16(b[2:], sa.Port)
	copy(b[4:8], sa.Addr[:])
}

func (sa SockaddrInet6) put(b []byte) {
	binary.NativeEndian.PutUint16(b[0:], unix.AF_INET6)
	binary.BigEndian.PutUint16(b[2:], sa.Port)
	binary.BigEndian.PutUint32(b[4:], sa.FlowInfo)
	copy(b[8:24], sa.Addr[:])
	binary.NativeEndian.PutUint32(b[24:], sa.ScopeID)
}

// SockaddrFrom converts ap into the address record matching its family. An
// IPv6 zone is used as the scope id when it is numeric.
func SockaddrFrom(ap netip.AddrPort) Payload {
	addr := ap.Addr()
	if addr.Is4() {
		return SockaddrInet4{Port: ap.Port(), Addr: addr.As4()}
	}
	sa := SockaddrInet6{Port: ap.Port(), Addr: addr.As16()}
	if id, err := strconv.ParseUint(addr.Zone(), 10, 32); err == nil {
		sa.ScopeID = uint32(id)
	}
	return sa
}

// Family reads the address family tag of the union.
func (r *Ifreq) Family() uint16 {
	return binary.NativeEndian.Uint16(r.ifru[0:])
}

// Inet4 reads the union as a sockaddr_in.
func (r *Ifreq) Inet4() SockaddrInet4 {
	var sa SockaddrInet4
	sa.Port = binary.BigEndian.Uint16(r.ifru[2:])
	copy(sa.Addr[:], r.ifru[4:8])
	return sa
}

// Inet6 reads the union as a sockaddr_in6.
func (r *Ifreq) Inet6() SockaddrInet6 {
	var sa SockaddrInet6
	sa.Port = binary.BigEndian.Uint16(r.ifru[2:])
	sa.FlowInfo = binary.BigEndian.Uint32(r.ifru[4:])
	copy(sa.Addr[:], r.ifru[8:24])
	sa.ScopeID = binary.NativeEndian.Uint32(r.ifru[24:])
	return sa
}

// SocketAddr decodes the union according to its family tag. It reports false
// when the union does not hold an AF_INET or AF_INET6 address.
func (r *Ifreq) SocketAddr() (netip.AddrPort, bool) {
	switch r.Family() {
	case unix.AF_INET:
		sa := r.Inet4()
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), sa.Port), true
	case unix.AF_INET6:
		sa := r.Inet6()
		addr := netip.AddrFrom16(sa.Addr)
		if sa.ScopeID != 0 {
			addr = addr.WithZone(strconv.FormatUint(uint64(sa.ScopeID), 10))
		}
		return netip.AddrPortFrom(addr, sa.Port), true
	}
	return netip.AddrPort{}, false
}
