//go:build linux

package link

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"

	"golang.org/x/sys/unix"
)

/*
	struct ifreq {
		char ifrn_name[IFNAMSIZ];
		union {
			struct sockaddr ifru_addr;
			short           ifru_flags;
			int             ifru_ivalue;
			int             ifru_mtu;
			struct ifmap    ifru_map;
			char            ifru_slave[IFNAMSIZ];
			char            ifru_newname[IFNAMSIZ];
			void __user    *ifru_data;
			...
		} ifr_ifru;
	};
*/

const (
	// struct ifmap: two unsigned longs, then a short and three chars padded
	// to long alignment.
	ifmapSize = 2*unix.SizeofLong + (5+unix.SizeofLong-1)/unix.SizeofLong*unix.SizeofLong

	// kernelIfruSize is sizeof(ifr_ifru) on the running architecture.
	kernelIfruSize = max(unix.SizeofSockaddrInet4, ifmapSize, unix.IFNAMSIZ, unix.SizeofPtr)

	// KernelIfreqSize is sizeof(struct ifreq). The kernel copies exactly this
	// many bytes in and out of an Ifreq.
	KernelIfreqSize = unix.IFNAMSIZ + kernelIfruSize

	// ifruSize also holds a sockaddr_in6, which is larger than the kernel's
	// union. The bytes past KernelIfreqSize are never read by the kernel.
	ifruSize = max(kernelIfruSize, unix.SizeofSockaddrInet6)
)

// Every payload variant must fit the union storage.
var (
	_ [ifruSize - unix.SizeofSockaddrInet4]byte
	_ [ifruSize - unix.SizeofSockaddrInet6]byte
	_ [ifruSize - unix.IFNAMSIZ]byte
	_ [ifruSize - 4]byte
)

// ErrInvalidName is returned for interface names that do not fit in
// IFNAMSIZ-1 bytes or that contain a NUL byte.
var ErrInvalidName = errors.New("invalid interface name")

// Name is a NUL padded interface name as the kernel stores it.
type Name [unix.IFNAMSIZ]byte

// ParseName validates s and copies it into a Name. The empty name is valid:
// the kernel picks one when the request is issued.
func ParseName(s string) (Name, error) {
	var n Name
	if len(s) >= len(n) || strings.IndexByte(s, 0) >= 0 {
		return n, ErrInvalidName
	}
	copy(n[:], s)
	return n, nil
}

// String returns the name up to the first NUL byte.
func (n Name) String() string {
	i := bytes.IndexByte(n[:], 0)
	if i < 0 {
		i = len(n)
	}
	return string(n[:i])
}

// Ifreq mirrors struct ifreq: an interface name followed by a union whose
// interpretation is chosen by the ioctl it is passed to. The zero value is
// fully zeroed and safe to hand to the kernel.
type Ifreq struct {
	name Name
	ifru [ifruSize]byte
}

// NewIfreq returns a zeroed request carrying name.
func NewIfreq(name string) (*Ifreq, error) {
	n, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	return &Ifreq{name: n}, nil
}

// Name returns the interface name, as filled in by the kernel after a
// successful ioctl.
func (r *Ifreq) Name() string {
	return r.name.String()
}

// Payload is one interpretation of the ifreq union. The set of variants is
// closed; use the one the ioctl being issued expects.
type Payload interface {
	put(ifru []byte)
}

// Flags is ifr_flags, a C short.
type Flags uint16

// IntValue is ifr_ivalue, also read as ifr_ifindex.
type IntValue int32

// MTU is ifr_mtu.
type MTU int32

// Slave is ifr_slave.
type Slave Name

// NewName is ifr_newname, used by SIOCSIFNAME.
type NewName Name

func (f Flags) put(b []byte)    { binary.NativeEndian.PutUint16(b, uint16(f)) }
func (v IntValue) put(b []byte) { binary.NativeEndian.PutUint32(b, uint32(v)) }
func (m MTU) put(b []byte)      { binary.NativeEndian.PutUint32(b, uint32(m)) }
func (s Slave) put(b []byte)    { copy(b, s[:]) }
func (n NewName) put(b []byte)  { copy(b, n[:]) }

// SetPayload zeroes the union and stores p in it.
func (r *Ifreq) SetPayload(p Payload) {
	clear(r.ifru[:])
	p.put(r.ifru[:])
}

// Flags reads the union as ifr_flags.
func (r *Ifreq) Flags() Flags {
	return Flags(binary.NativeEndian.Uint16(r.ifru[:]))
}

// IntValue reads the union as ifr_ivalue.
func (r *Ifreq) IntValue() int32 {
	return int32(binary.NativeEndian.Uint32(r.ifru[:]))
}

// MTU reads the union as ifr_mtu.
func (r *Ifreq) MTU() int32 {
	return int32(binary.NativeEndian.Uint32(r.ifru[:]))
}

// NewName reads the union as ifr_newname.
func (r *Ifreq) NewName() string {
	var n Name
	copy(n[:], r.ifru[:])
	return n.String()
}
