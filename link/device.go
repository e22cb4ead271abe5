//go:build linux

package link

import (
	"io"

	"golang.org/x/sys/unix"
)

const (
	TUNSETIFF = unix.TUNSETIFF
	IFF_TUN   = unix.IFF_TUN
	IFF_TAP   = unix.IFF_TAP
	IFF_NO_PI = unix.IFF_NO_PI
)

// CloneDevice is the character device every TUN/TAP interface is created
// through.
const CloneDevice = "/dev/net/tun"

// NetDevice is a configured TUN/TAP endpoint. One Read returns one frame and
// one Write injects one frame.
type NetDevice interface {
	io.ReadWriteCloser
	Name() string
}
