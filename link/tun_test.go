//go:build linux

package link

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestConfigFlags(t *testing.T) {
	var nilConf *Config
	assert.Equal(t, Flags(IFF_TUN|IFF_NO_PI), nilConf.flags(IFF_TUN))
	assert.Equal(t, Flags(IFF_TAP|IFF_NO_PI), nilConf.flags(IFF_TAP))

	cfg := &Config{}
	assert.Equal(t, Flags(IFF_TUN|IFF_NO_PI), cfg.flags(IFF_TUN))
	assert.Equal(t, Flags(IFF_TAP|IFF_NO_PI), cfg.flags(IFF_TAP))

	cfg.EnablePacketInformation()
	assert.True(t, cfg.PacketInformation)
	assert.Equal(t, Flags(IFF_TUN), cfg.flags(IFF_TUN))
	assert.Equal(t, Flags(IFF_TAP), cfg.flags(IFF_TAP))

	assert.Same(t, cfg, cfg.DisablePacketInformation())
	assert.False(t, cfg.PacketInformation)
	assert.Equal(t, Flags(IFF_TUN|IFF_NO_PI), cfg.flags(IFF_TUN))
}

func TestSetIffRequestTun0(t *testing.T) {
	req, err := newSetIffRequest("tun0", (&Config{}).flags(IFF_TUN))
	require.NoError(t, err)

	assert.Equal(t, Flags(IFF_TUN|IFF_NO_PI), req.Flags())
	assert.Equal(t, Name{'t', 'u', 'n', '0', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, req.name)
	assert.Equal(t, "tun0", req.Name())
}

func TestSetIffRequestTap(t *testing.T) {
	cfg := (&Config{}).EnablePacketInformation()
	req, err := newSetIffRequest("tap0", cfg.flags(IFF_TAP))
	require.NoError(t, err)

	assert.Equal(t, Flags(IFF_TAP), req.Flags())
	assert.Zero(t, req.Flags()&IFF_TUN)
}

func openFds(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	return len(entries)
}

func useCloneDevice(t *testing.T, path string) {
	t.Helper()
	saved := cloneDevicePath
	cloneDevicePath = path
	t.Cleanup(func() { cloneDevicePath = saved })
}

func TestNewTunInvalidName(t *testing.T) {
	before := openFds(t)

	dev, err := NewTun("averyveryverylongname", nil)
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Nil(t, dev)

	dev, err = NewTap(strings.Repeat("x", unix.IFNAMSIZ), nil)
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Nil(t, dev)

	assert.Equal(t, before, openFds(t))
}

func TestNewTunOpenFails(t *testing.T) {
	useCloneDevice(t, filepath.Join(t.TempDir(), "missing"))
	before := openFds(t)

	dev, err := NewTun("tun0", nil)
	assert.Nil(t, dev)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var pathErr *fs.PathError
	assert.ErrorAs(t, err, &pathErr)
	assert.Equal(t, before, openFds(t))
}

func TestNewTunIoctlFailsClosesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tun")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	useCloneDevice(t, path)
	before := openFds(t)

	for _, create := range []func(string, *Config) (*Device, error){NewTun, NewTap} {
		dev, err := create("tun0", &Config{})
		assert.Nil(t, dev)
		require.Error(t, err)

		var sysErr *os.SyscallError
		require.ErrorAs(t, err, &sysErr)
		assert.Equal(t, "ioctl", sysErr.Syscall)
	}

	assert.Equal(t, before, openFds(t))
}

func TestFromFileIntoFile(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	dev := FromFile(w, "tun7")
	assert.Equal(t, "tun7", dev.Name())

	n, err := dev.Write([]byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.NoError(t, dev.Flush())

	buf := make([]byte, 16)
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "frame", string(buf[:n]))

	file := dev.IntoFile()
	assert.Same(t, w, file)
	assert.Empty(t, dev.Name())

	_, err = file.Write([]byte("again"))
	require.NoError(t, err)
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "again", string(buf[:n]))

	require.NoError(t, file.Close())
	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDeviceRead(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	dev := FromFile(r, "tap3")
	defer dev.Close()

	_, err = w.Write([]byte{0x45, 0x00, 0x00, 0x14})
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := dev.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45, 0x00, 0x00, 0x14}, buf[:n])
}

// newKernelDevice skips the test when the host does not let us create
// TUN/TAP interfaces (no /dev/net/tun or no CAP_NET_ADMIN).
func newKernelDevice(t *testing.T, create func(string, *Config) (*Device, error), name string) *Device {
	t.Helper()
	dev, err := create(name, nil)
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
		t.Skipf("cannot create %s: %v", name, err)
	}
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestNewTunKernel(t *testing.T) {
	dev := newKernelDevice(t, NewTun, "tuntest%d")
	assert.True(t, strings.HasPrefix(dev.Name(), "tuntest"))
	assert.NotContains(t, dev.Name(), "%")

	flags, err := InterfaceFlags(dev.Name())
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.IFF_POINTOPOINT)

	driver, err := InterfaceDriver(dev.Name())
	require.NoError(t, err)
	assert.Equal(t, "tun", driver)

	require.NoError(t, dev.SetMTU(1400))
	mtu, err := dev.MTU()
	require.NoError(t, err)
	assert.Equal(t, 1400, mtu)
}

func TestNewTapKernel(t *testing.T) {
	dev := newKernelDevice(t, NewTap, "taptest0")
	assert.Equal(t, "taptest0", dev.Name())

	flags, err := InterfaceFlags(dev.Name())
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.IFF_BROADCAST)
	assert.Zero(t, flags&unix.IFF_POINTOPOINT)

	require.NoError(t, dev.Up())
	flags, err = InterfaceFlags(dev.Name())
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.IFF_UP)

	require.NoError(t, SetDown(dev.Name()))
	flags, err = InterfaceFlags(dev.Name())
	require.NoError(t, err)
	assert.Zero(t, flags&unix.IFF_UP)
}
