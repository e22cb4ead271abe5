//go:build linux

package link

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func ioctlIfreq(fd uintptr, code uint, req *Ifreq) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(code), uintptr(unsafe.Pointer(req)))
	if errno != 0 {
		return errno
	}
	return nil
}

// ifreqData is an Ifreq whose union holds a pointer. It is a separate type
// so the pointer stays visible to the garbage collector while the kernel
// dereferences it.
type ifreqData struct {
	name Name
	data unsafe.Pointer
	_    [kernelIfruSize - unix.SizeofPtr]byte
}

func (r *Ifreq) withData(p unsafe.Pointer) ifreqData {
	return ifreqData{name: r.name, data: p}
}

func ioctlIfreqData(fd uintptr, code uint, req *ifreqData) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(code), uintptr(unsafe.Pointer(req)))
	if errno != 0 {
		return errno
	}
	return nil
}

// ioctlFile issues code against f without taking f out of the runtime
// poller, which calling f.Fd() would do.
func ioctlFile(f *os.File, code uint, req *Ifreq) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var ioErr error
	err = rc.Control(func(fd uintptr) {
		ioErr = ioctlIfreq(fd, code, req)
	})
	if err != nil {
		return err
	}
	if ioErr != nil {
		return os.NewSyscallError("ioctl", ioErr)
	}
	return nil
}
