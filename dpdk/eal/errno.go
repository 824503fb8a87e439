package eal

import (
	"reflect"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// Errno represents a POSIX error number reported by the hardware control interface.
type Errno syscall.Errno

// Well-known error numbers.
const (
	EINVAL    = Errno(unix.EINVAL)
	ENOMEM    = Errno(unix.ENOMEM)
	EEXIST    = Errno(unix.EEXIST)
	EOVERFLOW = Errno(unix.EOVERFLOW)
	EAGAIN    = Errno(unix.EAGAIN)
	EBUSY     = Errno(unix.EBUSY)
)

func (e Errno) Error() string {
	if name := unix.ErrnoName(syscall.Errno(e)); name != "" {
		return name + " " + syscall.Errno(e).Error()
	}
	return strconv.Itoa(int(e)) + " " + syscall.Errno(e).Error()
}

// Is allows errors.Is(e, syscall.Errno) comparisons.
func (e Errno) Is(target error) bool {
	switch t := target.(type) {
	case Errno:
		return e == t
	case syscall.Errno:
		return syscall.Errno(e) == t
	}
	return false
}

// MakeErrno creates Errno from non-zero number or returns nil for zero.
// errno must be a signed integer.
func MakeErrno(errno any) error {
	v := reflect.ValueOf(errno).Int()
	switch {
	case v == 0:
		return nil
	case v < 0:
		return Errno(-v)
	default:
		return Errno(v)
	}
}
