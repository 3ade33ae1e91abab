package newtfs

import (
	"fmt"
	"syscall"
)

// DriverError pairs a POSIX errno with an optional descriptive message. It is
// the error type Mount and the VFS operations return; Unmount reports its
// flush failures aggregated in a multierror.
type DriverError struct {
	ErrnoCode syscall.Errno
	message   string
}

// Error implements the error interface.
func (e DriverError) Error() string {
	if e.message == "" {
		return e.ErrnoCode.Error()
	}
	return fmt.Sprintf("%s: %s", e.ErrnoCode.Error(), e.message)
}

// Errno returns the underlying POSIX error number.
func (e DriverError) Errno() syscall.Errno {
	return e.ErrnoCode
}

// NewError builds a DriverError carrying just an errno.
func NewError(errnoCode syscall.Errno) *DriverError {
	return &DriverError{ErrnoCode: errnoCode}
}

// NewErrorWithMessage builds a DriverError carrying an errno and context.
func NewErrorWithMessage(errnoCode syscall.Errno, message string) *DriverError {
	return &DriverError{ErrnoCode: errnoCode, message: message}
}

var (
	ErrNotFound       = NewError(syscall.ENOENT)
	ErrExists         = NewError(syscall.EEXIST)
	ErrIsDirectory    = NewError(syscall.EISDIR)
	ErrNotDirectory   = NewError(syscall.ENOTDIR)
	ErrNoSpace        = NewError(syscall.ENOSPC)
	ErrIO             = NewError(syscall.EIO)
	ErrUnsupported    = NewError(syscall.ENXIO)
	ErrSeek           = NewError(syscall.ESPIPE)
	ErrAlreadyMounted = NewErrorWithMessage(syscall.ENXIO, "already mounted")
	ErrNotMounted     = NewErrorWithMessage(syscall.ENXIO, "not mounted")
)

// Errno extracts the POSIX errno from err, defaulting to EIO for anything
// that isn't a *DriverError.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if de, ok := err.(*DriverError); ok {
		return de.ErrnoCode
	}
	return syscall.EIO
}
