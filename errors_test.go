package newtfs_test

import (
	"syscall"
	"testing"

	"github.com/rkade/newtfs"
	"github.com/stretchr/testify/assert"
)

func TestNewErrorWithMessage(t *testing.T) {
	err := newtfs.NewErrorWithMessage(syscall.EEXIST, "asdfqwerty")
	assert.Equal(t, syscall.EEXIST.Error()+": asdfqwerty", err.Error())
	assert.Equal(t, syscall.EEXIST, err.Errno())
}

func TestNewError(t *testing.T) {
	err := newtfs.NewError(syscall.ENOSPC)
	assert.Equal(t, syscall.ENOSPC.Error(), err.Error())
}

func TestErrno(t *testing.T) {
	assert.Equal(t, syscall.ENOENT, newtfs.Errno(newtfs.ErrNotFound))
	assert.Equal(t, syscall.Errno(0), newtfs.Errno(nil))
}
