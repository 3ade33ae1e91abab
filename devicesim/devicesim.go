// Package devicesim provides concrete implementations of blockio.Device: an
// in-memory one for tests and ad-hoc image construction, and a file-backed
// one for the CLI. Neither is part of the filesystem core — both stand in
// for the out-of-scope block-device driver §1 names as an external
// collaborator.
package devicesim

import (
	"fmt"
	"io"
	"os"

	"github.com/rkade/newtfs/blockio"
	"github.com/xaionaro-go/bytesextra"
)

// MemDevice is an in-memory blockio.Device backed by a fixed-size byte
// slice, the same pattern the teacher repo's testing.LoadDiskImage uses for
// disk images in tests.
type MemDevice struct {
	stream io.ReadWriteSeeker
	size   int64
	ioSize int64
}

// NewMemDevice allocates a zero-filled in-memory device of size bytes,
// reporting ioSize as its native transfer unit.
func NewMemDevice(size, ioSize int64) *MemDevice {
	buf := make([]byte, size)
	return &MemDevice{
		stream: bytesextra.NewReadWriteSeeker(buf),
		size:   size,
		ioSize: ioSize,
	}
}

func (m *MemDevice) Read(p []byte) (int, error)  { return m.stream.Read(p) }
func (m *MemDevice) Write(p []byte) (int, error) { return m.stream.Write(p) }
func (m *MemDevice) Seek(offset int64, whence int) (int64, error) {
	return m.stream.Seek(offset, whence)
}
func (m *MemDevice) Close() error { return nil }

// IOCtl answers the two device queries the blockio.Device contract requires.
func (m *MemDevice) IOCtl(req blockio.IOCtlRequest) (int64, error) {
	switch req {
	case blockio.ReqDeviceSize:
		return m.size, nil
	case blockio.ReqDeviceIOSize:
		return m.ioSize, nil
	default:
		return 0, fmt.Errorf("devicesim: unsupported ioctl request %d", req)
	}
}

var _ blockio.Device = (*MemDevice)(nil)

// FileDevice is a blockio.Device backed by an os.File, for the CLI's
// `mount`/`format` commands operating on a real image file. The native I/O
// size isn't discoverable from a plain file, so the caller supplies it (the
// CLI takes it from a --preset or an explicit flag).
type FileDevice struct {
	file   *os.File
	ioSize int64
}

// OpenFileDevice opens an existing image file at path for read-write use.
func OpenFileDevice(path string, ioSize int64) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileDevice{file: f, ioSize: ioSize}, nil
}

// CreateFileDevice creates (or truncates) an image file at path, sized to
// exactly totalBytes.
func CreateFileDevice(path string, totalBytes, ioSize int64) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(totalBytes); err != nil {
		f.Close()
		return nil, err
	}
	return &FileDevice{file: f, ioSize: ioSize}, nil
}

func (f *FileDevice) Read(p []byte) (int, error)  { return f.file.Read(p) }
func (f *FileDevice) Write(p []byte) (int, error) { return f.file.Write(p) }
func (f *FileDevice) Seek(offset int64, whence int) (int64, error) {
	return f.file.Seek(offset, whence)
}
func (f *FileDevice) Close() error { return f.file.Close() }

// IOCtl answers the two device queries the blockio.Device contract requires.
func (f *FileDevice) IOCtl(req blockio.IOCtlRequest) (int64, error) {
	switch req {
	case blockio.ReqDeviceSize:
		info, err := f.file.Stat()
		if err != nil {
			return 0, err
		}
		return info.Size(), nil
	case blockio.ReqDeviceIOSize:
		return f.ioSize, nil
	default:
		return 0, fmt.Errorf("devicesim: unsupported ioctl request %d", req)
	}
}

var _ blockio.Device = (*FileDevice)(nil)
