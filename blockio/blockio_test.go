package blockio_test

import (
	"io"
	"testing"

	"github.com/rkade/newtfs/blockio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice is a minimal in-memory blockio.Device with a configurable
// native I/O unit, used to exercise AlignedIO's alignment arithmetic without
// depending on the devicesim package.
type fakeDevice struct {
	buf    []byte
	cursor int64
	ioSize int64
}

func newFakeDevice(size, ioSize int64) *fakeDevice {
	return &fakeDevice{buf: make([]byte, size), ioSize: ioSize}
}

func (f *fakeDevice) Read(p []byte) (int, error) {
	n := copy(p, f.buf[f.cursor:])
	f.cursor += int64(n)
	return n, nil
}

func (f *fakeDevice) Write(p []byte) (int, error) {
	n := copy(f.buf[f.cursor:], p)
	f.cursor += int64(n)
	return n, nil
}

func (f *fakeDevice) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.cursor = offset
	case io.SeekCurrent:
		f.cursor += offset
	case io.SeekEnd:
		f.cursor = int64(len(f.buf)) + offset
	}
	return f.cursor, nil
}

func (f *fakeDevice) Close() error { return nil }

func (f *fakeDevice) IOCtl(req blockio.IOCtlRequest) (int64, error) {
	switch req {
	case blockio.ReqDeviceSize:
		return int64(len(f.buf)), nil
	case blockio.ReqDeviceIOSize:
		return f.ioSize, nil
	}
	return 0, nil
}

func TestNew_QueriesNativeIOSize(t *testing.T) {
	dev := newFakeDevice(4096, 512)
	a, err := blockio.New(dev)
	require.NoError(t, err)
	assert.EqualValues(t, 512, a.IOSize())
}

func TestWriteAt_ReadAt_UnalignedRoundTrip(t *testing.T) {
	dev := newFakeDevice(4096, 512)
	a, err := blockio.New(dev)
	require.NoError(t, err)

	payload := []byte("hello, world")
	require.NoError(t, a.WriteAt(100, payload))

	got, err := a.ReadAt(100, len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestWriteAt_PreservesBracketingBytes(t *testing.T) {
	dev := newFakeDevice(4096, 512)
	a, err := blockio.New(dev)
	require.NoError(t, err)

	require.NoError(t, a.WriteAt(0, []byte("ABCDEFGH")))

	require.NoError(t, a.WriteAt(3, []byte("hello")))

	got, err := a.ReadAt(0, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABChelloH")[:8], got)
}

func TestWriteAt_SpansMultipleNativeBlocks(t *testing.T) {
	dev := newFakeDevice(4096, 512)
	a, err := blockio.New(dev)
	require.NoError(t, err)

	payload := make([]byte, 1200)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	require.NoError(t, a.WriteAt(400, payload))

	got, err := a.ReadAt(400, len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
