package newtfs_test

import (
	"testing"

	"github.com/rkade/newtfs"
	"github.com/rkade/newtfs/devicesim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDeviceSize = 4 * 1024 * 1024
	testIOSize     = 512
)

func mountFresh(t *testing.T) (*newtfs.FileSystem, *devicesim.MemDevice) {
	t.Helper()
	dev := devicesim.NewMemDevice(testDeviceSize, testIOSize)
	fs, err := newtfs.NewFromDevice(dev)
	require.NoError(t, err)
	require.NoError(t, fs.Mount())
	return fs, dev
}

// Scenario 1: mount a blank device, expect an empty root directory.
func TestMount_FreshImage(t *testing.T) {
	fs, _ := mountFresh(t)

	entries, err := fs.Readdir("/")
	require.NoError(t, err)
	assert.Empty(t, entries)

	root, err := fs.Getattr("/")
	require.NoError(t, err)
	assert.EqualValues(t, 0, root.Ino)
	assert.Equal(t, newtfs.Directory, root.FType)

	require.NoError(t, fs.Unmount())
}

func TestMount_Idempotent_RejectsSecondMount(t *testing.T) {
	fs, _ := mountFresh(t)
	assert.Error(t, fs.Mount())
	require.NoError(t, fs.Unmount())
}

func TestUnmount_NoopWhenNotMounted(t *testing.T) {
	dev := devicesim.NewMemDevice(testDeviceSize, testIOSize)
	fs, err := newtfs.NewFromDevice(dev)
	require.NoError(t, err)
	assert.NoError(t, fs.Unmount())
}

// Scenario 5: unmount, remount, and the same tree and file contents are
// still visible.
func TestUnmountRemount_RoundTrip(t *testing.T) {
	dev := devicesim.NewMemDevice(testDeviceSize, testIOSize)

	fs, err := newtfs.NewFromDevice(dev)
	require.NoError(t, err)
	require.NoError(t, fs.Mount())

	require.NoError(t, fs.Mkdir("/a"))
	require.NoError(t, fs.Mkdir("/a/b"))
	require.NoError(t, fs.Create("/a/b/c"))
	_, err = fs.Write("/a/b/c", []byte("hello"), 0)
	require.NoError(t, err)

	require.NoError(t, fs.Unmount())

	fs2, err := newtfs.NewFromDevice(dev)
	require.NoError(t, err)
	require.NoError(t, fs2.Mount())

	stat, err := fs2.Lookup("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, newtfs.Regular, stat.FType)
	assert.EqualValues(t, 5, stat.Size)

	buf := make([]byte, 5)
	n, err := fs2.Read("/a/b/c", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	aEntries, err := fs2.Readdir("/a")
	require.NoError(t, err)
	assert.Len(t, aEntries, 1)

	require.NoError(t, fs2.Unmount())
}

func TestMountUnmountMount_SameGraphShape(t *testing.T) {
	dev := devicesim.NewMemDevice(testDeviceSize, testIOSize)

	fs, err := newtfs.NewFromDevice(dev)
	require.NoError(t, err)
	require.NoError(t, fs.Mount())
	first, err := fs.Getattr("/")
	require.NoError(t, err)
	require.NoError(t, fs.Unmount())

	fs2, err := newtfs.NewFromDevice(dev)
	require.NoError(t, err)
	require.NoError(t, fs2.Mount())
	second, err := fs2.Getattr("/")
	require.NoError(t, err)
	require.NoError(t, fs2.Unmount())

	assert.Equal(t, first.Ino, second.Ino)
	assert.Equal(t, first.FType, second.FType)
	assert.Equal(t, first.DirCount, second.DirCount)
}
