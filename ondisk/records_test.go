package ondisk_test

import (
	"testing"

	"github.com/rkade/newtfs/ondisk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperblock_EncodeDecodeRoundTrip(t *testing.T) {
	sb := ondisk.Superblock{
		Magic:             ondisk.MagicNumber,
		BlockSize:         1024,
		BlockCount:        4096,
		InodeBitmapOffset: 1024,
		InodeBitmapBlocks: 1,
		DataBitmapOffset:  2048,
		DataBitmapBlocks:  1,
		InodeTableOffset:  3072,
		InodeTableBlocks:  585,
		DataRegionOffset:  602112,
		DataRegionBlocks:  3503,
		MaxInodes:         11700,
		UsageBytes:        0,
	}

	raw, err := sb.Encode()
	require.NoError(t, err)

	decoded, err := ondisk.DecodeSuperblock(raw)
	require.NoError(t, err)
	assert.Equal(t, sb, decoded)
}

func TestDecodeSuperblock_TooShort(t *testing.T) {
	_, err := ondisk.DecodeSuperblock([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestInode_EncodeDecodeRoundTrip(t *testing.T) {
	n := ondisk.Inode{
		Ino:      7,
		Size:     1234,
		Link:     1,
		FType:    ondisk.Regular,
		Blocks:   [ondisk.DataBlocksPerFile]int32{0, 1, -1, -1, -1, -1},
		DirCount: 0,
	}

	raw, err := n.Encode()
	require.NoError(t, err)
	assert.Len(t, raw, ondisk.InodeRecordSize)

	decoded, err := ondisk.DecodeInode(raw)
	require.NoError(t, err)
	assert.Equal(t, n, decoded)
}

func TestInodeOffset_TwentyPerBlock(t *testing.T) {
	tableOffset := int64(3072)
	blockSize := int64(1024)

	assert.Equal(t, tableOffset, ondisk.InodeOffset(tableOffset, blockSize, 0))
	assert.Equal(t, tableOffset+50, ondisk.InodeOffset(tableOffset, blockSize, 1))
	assert.Equal(t, tableOffset+blockSize, ondisk.InodeOffset(tableOffset, blockSize, 20))
	assert.Equal(t, tableOffset+blockSize+50, ondisk.InodeOffset(tableOffset, blockSize, 21))
}

func TestDentry_EncodeDecodeRoundTrip(t *testing.T) {
	d := ondisk.Dentry{Name: "hello.txt", Ino: 42, FType: ondisk.Regular}

	raw, err := d.Encode()
	require.NoError(t, err)
	assert.Len(t, raw, ondisk.DentryRecordSize)

	decoded, err := ondisk.DecodeDentry(raw)
	require.NoError(t, err)
	assert.Equal(t, d, decoded)
}

func TestDentry_EncodeRejectsOverlongName(t *testing.T) {
	longName := make([]byte, ondisk.MaxNameLen+1)
	for i := range longName {
		longName[i] = 'a'
	}
	d := ondisk.Dentry{Name: string(longName), Ino: 1, FType: ondisk.Directory}

	_, err := d.Encode()
	assert.Error(t, err)
}

func TestDentry_NamePaddingIsTrimmedOnDecode(t *testing.T) {
	d := ondisk.Dentry{Name: "a", Ino: 1, FType: ondisk.Directory}
	raw, err := d.Encode()
	require.NoError(t, err)

	decoded, err := ondisk.DecodeDentry(raw)
	require.NoError(t, err)
	assert.Equal(t, "a", decoded.Name)
}
