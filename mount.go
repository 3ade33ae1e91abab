package newtfs

import (
	"syscall"

	"github.com/rkade/newtfs/bitalloc"
	"github.com/rkade/newtfs/blockio"
	"github.com/rkade/newtfs/ondisk"
)

// Fixed geometry, per §6's on-disk layout table. All offsets are in logical
// blocks.
const (
	superblockBlocks = 1
	inodeBitmapBlks  = 1
	dataBitmapBlks   = 1
	inodeTableBlks   = 585

	superblockStart  = 0
	inodeBitmapStart = superblockStart + superblockBlocks
	dataBitmapStart  = inodeBitmapStart + inodeBitmapBlks
	inodeTableStart  = dataBitmapStart + dataBitmapBlks
	dataRegionStart  = inodeTableStart + inodeTableBlks
)

// FileSystem is the mount session: superblock geometry, both bitmap
// allocators, and the inode/dentry object graph, threaded explicitly through
// every operation rather than held as module-global state (§9, "Global
// superblock singleton").
type FileSystem struct {
	dev *blockio.AlignedIO

	blockSize  int64
	blockCount int64

	inodeBitmapOffset int64
	inodeBitmapBlocks int64
	dataBitmapOffset  int64
	dataBitmapBlocks  int64
	inodeTableOffset  int64
	inodeTableBlocks  int64
	dataRegionOffset  int64
	dataRegionBlocks  int64

	maxInodes  int64
	usageBytes int64

	inodeAlloc *bitalloc.Allocator
	dataAlloc  *bitalloc.Allocator

	inodes   map[InoHandle]*Inode
	dentries map[DentryHandle]*Dentry
	nextDent DentryHandle

	root    DentryHandle
	mounted bool
}

// NewFromDevice wraps dev for mounting. The device is not touched until
// Mount is called.
func NewFromDevice(dev blockio.Device) (*FileSystem, error) {
	aligned, err := blockio.New(dev)
	if err != nil {
		return nil, NewErrorWithMessage(syscall.ENXIO, err.Error())
	}
	return &FileSystem{
		dev:      aligned,
		inodes:   make(map[InoHandle]*Inode),
		dentries: make(map[DentryHandle]*Dentry),
	}, nil
}

// Mount builds the object graph from disk, or initializes a fresh image if
// the device's magic number doesn't match (§4.6).
func (fs *FileSystem) Mount() error {
	if fs.mounted {
		return ErrAlreadyMounted
	}

	deviceSize, err := fs.dev.DeviceSize()
	if err != nil {
		return NewErrorWithMessage(syscall.EIO, err.Error())
	}
	fs.blockSize = 2 * fs.dev.IOSize()

	rootDentry := &Dentry{Name: "/", FType: Directory, Parent: NoDentry, Brother: NoDentry, Ino: 0}
	fs.root = fs.newDentryHandle(rootDentry)

	raw, err := fs.dev.ReadAt(0, int(fs.blockSize))
	if err != nil {
		return NewErrorWithMessage(syscall.EIO, err.Error())
	}
	sb, decodeErr := ondisk.DecodeSuperblock(raw)

	isInit := decodeErr != nil || sb.Magic != ondisk.MagicNumber
	if isInit {
		sb = fs.freshGeometry(deviceSize)
	}
	fs.applySuperblock(sb)

	inodeBitmapRaw, err := fs.dev.ReadAt(fs.inodeBitmapOffset, int(fs.inodeBitmapBlocks*fs.blockSize))
	if err != nil {
		return NewErrorWithMessage(syscall.EIO, err.Error())
	}
	dataBitmapRaw, err := fs.dev.ReadAt(fs.dataBitmapOffset, int(fs.dataBitmapBlocks*fs.blockSize))
	if err != nil {
		return NewErrorWithMessage(syscall.EIO, err.Error())
	}

	inodeBitmapCap := fs.maxInodes
	dataBitmapCap := fs.dataRegionBlocks
	if isInit {
		fs.inodeAlloc = bitalloc.New(int(inodeBitmapCap))
		fs.dataAlloc = bitalloc.New(int(dataBitmapCap))
	} else {
		fs.inodeAlloc = bitalloc.FromBytes(inodeBitmapRaw, int(inodeBitmapCap))
		fs.dataAlloc = bitalloc.FromBytes(dataBitmapRaw, int(dataBitmapCap))
	}

	if isInit {
		rootIno, err := fs.allocInode(fs.root, Directory)
		if err != nil {
			return err
		}
		_ = rootIno
		if err := fs.syncInode(fs.root); err != nil {
			return err
		}
	}

	if err := fs.readInode(fs.root, 0); err != nil {
		return err
	}

	fs.mounted = true
	return nil
}

// Unmount recursively flushes the live object graph, the superblock, and
// both bitmaps, then releases the mount session's state (§4.6).
func (fs *FileSystem) Unmount() error {
	if !fs.mounted {
		return nil
	}

	var agg error
	if err := fs.syncInode(fs.root); err != nil {
		agg = appendErr(agg, err)
	}

	sb := fs.toSuperblock()
	raw, err := sb.Encode()
	if err != nil {
		agg = appendErr(agg, NewErrorWithMessage(syscall.EIO, err.Error()))
	} else if err := fs.dev.WriteAt(0, raw); err != nil {
		agg = appendErr(agg, NewErrorWithMessage(syscall.EIO, err.Error()))
	}

	if err := fs.dev.WriteAt(fs.inodeBitmapOffset, fs.inodeAlloc.Bytes()); err != nil {
		agg = appendErr(agg, NewErrorWithMessage(syscall.EIO, err.Error()))
	}
	if err := fs.dev.WriteAt(fs.dataBitmapOffset, fs.dataAlloc.Bytes()); err != nil {
		agg = appendErr(agg, NewErrorWithMessage(syscall.EIO, err.Error()))
	}

	fs.inodes = make(map[InoHandle]*Inode)
	fs.dentries = make(map[DentryHandle]*Dentry)
	fs.mounted = false

	if agg != nil {
		return agg
	}
	return fs.dev.Close()
}

// freshGeometry computes the fixed layout described in §6's on-disk layout
// table for a blank device of the given total byte size.
func (fs *FileSystem) freshGeometry(deviceSize int64) ondisk.Superblock {
	totalBlocks := deviceSize / fs.blockSize
	dataBlocks := totalBlocks - dataRegionStart
	if dataBlocks < 0 {
		dataBlocks = 0
	}
	maxInodes := int64(inodeTableBlks * ondisk.InodesPerBlock)
	inodeBitmapBits := inodeBitmapBlks * fs.blockSize * 8
	if maxInodes > inodeBitmapBits {
		maxInodes = inodeBitmapBits
	}

	return ondisk.Superblock{
		Magic:             ondisk.MagicNumber,
		BlockSize:         uint32(fs.blockSize),
		BlockCount:        uint32(totalBlocks),
		InodeBitmapOffset: uint32(inodeBitmapStart * fs.blockSize),
		InodeBitmapBlocks: inodeBitmapBlks,
		DataBitmapOffset:  uint32(dataBitmapStart * fs.blockSize),
		DataBitmapBlocks:  dataBitmapBlks,
		InodeTableOffset:  uint32(inodeTableStart * fs.blockSize),
		InodeTableBlocks:  inodeTableBlks,
		DataRegionOffset:  uint32(dataRegionStart * fs.blockSize),
		DataRegionBlocks:  uint32(dataBlocks),
		MaxInodes:         uint32(maxInodes),
		UsageBytes:        0,
	}
}

func (fs *FileSystem) applySuperblock(sb ondisk.Superblock) {
	fs.blockSize = int64(sb.BlockSize)
	fs.blockCount = int64(sb.BlockCount)
	fs.inodeBitmapOffset = int64(sb.InodeBitmapOffset)
	fs.inodeBitmapBlocks = int64(sb.InodeBitmapBlocks)
	fs.dataBitmapOffset = int64(sb.DataBitmapOffset)
	fs.dataBitmapBlocks = int64(sb.DataBitmapBlocks)
	fs.inodeTableOffset = int64(sb.InodeTableOffset)
	fs.inodeTableBlocks = int64(sb.InodeTableBlocks)
	fs.dataRegionOffset = int64(sb.DataRegionOffset)
	fs.dataRegionBlocks = int64(sb.DataRegionBlocks)
	fs.maxInodes = int64(sb.MaxInodes)
	fs.usageBytes = int64(sb.UsageBytes)
}

func (fs *FileSystem) toSuperblock() ondisk.Superblock {
	return ondisk.Superblock{
		Magic:             ondisk.MagicNumber,
		BlockSize:         uint32(fs.blockSize),
		BlockCount:        uint32(fs.blockCount),
		InodeBitmapOffset: uint32(fs.inodeBitmapOffset),
		InodeBitmapBlocks: uint32(fs.inodeBitmapBlocks),
		DataBitmapOffset:  uint32(fs.dataBitmapOffset),
		DataBitmapBlocks:  uint32(fs.dataBitmapBlocks),
		InodeTableOffset:  uint32(fs.inodeTableOffset),
		InodeTableBlocks:  uint32(fs.inodeTableBlocks),
		DataRegionOffset:  uint32(fs.dataRegionOffset),
		DataRegionBlocks:  uint32(fs.dataRegionBlocks),
		MaxInodes:         uint32(fs.maxInodes),
		UsageBytes:        uint32(fs.usageBytes),
	}
}

// FSStat reports aggregate filesystem statistics, the newtfs analog of the
// teacher repo's disko.FSStat.
type FSStat struct {
	BlockSize  int64
	BlockCount int64
	MaxInodes  int64
	UsageBytes int64
}

// Stat returns current filesystem-level statistics.
func (fs *FileSystem) Stat() FSStat {
	return FSStat{
		BlockSize:  fs.blockSize,
		BlockCount: fs.blockCount,
		MaxInodes:  fs.maxInodes,
		UsageBytes: fs.usageBytes,
	}
}
