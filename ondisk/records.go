// Package ondisk implements the fixed-layout binary records this filesystem
// persists to disk: the superblock, the 50-byte inode record, and the
// 136-byte directory-entry record. Encoding and decoding are pure: the
// in-memory forms here carry strictly the on-disk fields, none of the
// pointers or cached children the object graph layer adds on top.
package ondisk

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
)

// MagicNumber identifies an initialized device image.
const MagicNumber uint32 = 880818

// MaxNameLen is the longest name a dentry record can hold, zero-padded.
const MaxNameLen = 128

// DataBlocksPerFile is the fixed number of block pointers every inode
// carries.
const DataBlocksPerFile = 6

// InodeRecordSize is the fixed size, in bytes, of one on-disk inode slot.
const InodeRecordSize = 50

// InodesPerBlock is the number of 50-byte inode slots packed into one
// logical block, per the spec's INO_OFS addressing rule.
const InodesPerBlock = 20

// FileType distinguishes directories from regular files, on disk and in
// memory.
type FileType uint8

const (
	Regular FileType = iota
	Directory
)

func (t FileType) String() string {
	if t == Directory {
		return "directory"
	}
	return "regular"
}

// Superblock is the fixed record stored at offset 0 of the device.
type Superblock struct {
	Magic uint32

	BlockSize  uint32
	BlockCount uint32

	InodeBitmapOffset uint32
	InodeBitmapBlocks uint32
	DataBitmapOffset  uint32
	DataBitmapBlocks  uint32
	InodeTableOffset  uint32
	InodeTableBlocks  uint32
	DataRegionOffset  uint32
	DataRegionBlocks  uint32

	MaxInodes  uint32
	UsageBytes uint32
}

// superblockWireSize is the number of bytes Encode/Decode read and write; it
// need not fill an entire logical block, but callers always reserve one full
// block for the superblock region regardless.
const superblockWireSize = 4*1 + 4*2 + 4*8 + 4*2

// Encode serializes the superblock into a fixed-size byte slice.
func (s *Superblock) Encode() ([]byte, error) {
	buf := make([]byte, superblockWireSize)
	w := bytewriter.New(buf)
	fields := []uint32{
		s.Magic,
		s.BlockSize, s.BlockCount,
		s.InodeBitmapOffset, s.InodeBitmapBlocks,
		s.DataBitmapOffset, s.DataBitmapBlocks,
		s.InodeTableOffset, s.InodeTableBlocks,
		s.DataRegionOffset, s.DataRegionBlocks,
		s.MaxInodes, s.UsageBytes,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("encode superblock: %w", err)
		}
	}
	return buf, nil
}

// DecodeSuperblock parses a superblock record from raw bytes.
func DecodeSuperblock(raw []byte) (Superblock, error) {
	if len(raw) < superblockWireSize {
		return Superblock{}, fmt.Errorf(
			"superblock record too short: need %d bytes, got %d",
			superblockWireSize, len(raw))
	}
	r := bytes.NewReader(raw)
	var s Superblock
	fields := []*uint32{
		&s.Magic,
		&s.BlockSize, &s.BlockCount,
		&s.InodeBitmapOffset, &s.InodeBitmapBlocks,
		&s.DataBitmapOffset, &s.DataBitmapBlocks,
		&s.InodeTableOffset, &s.InodeTableBlocks,
		&s.DataRegionOffset, &s.DataRegionBlocks,
		&s.MaxInodes, &s.UsageBytes,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return Superblock{}, fmt.Errorf("decode superblock: %w", err)
		}
	}
	return s, nil
}

// Inode is the fixed 50-byte on-disk inode record: ino, size, link count,
// file type, six block pointers (-1 meaning unset), and a directory entry
// count.
type Inode struct {
	Ino      uint32
	Size     uint32
	Link     uint32
	FType    FileType
	Blocks   [DataBlocksPerFile]int32
	DirCount uint32
}

// Encode serializes the inode record into exactly InodeRecordSize bytes.
func (n *Inode) Encode() ([]byte, error) {
	buf := make([]byte, InodeRecordSize)
	w := bytewriter.New(buf)

	if err := binary.Write(w, binary.LittleEndian, n.Ino); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Size); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Link); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(n.FType)); err != nil {
		return nil, err
	}
	for _, bp := range n.Blocks {
		if err := binary.Write(w, binary.LittleEndian, bp); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, n.DirCount); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeInode parses an inode record from its fixed-size slot.
func DecodeInode(raw []byte) (Inode, error) {
	if len(raw) < InodeRecordSize {
		return Inode{}, fmt.Errorf(
			"inode record too short: need %d bytes, got %d",
			InodeRecordSize, len(raw))
	}
	r := bytes.NewReader(raw)
	var n Inode
	var ftype uint32

	if err := binary.Read(r, binary.LittleEndian, &n.Ino); err != nil {
		return Inode{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.Size); err != nil {
		return Inode{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.Link); err != nil {
		return Inode{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &ftype); err != nil {
		return Inode{}, err
	}
	n.FType = FileType(ftype)
	for i := range n.Blocks {
		if err := binary.Read(r, binary.LittleEndian, &n.Blocks[i]); err != nil {
			return Inode{}, err
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &n.DirCount); err != nil {
		return Inode{}, err
	}
	return n, nil
}

// InodeOffset computes the fixed byte offset of inode ino's record, per the
// spec's INO_OFS addressing rule: twenty 50-byte slots per logical block.
func InodeOffset(tableOffset, blockSize int64, ino uint32) int64 {
	blockIndex := int64(ino) / InodesPerBlock
	slotInBlock := int64(ino) % InodesPerBlock
	return tableOffset + blockIndex*blockSize + slotInBlock*InodeRecordSize
}

// Dentry is the on-disk directory-entry record: a zero-padded 128-byte name,
// the ino it names, and a cached file type.
type Dentry struct {
	Name  string
	Ino   uint32
	FType FileType
}

// DentryRecordSize is MaxNameLen bytes of name plus a 4-byte ino and a
// 4-byte (widened) file type tag.
const DentryRecordSize = MaxNameLen + 4 + 4

// Encode serializes the dentry record into exactly DentryRecordSize bytes,
// zero-padding the name field.
func (d *Dentry) Encode() ([]byte, error) {
	if len(d.Name) > MaxNameLen {
		return nil, fmt.Errorf("name %q exceeds %d bytes", d.Name, MaxNameLen)
	}
	buf := make([]byte, DentryRecordSize)
	w := bytewriter.New(buf)

	var nameBuf [MaxNameLen]byte
	copy(nameBuf[:], d.Name)
	if err := binary.Write(w, binary.LittleEndian, nameBuf); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, d.Ino); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(d.FType)); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeDentry parses a dentry record from raw bytes.
func DecodeDentry(raw []byte) (Dentry, error) {
	if len(raw) < DentryRecordSize {
		return Dentry{}, fmt.Errorf(
			"dentry record too short: need %d bytes, got %d",
			DentryRecordSize, len(raw))
	}
	r := bytes.NewReader(raw)
	var nameBuf [MaxNameLen]byte
	if err := binary.Read(r, binary.LittleEndian, &nameBuf); err != nil {
		return Dentry{}, err
	}

	var d Dentry
	d.Name = string(bytes.TrimRight(nameBuf[:], "\x00"))

	if err := binary.Read(r, binary.LittleEndian, &d.Ino); err != nil {
		return Dentry{}, err
	}
	var ftype uint32
	if err := binary.Read(r, binary.LittleEndian, &ftype); err != nil {
		return Dentry{}, err
	}
	d.FType = FileType(ftype)
	return d, nil
}
