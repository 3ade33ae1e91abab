package newtfs

import "github.com/rkade/newtfs/ondisk"

// InoHandle identifies an inode in the in-memory arena. It doubles as the
// bit index in the inode bitmap, per §9's "the inode bitmap index doubles as
// the inode handle".
type InoHandle int32

// NoIno is the sentinel for "no inode" (a freshly created dentry whose inode
// has not been allocated yet).
const NoIno InoHandle = -1

// DentryHandle identifies a dentry in the in-memory arena.
type DentryHandle int32

// NoDentry is the sentinel for "no dentry" (root's parent, an empty sibling
// chain terminator).
const NoDentry DentryHandle = -1

// FileType re-exports ondisk.FileType so callers of this package never need
// to import ondisk directly for this concept.
type FileType = ondisk.FileType

const (
	Regular   = ondisk.Regular
	Directory = ondisk.Directory
)

// Inode is the in-memory mirror of an on-disk inode record, plus the graph
// links and cached payload the on-disk record doesn't carry.
type Inode struct {
	Ino      InoHandle
	Size     uint32
	Link     uint32
	FType    FileType
	Blocks   [ondisk.DataBlocksPerFile]int32
	DirCount uint32

	// Dentry is the back-pointer to the dentry that names this inode.
	Dentry DentryHandle
	// FirstChild heads the sibling chain of this directory's children.
	// Meaningless for regular files.
	FirstChild DentryHandle
	// Payload holds the full 6*blk_size buffer for a regular file, allocated
	// eagerly at alloc_inode time.
	Payload []byte

	// ModTime is a supplemented, in-memory-only field (see utimens in
	// SPEC_FULL.md's SUPPLEMENTED FEATURES); it is not part of the fixed
	// 50-byte on-disk inode record and does not survive unmount/remount.
	ModTime int64
}

// dentryState tags whether a dentry's inode has been loaded from disk yet.
type dentryState uint8

const (
	stateUnresolved dentryState = iota
	stateResolved
)

// Dentry is the in-memory mirror of an on-disk dentry record, plus the
// parent/sibling graph links the on-disk record doesn't carry.
type Dentry struct {
	Name  string
	Ino   InoHandle
	FType FileType

	state  dentryState
	Inode  InoHandle // valid only when state == stateResolved

	Parent  DentryHandle
	Brother DentryHandle
}

// IsResolved reports whether this dentry's inode has been loaded.
func (d *Dentry) IsResolved() bool {
	return d.state == stateResolved
}

// MarkResolved records that ino has been loaded into the arena for this
// dentry.
func (d *Dentry) MarkResolved(ino InoHandle) {
	d.Inode = ino
	d.state = stateResolved
}
