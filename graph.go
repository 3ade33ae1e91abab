package newtfs

import (
	"strings"
	"syscall"

	"github.com/rkade/newtfs/ondisk"
)

// newDentryHandle adds d to the dentry arena and returns its stable handle.
func (fs *FileSystem) newDentryHandle(d *Dentry) DentryHandle {
	h := fs.nextDent
	fs.dentries[h] = d
	fs.nextDent++
	return h
}

func (fs *FileSystem) getDentry(h DentryHandle) *Dentry {
	return fs.dentries[h]
}

func (fs *FileSystem) getInode(h InoHandle) *Inode {
	return fs.inodes[h]
}

func (fs *FileSystem) dataBlockOffset(block int32) int64 {
	return fs.dataRegionOffset + int64(block)*fs.blockSize
}

// allocInode obtains a free inode index from the bitmap, builds a fresh
// inode record, and binds it bidirectionally to dentryHandle (§4.5).
func (fs *FileSystem) allocInode(dentryHandle DentryHandle, ftype FileType) (InoHandle, error) {
	idx, err := fs.inodeAlloc.Allocate()
	if err != nil {
		return NoIno, ErrNoSpace
	}
	ino := InoHandle(idx)

	inode := &Inode{
		Ino:        ino,
		Size:       0,
		Link:       1,
		FType:      ftype,
		Dentry:     dentryHandle,
		FirstChild: NoDentry,
	}
	for i := range inode.Blocks {
		inode.Blocks[i] = -1
	}
	if ftype == Regular {
		inode.Payload = make([]byte, ondisk.DataBlocksPerFile*fs.blockSize)
	}

	fs.inodes[ino] = inode

	d := fs.getDentry(dentryHandle)
	d.MarkResolved(ino)
	d.Ino = ino
	d.FType = ftype

	return ino, nil
}

// readInode loads the inode record for ino from disk, populates the arena,
// and for directories or regular files eagerly loads children or payload
// blocks respectively (§4.4 "Lazy loading").
func (fs *FileSystem) readInode(dentryHandle DentryHandle, ino InoHandle) error {
	offset := ondisk.InodeOffset(fs.inodeTableOffset, fs.blockSize, uint32(ino))
	raw, err := fs.dev.ReadAt(offset, ondisk.InodeRecordSize)
	if err != nil {
		return NewErrorWithMessage(syscall.EIO, err.Error())
	}
	rec, err := ondisk.DecodeInode(raw)
	if err != nil {
		return NewErrorWithMessage(syscall.EIO, err.Error())
	}

	inode := &Inode{
		Ino:        ino,
		Size:       rec.Size,
		Link:       rec.Link,
		FType:      rec.FType,
		Blocks:     rec.Blocks,
		DirCount:   rec.DirCount,
		Dentry:     dentryHandle,
		FirstChild: NoDentry,
	}
	fs.inodes[ino] = inode

	d := fs.getDentry(dentryHandle)
	d.MarkResolved(ino)
	d.Ino = ino
	d.FType = rec.FType

	switch rec.FType {
	case Directory:
		if rec.Blocks[0] >= 0 {
			base := fs.dataBlockOffset(rec.Blocks[0])
			for i := uint32(0); i < rec.DirCount; i++ {
				entOffset := base + int64(i)*ondisk.DentryRecordSize
				entRaw, err := fs.dev.ReadAt(entOffset, ondisk.DentryRecordSize)
				if err != nil {
					return NewErrorWithMessage(syscall.EIO, err.Error())
				}
				ent, err := ondisk.DecodeDentry(entRaw)
				if err != nil {
					return NewErrorWithMessage(syscall.EIO, err.Error())
				}
				child := &Dentry{
					Name:    ent.Name,
					Ino:     InoHandle(ent.Ino),
					FType:   ent.FType,
					Parent:  dentryHandle,
					Brother: inode.FirstChild,
				}
				childHandle := fs.newDentryHandle(child)
				inode.FirstChild = childHandle
			}
		}
	case Regular:
		inode.Payload = make([]byte, ondisk.DataBlocksPerFile*fs.blockSize)
		for i, bp := range rec.Blocks {
			if bp < 0 {
				continue
			}
			blockData, err := fs.dev.ReadAt(fs.dataBlockOffset(bp), int(fs.blockSize))
			if err != nil {
				return NewErrorWithMessage(syscall.EIO, err.Error())
			}
			copy(inode.Payload[int64(i)*fs.blockSize:], blockData)
		}
	}

	return nil
}

// syncInode recursively writes the resolved inode rooted at dentryHandle,
// and its entire resolved subtree, back to disk (§4.5). Unresolved dentries
// carry nothing newer than what's already on disk and are skipped.
func (fs *FileSystem) syncInode(dentryHandle DentryHandle) error {
	d := fs.getDentry(dentryHandle)
	if !d.IsResolved() {
		return nil
	}
	inode := fs.getInode(d.Inode)

	rec := ondisk.Inode{
		Ino:      uint32(inode.Ino),
		Size:     inode.Size,
		Link:     inode.Link,
		FType:    inode.FType,
		Blocks:   inode.Blocks,
		DirCount: inode.DirCount,
	}
	raw, err := rec.Encode()
	if err != nil {
		return NewErrorWithMessage(syscall.EIO, err.Error())
	}
	offset := ondisk.InodeOffset(fs.inodeTableOffset, fs.blockSize, uint32(inode.Ino))
	if err := fs.dev.WriteAt(offset, raw); err != nil {
		return NewErrorWithMessage(syscall.EIO, err.Error())
	}

	switch inode.FType {
	case Directory:
		if inode.Blocks[0] < 0 {
			return nil
		}
		base := fs.dataBlockOffset(inode.Blocks[0])
		i := int64(0)
		for child := inode.FirstChild; child != NoDentry; {
			cd := fs.getDentry(child)
			entRec := ondisk.Dentry{Name: cd.Name, Ino: uint32(cd.Ino), FType: cd.FType}
			entRaw, err := entRec.Encode()
			if err != nil {
				return NewErrorWithMessage(syscall.EIO, err.Error())
			}
			if err := fs.dev.WriteAt(base+i*ondisk.DentryRecordSize, entRaw); err != nil {
				return NewErrorWithMessage(syscall.EIO, err.Error())
			}
			if cd.IsResolved() {
				if err := fs.syncInode(child); err != nil {
					return err
				}
			}
			i++
			child = cd.Brother
		}
	case Regular:
		for i, bp := range inode.Blocks {
			if bp < 0 {
				continue
			}
			chunk := inode.Payload[int64(i)*fs.blockSize : int64(i+1)*fs.blockSize]
			if err := fs.dev.WriteAt(fs.dataBlockOffset(bp), chunk); err != nil {
				return NewErrorWithMessage(syscall.EIO, err.Error())
			}
		}
	}

	return nil
}

// linkChild head-inserts the already-arena'd childHandle into parent's child
// list and grows the parent directory's size, allocating data blocks as
// needed (§4.4 "Directory mutation"). On failure, parent and child are left
// unmodified.
func (fs *FileSystem) linkChild(parentHandle, childHandle DentryHandle) error {
	parentD := fs.getDentry(parentHandle)
	parentInode := fs.getInode(parentD.Inode)
	child := fs.getDentry(childHandle)

	sizeBefore := parentInode.Size
	sizeAfter := sizeBefore + ondisk.DentryRecordSize
	if sizeAfter > uint32(ondisk.DataBlocksPerFile)*uint32(fs.blockSize) {
		return ErrNoSpace
	}

	needsBlockAt := -1
	if parentInode.DirCount == 0 {
		needsBlockAt = 0
	} else {
		blockBefore := sizeBefore / uint32(fs.blockSize)
		blockAfter := sizeAfter / uint32(fs.blockSize)
		if blockAfter > blockBefore {
			needsBlockAt = int(blockAfter)
			if needsBlockAt >= ondisk.DataBlocksPerFile {
				return ErrNoSpace
			}
		}
	}

	if needsBlockAt >= 0 {
		blk, err := fs.dataAlloc.Allocate()
		if err != nil {
			return ErrNoSpace
		}
		parentInode.Blocks[needsBlockAt] = int32(blk)
	}

	child.Parent = parentHandle
	child.Brother = parentInode.FirstChild
	parentInode.FirstChild = childHandle
	parentInode.DirCount++
	parentInode.Size = sizeAfter

	return nil
}

// unlinkChild removes childHandle from parent's child list, shrinking the
// directory's recorded size. It does not free the data blocks the directory
// holds (a directory's block count never shrinks once grown, matching the
// original's allocation-only sizing story).
func (fs *FileSystem) unlinkChild(parentHandle, childHandle DentryHandle) {
	parentD := fs.getDentry(parentHandle)
	parentInode := fs.getInode(parentD.Inode)

	if parentInode.FirstChild == childHandle {
		parentInode.FirstChild = fs.getDentry(childHandle).Brother
	} else {
		for cur := parentInode.FirstChild; cur != NoDentry; {
			cd := fs.getDentry(cur)
			if cd.Brother == childHandle {
				cd.Brother = fs.getDentry(childHandle).Brother
				break
			}
			cur = cd.Brother
		}
	}

	parentInode.DirCount--
	if parentInode.Size >= ondisk.DentryRecordSize {
		parentInode.Size -= ondisk.DentryRecordSize
	}
	delete(fs.dentries, childHandle)
}

// tokenizePath splits a '/'-separated path into its non-empty components.
func tokenizePath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// baseName extracts the trailing path component, matching the original's
// newfs_get_fname.
func baseName(path string) string {
	parts := tokenizePath(path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// pathDepth counts path components, matching the original's newfs_calc_lvl.
func pathDepth(path string) int {
	return len(tokenizePath(path))
}

// lookupResult is what lookup returns: the dentry it landed on, whether that
// dentry matched the final component (a prefix match on the component's
// length, first hit in sibling order), and whether it's the root.
type lookupResult struct {
	Dentry DentryHandle
	IsFind bool
	IsRoot bool
	NotDir bool
}

// lookup resolves path against the object graph, demand-loading inodes on
// first traversal (§4.4 "Path resolution").
func (fs *FileSystem) lookup(path string) (lookupResult, error) {
	components := tokenizePath(path)
	if len(components) == 0 {
		return lookupResult{Dentry: fs.root, IsFind: true, IsRoot: true}, nil
	}

	current := fs.root
	for i, comp := range components {
		if err := fs.ensureResolved(current); err != nil {
			return lookupResult{}, err
		}
		d := fs.getDentry(current)
		inode := fs.getInode(d.Inode)

		if inode.FType == Regular {
			return lookupResult{Dentry: current, IsFind: false, IsRoot: current == fs.root, NotDir: true}, nil
		}

		match := NoDentry
		for child := inode.FirstChild; child != NoDentry; {
			cd := fs.getDentry(child)
			if len(cd.Name) >= len(comp) && cd.Name[:len(comp)] == comp {
				match = child
				break
			}
			child = cd.Brother
		}

		if match == NoDentry {
			return lookupResult{Dentry: current, IsFind: false, IsRoot: current == fs.root}, nil
		}

		current = match
		if i == len(components)-1 {
			if err := fs.ensureResolved(current); err != nil {
				return lookupResult{}, err
			}
			return lookupResult{Dentry: current, IsFind: true, IsRoot: current == fs.root}, nil
		}
	}

	// unreachable
	return lookupResult{Dentry: current, IsFind: false}, nil
}

// ensureResolved loads h's inode from disk if it hasn't been already.
func (fs *FileSystem) ensureResolved(h DentryHandle) error {
	d := fs.getDentry(h)
	if d.IsResolved() {
		return nil
	}
	return fs.readInode(h, d.Ino)
}
