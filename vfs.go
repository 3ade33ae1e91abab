package newtfs

import "github.com/rkade/newtfs/ondisk"

// FileStat is the attribute set returned by Lookup and Getattr, the newtfs
// analog of the teacher repo's disko.FileStat.
type FileStat struct {
	Name     string
	Ino      uint32
	FType    FileType
	Size     uint32
	Link     uint32
	DirCount uint32
	ModTime  int64
}

// DirEntry is one entry returned by Readdir.
type DirEntry struct {
	Name  string
	Ino   uint32
	FType FileType
}

func statOf(d *Dentry, inode *Inode) FileStat {
	return FileStat{
		Name:     d.Name,
		Ino:      uint32(inode.Ino),
		FType:    inode.FType,
		Size:     inode.Size,
		Link:     inode.Link,
		DirCount: inode.DirCount,
		ModTime:  inode.ModTime,
	}
}

// resolve looks path up and requires a full (is_find) match, mapping a
// resolver miss or type mismatch onto the corresponding errno.
func (fs *FileSystem) resolve(path string) (DentryHandle, *Inode, error) {
	if !fs.mounted {
		return NoDentry, nil, ErrNotMounted
	}
	res, err := fs.lookup(path)
	if err != nil {
		return NoDentry, nil, err
	}
	if res.NotDir {
		return NoDentry, nil, ErrNotDirectory
	}
	if !res.IsFind {
		return NoDentry, nil, ErrNotFound
	}
	d := fs.getDentry(res.Dentry)
	return res.Dentry, fs.getInode(d.Inode), nil
}

// Lookup resolves path and returns its attributes.
func (fs *FileSystem) Lookup(path string) (FileStat, error) {
	h, inode, err := fs.resolve(path)
	if err != nil {
		return FileStat{}, err
	}
	return statOf(fs.getDentry(h), inode), nil
}

// Getattr is Lookup's sibling VFS entry point; same semantics.
func (fs *FileSystem) Getattr(path string) (FileStat, error) {
	return fs.Lookup(path)
}

// Readdir lists the immediate children of the directory at path, in
// sibling-chain order. Entries linked during this mount session come
// most-recently-inserted first; a directory loaded from disk has its stored
// entry order reversed, because readInode head-inserts each entry it reads.
func (fs *FileSystem) Readdir(path string) ([]DirEntry, error) {
	_, inode, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if inode.FType != Directory {
		return nil, ErrNotDirectory
	}

	var entries []DirEntry
	for child := inode.FirstChild; child != NoDentry; {
		cd := fs.getDentry(child)
		entries = append(entries, DirEntry{Name: cd.Name, Ino: uint32(cd.Ino), FType: cd.FType})
		child = cd.Brother
	}
	return entries, nil
}

// createObject is the shared implementation behind Mkdir and Create: resolve
// the parent, reject an existing name, link a fresh dentry, and allocate its
// inode. On any failure the graph is left exactly as it was.
func (fs *FileSystem) createObject(path string, ftype FileType) error {
	if !fs.mounted {
		return ErrNotMounted
	}
	res, err := fs.lookup(path)
	if err != nil {
		return err
	}
	if res.IsFind {
		return ErrExists
	}
	if res.NotDir {
		return ErrNotDirectory
	}

	name := baseName(path)
	if name == "" {
		return ErrExists
	}

	child := &Dentry{Name: name, Parent: res.Dentry, Brother: NoDentry, Ino: NoIno}
	childHandle := fs.newDentryHandle(child)

	if _, err := fs.allocInode(childHandle, ftype); err != nil {
		delete(fs.dentries, childHandle)
		return err
	}
	if err := fs.linkChild(res.Dentry, childHandle); err != nil {
		ino := fs.getDentry(childHandle).Inode
		_ = fs.inodeAlloc.Free(int(ino))
		delete(fs.inodes, ino)
		delete(fs.dentries, childHandle)
		return err
	}
	return nil
}

// Mkdir creates a directory at path.
func (fs *FileSystem) Mkdir(path string) error {
	return fs.createObject(path, Directory)
}

// Create creates a regular file at path.
func (fs *FileSystem) Create(path string) error {
	return fs.createObject(path, Regular)
}

// Open validates that path resolves to something, without otherwise
// changing state — there is no open-file-descriptor table in this design
// (every operation re-resolves its path), matching §5's single-threaded,
// stateless-between-calls model.
func (fs *FileSystem) Open(path string) error {
	_, _, err := fs.resolve(path)
	return err
}

// Read copies up to len(buf) bytes from path's payload starting at offset
// into buf, returning the number of bytes actually copied.
func (fs *FileSystem) Read(path string, buf []byte, offset int64) (int, error) {
	_, inode, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	if inode.FType != Regular {
		return 0, ErrIsDirectory
	}
	if offset < 0 {
		return 0, ErrSeek
	}
	if offset >= int64(inode.Size) {
		return 0, nil
	}
	end := offset + int64(len(buf))
	if end > int64(inode.Size) {
		end = int64(inode.Size)
	}
	return copy(buf, inode.Payload[offset:end]), nil
}

// Write copies data into path's payload starting at offset, allocating any
// data blocks the write range newly touches, and growing Size if the write
// extends past the current length. Writing past the fixed 6*blk_size budget
// fails with no space, and the file is left unmodified.
func (fs *FileSystem) Write(path string, data []byte, offset int64) (int, error) {
	_, inode, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	if inode.FType != Regular {
		return 0, ErrIsDirectory
	}
	if offset < 0 {
		return 0, ErrSeek
	}
	if len(data) == 0 {
		return 0, nil
	}

	end := offset + int64(len(data))
	budget := int64(ondisk.DataBlocksPerFile) * fs.blockSize
	if end > budget {
		return 0, ErrNoSpace
	}

	startBlock := offset / fs.blockSize
	endBlock := (end - 1) / fs.blockSize

	// Pre-check: every block the write touches must be allocatable before any
	// of them are committed, so a failure midway never leaves a partially
	// grown file.
	newlyNeeded := make([]int, 0, ondisk.DataBlocksPerFile)
	for b := startBlock; b <= endBlock; b++ {
		if inode.Blocks[b] < 0 {
			newlyNeeded = append(newlyNeeded, int(b))
		}
	}
	allocated := make([]int32, 0, len(newlyNeeded))
	for _, b := range newlyNeeded {
		blk, err := fs.dataAlloc.Allocate()
		if err != nil {
			for i, a := range allocated {
				_ = fs.dataAlloc.Free(int(a))
				inode.Blocks[newlyNeeded[i]] = -1
			}
			return 0, ErrNoSpace
		}
		inode.Blocks[b] = int32(blk)
		allocated = append(allocated, int32(blk))
	}

	copy(inode.Payload[offset:end], data)
	if uint32(end) > inode.Size {
		inode.Size = uint32(end)
	}
	return len(data), nil
}

// Unlink removes a regular file, freeing its inode and data blocks.
func (fs *FileSystem) Unlink(path string) error {
	h, inode, err := fs.resolve(path)
	if err != nil {
		return err
	}
	if inode.FType == Directory {
		return ErrIsDirectory
	}
	fs.freeInodeBlocks(inode)
	d := fs.getDentry(h)
	fs.unlinkChild(d.Parent, h)
	return nil
}

// Rmdir removes an empty directory, freeing its inode and data blocks.
func (fs *FileSystem) Rmdir(path string) error {
	h, inode, err := fs.resolve(path)
	if err != nil {
		return err
	}
	if inode.FType != Directory {
		return ErrNotDirectory
	}
	if h == fs.root {
		return ErrUnsupported
	}
	if inode.DirCount > 0 {
		// Not explicitly named in the error-kind taxonomy (§7); reusing
		// Unsupported rather than inventing a new errno.
		return ErrUnsupported
	}
	fs.freeInodeBlocks(inode)
	d := fs.getDentry(h)
	fs.unlinkChild(d.Parent, h)
	return nil
}

func (fs *FileSystem) freeInodeBlocks(inode *Inode) {
	for _, bp := range inode.Blocks {
		if bp >= 0 {
			_ = fs.dataAlloc.Free(int(bp))
		}
	}
	_ = fs.inodeAlloc.Free(int(inode.Ino))
	delete(fs.inodes, inode.Ino)
}

// Truncate changes a regular file's logical size. It never shrinks the set
// of allocated data blocks (matching this filesystem's Non-goal of sparse
// files); it only rejects growth past the fixed per-file budget.
func (fs *FileSystem) Truncate(path string, size int64) error {
	_, inode, err := fs.resolve(path)
	if err != nil {
		return err
	}
	if inode.FType != Regular {
		return ErrIsDirectory
	}
	budget := int64(ondisk.DataBlocksPerFile) * fs.blockSize
	if size < 0 || size > budget {
		return ErrNoSpace
	}
	inode.Size = uint32(size)
	return nil
}

// Access checks that path resolves to something. There is no permission
// model in this filesystem (see SPEC_FULL.md's SUPPLEMENTED FEATURES), so
// existence is the only thing checked.
func (fs *FileSystem) Access(path string) error {
	_, _, err := fs.resolve(path)
	return err
}

// Utimens updates the in-memory modification timestamp of path's inode. The
// fixed 50-byte on-disk inode record has no timestamp field (§3), so this
// value does not survive unmount/remount.
func (fs *FileSystem) Utimens(path string, modTime int64) error {
	_, inode, err := fs.resolve(path)
	if err != nil {
		return err
	}
	inode.ModTime = modTime
	return nil
}
