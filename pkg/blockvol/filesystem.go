package blockvol

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Volume is the filesystem facade (C8): the single value a driving caller
// mounts, operates on, and unmounts. It owns the device handle, the
// in-memory bitmap mirror, and the block-ownership map for the lifetime of
// the mount -- see the resource model notes on why this is a value with
// exclusive methods rather than a process-wide handle.
type Volume struct {
	dev     Device
	sb      Superblock
	bitmap  Bitmap
	table   InodeTable
	alloc   Allocator
	owners  *OwnershipMap
	mounted bool

	hasCorruption   bool
	corruptedBlocks []Block
	lastIncidentID  [16]byte

	stats PerformanceStats
}

// Stat is the facade-visible view of an inode record, returned by Stat().
type Stat struct {
	Ino          Ino
	Kind         FileKind
	Size         Byte
	BlockCount   Block
	LinkCount    uint16
	CreatedTime  uint32
	ModifiedTime uint32
	AccessedTime uint32
}

// CreateVolumeParams configures a fresh volume. VolumeLabel is optional and
// is slugified before being persisted.
type CreateVolumeParams struct {
	Path        string
	SizeBytes   int64
	BlockSize   Byte
	VolumeLabel string
}

// CreateVolume lays out and initializes a brand-new image: N zero-filled
// blocks, a fresh superblock, a bitmap with system bits zeroed and data
// bits all free, and a root directory at inode 0 whose body InitDirBody
// initializes (its `.` and `..` entries are not listed; see InitDirBody).
// The returned volume is mounted, and the image records an unclean
// shutdown until Unmount marks it clean.
func CreateVolume(params *CreateVolumeParams) (*Volume, error) {
	blockSize := params.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	totalBlocks := Block(params.SizeBytes / int64(blockSize))
	inodeCount := DefaultInodeCount(totalBlocks)
	layout := NewLayout(blockSize, totalBlocks, inodeCount)

	dev, err := CreateFileDevice(params.Path, blockSize, totalBlocks)
	if err != nil {
		return nil, fmt.Errorf("creating volume %q: %w", params.Path, err)
	}

	volumeID, err := newVolumeID()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("creating volume %q: %w", params.Path, err)
	}

	v := &Volume{
		dev:    dev,
		sb:     NewSuperblock(layout, volumeID, slugifyLabel(params.VolumeLabel)),
		bitmap: NewBitmap(totalBlocks),
		owners: NewOwnershipMap(),
	}
	v.table = InodeTable{Device: v.dev, Layout: layout}
	v.alloc = Allocator{Bitmap: v.bitmap, Superblock: &v.sb}

	// NewBitmap zero-fills, which reads as "every block used"; mark the
	// data region free, leaving the system region (already zero) used.
	for i := layout.DataBlocksStart; i < totalBlocks; i++ {
		v.bitmap.setFree(i)
	}

	if err := v.initRoot(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("creating volume %q: %w", params.Path, err)
	}

	v.sb.CleanShutdown = false
	if err := v.persist(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("creating volume %q: %w", params.Path, err)
	}

	v.mounted = true
	return v, nil
}

func (v *Volume) initRoot() error {
	var root Inode
	if err := v.table.ReadInode(InoRoot, &root); err != nil {
		return err
	}
	now := timestamp(time.Now())
	root.Kind = KindDir
	root.Permissions = 0755
	root.LinkCount = 2
	root.CreatedTime = now
	root.ModifiedTime = now
	root.AccessedTime = now
	if err := InitDirBody(v.dev, &v.sb, &v.alloc, v.owners, InoRoot, &root, InoRoot); err != nil {
		return err
	}
	return v.table.WriteInode(InoRoot, &root)
}

// Mount opens an existing image, validates its magic, and reads the
// in-memory bitmap mirror. If the volume was not cleanly shut down, mount
// still succeeds but the caller should surface a warning. The image is
// marked dirty on disk until Unmount marks it clean again.
func Mount(path string) (*Volume, bool, error) {
	// probe the superblock first with a conservative default block size so
	// we can learn the real block size before re-opening sized correctly.
	probe, err := OpenFileDevice(path, DefaultBlockSize, 1)
	if err != nil {
		return nil, false, fmt.Errorf("mounting %q: %w", path, err)
	}
	buf := make([]byte, DefaultBlockSize)
	if err := probe.ReadBlock(0, buf); err != nil {
		probe.Close()
		return nil, false, fmt.Errorf("mounting %q: %w", path, err)
	}
	var sb Superblock
	if err := DecodeSuperblock(&sb, buf); err != nil {
		probe.Close()
		return nil, false, fmt.Errorf("mounting %q: %w", path, err)
	}
	probe.Close()

	dev, err := OpenFileDevice(path, sb.BlockSize, sb.TotalBlocks)
	if err != nil {
		return nil, false, fmt.Errorf("mounting %q: %w", path, err)
	}

	v := &Volume{
		dev:    dev,
		sb:     sb,
		bitmap: NewBitmap(sb.TotalBlocks),
		owners: NewOwnershipMap(),
	}
	v.table = InodeTable{Device: v.dev, Layout: sb.Layout()}
	v.alloc = Allocator{Bitmap: v.bitmap, Superblock: &v.sb}

	if err := ReadBitmap(v.dev, sb.Layout(), v.bitmap); err != nil {
		dev.Close()
		return nil, false, fmt.Errorf("mounting %q: %w", path, err)
	}
	if err := Rebuild(v.dev, &v.sb, &v.table, v.owners); err != nil {
		dev.Close()
		return nil, false, fmt.Errorf("mounting %q: %w", path, err)
	}

	wasDirty := !sb.CleanShutdown
	v.sb.CleanShutdown = false
	if err := v.persist(); err != nil {
		dev.Close()
		return nil, false, fmt.Errorf("mounting %q: %w", path, err)
	}
	v.mounted = true
	return v, wasDirty, nil
}

func (v *Volume) persist() error {
	if err := WriteBitmap(v.dev, v.sb.Layout(), v.bitmap); err != nil {
		return fmt.Errorf("persisting volume: %w", err)
	}
	buf := make([]byte, v.sb.BlockSize)
	EncodeSuperblock(&v.sb, buf)
	if err := v.dev.WriteBlock(0, buf); err != nil {
		return fmt.Errorf("persisting volume: %w", err)
	}
	return nil
}

// Unmount marks the volume clean, flushes bitmap and superblock, and
// releases the device handle.
func (v *Volume) Unmount() error {
	if !v.mounted {
		return ErrNotMounted
	}
	v.sb.CleanShutdown = true
	if err := v.persist(); err != nil {
		return fmt.Errorf("unmounting: %w", err)
	}
	if err := v.dev.Close(); err != nil {
		return fmt.Errorf("unmounting: %w", err)
	}
	v.mounted = false
	return nil
}

func (v *Volume) IsMounted() bool { return v.mounted }

func (v *Volume) requireMounted() error {
	if !v.mounted {
		return ErrNotMounted
	}
	return nil
}

func (v *Volume) requireNotCorrupted() error {
	if v.hasCorruption {
		return ErrCorrupted
	}
	return nil
}

// CreateFile splits path into parent and name, rejects existing names, and
// allocates a new zero-size, zero-block file inode.
func (v *Volume) CreateFile(path string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.requireNotCorrupted(); err != nil {
		return err
	}
	parentPath, name := SplitPath(path)
	parentIno, err := ResolvePath(v.dev, &v.sb, &v.table, parentPath)
	if err != nil {
		return fmt.Errorf("creating file %q: %w", path, err)
	}
	var parent Inode
	if err := v.table.ReadInode(parentIno, &parent); err != nil {
		return fmt.Errorf("creating file %q: %w", path, err)
	}
	if parent.Kind != KindDir {
		return fmt.Errorf("creating file %q: %w", path, ErrNotADirectory)
	}
	entries, err := ReadEntries(v.dev, &v.sb, &parent)
	if err != nil {
		return fmt.Errorf("creating file %q: %w", path, err)
	}
	if _, exists := LookupEntry(entries, name); exists {
		return fmt.Errorf("creating file %q: %w", path, ErrExists)
	}

	newIno, err := v.table.AllocateInode(&v.sb, KindFile)
	if err != nil {
		return fmt.Errorf("creating file %q: %w", path, err)
	}
	if err := AddEntry(v.dev, &v.sb, &v.alloc, v.owners, parentIno, &parent, DirEntry{
		InodeNumber: newIno,
		FileType:    KindFile,
		Name:        name,
	}); err != nil {
		return fmt.Errorf("creating file %q: %w", path, err)
	}
	if err := v.table.WriteInode(parentIno, &parent); err != nil {
		return fmt.Errorf("creating file %q: %w", path, err)
	}
	return v.persist()
}

// WriteFile frees the file's current extents, allocates fresh ones sized
// for the new payload, and writes it block by block. The old extents are
// never restored on failure: a failure mid-allocation leaves the file at
// size 0 with no blocks, matching the "no rollback to a prior version"
// propagation policy -- only the blocks appended during this call are
// freed back.
func (v *Volume) WriteFile(path string, data []byte) error {
	start := time.Now()
	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.requireNotCorrupted(); err != nil {
		return err
	}
	ino, err := ResolvePath(v.dev, &v.sb, &v.table, path)
	if err != nil {
		return fmt.Errorf("writing file %q: %w", path, err)
	}
	var in Inode
	if err := v.table.ReadInode(ino, &in); err != nil {
		return fmt.Errorf("writing file %q: %w", path, err)
	}
	if in.Kind != KindFile {
		return fmt.Errorf("writing file %q: %w", path, ErrNotAFile)
	}

	if err := FreeInodeBlocks(v.dev, &v.sb, &v.alloc, v.owners, &in); err != nil {
		return fmt.Errorf("writing file %q: %w", path, err)
	}

	blocksNeeded := Block(DivCiel(Byte(len(data)), v.sb.BlockSize))
	for i := Block(0); i < blocksNeeded; i++ {
		blk, err := v.alloc.FastAlloc()
		if err != nil {
			if ferr := FreeInodeBlocks(v.dev, &v.sb, &v.alloc, v.owners, &in); ferr != nil {
				return fmt.Errorf("writing file %q: %w (and freeing partial extents failed: %v)", path, err, ferr)
			}
			if werr := v.table.WriteInode(ino, &in); werr != nil {
				return fmt.Errorf("writing file %q: %w (and persisting emptied inode failed: %v)", path, err, werr)
			}
			return fmt.Errorf("writing file %q: %w", path, err)
		}
		buf := make([]byte, v.sb.BlockSize)
		blkStart := int64(i) * int64(v.sb.BlockSize)
		blkEnd := Min(blkStart+int64(v.sb.BlockSize), int64(len(data)))
		copy(buf, data[blkStart:blkEnd])
		if err := v.dev.WriteBlock(blk, buf); err != nil {
			return fmt.Errorf("writing file %q: %w", path, err)
		}
		if err := AppendBlock(v.dev, &v.sb, &v.alloc, v.owners, ino, &in, blk); err != nil {
			if ferr := v.alloc.FreeIdempotent(v.dev, blk); ferr != nil {
				return fmt.Errorf("writing file %q: %w (and freeing block %d failed: %v)", path, err, blk, ferr)
			}
			if ferr := FreeInodeBlocks(v.dev, &v.sb, &v.alloc, v.owners, &in); ferr != nil {
				return fmt.Errorf("writing file %q: %w (and freeing partial extents failed: %v)", path, err, ferr)
			}
			if werr := v.table.WriteInode(ino, &in); werr != nil {
				return fmt.Errorf("writing file %q: %w (and persisting emptied inode failed: %v)", path, err, werr)
			}
			return fmt.Errorf("writing file %q: %w", path, err)
		}
	}

	in.Size = Byte(len(data))
	in.ModifiedTime = timestamp(time.Now())
	if err := v.table.WriteInode(ino, &in); err != nil {
		return fmt.Errorf("writing file %q: %w", path, err)
	}
	if err := v.persist(); err != nil {
		return fmt.Errorf("writing file %q: %w", path, err)
	}
	v.stats.recordWrite(time.Since(start), len(data))
	return nil
}

// ReadFile enumerates the file's blocks and returns their concatenation,
// truncated to the inode's recorded size.
func (v *Volume) ReadFile(path string) ([]byte, error) {
	start := time.Now()
	if err := v.requireMounted(); err != nil {
		return nil, err
	}
	ino, err := ResolvePath(v.dev, &v.sb, &v.table, path)
	if err != nil {
		return nil, fmt.Errorf("reading file %q: %w", path, err)
	}
	var in Inode
	if err := v.table.ReadInode(ino, &in); err != nil {
		return nil, fmt.Errorf("reading file %q: %w", path, err)
	}
	if in.Kind != KindFile {
		return nil, fmt.Errorf("reading file %q: %w", path, ErrNotAFile)
	}
	blocks, err := ListBlocks(v.dev, &v.sb, &in)
	if err != nil {
		return nil, fmt.Errorf("reading file %q: %w", path, err)
	}
	out := make([]byte, 0, int(v.sb.BlockSize)*len(blocks))
	buf := make([]byte, v.sb.BlockSize)
	for _, blk := range blocks {
		if err := v.dev.ReadBlock(blk, buf); err != nil {
			return nil, fmt.Errorf("reading file %q: %w", path, err)
		}
		out = append(out, buf...)
	}
	if Byte(len(out)) > in.Size {
		out = out[:in.Size]
	}
	v.stats.recordRead(time.Since(start), len(out))
	return out, nil
}

// DeleteFile frees the inode (which frees all its blocks) and removes the
// parent directory's entry for it.
func (v *Volume) DeleteFile(path string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.requireNotCorrupted(); err != nil {
		return err
	}
	parentPath, name := SplitPath(path)
	parentIno, err := ResolvePath(v.dev, &v.sb, &v.table, parentPath)
	if err != nil {
		return fmt.Errorf("deleting file %q: %w", path, err)
	}
	ino, err := ResolvePath(v.dev, &v.sb, &v.table, path)
	if err != nil {
		return fmt.Errorf("deleting file %q: %w", path, err)
	}
	var in Inode
	if err := v.table.ReadInode(ino, &in); err != nil {
		return fmt.Errorf("deleting file %q: %w", path, err)
	}
	if in.Kind != KindFile {
		return fmt.Errorf("deleting file %q: %w", path, ErrNotAFile)
	}
	if err := v.table.FreeInode(&v.sb, &v.alloc, v.owners, ino); err != nil {
		return fmt.Errorf("deleting file %q: %w", path, err)
	}
	var parent Inode
	if err := v.table.ReadInode(parentIno, &parent); err != nil {
		return fmt.Errorf("deleting file %q: %w", path, err)
	}
	if err := RemoveEntry(v.dev, &v.sb, &v.alloc, v.owners, parentIno, &parent, name); err != nil {
		return fmt.Errorf("deleting file %q: %w", path, err)
	}
	if err := v.table.WriteInode(parentIno, &parent); err != nil {
		return fmt.Errorf("deleting file %q: %w", path, err)
	}
	return v.persist()
}

func (v *Volume) FileExists(path string) bool {
	ino, err := ResolvePath(v.dev, &v.sb, &v.table, path)
	if err != nil {
		return false
	}
	var in Inode
	if err := v.table.ReadInode(ino, &in); err != nil {
		return false
	}
	return in.Kind == KindFile
}

func (v *Volume) Stat(path string) (Stat, error) {
	if err := v.requireMounted(); err != nil {
		return Stat{}, err
	}
	ino, err := ResolvePath(v.dev, &v.sb, &v.table, path)
	if err != nil {
		return Stat{}, fmt.Errorf("statting %q: %w", path, err)
	}
	var in Inode
	if err := v.table.ReadInode(ino, &in); err != nil {
		return Stat{}, fmt.Errorf("statting %q: %w", path, err)
	}
	return Stat{
		Ino:          ino,
		Kind:         in.Kind,
		Size:         in.Size,
		BlockCount:   in.BlockCount,
		LinkCount:    in.LinkCount,
		CreatedTime:  in.CreatedTime,
		ModifiedTime: in.ModifiedTime,
		AccessedTime: in.AccessedTime,
	}, nil
}

// CreateDir allocates a directory inode, wires `.`/`..`, links it into its
// parent, and bumps the parent's link count.
func (v *Volume) CreateDir(path string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.requireNotCorrupted(); err != nil {
		return err
	}
	parentPath, name := SplitPath(path)
	parentIno, err := ResolvePath(v.dev, &v.sb, &v.table, parentPath)
	if err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}
	var parent Inode
	if err := v.table.ReadInode(parentIno, &parent); err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}
	if parent.Kind != KindDir {
		return fmt.Errorf("creating directory %q: %w", path, ErrNotADirectory)
	}
	entries, err := ReadEntries(v.dev, &v.sb, &parent)
	if err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}
	if _, exists := LookupEntry(entries, name); exists {
		return fmt.Errorf("creating directory %q: %w", path, ErrExists)
	}

	newIno, err := v.table.AllocateInode(&v.sb, KindDir)
	if err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}
	var newDir Inode
	if err := v.table.ReadInode(newIno, &newDir); err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}
	if err := InitDirBody(v.dev, &v.sb, &v.alloc, v.owners, newIno, &newDir, parentIno); err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}
	if err := v.table.WriteInode(newIno, &newDir); err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}

	if err := AddEntry(v.dev, &v.sb, &v.alloc, v.owners, parentIno, &parent, DirEntry{
		InodeNumber: newIno,
		FileType:    KindDir,
		Name:        name,
	}); err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}
	parent.LinkCount++
	if err := v.table.WriteInode(parentIno, &parent); err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}
	return v.persist()
}

// DeleteDir removes an empty, non-root directory.
func (v *Volume) DeleteDir(path string) error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.requireNotCorrupted(); err != nil {
		return err
	}
	ino, err := ResolvePath(v.dev, &v.sb, &v.table, path)
	if err != nil {
		return fmt.Errorf("deleting directory %q: %w", path, err)
	}
	if ino == InoRoot {
		return fmt.Errorf("deleting directory %q: cannot delete the root", path)
	}
	var dir Inode
	if err := v.table.ReadInode(ino, &dir); err != nil {
		return fmt.Errorf("deleting directory %q: %w", path, err)
	}
	if dir.Kind != KindDir {
		return fmt.Errorf("deleting directory %q: %w", path, ErrNotADirectory)
	}
	entries, err := ReadEntries(v.dev, &v.sb, &dir)
	if err != nil {
		return fmt.Errorf("deleting directory %q: %w", path, err)
	}
	for _, e := range entries {
		if e.Name != "." && e.Name != ".." {
			return fmt.Errorf("deleting directory %q: %w", path, ErrDirNotEmpty)
		}
	}

	parentPath, name := SplitPath(path)
	parentIno, err := ResolvePath(v.dev, &v.sb, &v.table, parentPath)
	if err != nil {
		return fmt.Errorf("deleting directory %q: %w", path, err)
	}
	if err := v.table.FreeInode(&v.sb, &v.alloc, v.owners, ino); err != nil {
		return fmt.Errorf("deleting directory %q: %w", path, err)
	}
	var parent Inode
	if err := v.table.ReadInode(parentIno, &parent); err != nil {
		return fmt.Errorf("deleting directory %q: %w", path, err)
	}
	if err := RemoveEntry(v.dev, &v.sb, &v.alloc, v.owners, parentIno, &parent, name); err != nil {
		return fmt.Errorf("deleting directory %q: %w", path, err)
	}
	parent.LinkCount--
	if err := v.table.WriteInode(parentIno, &parent); err != nil {
		return fmt.Errorf("deleting directory %q: %w", path, err)
	}
	return v.persist()
}

func (v *Volume) ListDir(path string) ([]DirEntry, error) {
	if err := v.requireMounted(); err != nil {
		return nil, err
	}
	ino, err := ResolvePath(v.dev, &v.sb, &v.table, path)
	if err != nil {
		return nil, fmt.Errorf("listing directory %q: %w", path, err)
	}
	var dir Inode
	if err := v.table.ReadInode(ino, &dir); err != nil {
		return nil, fmt.Errorf("listing directory %q: %w", path, err)
	}
	if dir.Kind != KindDir {
		return nil, fmt.Errorf("listing directory %q: %w", path, ErrNotADirectory)
	}
	return ReadEntries(v.dev, &v.sb, &dir)
}

func (v *Volume) TotalBlocks() Block { return v.sb.TotalBlocks }
func (v *Volume) FreeBlocks() Block  { return v.sb.FreeBlocks }
func (v *Volume) UsedBlocks() Block  { return v.sb.TotalBlocks - v.sb.DataBlocksStart - v.sb.FreeBlocks }

// FragmentationScore computes, for every valid file inode, the per-file
// fragment count as the number of maximal consecutive runs in its sorted
// block list, then reports min(100, max(0, (avgFragments-1)*20)).
func (v *Volume) FragmentationScore() (float64, error) {
	var totalFragments, fileCount int
	var in Inode
	for k := Ino(0); k < v.sb.InodeCount; k++ {
		if err := v.table.ReadInode(k, &in); err != nil {
			return 0, fmt.Errorf("computing fragmentation score: %w", err)
		}
		if in.Kind != KindFile {
			continue
		}
		blocks, err := ListBlocks(v.dev, &v.sb, &in)
		if err != nil {
			return 0, fmt.Errorf("computing fragmentation score: %w", err)
		}
		totalFragments += countFragments(blocks)
		fileCount++
	}
	if fileCount == 0 {
		return 0, nil
	}
	avg := float64(totalFragments) / float64(fileCount)
	score := (avg - 1) * 20
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}

func countFragments(blocks []Block) int {
	if len(blocks) == 0 {
		return 0
	}
	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	fragments := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			fragments++
		}
	}
	return fragments
}

func (v *Volume) BlockOwner(blk Block) (Ino, bool) { return v.owners.Owner(blk) }

// FilenameFromInode walks the directory tree from root looking for a child
// entry pointing at ino, returning its full path.
func (v *Volume) FilenameFromInode(ino Ino) (string, bool) {
	if ino == InoRoot {
		return "/", true
	}
	path, ok := v.findPath(InoRoot, "/", ino)
	return path, ok
}

func (v *Volume) findPath(dirIno Ino, dirPath string, target Ino) (string, bool) {
	var dir Inode
	if err := v.table.ReadInode(dirIno, &dir); err != nil || dir.Kind != KindDir {
		return "", false
	}
	entries, err := ReadEntries(v.dev, &v.sb, &dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		childPath := dirPath + e.Name
		if e.InodeNumber == target {
			return childPath, true
		}
		if e.FileType == KindDir {
			if p, ok := v.findPath(e.InodeNumber, childPath+"/", target); ok {
				return p, true
			}
		}
	}
	return "", false
}

func (v *Volume) RebuildOwnership() error {
	return Rebuild(v.dev, &v.sb, &v.table, v.owners)
}

func (v *Volume) Stats() PerformanceStats { return v.stats }
func (v *Volume) ResetStats()             { v.stats.reset() }

func (v *Volume) HasCorruption() bool      { return v.hasCorruption }
func (v *Volume) CorruptedBlocks() []Block { return append([]Block(nil), v.corruptedBlocks...) }

func newVolumeID() ([16]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return [16]byte{}, fmt.Errorf("minting volume id: %w", err)
	}
	return [16]byte(id), nil
}

// slugifyLabel normalizes a caller-supplied volume label into the
// lowercase, hyphenated form persisted on disk. An empty label stays empty.
func slugifyLabel(label string) string {
	if label == "" {
		return ""
	}
	return slug.Make(label)
}
