package blockvol

import (
	"fmt"
	"strings"
)

// DirEntry is one fixed-size record in a directory inode's body. An entry
// is valid iff InodeNumber != 0 and len(Name) > 0 -- inode 0 is the root,
// which can never appear as a child entry, so InodeNumber == 0 doubles as
// the "empty slot" marker within a directory body.
type DirEntry struct {
	InodeNumber Ino
	FileType    FileKind
	Name        string
}

func (e *DirEntry) valid() bool { return e.InodeNumber != 0 && len(e.Name) > 0 }

func entriesPerBlock(blockSize Byte) int {
	return int(blockSize / DirEntrySize)
}

// ReadEntries reads every valid entry in dir's body, in on-disk order.
func ReadEntries(dev Device, sb *Superblock, dir *Inode) ([]DirEntry, error) {
	blocks, err := ListBlocks(dev, sb, dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory entries: %w", err)
	}
	perBlock := entriesPerBlock(sb.BlockSize)
	var entries []DirEntry
	buf := make([]byte, sb.BlockSize)
	for _, blk := range blocks {
		if err := dev.ReadBlock(blk, buf); err != nil {
			return nil, fmt.Errorf("reading directory entries: %w", err)
		}
		for i := 0; i < perBlock; i++ {
			off := Byte(i) * DirEntrySize
			var e DirEntry
			DecodeDirEntry(&e, buf[off:off+DirEntrySize])
			if e.valid() {
				entries = append(entries, e)
			}
		}
	}
	return entries, nil
}

// LookupEntry finds a child by name among a directory's entries.
func LookupEntry(entries []DirEntry, name string) (Ino, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e.InodeNumber, true
		}
	}
	return 0, false
}

// AddEntry rejects duplicate names, then appends the entry to the first
// empty slot in an existing body block, growing the body via AppendBlock
// when every existing block is full.
func AddEntry(dev Device, sb *Superblock, alloc *Allocator, owners *OwnershipMap, dirIno Ino, dir *Inode, entry DirEntry) error {
	blocks, err := ListBlocks(dev, sb, dir)
	if err != nil {
		return fmt.Errorf("adding directory entry %q: %w", entry.Name, err)
	}
	perBlock := entriesPerBlock(sb.BlockSize)
	buf := make([]byte, sb.BlockSize)

	var slotBlk Block
	var slotOff Byte
	haveSlot := false
	for _, blk := range blocks {
		if err := dev.ReadBlock(blk, buf); err != nil {
			return fmt.Errorf("adding directory entry %q: %w", entry.Name, err)
		}
		for i := 0; i < perBlock; i++ {
			off := Byte(i) * DirEntrySize
			var existing DirEntry
			DecodeDirEntry(&existing, buf[off:off+DirEntrySize])
			if existing.valid() {
				if existing.Name == entry.Name {
					return fmt.Errorf("adding directory entry %q: %w", entry.Name, ErrExists)
				}
				continue
			}
			if !haveSlot {
				slotBlk, slotOff, haveSlot = blk, off, true
			}
		}
	}
	if haveSlot {
		if err := dev.ReadBlock(slotBlk, buf); err != nil {
			return fmt.Errorf("adding directory entry %q: %w", entry.Name, err)
		}
		EncodeDirEntry(&entry, buf[slotOff:slotOff+DirEntrySize])
		if err := dev.WriteBlock(slotBlk, buf); err != nil {
			return fmt.Errorf("adding directory entry %q: %w", entry.Name, err)
		}
		dir.Size += DirEntrySize
		return nil
	}

	// every existing block is full (or there are none yet): grow the body.
	newBlk, err := alloc.FastAlloc()
	if err != nil {
		return fmt.Errorf("adding directory entry %q: %w", entry.Name, err)
	}
	for i := range buf {
		buf[i] = 0
	}
	EncodeDirEntry(&entry, buf[:DirEntrySize])
	if err := dev.WriteBlock(newBlk, buf); err != nil {
		return fmt.Errorf("adding directory entry %q: %w", entry.Name, err)
	}
	if err := AppendBlock(dev, sb, alloc, owners, dirIno, dir, newBlk); err != nil {
		return fmt.Errorf("adding directory entry %q: %w", entry.Name, err)
	}
	dir.Size += DirEntrySize
	return nil
}

// RemoveEntry finds the entry by name, blanks its slot, and -- when that
// leaves trailing body blocks holding no live entries -- frees them.
// The removed entry's whole slot is zeroed before its block is written
// back, so a block that stays in the body cannot show the deleted entry
// again; blocks that are freed are zero-filled by the allocator.
func RemoveEntry(dev Device, sb *Superblock, alloc *Allocator, owners *OwnershipMap, dirIno Ino, dir *Inode, name string) error {
	blocks, err := ListBlocks(dev, sb, dir)
	if err != nil {
		return fmt.Errorf("removing directory entry %q: %w", name, err)
	}
	perBlock := entriesPerBlock(sb.BlockSize)
	buf := make([]byte, sb.BlockSize)
	found := false

	type blockState struct {
		index     Block
		liveCount int
	}
	var states []blockState

	for _, blk := range blocks {
		if err := dev.ReadBlock(blk, buf); err != nil {
			return fmt.Errorf("removing directory entry %q: %w", name, err)
		}
		liveCount := 0
		modified := false
		for i := 0; i < perBlock; i++ {
			off := Byte(i) * DirEntrySize
			var e DirEntry
			DecodeDirEntry(&e, buf[off:off+DirEntrySize])
			if !e.valid() {
				continue
			}
			if e.Name == name {
				for j := off; j < off+DirEntrySize; j++ {
					buf[j] = 0
				}
				found = true
				modified = true
				continue
			}
			liveCount++
		}
		if modified {
			if err := dev.WriteBlock(blk, buf); err != nil {
				return fmt.Errorf("removing directory entry %q: %w", name, err)
			}
		}
		states = append(states, blockState{index: blk, liveCount: liveCount})
	}

	if !found {
		return fmt.Errorf("removing directory entry %q: %w", name, ErrNotFound)
	}
	dir.Size -= DirEntrySize

	// Shrink: free any now-dead trailing body blocks from the back, so the
	// body stays a prefix of blocks[0:k] with no holes.
	for i := len(states) - 1; i >= 0; i-- {
		if states[i].liveCount > 0 {
			break
		}
		if err := RemoveTrailingBlock(dev, sb, alloc, owners, dirIno, dir, states[i].index); err != nil {
			return fmt.Errorf("removing directory entry %q: %w", name, err)
		}
	}
	return nil
}

// RemoveTrailingBlock detaches a directory's last body block from its
// extent list (direct slot or indirect array) and frees it. It is only
// safe to call on a block that is genuinely the last remaining reference
// to be cleared, which RemoveEntry guarantees by walking from the back.
func RemoveTrailingBlock(dev Device, sb *Superblock, alloc *Allocator, owners *OwnershipMap, dirIno Ino, dir *Inode, blk Block) error {
	for i := range dir.Direct {
		if dir.Direct[i] == blk {
			dir.Direct[i] = BlockEmpty
			dir.BlockCount--
			owners.Clear(blk)
			return alloc.FreeIdempotent(dev, blk)
		}
	}
	if IsSentinel(dir.Indirect, sb.DataBlocksStart, sb.TotalBlocks) {
		return nil
	}
	refsPerBlock := sb.BlockSize / BlockRefSize
	buf := make([]byte, sb.BlockSize)
	if err := dev.ReadBlock(dir.Indirect, buf); err != nil {
		return err
	}
	changed := false
	for i := Byte(0); i < refsPerBlock; i++ {
		off := i * BlockRefSize
		if DecodeBlockRef(buf[off:off+4]) == blk {
			EncodeBlockRef(buf[off:off+4], BlockAllOnes)
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	if err := dev.WriteBlock(dir.Indirect, buf); err != nil {
		return err
	}
	dir.BlockCount--
	owners.Clear(blk)
	return alloc.FreeIdempotent(dev, blk)
}

// InitDirBody wires `.` and `..` into a freshly allocated directory inode.
// An entry that names inode 0 (the root) reads back as an empty slot, so
// the root's `.` and `..` and the `..` of a directory directly under the
// root are not listed, and a later AddEntry reuses their slot.
func InitDirBody(dev Device, sb *Superblock, alloc *Allocator, owners *OwnershipMap, selfIno Ino, self *Inode, parentIno Ino) error {
	if err := AddEntry(dev, sb, alloc, owners, selfIno, self, DirEntry{InodeNumber: selfIno, FileType: KindDir, Name: "."}); err != nil {
		return fmt.Errorf("initializing directory %d: %w", selfIno, err)
	}
	if err := AddEntry(dev, sb, alloc, owners, selfIno, self, DirEntry{InodeNumber: parentIno, FileType: KindDir, Name: ".."}); err != nil {
		return fmt.Errorf("initializing directory %d: %w", selfIno, err)
	}
	return nil
}

// SplitPath separates the final path component from its parent directory
// path. "/" splits to ("/", "").
func SplitPath(path string) (dir, name string) {
	path = strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "/", path
	}
	dir = path[:idx]
	if dir == "" {
		dir = "/"
	}
	return dir, path[idx+1:]
}

// ResolvePath interprets `/`-delimited components from the root inode when
// path is absolute (the only case this facade supports).
func ResolvePath(dev Device, sb *Superblock, table *InodeTable, path string) (Ino, error) {
	path = strings.Trim(path, "/")
	cur := InoRoot
	if path == "" {
		return cur, nil
	}
	for _, comp := range strings.Split(path, "/") {
		if comp == "" {
			continue
		}
		var dir Inode
		if err := table.ReadInode(cur, &dir); err != nil {
			return 0, fmt.Errorf("resolving path %q: %w", path, err)
		}
		if dir.Kind != KindDir {
			return 0, fmt.Errorf("resolving path %q: %w", path, ErrNotADirectory)
		}
		entries, err := ReadEntries(dev, sb, &dir)
		if err != nil {
			return 0, fmt.Errorf("resolving path %q: %w", path, err)
		}
		next, ok := LookupEntry(entries, comp)
		if !ok {
			return 0, fmt.Errorf("resolving path %q: %w", path, ErrNotFound)
		}
		cur = next
	}
	return cur, nil
}
