package blockvol

import (
	"fmt"
	"time"
)

// Inode is the fixed-size per-file metadata record. It does not carry its
// own index; callers track which Ino a given record was read from.
type Inode struct {
	Kind         FileKind
	Permissions  uint16
	LinkCount    uint16
	Size         Byte
	BlockCount   Block
	CreatedTime  uint32
	ModifiedTime uint32
	AccessedTime uint32
	Direct       [DirectBlockCount]Block
	Indirect     Block
}

// InodeTable reads and writes fixed-size inode records by index against the
// inode-table region of a Device.
type InodeTable struct {
	Device Device
	Layout Layout
}

func (t *InodeTable) ReadInode(k Ino, in *Inode) error {
	blk, off := t.Layout.InodeBlock(k)
	buf := make([]byte, t.Layout.BlockSize)
	if err := t.Device.ReadBlock(blk, buf); err != nil {
		return fmt.Errorf("reading inode %d: %w", k, err)
	}
	DecodeInode(in, buf[off:off+InodeRecordSize])
	return nil
}

func (t *InodeTable) WriteInode(k Ino, in *Inode) error {
	blk, off := t.Layout.InodeBlock(k)
	buf := make([]byte, t.Layout.BlockSize)
	if err := t.Device.ReadBlock(blk, buf); err != nil {
		return fmt.Errorf("writing inode %d: reading containing block: %w", k, err)
	}
	EncodeInode(in, buf[off:off+InodeRecordSize])
	if err := t.Device.WriteBlock(blk, buf); err != nil {
		return fmt.Errorf("writing inode %d: %w", k, err)
	}
	return nil
}

// AllocateInode linearly scans the table for the first free slot (kind ==
// KindFree), writes an initialized record, and returns its index.
func (t *InodeTable) AllocateInode(sb *Superblock, kind FileKind) (Ino, error) {
	var scratch Inode
	for k := Ino(0); k < sb.InodeCount; k++ {
		if err := t.ReadInode(k, &scratch); err != nil {
			return 0, err
		}
		if scratch.Kind != KindFree {
			continue
		}
		now := timestamp(time.Now())
		linkCount := uint16(1)
		if kind == KindDir {
			linkCount = 2
		}
		fresh := Inode{
			Kind:         kind,
			Permissions:  0644,
			LinkCount:    linkCount,
			CreatedTime:  now,
			ModifiedTime: now,
			AccessedTime: now,
		}
		if err := t.WriteInode(k, &fresh); err != nil {
			return 0, err
		}
		sb.FreeInodes--
		return k, nil
	}
	return 0, fmt.Errorf("allocating inode: %w", ErrOutOfInodes)
}

// FreeInode frees every block referenced by inode k (direct + indirect
// contents + the indirect block itself) via alloc, then zeros the record.
func (t *InodeTable) FreeInode(sb *Superblock, alloc *Allocator, owners *OwnershipMap, k Ino) error {
	var in Inode
	if err := t.ReadInode(k, &in); err != nil {
		return fmt.Errorf("freeing inode %d: %w", k, err)
	}
	if err := FreeInodeBlocks(t.Device, sb, alloc, owners, &in); err != nil {
		return fmt.Errorf("freeing inode %d: %w", k, err)
	}
	var zero Inode
	if err := t.WriteInode(k, &zero); err != nil {
		return fmt.Errorf("freeing inode %d: %w", k, err)
	}
	sb.FreeInodes++
	return nil
}
