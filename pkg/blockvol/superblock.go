package blockvol

import "time"

// Superblock is the volume-level metadata record living at block 0. Region
// start offsets are redundant with Layout but are persisted anyway so a
// tool can open an image without recomputing them from scratch.
type Superblock struct {
	Magic           uint32
	BlockSize       Byte
	TotalBlocks     Block
	FreeBlocks      Block
	InodeCount      Ino
	FreeInodes      Ino
	BitmapStart     Block
	InodeTableStart Block
	JournalStart    Block
	JournalSize     Block
	DataBlocksStart Block
	CleanShutdown   bool
	VolumeID        [16]byte
	VolumeLabel     string
}

// NewSuperblock builds the in-memory superblock for a freshly created
// volume: every data block free, system region excluded from the count.
func NewSuperblock(layout Layout, volumeID [16]byte, volumeLabel string) Superblock {
	return Superblock{
		Magic:           SuperblockMagic,
		BlockSize:       layout.BlockSize,
		TotalBlocks:     layout.TotalBlocks,
		FreeBlocks:      layout.TotalBlocks - layout.DataBlocksStart,
		InodeCount:      layout.InodeCount,
		FreeInodes:      layout.InodeCount - 1, // inode 0 is the root, allocated immediately
		BitmapStart:     layout.BitmapStart,
		InodeTableStart: layout.InodeTableStart,
		JournalStart:    layout.JournalStart,
		JournalSize:     JournalBlockCount,
		DataBlocksStart: layout.DataBlocksStart,
		CleanShutdown:   true,
		VolumeID:        volumeID,
		VolumeLabel:     volumeLabel,
	}
}

func (sb *Superblock) Layout() Layout {
	return Layout{
		BlockSize:       sb.BlockSize,
		TotalBlocks:     sb.TotalBlocks,
		InodeCount:      sb.InodeCount,
		BitmapStart:     sb.BitmapStart,
		InodeTableStart: sb.InodeTableStart,
		JournalStart:    sb.JournalStart,
		DataBlocksStart: sb.DataBlocksStart,
	}
}

func timestamp(t time.Time) uint32 { return uint32(t.Unix()) }
