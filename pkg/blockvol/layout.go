package blockvol

// Layout pins down the five contiguous regions a volume is partitioned
// into: superblock, bitmap, inode table, journal, data. Everything else in
// the package addresses blocks relative to these offsets rather than
// recomputing them.
type Layout struct {
	BlockSize       Byte
	TotalBlocks     Block
	InodeCount      Ino
	BitmapStart     Block
	InodeTableStart Block
	JournalStart    Block
	DataBlocksStart Block
}

func inodesPerBlock(blockSize Byte) Ino {
	return Ino(blockSize / InodeRecordSize)
}

// DefaultInodeCount mirrors the reference configuration's inodeCount ≈
// totalBlocks / 8 (integer division, with a minimum of 1).
func DefaultInodeCount(totalBlocks Block) Ino {
	count := Ino(totalBlocks) / 8
	if count == 0 {
		count = 1
	}
	return count
}

// NewLayout computes region boundaries for a volume of the given size. The
// bitmap always occupies ceil(N / (8*B)) blocks, one bit per block in the
// whole volume (including the system region), and the inode table occupies
// ceil(inodeCount*inodeSize / B) blocks.
func NewLayout(blockSize Byte, totalBlocks Block, inodeCount Ino) Layout {
	bitmapBlocks := Block(DivCiel(Byte(totalBlocks), 8*blockSize))
	bitmapStart := Block(1)
	inodeTableBlocks := Block(DivCiel(Byte(inodeCount)*InodeRecordSize, blockSize))
	inodeTableStart := bitmapStart + bitmapBlocks
	journalStart := inodeTableStart + inodeTableBlocks
	dataBlocksStart := journalStart + JournalBlockCount

	return Layout{
		BlockSize:       blockSize,
		TotalBlocks:     totalBlocks,
		InodeCount:      inodeCount,
		BitmapStart:     bitmapStart,
		InodeTableStart: inodeTableStart,
		JournalStart:    journalStart,
		DataBlocksStart: dataBlocksStart,
	}
}

func (l *Layout) InodesPerBlock() Ino { return inodesPerBlock(l.BlockSize) }

// InodeBlock returns the block holding inode k's record and the byte offset
// of that record within the block.
func (l *Layout) InodeBlock(k Ino) (Block, Byte) {
	perBlock := l.InodesPerBlock()
	return l.InodeTableStart + Block(k/perBlock), Byte(k%perBlock) * InodeRecordSize
}

func (l *Layout) RefsPerBlock() Block {
	return Block(l.BlockSize / BlockRefSize)
}
