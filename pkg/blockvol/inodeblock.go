package blockvol

import "fmt"

// AppendBlock places blk into the first empty direct slot; if all direct
// slots are full, it allocates (on first overflow) an indirect block and
// appends blk to its packed reference array. The indirect block itself
// counts as a block owned by this inode, separate from blockCount's
// accounting of payload blocks.
func AppendBlock(dev Device, sb *Superblock, alloc *Allocator, owners *OwnershipMap, ino Ino, in *Inode, blk Block) error {
	for i := range in.Direct {
		if IsSentinel(in.Direct[i], sb.DataBlocksStart, sb.TotalBlocks) {
			in.Direct[i] = blk
			in.BlockCount++
			owners.Set(blk, ino)
			return nil
		}
	}

	if IsSentinel(in.Indirect, sb.DataBlocksStart, sb.TotalBlocks) {
		indirectBlk, err := alloc.FastAlloc()
		if err != nil {
			return fmt.Errorf("appending block %d: allocating indirect block: %w", blk, err)
		}
		in.Indirect = indirectBlk
		owners.Set(indirectBlk, ino)
		zero := make([]byte, sb.BlockSize)
		for i := range zero {
			zero[i] = 0xff // sentinel all-ones fill, distinguishing "never written" slots
		}
		if err := dev.WriteBlock(indirectBlk, zero); err != nil {
			return fmt.Errorf("appending block %d: initializing indirect block: %w", blk, err)
		}
	}

	refsPerBlock := sb.BlockSize / BlockRefSize
	buf := make([]byte, sb.BlockSize)
	if err := dev.ReadBlock(in.Indirect, buf); err != nil {
		return fmt.Errorf("appending block %d: reading indirect block: %w", blk, err)
	}
	for i := Byte(0); i < refsPerBlock; i++ {
		off := i * BlockRefSize
		ref := DecodeBlockRef(buf[off : off+4])
		if IsSentinel(ref, sb.DataBlocksStart, sb.TotalBlocks) {
			EncodeBlockRef(buf[off:off+4], blk)
			if err := dev.WriteBlock(in.Indirect, buf); err != nil {
				return fmt.Errorf("appending block %d: writing indirect block: %w", blk, err)
			}
			in.BlockCount++
			owners.Set(blk, ino)
			return nil
		}
	}
	return fmt.Errorf("appending block %d: %w", blk, ErrOutOfSpace)
}

// ListBlocks emits, in logical order, every valid direct slot then every
// valid entry of the indirect block, if any. Sentinel and out-of-range
// entries are holes from fresh inode zeroing, not errors, and are skipped
// silently.
func ListBlocks(dev Device, sb *Superblock, in *Inode) ([]Block, error) {
	var blocks []Block
	for _, d := range in.Direct {
		if !IsSentinel(d, sb.DataBlocksStart, sb.TotalBlocks) {
			blocks = append(blocks, d)
		}
	}
	if IsSentinel(in.Indirect, sb.DataBlocksStart, sb.TotalBlocks) {
		return blocks, nil
	}
	buf := make([]byte, sb.BlockSize)
	if err := dev.ReadBlock(in.Indirect, buf); err != nil {
		return nil, fmt.Errorf("listing blocks: reading indirect block: %w", err)
	}
	refsPerBlock := sb.BlockSize / BlockRefSize
	for i := Byte(0); i < refsPerBlock; i++ {
		off := i * BlockRefSize
		ref := DecodeBlockRef(buf[off : off+4])
		if !IsSentinel(ref, sb.DataBlocksStart, sb.TotalBlocks) {
			blocks = append(blocks, ref)
		}
	}
	return blocks, nil
}

// FreeInodeBlocks frees every block an inode references -- direct extents,
// indirect-block contents, and the indirect block itself -- clearing
// ownership for each, then resets the inode's pointers to sentinel.
func FreeInodeBlocks(dev Device, sb *Superblock, alloc *Allocator, owners *OwnershipMap, in *Inode) error {
	blocks, err := ListBlocks(dev, sb, in)
	if err != nil {
		return fmt.Errorf("freeing inode blocks: %w", err)
	}
	for _, blk := range blocks {
		if err := alloc.FreeIdempotent(dev, blk); err != nil {
			return fmt.Errorf("freeing inode blocks: %w", err)
		}
		owners.Clear(blk)
	}
	if !IsSentinel(in.Indirect, sb.DataBlocksStart, sb.TotalBlocks) {
		if err := alloc.FreeIdempotent(dev, in.Indirect); err != nil {
			return fmt.Errorf("freeing inode blocks: freeing indirect block: %w", err)
		}
		owners.Clear(in.Indirect)
	}
	for i := range in.Direct {
		in.Direct[i] = BlockEmpty
	}
	in.Indirect = BlockEmpty
	in.BlockCount = 0
	in.Size = 0
	return nil
}
