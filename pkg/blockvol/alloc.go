package blockvol

import (
	"errors"
	"fmt"
)

// Allocator implements fast_alloc and compact_alloc over a Bitmap. Both
// scan from dataBlocksStart for the lowest free bit; they are kept as
// distinct methods (rather than collapsed into one) because the compactor
// depends on callers never special-casing the scan start, and giving each
// policy its own name documents that promise at the call site.
type Allocator struct {
	Bitmap     Bitmap
	Superblock *Superblock
}

// FastAlloc returns the first free data block, scanning from
// dataBlocksStart.
func (a *Allocator) FastAlloc() (Block, error) {
	return a.allocFrom(a.Superblock.DataBlocksStart)
}

// CompactAlloc returns the lowest-indexed free data block. In this
// single-threaded model it is identical to FastAlloc; compaction relies on
// that identity to produce a contiguous prefix once the data region has
// been fully drained.
func (a *Allocator) CompactAlloc() (Block, error) {
	return a.allocFrom(a.Superblock.DataBlocksStart)
}

func (a *Allocator) allocFrom(from Block) (Block, error) {
	blk, ok := a.Bitmap.FirstFree(from, a.Superblock.TotalBlocks)
	if !ok {
		return 0, fmt.Errorf("allocating block: %w", ErrOutOfSpace)
	}
	a.Bitmap.setUsed(blk)
	a.Superblock.FreeBlocks--
	return blk, nil
}

// Free releases a data block back to the pool, zero-filling its on-disk
// contents. System-region blocks can never be freed. Freeing an already
// free block is reported, not fatal -- callers that free defensively (e.g.
// recovery re-freeing a block already freed in an earlier step) should
// treat ErrAlreadyFree as a no-op.
func (a *Allocator) Free(dev Device, blk Block) error {
	if blk < a.Superblock.DataBlocksStart || blk >= a.Superblock.TotalBlocks {
		return fmt.Errorf("freeing block %d: %w", blk, ErrSystemBlock)
	}
	if a.Bitmap.IsFree(blk) {
		return fmt.Errorf("freeing block %d: %w", blk, ErrAlreadyFree)
	}
	a.Bitmap.setFree(blk)
	a.Superblock.FreeBlocks++
	zero := make([]byte, a.Superblock.BlockSize)
	if err := dev.WriteBlock(blk, zero); err != nil {
		return fmt.Errorf("freeing block %d: zero-filling: %w", blk, err)
	}
	return nil
}

// FreeIdempotent is Free, but tolerates ErrAlreadyFree -- the shape
// recovery needs when a block may have already been freed in an earlier
// step of the same procedure.
func (a *Allocator) FreeIdempotent(dev Device, blk Block) error {
	if err := a.Free(dev, blk); err != nil && !errors.Is(err, ErrAlreadyFree) {
		return err
	}
	return nil
}
