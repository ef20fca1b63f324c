package blockvol

import (
	"errors"
	"testing"
)

func newTestAllocator(totalBlocks Block) (*Allocator, Device, *Superblock) {
	layout := NewLayout(DefaultBlockSize, totalBlocks, DefaultInodeCount(totalBlocks))
	bm := NewBitmap(totalBlocks)
	for i := layout.DataBlocksStart; i < totalBlocks; i++ {
		bm.setFree(i)
	}
	sb := NewSuperblock(layout, [16]byte{}, "")
	dev := NewMemDevice(DefaultBlockSize, totalBlocks)
	return &Allocator{Bitmap: bm, Superblock: &sb}, dev, &sb
}

func TestAllocatorFastAllocLowestFirst(t *testing.T) {
	alloc, _, sb := newTestAllocator(256)
	first, err := alloc.FastAlloc()
	if err != nil {
		t.Fatalf("FastAlloc(): unexpected err: %v", err)
	}
	if first != sb.DataBlocksStart {
		t.Fatalf("FastAlloc(): wanted `%d`; found `%d`", sb.DataBlocksStart, first)
	}
	second, err := alloc.FastAlloc()
	if err != nil {
		t.Fatalf("FastAlloc(): unexpected err: %v", err)
	}
	if second != sb.DataBlocksStart+1 {
		t.Fatalf("FastAlloc(): wanted `%d`; found `%d`", sb.DataBlocksStart+1, second)
	}
}

func TestAllocatorOutOfSpace(t *testing.T) {
	alloc, _, sb := newTestAllocator(sb2TotalBlocks)
	for i := sb.DataBlocksStart; i < sb2TotalBlocks; i++ {
		if _, err := alloc.FastAlloc(); err != nil {
			t.Fatalf("FastAlloc(): unexpected err: %v", err)
		}
	}
	if _, err := alloc.FastAlloc(); !errors.Is(err, ErrOutOfSpace) {
		t.Fatalf("FastAlloc(): wanted `ErrOutOfSpace`; found `%v`", err)
	}
}

const sb2TotalBlocks = Block(200)

func TestAllocatorFreeAndFreeIdempotent(t *testing.T) {
	alloc, dev, sb := newTestAllocator(256)
	blk, err := alloc.FastAlloc()
	if err != nil {
		t.Fatalf("FastAlloc(): unexpected err: %v", err)
	}
	before := sb.FreeBlocks
	if err := alloc.Free(dev, blk); err != nil {
		t.Fatalf("Free(): unexpected err: %v", err)
	}
	if sb.FreeBlocks != before+1 {
		t.Fatalf("Free(): freeBlocks: wanted `%d`; found `%d`", before+1, sb.FreeBlocks)
	}
	if !alloc.Bitmap.IsFree(blk) {
		t.Fatalf("Free(): block %d: wanted free; found used", blk)
	}

	if err := alloc.Free(dev, blk); !errors.Is(err, ErrAlreadyFree) {
		t.Fatalf("Free() on already-free block: wanted `ErrAlreadyFree`; found `%v`", err)
	}
	if err := alloc.FreeIdempotent(dev, blk); err != nil {
		t.Fatalf("FreeIdempotent() on already-free block: unexpected err: %v", err)
	}
}

func TestAllocatorFreeRefusesSystemBlock(t *testing.T) {
	alloc, dev, _ := newTestAllocator(256)
	if err := alloc.Free(dev, 0); !errors.Is(err, ErrSystemBlock) {
		t.Fatalf("Free(0): wanted `ErrSystemBlock`; found `%v`", err)
	}
}
