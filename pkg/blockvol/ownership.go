package blockvol

// OwnershipMap is the in-memory-only map from an allocated data block to
// the inode that owns it. It is never persisted; rebuild_ownership
// re-derives it from the inode table at any point, which is what makes it
// safe to treat as a cache rather than a source of truth.
type OwnershipMap struct {
	byBlock map[Block]Ino
}

func NewOwnershipMap() *OwnershipMap {
	return &OwnershipMap{byBlock: make(map[Block]Ino)}
}

func (o *OwnershipMap) Set(blk Block, owner Ino) {
	o.byBlock[blk] = owner
}

func (o *OwnershipMap) Clear(blk Block) {
	delete(o.byBlock, blk)
}

func (o *OwnershipMap) Owner(blk Block) (Ino, bool) {
	owner, ok := o.byBlock[blk]
	return owner, ok
}

func (o *OwnershipMap) Reset() {
	o.byBlock = make(map[Block]Ino)
}

// Rebuild walks every valid inode in the table and re-derives block
// ownership from scratch, skipping sentinel/out-of-range references the
// same way ListBlocks does. Safe to call after any bulk mutation
// (compaction, recovery).
func Rebuild(dev Device, sb *Superblock, table *InodeTable, owners *OwnershipMap) error {
	owners.Reset()
	var in Inode
	for k := Ino(0); k < sb.InodeCount; k++ {
		if err := table.ReadInode(k, &in); err != nil {
			return err
		}
		if in.Kind != KindFile && in.Kind != KindDir {
			continue
		}
		blocks, err := ListBlocks(dev, sb, &in)
		if err != nil {
			return err
		}
		for _, blk := range blocks {
			owners.Set(blk, k)
		}
		if !IsSentinel(in.Indirect, sb.DataBlocksStart, sb.TotalBlocks) {
			owners.Set(in.Indirect, k)
		}
	}
	return nil
}
