package blockvol

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SimulateCrash picks the most-recently-modified file inode with at least
// one live direct block, records its direct-block indices as the
// corrupted set, and raises has_corruption. Nothing on disk changes: the
// inode and its bitmap entries remain live, exactly as a crash that struck
// between "last write" and "next read" would leave them.
func (v *Volume) SimulateCrash() error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.requireNotCorrupted(); err != nil {
		return err
	}

	var target Ino
	var targetModified uint32
	found := false
	var scratch Inode
	for k := Ino(0); k < v.sb.InodeCount; k++ {
		if err := v.table.ReadInode(k, &scratch); err != nil {
			return fmt.Errorf("simulating crash: %w", err)
		}
		if scratch.Kind != KindFile {
			continue
		}
		hasDirect := false
		for _, d := range scratch.Direct {
			if !IsSentinel(d, v.sb.DataBlocksStart, v.sb.TotalBlocks) {
				hasDirect = true
				break
			}
		}
		if !hasDirect {
			continue
		}
		if !found || scratch.ModifiedTime >= targetModified {
			target = k
			targetModified = scratch.ModifiedTime
			found = true
		}
	}
	if !found {
		return fmt.Errorf("simulating crash: no file with live blocks to corrupt")
	}

	var in Inode
	if err := v.table.ReadInode(target, &in); err != nil {
		return fmt.Errorf("simulating crash: %w", err)
	}
	var corrupted []Block
	for _, d := range in.Direct {
		if !IsSentinel(d, v.sb.DataBlocksStart, v.sb.TotalBlocks) {
			corrupted = append(corrupted, d)
		}
	}

	v.corruptedBlocks = corrupted
	v.hasCorruption = true
	v.lastIncidentID = mintIncidentID()
	return nil
}

// SimulateCrashDuringWrite creates path, performs only a fraction of the
// write that write_file would have done, and marks whatever got written as
// corrupted -- modeling a crash that struck mid-write rather than between
// writes.
func (v *Volume) SimulateCrashDuringWrite(path string, payload []byte, fraction float64) error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.requireNotCorrupted(); err != nil {
		return err
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	if err := v.CreateFile(path); err != nil {
		return fmt.Errorf("simulating crash during write %q: %w", path, err)
	}
	ino, err := ResolvePath(v.dev, &v.sb, &v.table, path)
	if err != nil {
		return fmt.Errorf("simulating crash during write %q: %w", path, err)
	}
	var in Inode
	if err := v.table.ReadInode(ino, &in); err != nil {
		return fmt.Errorf("simulating crash during write %q: %w", path, err)
	}

	blocksNeeded := Block(DivCiel(Byte(len(payload)), v.sb.BlockSize))
	partialBlocks := Block(fraction * float64(blocksNeeded))

	var corrupted []Block
	for j := Block(0); j < partialBlocks; j++ {
		blk, err := v.alloc.FastAlloc()
		if err != nil {
			return fmt.Errorf("simulating crash during write %q: %w", path, err)
		}
		buf := make([]byte, v.sb.BlockSize)
		start := int64(j) * int64(v.sb.BlockSize)
		end := Min(start+int64(v.sb.BlockSize), int64(len(payload)))
		copy(buf, payload[start:end])
		if err := v.dev.WriteBlock(blk, buf); err != nil {
			return fmt.Errorf("simulating crash during write %q: %w", path, err)
		}
		if err := AppendBlock(v.dev, &v.sb, &v.alloc, v.owners, ino, &in, blk); err != nil {
			return fmt.Errorf("simulating crash during write %q: %w", path, err)
		}
		corrupted = append(corrupted, blk)
	}

	written := Min(int64(partialBlocks)*int64(v.sb.BlockSize), int64(len(payload)))
	in.Size = Byte(written)
	in.ModifiedTime = timestamp(time.Now())
	if err := v.table.WriteInode(ino, &in); err != nil {
		return fmt.Errorf("simulating crash during write %q: %w", path, err)
	}
	if err := WriteBitmap(v.dev, v.sb.Layout(), v.bitmap); err != nil {
		return fmt.Errorf("simulating crash during write %q: %w", path, err)
	}

	v.corruptedBlocks = corrupted
	v.hasCorruption = true
	v.lastIncidentID = mintIncidentID()
	return nil
}

// RunRecovery frees every corrupted block, then for every inode whose
// direct references intersected that set: removes its root-level
// directory entry, frees its remaining blocks, and frees the inode
// itself. The current implementation, like the procedure it mirrors, only
// walks the root listing when looking for a dangling entry to remove.
func (v *Volume) RunRecovery() error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	if !v.hasCorruption {
		return nil
	}

	corruptedSet := make(map[Block]bool, len(v.corruptedBlocks))
	for _, blk := range v.corruptedBlocks {
		corruptedSet[blk] = true
		if err := v.alloc.FreeIdempotent(v.dev, blk); err != nil {
			return fmt.Errorf("running recovery: %w", err)
		}
	}

	var affected []Ino
	var scratch Inode
	for k := Ino(0); k < v.sb.InodeCount; k++ {
		if k == InoRoot {
			continue
		}
		if err := v.table.ReadInode(k, &scratch); err != nil {
			return fmt.Errorf("running recovery: %w", err)
		}
		if scratch.Kind != KindFile && scratch.Kind != KindDir {
			continue
		}
		for _, d := range scratch.Direct {
			if corruptedSet[d] {
				affected = append(affected, k)
				break
			}
		}
	}

	var root Inode
	if err := v.table.ReadInode(InoRoot, &root); err != nil {
		return fmt.Errorf("running recovery: %w", err)
	}
	rootEntries, err := ReadEntries(v.dev, &v.sb, &root)
	if err != nil {
		return fmt.Errorf("running recovery: %w", err)
	}
	nameOf := make(map[Ino]string, len(rootEntries))
	for _, e := range rootEntries {
		nameOf[e.InodeNumber] = e.Name
	}

	for _, k := range affected {
		if name, ok := nameOf[k]; ok {
			if err := RemoveEntry(v.dev, &v.sb, &v.alloc, v.owners, InoRoot, &root, name); err != nil {
				return fmt.Errorf("running recovery: removing dangling entry for inode %d: %w", k, err)
			}
		}
		if err := v.table.FreeInode(&v.sb, &v.alloc, v.owners, k); err != nil {
			return fmt.Errorf("running recovery: freeing inode %d: %w", k, err)
		}
	}
	if err := v.table.WriteInode(InoRoot, &root); err != nil {
		return fmt.Errorf("running recovery: %w", err)
	}

	if err := v.persist(); err != nil {
		return fmt.Errorf("running recovery: %w", err)
	}

	v.hasCorruption = false
	v.corruptedBlocks = nil
	return nil
}

func mintIncidentID() [16]byte {
	id, err := uuid.NewRandom()
	if err != nil {
		return [16]byte{}
	}
	return [16]byte(id)
}
