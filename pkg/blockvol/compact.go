package blockvol

import "fmt"

// ProgressFunc is invoked once per file processed during defragmentation,
// letting a driving caller report percentage complete without this package
// knowing anything about its host.
type ProgressFunc func(filesDone, filesTotal int)

type drainedFile struct {
	ino     Ino
	record  Inode
	payload []byte
}

// Defragment implements drain-and-reallocate: every live file's contents
// are read into memory, every block it owns is freed, and then files are
// reallocated in inode-index order with the lowest-first allocator so the
// data region ends up a dense prefix with one extent per file.
func (v *Volume) Defragment(progress ProgressFunc) error {
	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.requireNotCorrupted(); err != nil {
		return err
	}

	var files []drainedFile
	var in Inode
	for k := Ino(0); k < v.sb.InodeCount; k++ {
		if err := v.table.ReadInode(k, &in); err != nil {
			return fmt.Errorf("defragmenting: collecting inode %d: %w", k, err)
		}
		if in.Kind != KindFile || in.Size == 0 {
			continue
		}
		blocks, err := ListBlocks(v.dev, &v.sb, &in)
		if err != nil {
			return fmt.Errorf("defragmenting: collecting inode %d: %w", k, err)
		}
		payload := make([]byte, 0, int(v.sb.BlockSize)*len(blocks))
		buf := make([]byte, v.sb.BlockSize)
		for _, blk := range blocks {
			if err := v.dev.ReadBlock(blk, buf); err != nil {
				return fmt.Errorf("defragmenting: reading inode %d: %w", k, err)
			}
			payload = append(payload, buf...)
		}
		if Byte(len(payload)) > in.Size {
			payload = payload[:in.Size]
		}
		files = append(files, drainedFile{ino: k, record: in, payload: payload})
	}

	for i := range files {
		if err := FreeInodeBlocks(v.dev, &v.sb, &v.alloc, v.owners, &files[i].record); err != nil {
			return fmt.Errorf("defragmenting: draining inode %d: %w", files[i].ino, err)
		}
	}

	for i := range files {
		f := &files[i]
		blocksNeeded := Block(DivCiel(Byte(len(f.payload)), v.sb.BlockSize))
		for j := Block(0); j < blocksNeeded; j++ {
			blk, err := v.alloc.CompactAlloc()
			if err != nil {
				return fmt.Errorf("defragmenting: reallocating inode %d: %w", f.ino, err)
			}
			buf := make([]byte, v.sb.BlockSize)
			start := int64(j) * int64(v.sb.BlockSize)
			end := Min(start+int64(v.sb.BlockSize), int64(len(f.payload)))
			copy(buf, f.payload[start:end])
			if err := v.dev.WriteBlock(blk, buf); err != nil {
				return fmt.Errorf("defragmenting: reallocating inode %d: %w", f.ino, err)
			}
			if err := AppendBlock(v.dev, &v.sb, &v.alloc, v.owners, f.ino, &f.record, blk); err != nil {
				return fmt.Errorf("defragmenting: reallocating inode %d: %w", f.ino, err)
			}
		}
		f.record.Size = Byte(len(f.payload))
		if err := v.table.WriteInode(f.ino, &f.record); err != nil {
			return fmt.Errorf("defragmenting: persisting inode %d: %w", f.ino, err)
		}
		if progress != nil {
			progress(i+1, len(files))
		}
	}

	return v.persist()
}
