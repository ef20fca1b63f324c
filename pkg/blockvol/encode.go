package blockvol

import "encoding/binary"

// Byte offsets within the superblock's on-disk record. The record is far
// smaller than a block; the rest of block 0 is left zeroed.
const (
	sbOffMagic           = 0
	sbOffBlockSize       = 4
	sbOffTotalBlocks     = 8
	sbOffFreeBlocks      = 12
	sbOffInodeCount      = 16
	sbOffFreeInodes      = 20
	sbOffBitmapStart     = 24
	sbOffInodeTableStart = 28
	sbOffJournalStart    = 32
	sbOffJournalSize     = 36
	sbOffDataBlocksStart = 40
	sbOffCleanShutdown   = 44
	sbOffVolumeID        = 48
	sbOffVolumeLabelLen  = 64
	sbOffVolumeLabel     = 65
	sbRecordSize         = 65 + 32
)

func EncodeSuperblock(sb *Superblock, buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	binary.BigEndian.PutUint32(buf[sbOffMagic:], sb.Magic)
	binary.BigEndian.PutUint32(buf[sbOffBlockSize:], uint32(sb.BlockSize))
	binary.BigEndian.PutUint32(buf[sbOffTotalBlocks:], uint32(sb.TotalBlocks))
	binary.BigEndian.PutUint32(buf[sbOffFreeBlocks:], uint32(sb.FreeBlocks))
	binary.BigEndian.PutUint32(buf[sbOffInodeCount:], uint32(sb.InodeCount))
	binary.BigEndian.PutUint32(buf[sbOffFreeInodes:], uint32(sb.FreeInodes))
	binary.BigEndian.PutUint32(buf[sbOffBitmapStart:], uint32(sb.BitmapStart))
	binary.BigEndian.PutUint32(buf[sbOffInodeTableStart:], uint32(sb.InodeTableStart))
	binary.BigEndian.PutUint32(buf[sbOffJournalStart:], uint32(sb.JournalStart))
	binary.BigEndian.PutUint32(buf[sbOffJournalSize:], uint32(sb.JournalSize))
	binary.BigEndian.PutUint32(buf[sbOffDataBlocksStart:], uint32(sb.DataBlocksStart))
	if sb.CleanShutdown {
		buf[sbOffCleanShutdown] = 1
	}
	copy(buf[sbOffVolumeID:sbOffVolumeID+16], sb.VolumeID[:])
	label := sb.VolumeLabel
	if len(label) > 32 {
		label = label[:32]
	}
	buf[sbOffVolumeLabelLen] = byte(len(label))
	copy(buf[sbOffVolumeLabel:sbOffVolumeLabel+32], label)
}

// Byte offsets within a 128-byte inode record.
const (
	inOffKind       = 0
	inOffPerm       = 76 // uint16; stored after the indirect ref to avoid disturbing the original byte layout
	inOffLinkCount  = 2 // uint16
	inOffSize       = 4 // uint32
	inOffBlockCount = 8 // uint32
	inOffCreated    = 12
	inOffModified   = 16
	inOffAccessed   = 20
	inOffDirect     = 24             // 12 * 4 bytes
	inOffIndirect   = inOffDirect + 4*12 // 72
)

func EncodeInode(in *Inode, buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	buf[inOffKind] = byte(in.Kind)
	binary.BigEndian.PutUint16(buf[inOffPerm:], in.Permissions)
	binary.BigEndian.PutUint16(buf[inOffLinkCount:], in.LinkCount)
	binary.BigEndian.PutUint32(buf[inOffSize:], uint32(in.Size))
	binary.BigEndian.PutUint32(buf[inOffBlockCount:], uint32(in.BlockCount))
	binary.BigEndian.PutUint32(buf[inOffCreated:], in.CreatedTime)
	binary.BigEndian.PutUint32(buf[inOffModified:], in.ModifiedTime)
	binary.BigEndian.PutUint32(buf[inOffAccessed:], in.AccessedTime)
	for i, blk := range in.Direct {
		binary.BigEndian.PutUint32(buf[inOffDirect+i*4:], uint32(blk))
	}
	binary.BigEndian.PutUint32(buf[inOffIndirect:], uint32(in.Indirect))
}

func EncodeBlockRef(buf []byte, blk Block) {
	binary.BigEndian.PutUint32(buf, uint32(blk))
}

// Fixed-size directory entry layout: {ino uint32, nameLen uint8, fileType
// uint8, name bytes, padding to DirEntrySize}.
const (
	deOffIno      = 0
	deOffNameLen  = 4
	deOffFileType = 5
	deOffName     = 6
)

func EncodeDirEntry(e *DirEntry, buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	binary.BigEndian.PutUint32(buf[deOffIno:], uint32(e.InodeNumber))
	buf[deOffNameLen] = byte(len(e.Name))
	buf[deOffFileType] = byte(e.FileType)
	copy(buf[deOffName:], e.Name)
}
