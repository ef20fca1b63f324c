package blockvol

import (
	"encoding/binary"
	"fmt"
)

func DecodeSuperblock(sb *Superblock, buf []byte) error {
	magic := binary.BigEndian.Uint32(buf[sbOffMagic:])
	if magic != SuperblockMagic {
		return fmt.Errorf("decoding superblock: magic %#x: %w", magic, ErrBadMagic)
	}
	sb.Magic = magic
	sb.BlockSize = Byte(binary.BigEndian.Uint32(buf[sbOffBlockSize:]))
	sb.TotalBlocks = Block(binary.BigEndian.Uint32(buf[sbOffTotalBlocks:]))
	sb.FreeBlocks = Block(binary.BigEndian.Uint32(buf[sbOffFreeBlocks:]))
	sb.InodeCount = Ino(binary.BigEndian.Uint32(buf[sbOffInodeCount:]))
	sb.FreeInodes = Ino(binary.BigEndian.Uint32(buf[sbOffFreeInodes:]))
	sb.BitmapStart = Block(binary.BigEndian.Uint32(buf[sbOffBitmapStart:]))
	sb.InodeTableStart = Block(binary.BigEndian.Uint32(buf[sbOffInodeTableStart:]))
	sb.JournalStart = Block(binary.BigEndian.Uint32(buf[sbOffJournalStart:]))
	sb.JournalSize = Block(binary.BigEndian.Uint32(buf[sbOffJournalSize:]))
	sb.DataBlocksStart = Block(binary.BigEndian.Uint32(buf[sbOffDataBlocksStart:]))
	sb.CleanShutdown = buf[sbOffCleanShutdown] == 1
	copy(sb.VolumeID[:], buf[sbOffVolumeID:sbOffVolumeID+16])
	labelLen := int(buf[sbOffVolumeLabelLen])
	if labelLen > 32 {
		labelLen = 32
	}
	sb.VolumeLabel = string(buf[sbOffVolumeLabel : sbOffVolumeLabel+labelLen])
	return nil
}

func DecodeInode(in *Inode, buf []byte) {
	in.Kind = FileKind(buf[inOffKind])
	in.Permissions = binary.BigEndian.Uint16(buf[inOffPerm:])
	in.LinkCount = binary.BigEndian.Uint16(buf[inOffLinkCount:])
	in.Size = Byte(binary.BigEndian.Uint32(buf[inOffSize:]))
	in.BlockCount = Block(binary.BigEndian.Uint32(buf[inOffBlockCount:]))
	in.CreatedTime = binary.BigEndian.Uint32(buf[inOffCreated:])
	in.ModifiedTime = binary.BigEndian.Uint32(buf[inOffModified:])
	in.AccessedTime = binary.BigEndian.Uint32(buf[inOffAccessed:])
	for i := range in.Direct {
		in.Direct[i] = Block(binary.BigEndian.Uint32(buf[inOffDirect+i*4:]))
	}
	in.Indirect = Block(binary.BigEndian.Uint32(buf[inOffIndirect:]))
}

func DecodeBlockRef(buf []byte) Block {
	return Block(binary.BigEndian.Uint32(buf))
}

func DecodeDirEntry(e *DirEntry, buf []byte) {
	e.InodeNumber = Ino(binary.BigEndian.Uint32(buf[deOffIno:]))
	nameLen := int(buf[deOffNameLen])
	if nameLen > MaxNameLength {
		nameLen = MaxNameLength
	}
	e.FileType = FileKind(buf[deOffFileType])
	e.Name = string(buf[deOffName : deOffName+nameLen])
}
