package blockvol

import (
	"errors"
	"testing"
)

func TestSplitPath(t *testing.T) {
	cases := []struct {
		path       string
		wantDir    string
		wantName   string
	}{
		{"/", "/", ""},
		{"/foo", "/", "foo"},
		{"/foo/bar", "/foo", "bar"},
		{"/foo/bar/", "/foo", "bar"},
	}
	for _, c := range cases {
		dir, name := SplitPath(c.path)
		if dir != c.wantDir || name != c.wantName {
			t.Fatalf("SplitPath(%q): wanted `(%q, %q)`; found `(%q, %q)`", c.path, c.wantDir, c.wantName, dir, name)
		}
	}
}

func TestAddEntryLookupAndDuplicate(t *testing.T) {
	dev, sb, _, alloc, owners := newTestVolume(4096)
	var dir Inode
	selfIno := Ino(5)

	if err := AddEntry(dev, sb, alloc, owners, selfIno, &dir, DirEntry{InodeNumber: 1, FileType: KindFile, Name: "a.txt"}); err != nil {
		t.Fatalf("AddEntry(): unexpected err: %v", err)
	}
	if err := AddEntry(dev, sb, alloc, owners, selfIno, &dir, DirEntry{InodeNumber: 2, FileType: KindFile, Name: "b.txt"}); err != nil {
		t.Fatalf("AddEntry(): unexpected err: %v", err)
	}

	entries, err := ReadEntries(dev, sb, &dir)
	if err != nil {
		t.Fatalf("ReadEntries(): unexpected err: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ReadEntries(): wanted `2` entries; found `%d`", len(entries))
	}
	if ino, ok := LookupEntry(entries, "a.txt"); !ok || ino != 1 {
		t.Fatalf("LookupEntry(a.txt): wanted `(1, true)`; found `(%d, %v)`", ino, ok)
	}

	if err := AddEntry(dev, sb, alloc, owners, selfIno, &dir, DirEntry{InodeNumber: 3, FileType: KindFile, Name: "a.txt"}); !errors.Is(err, ErrExists) {
		t.Fatalf("AddEntry(duplicate): wanted `ErrExists`; found `%v`", err)
	}
}

func TestAddEntryGrowsBodyAcrossBlocks(t *testing.T) {
	dev, sb, table, alloc, owners := newTestVolume(4096)
	_ = table
	var dir Inode
	selfIno := Ino(5)

	perBlock := entriesPerBlock(sb.BlockSize)
	for i := 0; i < perBlock+1; i++ {
		name := string(rune('a' + (i % 26)))
		if i >= 26 {
			name += string(rune('0' + i/26))
		}
		if err := AddEntry(dev, sb, alloc, owners, selfIno, &dir, DirEntry{InodeNumber: Ino(i + 1), FileType: KindFile, Name: name}); err != nil {
			t.Fatalf("AddEntry(): unexpected err at %d: %v", i, err)
		}
	}

	blocks, err := ListBlocks(dev, sb, &dir)
	if err != nil {
		t.Fatalf("ListBlocks(): unexpected err: %v", err)
	}
	if len(blocks) < 2 {
		t.Fatalf("AddEntry(): wanted the body to span >= 2 blocks once full; found `%d`", len(blocks))
	}
}

func TestRemoveEntryShrinksTrailingBlocks(t *testing.T) {
	dev, sb, _, alloc, owners := newTestVolume(4096)
	var dir Inode
	selfIno := Ino(5)

	if err := AddEntry(dev, sb, alloc, owners, selfIno, &dir, DirEntry{InodeNumber: 1, FileType: KindFile, Name: "only.txt"}); err != nil {
		t.Fatalf("AddEntry(): unexpected err: %v", err)
	}
	blocksBefore, err := ListBlocks(dev, sb, &dir)
	if err != nil {
		t.Fatalf("ListBlocks(): unexpected err: %v", err)
	}
	if len(blocksBefore) != 1 {
		t.Fatalf("setup: wanted `1` body block; found `%d`", len(blocksBefore))
	}

	if err := RemoveEntry(dev, sb, alloc, owners, selfIno, &dir, "only.txt"); err != nil {
		t.Fatalf("RemoveEntry(): unexpected err: %v", err)
	}

	blocksAfter, err := ListBlocks(dev, sb, &dir)
	if err != nil {
		t.Fatalf("ListBlocks(): unexpected err: %v", err)
	}
	if len(blocksAfter) != 0 {
		t.Fatalf("RemoveEntry(): wanted the now-empty body block to be freed; found `%d` remaining", len(blocksAfter))
	}
	if !alloc.Bitmap.IsFree(blocksBefore[0]) {
		t.Fatalf("RemoveEntry(): block %d: wanted free; found used", blocksBefore[0])
	}
}

func TestRemoveEntryNotFound(t *testing.T) {
	dev, sb, _, alloc, owners := newTestVolume(4096)
	var dir Inode
	if err := RemoveEntry(dev, sb, alloc, owners, Ino(5), &dir, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("RemoveEntry(missing): wanted `ErrNotFound`; found `%v`", err)
	}
}

func TestResolvePath(t *testing.T) {
	dev, sb, table, alloc, owners := newTestVolume(4096)
	var root Inode
	root.Kind = KindDir
	if err := InitDirBody(dev, sb, alloc, owners, InoRoot, &root, InoRoot); err != nil {
		t.Fatalf("InitDirBody(): unexpected err: %v", err)
	}
	if err := table.WriteInode(InoRoot, &root); err != nil {
		t.Fatalf("WriteInode(): unexpected err: %v", err)
	}
	childIno, err := table.AllocateInode(sb, KindDir)
	if err != nil {
		t.Fatalf("AllocateInode(): unexpected err: %v", err)
	}
	var child Inode
	if err := table.ReadInode(childIno, &child); err != nil {
		t.Fatalf("ReadInode(): unexpected err: %v", err)
	}
	if err := InitDirBody(dev, sb, alloc, owners, childIno, &child, InoRoot); err != nil {
		t.Fatalf("InitDirBody(): unexpected err: %v", err)
	}
	if err := table.WriteInode(childIno, &child); err != nil {
		t.Fatalf("WriteInode(): unexpected err: %v", err)
	}
	if err := AddEntry(dev, sb, alloc, owners, InoRoot, &root, DirEntry{InodeNumber: childIno, FileType: KindDir, Name: "sub"}); err != nil {
		t.Fatalf("AddEntry(): unexpected err: %v", err)
	}
	if err := table.WriteInode(InoRoot, &root); err != nil {
		t.Fatalf("WriteInode(): unexpected err: %v", err)
	}

	got, err := ResolvePath(dev, sb, table, "/sub")
	if err != nil {
		t.Fatalf("ResolvePath(/sub): unexpected err: %v", err)
	}
	if got != childIno {
		t.Fatalf("ResolvePath(/sub): wanted `%d`; found `%d`", childIno, got)
	}

	if _, err := ResolvePath(dev, sb, table, "/missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ResolvePath(/missing): wanted `ErrNotFound`; found `%v`", err)
	}
}
