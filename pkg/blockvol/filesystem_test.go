package blockvol

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func newTestVolumeFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "volume.img")
}

func TestCreateVolumeAndMountRoundTrip(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{
		Path:        path,
		SizeBytes:   1 << 20,
		BlockSize:   DefaultBlockSize,
		VolumeLabel: "Test Volume",
	})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	if !v.IsMounted() {
		t.Fatalf("CreateVolume(): wanted a mounted volume; found unmounted")
	}
	if err := v.Unmount(); err != nil {
		t.Fatalf("Unmount(): unexpected err: %v", err)
	}

	reopened, wasDirty, err := Mount(path)
	if err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	defer reopened.Unmount()
	if wasDirty {
		t.Fatalf("Mount(): wanted a clean shutdown; found dirty")
	}
	if reopened.TotalBlocks() != v.TotalBlocks() {
		t.Fatalf("Mount(): TotalBlocks: wanted `%d`; found `%d`", v.TotalBlocks(), reopened.TotalBlocks())
	}
}

func TestMountAfterDirtyShutdownReportsDirty(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{Path: path, SizeBytes: 1 << 20, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	if err := v.dev.Close(); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}

	reopened, wasDirty, err := Mount(path)
	if err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	defer reopened.Unmount()
	if !wasDirty {
		t.Fatalf("Mount(): wanted a dirty shutdown to be reported; found clean")
	}
}

func TestCreateWriteReadDeleteFile(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{Path: path, SizeBytes: 1 << 20, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	defer v.Unmount()

	if err := v.CreateFile("/hello.txt"); err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}
	if !v.FileExists("/hello.txt") {
		t.Fatalf("FileExists(/hello.txt): wanted `true`; found `false`")
	}

	payload := bytes.Repeat([]byte("x"), int(DefaultBlockSize)*3+17)
	if err := v.WriteFile("/hello.txt", payload); err != nil {
		t.Fatalf("WriteFile(): unexpected err: %v", err)
	}

	got, err := v.ReadFile("/hello.txt")
	if err != nil {
		t.Fatalf("ReadFile(): unexpected err: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadFile(): wanted `%d` bytes matching written payload; found `%d` bytes differing", len(payload), len(got))
	}

	st, err := v.Stat("/hello.txt")
	if err != nil {
		t.Fatalf("Stat(): unexpected err: %v", err)
	}
	if st.Size != Byte(len(payload)) {
		t.Fatalf("Stat(): Size: wanted `%d`; found `%d`", len(payload), st.Size)
	}

	if err := v.DeleteFile("/hello.txt"); err != nil {
		t.Fatalf("DeleteFile(): unexpected err: %v", err)
	}
	if v.FileExists("/hello.txt") {
		t.Fatalf("FileExists(/hello.txt): wanted `false` after delete; found `true`")
	}
}

func TestCreateFileDuplicateRejected(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{Path: path, SizeBytes: 1 << 20, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	defer v.Unmount()

	if err := v.CreateFile("/dup.txt"); err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}
	if err := v.CreateFile("/dup.txt"); !errors.Is(err, ErrExists) {
		t.Fatalf("CreateFile(duplicate): wanted `ErrExists`; found `%v`", err)
	}
}

func TestDirCreateListDelete(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{Path: path, SizeBytes: 1 << 20, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	defer v.Unmount()

	if err := v.CreateDir("/sub"); err != nil {
		t.Fatalf("CreateDir(): unexpected err: %v", err)
	}
	if err := v.CreateFile("/sub/a.txt"); err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}

	entries, err := v.ListDir("/sub")
	if err != nil {
		t.Fatalf("ListDir(): unexpected err: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	found := false
	for _, n := range names {
		if n == "a.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ListDir(/sub): wanted `a.txt` among `%v`", names)
	}

	if err := v.DeleteFile("/sub/a.txt"); err != nil {
		t.Fatalf("DeleteFile(): unexpected err: %v", err)
	}
	if err := v.DeleteDir("/sub"); err != nil {
		t.Fatalf("DeleteDir(): unexpected err: %v", err)
	}
	if v.FileExists("/sub") {
		t.Fatalf("FileExists(/sub): wanted `false` after DeleteDir; found `true`")
	}
}

func TestDeleteDirRefusesRoot(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{Path: path, SizeBytes: 1 << 20, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	defer v.Unmount()

	if err := v.DeleteDir("/"); err == nil {
		t.Fatalf("DeleteDir(/): wanted an error; found none")
	}
}

func TestDeleteDirRefusesNonEmpty(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{Path: path, SizeBytes: 1 << 20, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	defer v.Unmount()

	if err := v.CreateDir("/sub"); err != nil {
		t.Fatalf("CreateDir(): unexpected err: %v", err)
	}
	if err := v.CreateFile("/sub/a.txt"); err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}
	if err := v.DeleteDir("/sub"); err == nil {
		t.Fatalf("DeleteDir(non-empty): wanted an error; found none")
	}
}

func TestWriteFileFailureLeavesZeroSizeNoBlocks(t *testing.T) {
	path := newTestVolumeFile(t)
	blockSize := DefaultBlockSize
	totalBlocks := Block(128)
	v, err := CreateVolume(&CreateVolumeParams{
		Path:      path,
		SizeBytes: int64(blockSize) * int64(totalBlocks),
		BlockSize: blockSize,
	})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	defer v.Unmount()

	if err := v.CreateFile("/big.bin"); err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}

	free := v.FreeBlocks()
	oversized := make([]byte, int64(blockSize)*int64(free+10))
	if err := v.WriteFile("/big.bin", oversized); err == nil {
		t.Fatalf("WriteFile(oversized): wanted `ErrOutOfSpace`; found no error")
	}

	st, err := v.Stat("/big.bin")
	if err != nil {
		t.Fatalf("Stat(): unexpected err: %v", err)
	}
	if st.Size != 0 {
		t.Fatalf("WriteFile(oversized) failure: Size: wanted `0`; found `%d`", st.Size)
	}
	if st.BlockCount != 0 {
		t.Fatalf("WriteFile(oversized) failure: BlockCount: wanted `0`; found `%d`", st.BlockCount)
	}
}

func TestFragmentationScoreAndOwnership(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{Path: path, SizeBytes: 1 << 20, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	defer v.Unmount()

	if err := v.CreateFile("/f.bin"); err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}
	payload := bytes.Repeat([]byte("y"), int(DefaultBlockSize)*2)
	if err := v.WriteFile("/f.bin", payload); err != nil {
		t.Fatalf("WriteFile(): unexpected err: %v", err)
	}

	score, err := v.FragmentationScore()
	if err != nil {
		t.Fatalf("FragmentationScore(): unexpected err: %v", err)
	}
	if score < 0 {
		t.Fatalf("FragmentationScore(): wanted a non-negative score; found `%f`", score)
	}

	ino, err := ResolvePath(v.dev, &v.sb, &v.table, "/f.bin")
	if err != nil {
		t.Fatalf("ResolvePath(): unexpected err: %v", err)
	}
	name, ok := v.FilenameFromInode(ino)
	if !ok || name != "/f.bin" {
		t.Fatalf("FilenameFromInode(): wanted `(/f.bin, true)`; found `(%q, %v)`", name, ok)
	}
}

func TestRebuildOwnershipAfterMount(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{Path: path, SizeBytes: 1 << 20, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	if err := v.CreateFile("/f.bin"); err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}
	if err := v.WriteFile("/f.bin", []byte("some data")); err != nil {
		t.Fatalf("WriteFile(): unexpected err: %v", err)
	}
	if err := v.Unmount(); err != nil {
		t.Fatalf("Unmount(): unexpected err: %v", err)
	}

	reopened, _, err := Mount(path)
	if err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	defer reopened.Unmount()

	ino, err := ResolvePath(reopened.dev, &reopened.sb, &reopened.table, "/f.bin")
	if err != nil {
		t.Fatalf("ResolvePath(): unexpected err: %v", err)
	}
	var in Inode
	if err := reopened.table.ReadInode(ino, &in); err != nil {
		t.Fatalf("ReadInode(): unexpected err: %v", err)
	}
	if _, ok := reopened.BlockOwner(in.Direct[0]); !ok {
		t.Fatalf("BlockOwner(): wanted ownership rebuilt from mount; found none")
	}

	if err := reopened.RebuildOwnership(); err != nil {
		t.Fatalf("RebuildOwnership(): unexpected err: %v", err)
	}
	if _, ok := reopened.BlockOwner(in.Direct[0]); !ok {
		t.Fatalf("RebuildOwnership(): wanted ownership preserved; found none")
	}
}

func TestStatsTrackOperations(t *testing.T) {
	path := newTestVolumeFile(t)
	v, err := CreateVolume(&CreateVolumeParams{Path: path, SizeBytes: 1 << 20, BlockSize: DefaultBlockSize})
	if err != nil {
		t.Fatalf("CreateVolume(): unexpected err: %v", err)
	}
	defer v.Unmount()

	v.ResetStats()
	if err := v.CreateFile("/s.bin"); err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}
	if err := v.WriteFile("/s.bin", []byte("abc")); err != nil {
		t.Fatalf("WriteFile(): unexpected err: %v", err)
	}
	if _, err := v.ReadFile("/s.bin"); err != nil {
		t.Fatalf("ReadFile(): unexpected err: %v", err)
	}

	stats := v.Stats()
	if stats.TotalWrites == 0 {
		t.Fatalf("Stats(): TotalWrites: wanted > 0; found `0`")
	}
	if stats.TotalReads == 0 {
		t.Fatalf("Stats(): TotalReads: wanted > 0; found `0`")
	}
}
