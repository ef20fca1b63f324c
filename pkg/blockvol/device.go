package blockvol

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Device is the block-addressed interface the rest of the package talks to.
// A fileDevice backs real images; memDevice backs tests that would rather
// not touch the host filesystem.
type Device interface {
	ReadBlock(i Block, buf []byte) error
	WriteBlock(i Block, buf []byte) error
	TotalBlocks() Block
	BlockSize() Byte
	Close() error
}

type fileDevice struct {
	fd          int
	blockSize   Byte
	totalBlocks Block
	mu          sync.Mutex
}

// CreateFileDevice creates a new host image of exactly totalBlocks*blockSize
// bytes, zero-filled, and returns a Device open for read/write.
func CreateFileDevice(path string, blockSize Byte, totalBlocks Block) (Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating block device %q: %w", path, err)
	}
	size := int64(blockSize) * int64(totalBlocks)
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("creating block device %q: truncating to %d bytes: %w", path, size, err)
	}
	return &fileDevice{fd: fd, blockSize: blockSize, totalBlocks: totalBlocks}, nil
}

// OpenFileDevice opens an existing host image. The caller is responsible for
// validating the superblock magic before trusting its contents.
func OpenFileDevice(path string, blockSize Byte, totalBlocks Block) (Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening block device %q: %w", path, err)
	}
	return &fileDevice{fd: fd, blockSize: blockSize, totalBlocks: totalBlocks}, nil
}

func (d *fileDevice) TotalBlocks() Block { return d.totalBlocks }
func (d *fileDevice) BlockSize() Byte    { return d.blockSize }

func (d *fileDevice) checkBounds(i Block, buf []byte) error {
	if i >= d.totalBlocks {
		return fmt.Errorf("block %d: %w", i, ErrBadBlockIndex)
	}
	if Byte(len(buf)) != d.blockSize {
		return fmt.Errorf("block %d: buffer length %d does not match block size %d", i, len(buf), d.blockSize)
	}
	return nil
}

func (d *fileDevice) ReadBlock(i Block, buf []byte) error {
	if err := d.checkBounds(i, buf); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	off := int64(i) * int64(d.blockSize)
	n, err := unix.Pread(d.fd, buf, off)
	if err != nil {
		return fmt.Errorf("reading block %d: %w", i, ErrIo)
	}
	if n != len(buf) {
		return fmt.Errorf("reading block %d: short read (%d of %d bytes): %w", i, n, len(buf), ErrIo)
	}
	return nil
}

func (d *fileDevice) WriteBlock(i Block, buf []byte) error {
	if err := d.checkBounds(i, buf); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	off := int64(i) * int64(d.blockSize)
	n, err := unix.Pwrite(d.fd, buf, off)
	if err != nil {
		return fmt.Errorf("writing block %d: %w", i, ErrIo)
	}
	if n != len(buf) {
		return fmt.Errorf("writing block %d: short write (%d of %d bytes): %w", i, n, len(buf), ErrIo)
	}
	// Every write_block flushes before returning: fsync is the durability
	// barrier, not a buffered os.File write that the host may still be
	// holding in page cache when we tell the caller it's done.
	if err := unix.Fsync(d.fd); err != nil {
		return fmt.Errorf("flushing block %d: %w", i, ErrIo)
	}
	return nil
}

func (d *fileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := unix.Close(d.fd); err != nil {
		return fmt.Errorf("closing block device: %w", err)
	}
	return nil
}

// memDevice is an in-memory Device used by tests and by callers who want a
// scratch volume without touching the host filesystem.
type memDevice struct {
	blocks      [][]byte
	blockSize   Byte
	totalBlocks Block
	mu          sync.Mutex
}

func NewMemDevice(blockSize Byte, totalBlocks Block) Device {
	blocks := make([][]byte, totalBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &memDevice{blocks: blocks, blockSize: blockSize, totalBlocks: totalBlocks}
}

func (d *memDevice) TotalBlocks() Block { return d.totalBlocks }
func (d *memDevice) BlockSize() Byte    { return d.blockSize }

func (d *memDevice) ReadBlock(i Block, buf []byte) error {
	if i >= d.totalBlocks {
		return fmt.Errorf("block %d: %w", i, ErrBadBlockIndex)
	}
	if Byte(len(buf)) != d.blockSize {
		return fmt.Errorf("block %d: buffer length %d does not match block size %d", i, len(buf), d.blockSize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(buf, d.blocks[i])
	return nil
}

func (d *memDevice) WriteBlock(i Block, buf []byte) error {
	if i >= d.totalBlocks {
		return fmt.Errorf("block %d: %w", i, ErrBadBlockIndex)
	}
	if Byte(len(buf)) != d.blockSize {
		return fmt.Errorf("block %d: buffer length %d does not match block size %d", i, len(buf), d.blockSize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.blocks[i], buf)
	return nil
}

func (d *memDevice) Close() error { return nil }
