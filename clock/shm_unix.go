//go:build linux || darwin

package clock

import (
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const shmCellSize = 8

// ShmCounter keeps the tick count in a file mapped MAP_SHARED, so every
// process mapping the same path reads and writes one word.
type ShmCounter struct {
	path string
	file *os.File
	mem  []byte
	word *uint64
	once sync.Once
}

func OpenShmCounter(path string) (*ShmCounter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < shmCellSize {
		if err = unix.Ftruncate(int(f.Fd()), shmCellSize); err != nil {
			f.Close()
			return nil, err
		}
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, shmCellSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	// mmap returns page aligned memory, the word is 8 byte aligned
	return &ShmCounter{
		path: path,
		file: f,
		mem:  mem,
		word: (*uint64)(unsafe.Pointer(&mem[0])),
	}, nil
}

func (c *ShmCounter) Path() string   { return c.path }
func (c *ShmCounter) Load() uint64   { return atomic.LoadUint64(c.word) }
func (c *ShmCounter) Store(v uint64) { atomic.StoreUint64(c.word, v) }
func (c *ShmCounter) Inc() uint64    { return atomic.AddUint64(c.word, 1) }

func (c *ShmCounter) Close() (err error) {
	c.once.Do(func() {
		err = unix.Munmap(c.mem)
		if cerr := c.file.Close(); err == nil {
			err = cerr
		}
	})
	return
}
