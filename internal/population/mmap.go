// Memory-mapped backend for populations too large to hold on the heap.
// One file per array, created and truncated to size, mapped read-write
// shared. Access faults pages in on demand, so a chunked pass touches at
// most one chunk's worth of each array at a time.
package population

import (
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

type mmapBackend struct {
	dir      string
	mappings [][]byte
	a        arrays
}

func newMMapBackend(n int, dir string) (*mmapBackend, error) {
	if dir == "" {
		dir = "sim_mem"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &AllocationError{Path: dir, Err: err}
	}

	b := &mmapBackend{dir: dir}

	capBytes, err := b.mapFile("capital.dat", n*8)
	if err != nil {
		b.close()
		return nil, err
	}
	tierBytes, err := b.mapFile("tiers.dat", n)
	if err != nil {
		b.close()
		return nil, err
	}
	empBytes, err := b.mapFile("employed.dat", n)
	if err != nil {
		b.close()
		return nil, err
	}
	unempBytes, err := b.mapFile("unemp_months.dat", n*4)
	if err != nil {
		b.close()
		return nil, err
	}
	stateBytes, err := b.mapFile("state.dat", n)
	if err != nil {
		b.close()
		return nil, err
	}

	b.a = arrays{
		capital:     unsafe.Slice((*float64)(unsafe.Pointer(&capBytes[0])), n),
		tier:        tierBytes,
		employed:    unsafe.Slice((*bool)(unsafe.Pointer(&empBytes[0])), n),
		unempMonths: unsafe.Slice((*uint32)(unsafe.Pointer(&unempBytes[0])), n),
		state:       stateBytes,
	}
	return b, nil
}

// mapFile creates (or truncates) a backing file of the given size and maps
// it read-write. The fd is closed after mapping; the mapping stays valid.
func (b *mmapBackend) mapFile(name string, size int) ([]byte, error) {
	path := filepath.Join(b.dir, name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &AllocationError{Path: path, Err: err}
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return nil, &AllocationError{Path: path, Err: err}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &AllocationError{Path: path, Err: err}
	}

	b.mappings = append(b.mappings, data)
	return data, nil
}

func (b *mmapBackend) arrays() arrays { return b.a }

func (b *mmapBackend) close() error {
	var first error
	for _, m := range b.mappings {
		if err := unix.Munmap(m); err != nil && first == nil {
			first = err
		}
	}
	b.mappings = nil
	return first
}
