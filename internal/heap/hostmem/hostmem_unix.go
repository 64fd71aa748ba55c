//go:build unix

package hostmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mmapPool backs every region with a single anonymous mmap mapping, sliced
// per region, so the whole heap lives outside the Go runtime's own GC-scanned
// heap.
type mmapPool struct {
	regionSize int
	backing    []byte
}

func newMmapPool(numRegions, regionSize int) (Pool, error) {
	size := numRegions * regionSize

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("hostmem: mmap %d bytes: %w", size, err)
	}

	return &mmapPool{regionSize: regionSize, backing: data}, nil
}

func (p *mmapPool) Region(index int) []byte {
	start := index * p.regionSize
	return p.backing[start : start+p.regionSize : start+p.regionSize]
}

func (p *mmapPool) Close() error {
	if p.backing == nil {
		return nil
	}

	err := unix.Munmap(p.backing)
	p.backing = nil

	return err
}
