//go:build !unix

package hostmem

import "fmt"

func newMmapPool(numRegions, regionSize int) (Pool, error) {
	return nil, fmt.Errorf("hostmem: mmap strategy is only available on unix")
}
