//go:build !unix

package raster

import "fmt"

func mmapFile(fd uintptr, size int) ([]byte, error) {
	return nil, fmt.Errorf("memory mapping is not supported on this platform")
}

func munmapFile(data []byte) error {
	return nil
}
