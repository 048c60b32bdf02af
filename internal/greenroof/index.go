// Package greenroof detects vegetated roofs by sampling NDVI from 4-band
// multispectral imagery over a building's mesh footprint.
package greenroof

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/swissgeo/buildingattrs/internal/geom"
	"github.com/swissgeo/buildingattrs/internal/raster"
)

const treeDimensions = 2
const treeMinBranch = 25
const treeMaxBranch = 50

// tileEntry is one indexed imagery tile; it implements rtreego.Spatial so
// the tree can be bulk loaded directly from a slice of entries.
type tileEntry struct {
	path   string
	bounds geom.Rect
}

func (t *tileEntry) Bounds() *rtreego.Rect {
	rect, _ := rtreego.NewRect(
		rtreego.Point{t.bounds.MinX, t.bounds.MinY},
		[]float64{t.bounds.Width(), t.bounds.Height()},
	)
	return rect
}

// Index is a bulk-loaded spatial index of 4-band imagery tiles, built once
// per run, shared by all workers and queried per building.
type Index struct {
	tree    *rtreego.Rtree
	entries []*tileEntry

	mu     sync.Mutex
	opened map[string]*raster.Decoder
}

// Open scans dir for .tif/.tiff files, reads each tile's georeferenced
// bounds, and bulk loads a spatial index over them. Files whose bounds
// cannot be read are skipped and reported via warnf (if non-nil).
func Open(dir string, warnf func(format string, args ...any)) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading imagery dir: %w", err)
	}

	var tiles []*tileEntry
	var objs []rtreego.Spatial
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".tif" && ext != ".tiff" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		dec, err := raster.Open(path)
		if err != nil {
			if warnf != nil {
				warnf("greenroof: skipping %s: %v", path, err)
			}
			continue
		}
		bounds := dec.Bounds()
		dec.Close()

		te := &tileEntry{path: path, bounds: bounds}
		tiles = append(tiles, te)
		objs = append(objs, te)
	}

	tree := rtreego.NewTree(treeDimensions, treeMinBranch, treeMaxBranch, objs...)
	return &Index{tree: tree, entries: tiles, opened: make(map[string]*raster.Decoder)}, nil
}

// Query returns the imagery tile path covering footprint, or "" if none of
// the indexed tiles intersect it. Buildings are assumed small relative to a
// single tile, so the first intersecting tile is used.
func (idx *Index) Query(footprint geom.Rect) (string, bool) {
	rect, err := rtreego.NewRect(
		rtreego.Point{footprint.MinX, footprint.MinY},
		[]float64{footprint.Width(), footprint.Height()},
	)
	if err != nil {
		return "", false
	}
	hits := idx.tree.SearchIntersect(rect)
	if len(hits) == 0 {
		return "", false
	}
	return hits[0].(*tileEntry).path, true
}

// Len reports the number of indexed imagery tiles.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// decoderFor returns a cached open decoder for path, opening it on first
// use.
func (idx *Index) decoderFor(path string) (*raster.Decoder, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if dec, ok := idx.opened[path]; ok {
		return dec, nil
	}
	dec, err := raster.Open(path)
	if err != nil {
		return nil, err
	}
	idx.opened[path] = dec
	return dec, nil
}

// Close releases all open decoder handles.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, dec := range idx.opened {
		dec.Close()
	}
	idx.opened = make(map[string]*raster.Decoder)
	return nil
}
