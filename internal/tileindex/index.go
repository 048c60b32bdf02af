// Package tileindex maps 1km x 1km LV95 raster tile filenames to decoder
// handles, and batch-samples points against whichever tiles cover them.
package tileindex

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/swissgeo/buildingattrs/internal/geom"
	"github.com/swissgeo/buildingattrs/internal/raster"
)

// tileIDPattern validates the tile id token ("<digits>-<digits>") that
// parseTileID takes from the third underscore-separated part of a filename.
var tileIDPattern = regexp.MustCompile(`^\d+-\d+$`)

// TileID is the "XXXX-YYYY" SW-corner identifier of a 1km x 1km tile.
type TileID string

// Coords parses a tile id into its SW corner, in km.
func (id TileID) Coords() (x, y int, ok bool) {
	parts := strings.SplitN(string(id), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	xi, err1 := strconv.Atoi(parts[0])
	yi, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return xi, yi, true
}

// TileIDFor returns the tile id containing LV95 point (x, y).
func TileIDFor(x, y float64) TileID {
	return TileID(fmt.Sprintf("%d-%d", int(math.Floor(x/1000)), int(math.Floor(y/1000))))
}

// Index maps tile ids to raster file paths for one raster collection (e.g.
// the DTM or the DSM), with a cache of opened decoder handles: one handle
// per distinct tile sampled, with no eviction. Built once at startup by a
// directory scan; handles are opened lazily on first sample and all held
// until Close.
type Index struct {
	mu      sync.Mutex
	paths   map[TileID]string
	opened  map[TileID]*raster.Decoder
	warnf   func(format string, args ...any)
}

// Open scans dir for raster files and builds an index. Malformed filenames
// are skipped with a warning via warnf (nil disables warnings).
func Open(dir string, warnf func(format string, args ...any)) (*Index, error) {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading raster directory %s: %w", dir, err)
	}

	idx := &Index{
		paths:  make(map[TileID]string),
		opened: make(map[TileID]*raster.Decoder),
		warnf:  warnf,
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".tif" && ext != ".tiff" {
			continue
		}
		id, ok := parseTileID(name)
		if !ok {
			warnf("skipping raster file with unrecognized name: %s", name)
			continue
		}
		idx.paths[id] = filepath.Join(dir, name)
	}

	return idx, nil
}

// parseTileID extracts the tile id from a filename shaped
// `*_<year>_<XXXX-YYYY>_<pixel>_<epsg>_<frame>.tif`: split on '_' and take
// index 2, validated as "<digits>-<digits>".
func parseTileID(name string) (TileID, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return "", false
	}
	candidate := parts[2]
	if !tileIDPattern.MatchString(candidate) {
		return "", false
	}
	return TileID(candidate), true
}

// Lookup returns the file path registered for id, if any.
func (idx *Index) Lookup(id TileID) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	p, ok := idx.paths[id]
	return p, ok
}

// Len returns the number of tiles registered in the index.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.paths)
}

// OpenCount returns the number of decoder handles currently open.
func (idx *Index) OpenCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.opened)
}

// TilesCovering enumerates every tile id whose 1km cell intersects bbox,
// inclusive at both ends, in row-major (y outer, x inner) order so that
// Sample's last-tile-wins rule is deterministic.
func TilesCovering(bbox geom.Rect) []TileID {
	minX := int(math.Floor(bbox.MinX / 1000))
	maxX := int(math.Floor(bbox.MaxX / 1000))
	minY := int(math.Floor(bbox.MinY / 1000))
	maxY := int(math.Floor(bbox.MaxY / 1000))

	var ids []TileID
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			ids = append(ids, TileID(fmt.Sprintf("%d-%d", x, y)))
		}
	}
	return ids
}

// decoderFor returns the cached decoder for id, opening it on first use. A
// missing tile is not an error: it returns ok=false so callers can treat it
// as a coverage gap.
func (idx *Index) decoderFor(id TileID) (*raster.Decoder, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if d, ok := idx.opened[id]; ok {
		return d, true
	}

	path, ok := idx.paths[id]
	if !ok {
		return nil, false
	}

	d, err := raster.Open(path)
	if err != nil {
		idx.warnf("opening raster tile %s (%s): %v", id, path, err)
		return nil, false
	}
	idx.opened[id] = d
	return d, true
}

// Sample fills values[i] = raster sample at points[i] for every tile in
// tileIDs, in order. Points outside every tile, or landing on nodata in
// every covering tile, are left as NaN.
//
// Ordering contract: a later tile's non-NaN sample always overwrites an
// earlier value, whether that earlier value was NaN or a real sample. A
// later tile's NaN (point outside that tile, or nodata) never overwrites an
// earlier non-NaN value. This resolves tile-boundary double coverage
// deterministically and lets nodata on one tile be masked by real data on
// its neighbour.
func (idx *Index) Sample(points []geom.Point, tileIDs []TileID, values []float64) {
	for i := range values {
		values[i] = math.NaN()
	}
	for _, id := range tileIDs {
		dec, ok := idx.decoderFor(id)
		if !ok {
			continue
		}
		for i, p := range points {
			v, ok := dec.SampleAt(p.X, p.Y)
			if !ok {
				continue
			}
			values[i] = v
		}
	}
}

// Close releases every open decoder handle.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	var firstErr error
	for _, d := range idx.opened {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	idx.opened = make(map[TileID]*raster.Decoder)
	return firstErr
}
