package tileindex

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/swissgeo/buildingattrs/internal/geom"
)

func TestParseTileID(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		want    TileID
		wantOK  bool
	}{
		{"well formed", "swissalti3d_2019_2600-1200_0.5_2056_5728.tif", "2600-1200", true},
		{"too few tokens", "2600-1200.tif", "", false},
		{"non numeric tile", "swissalti3d_2019_abcd_0.5_2056_5728.tif", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := parseTileID(c.file)
			if ok != c.wantOK || got != c.want {
				t.Errorf("parseTileID(%q) = (%q, %v), want (%q, %v)", c.file, got, ok, c.want, c.wantOK)
			}
		})
	}
}

func TestTileIDFor(t *testing.T) {
	if got := TileIDFor(2_600_500, 1_200_700); got != "2600-1200" {
		t.Errorf("TileIDFor(2600500, 1200700) = %q, want 2600-1200", got)
	}
}

func TestTilesCovering(t *testing.T) {
	bbox := geom.Rect{MinX: 2_600_500, MinY: 1_200_500, MaxX: 2_601_500, MaxY: 1_200_500}
	ids := TilesCovering(bbox)
	want := []TileID{"2600-1200", "2601-1200"}
	if len(ids) != len(want) {
		t.Fatalf("TilesCovering = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("TilesCovering[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestIndex_Open_SkipsMalformedNames(t *testing.T) {
	dir := t.TempDir()
	good := "swissalti3d_2019_2600-1200_0.5_2056_5728.tif"
	bad := "readme.tif"
	if err := os.WriteFile(filepath.Join(dir, good), []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, bad), []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}

	var warnings []string
	idx, err := Open(dir, func(format string, args ...any) {
		warnings = append(warnings, format)
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Len() = %d, want 1", idx.Len())
	}
	if _, ok := idx.Lookup("2600-1200"); !ok {
		t.Error("expected tile 2600-1200 to be registered")
	}
}

// Covers the no-coverage contract only: with no tiles registered, every
// output value stays NaN.
func TestSample_NaNInitialized(t *testing.T) {
	idx, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	values := make([]float64, 3)
	idx.Sample([]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}, nil, values)
	for i, v := range values {
		if !math.IsNaN(v) {
			t.Errorf("values[%d] = %v, want NaN (no tiles registered)", i, v)
		}
	}
}
