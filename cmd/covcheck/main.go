// Command covcheck is a debug utility for checking spatial coverage before
// a full run: how many buildings in a GDB layer or a previously exported
// results CSV fall inside a bounding box, and what CRS/bounds/band count a
// directory of imagery tiles reports. It is not part of the production
// pipeline.
package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/swissgeo/buildingattrs/internal/gdb"
	"github.com/swissgeo/buildingattrs/internal/geom"
	"github.com/swissgeo/buildingattrs/internal/raster"
)

func main() {
	app := &cli.App{
		Name:  "covcheck",
		Usage: "Check building/imagery spatial coverage before a full run",
		Commands: []*cli.Command{
			{
				Name:      "gdb",
				Usage:     "Count buildings in a GDB layer that fall inside a bounding box",
				ArgsUsage: "input_gdb minx,miny,maxx,maxy",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "layer", Value: "Building_solid", Usage: "GDB layer name"},
					&cli.IntFlag{Name: "sample", Value: 10, Usage: "Number of matching buildings to print"},
				},
				Action: runGDB,
			},
			{
				Name:      "rs",
				Usage:     "Report CRS, bounds and band count for every GeoTIFF in a directory",
				ArgsUsage: "rs_dir",
				Action:    runRS,
			},
			{
				Name:      "csv",
				Usage:     "Count rows of a previously exported CSV that fall inside a bounding box",
				ArgsUsage: "results.csv minx,miny,maxx,maxy",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "x-column", Value: "x", Usage: "Header name of the X/easting/longitude column"},
					&cli.StringFlag{Name: "y-column", Value: "y", Usage: "Header name of the Y/northing/latitude column"},
				},
				Action: runCSV,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runGDB(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("expected 2 positional args: input_gdb minx,miny,maxx,maxy", 1)
	}
	inputGDB := c.Args().Get(0)
	bbox, err := parseBBox(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	tablePath, err := gdb.ResolveLayer(inputGDB, c.String("layer"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	table, err := gdb.Open(tablePath)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("coverage bounds: X=[%.2f, %.2f], Y=[%.2f, %.2f]\n", bbox.MinX, bbox.MaxX, bbox.MinY, bbox.MaxY)

	sampleLimit := c.Int("sample")
	var checked, matched int
	err = table.Features(func(f gdb.Feature) bool {
		checked++
		if anyVertexInside(f, bbox) {
			matched++
			if matched <= sampleLimit {
				fmt.Printf("  - egid=%s gkat=%s gklas=%s\n", f.EGID, f.GKAT, f.GKLAS)
			}
		}
		return true
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("checked %d buildings, %d inside bounding box\n", checked, matched)
	return nil
}

func runRS(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected 1 positional arg: rs_dir", 1)
	}
	dir := c.Args().Get(0)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var found int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".tif" && ext != ".tiff" {
			continue
		}
		found++
		path := filepath.Join(dir, e.Name())
		dec, err := raster.Open(path)
		if err != nil {
			fmt.Printf("%s: error: %v\n", e.Name(), err)
			continue
		}
		bounds := dec.Bounds()
		fmt.Printf("%s: EPSG:%d bounds=[%.2f,%.2f,%.2f,%.2f] bands=%d\n",
			e.Name(), dec.EPSG(), bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY, dec.Bands())
		dec.Close()
	}

	if found == 0 {
		fmt.Printf("no TIFF files found in %s\n", dir)
	} else {
		fmt.Printf("found %d TIFF files\n", found)
	}
	return nil
}

func runCSV(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("expected 2 positional args: results.csv minx,miny,maxx,maxy", 1)
	}
	csvPath := c.Args().Get(0)
	bbox, err := parseBBox(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return cli.Exit(fmt.Sprintf("reading header: %v", err), 1)
	}
	xCol := indexOf(header, c.String("x-column"))
	yCol := indexOf(header, c.String("y-column"))
	if xCol < 0 || yCol < 0 {
		return cli.Exit(fmt.Sprintf("columns %q/%q not found in header %v", c.String("x-column"), c.String("y-column"), header), 1)
	}

	var checked, matched int
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		checked++
		x, errX := strconv.ParseFloat(record[xCol], 64)
		y, errY := strconv.ParseFloat(record[yCol], 64)
		if errX != nil || errY != nil {
			continue
		}
		if bbox.Contains(geom.Point{X: x, Y: y}) {
			matched++
		}
	}

	fmt.Printf("checked %d rows, %d inside bounding box\n", checked, matched)
	return nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func anyVertexInside(f gdb.Feature, bbox geom.Rect) bool {
	for _, ring := range f.Rings {
		for _, p := range ring {
			if bbox.Contains(p.XY()) {
				return true
			}
		}
	}
	return false
}

func parseBBox(s string) (geom.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.Rect{}, fmt.Errorf("bbox must be minx,miny,maxx,maxy")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, fmt.Errorf("invalid bbox value %q: %w", p, err)
		}
		vals[i] = v
	}
	return geom.Rect{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, nil
}
