// Command roof-estimator extracts roof shape, area and (optionally)
// green-roof NDVI characteristics from swissBUILDINGS3D mesh geometries.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/swissgeo/buildingattrs/internal/gdb"
	"github.com/swissgeo/buildingattrs/internal/geom"
	"github.com/swissgeo/buildingattrs/internal/greenroof"
	"github.com/swissgeo/buildingattrs/internal/mesh"
	"github.com/swissgeo/buildingattrs/internal/pipeline"
	"github.com/swissgeo/buildingattrs/internal/roof"
)

type roofRow struct {
	f              gdb.Feature
	res            roof.Result
	green          greenroof.Result
	hasGreen       bool
	analysisStatus string
	analysisError  string
}

func (r roofRow) Header() []string {
	h := []string{
		"oid", "egid", "gkat", "gklas",
		"footprint_area_m2", "wall_area_m2", "flat_roof_area_m2", "sloped_roof_area_m2", "total_surface_m2",
		"roof_shape", "roof_shape_confidence",
		"roof_slope_primary_deg", "roof_slope_secondary_deg", "roof_azimuth_primary_deg", "ridge_orientation_deg",
		"building_height_m", "eave_height_m", "ridge_height_m", "wall_perimeter_m",
		"green_area_m2", "green_percentage", "ndvi_mean", "ndvi_max", "green_roof_status",
		"analysis_status", "analysis_error",
	}
	return h
}

func (r roofRow) Record() []string {
	ridgeOrientation := ""
	if r.res.HasRidgeOrientation {
		ridgeOrientation = fmt.Sprintf("%.1f", r.res.RidgeOrientation)
	}

	greenArea, greenPct, ndviMean, ndviMax, greenStatus := "", "", "", "", ""
	if r.hasGreen {
		greenArea = fmt.Sprintf("%.2f", r.green.GreenAreaM2)
		greenPct = fmt.Sprintf("%.1f", r.green.GreenPercentage)
		ndviMean = fmt.Sprintf("%.3f", r.green.NDVIMean)
		ndviMax = fmt.Sprintf("%.3f", r.green.NDVIMax)
		greenStatus = string(r.green.Status)
	}

	return []string{
		fmt.Sprintf("%d", r.f.OID), r.f.EGID, r.f.GKAT, r.f.GKLAS,
		fmt.Sprintf("%.2f", r.res.FootprintAreaM2), fmt.Sprintf("%.2f", r.res.WallAreaM2),
		fmt.Sprintf("%.2f", r.res.FlatRoofAreaM2), fmt.Sprintf("%.2f", r.res.SlopedRoofAreaM2),
		fmt.Sprintf("%.2f", r.res.TotalSurfaceM2),
		string(r.res.Shape), fmt.Sprintf("%.2f", r.res.Confidence),
		fmt.Sprintf("%.1f", r.res.PrimarySlope), fmt.Sprintf("%.1f", r.res.SecondarySlope),
		fmt.Sprintf("%.1f", r.res.PrimaryAzimuth), ridgeOrientation,
		fmt.Sprintf("%.2f", r.res.BuildingHeightM), fmt.Sprintf("%.2f", r.res.EaveHeightM),
		fmt.Sprintf("%.2f", r.res.RidgeHeightM), fmt.Sprintf("%.2f", r.res.WallPerimeterM),
		greenArea, greenPct, ndviMean, ndviMax, greenStatus,
		r.analysisStatus, r.analysisError,
	}
}

func main() {
	app := &cli.App{
		Name:      "roof-estimator",
		Usage:     "Extract roof characteristics from swissBUILDINGS3D mesh geometries",
		ArgsUsage: "input_gdb output_dir",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "layer", Value: "Building_solid", Usage: "GDB layer name"},
			&cli.IntFlag{Name: "limit", Usage: "Limit number of buildings to process"},
			&cli.IntFlag{Name: "workers", Usage: "Number of parallel workers (default: CPU count - 1, max 8)"},
			&cli.IntFlag{Name: "chunk-size", Value: 0, Usage: "Number of buildings per chunk"},
			&cli.BoolFlag{Name: "list-layers", Usage: "List available layers in the GDB and exit"},
			&cli.BoolFlag{Name: "keep-chunks", Usage: "Keep individual chunk CSV files after merging"},
			&cli.StringFlag{Name: "rs-dir", Usage: "Directory of SWISSIMAGE-RS GeoTIFFs for green-roof analysis"},
			&cli.BoolFlag{Name: "no-filter", Usage: "Do not filter buildings by RS coverage; process all"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.Bool("list-layers") {
		if c.NArg() < 1 {
			return cli.Exit("expected input_gdb argument", 1)
		}
		layers, err := gdb.ListLayers(c.Args().Get(0))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Printf("Available layers in %s:\n", c.Args().Get(0))
		for _, l := range layers {
			fmt.Printf("  - %s\n", l)
		}
		return nil
	}

	if c.NArg() != 2 {
		return cli.Exit("expected 2 positional args: input_gdb output_dir", 1)
	}
	inputGDB := c.Args().Get(0)
	outputDir := c.Args().Get(1)

	if _, err := os.Stat(inputGDB); err != nil {
		return cli.Exit(fmt.Sprintf("input GDB not found: %s", inputGDB), 1)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logFile, err := os.Create(filepath.Join(outputDir, "roof_estimator.log"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	rsDir := c.String("rs-dir")
	log.Printf("input: %s", inputGDB)
	log.Printf("output: %s", outputDir)
	log.Printf("layer: %s", c.String("layer"))
	if limit := c.Int("limit"); limit > 0 {
		log.Printf("limit: %d buildings", limit)
	}
	if rsDir != "" {
		log.Printf("green roof analysis enabled, RS data: %s", rsDir)
		if _, err := os.Stat(rsDir); err != nil {
			return cli.Exit(fmt.Sprintf("RS directory not found: %s", rsDir), 1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tablePath, err := gdb.ResolveLayer(inputGDB, c.String("layer"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	table, err := gdb.Open(tablePath)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var greenIdx *greenroof.Index
	if rsDir != "" {
		greenIdx, err = greenroof.Open(rsDir, log.Printf)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer greenIdx.Close()
		log.Printf("found %d RS tiles", greenIdx.Len())
	}

	limit := c.Int("limit")
	noFilter := c.Bool("no-filter")
	var features []gdb.Feature
	err = table.Features(func(f gdb.Feature) bool {
		if greenIdx != nil && !noFilter {
			footprint, ok := buildingFootprint(f)
			if !ok || !covered(greenIdx, footprint) {
				return true
			}
		}
		features = append(features, f)
		return limit <= 0 || len(features) < limit
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	log.Printf("found %d buildings to process", len(features))
	if len(features) == 0 {
		return nil
	}

	process := func(_ context.Context, f gdb.Feature) pipeline.Row {
		return analyzeBuilding(f, greenIdx)
	}

	opts := pipeline.Options{
		OutputStem: filepath.Join(outputDir, "roof_analysis"),
		ChunkSize:  c.Int("chunk-size"),
		Workers:    workerCount(c.Int("workers")),
		KeepChunks: c.Bool("keep-chunks"),
	}
	finalCSV, err := pipeline.Run(ctx, features, opts, process)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	log.Printf("results saved to: %s", finalCSV)
	return nil
}

func workerCount(requested int) int {
	if requested > 0 {
		return requested
	}
	n := runtime.NumCPU() - 1
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// buildingFootprint resolves the 2D footprint used for RS coverage checks
// and green-roof analysis: the lowest mesh ring, falling back to a convex
// hull of every vertex when the feature has no usable ring.
func buildingFootprint(f gdb.Feature) (geom.Ring, bool) {
	if ring, ok := f.Footprint2D(); ok && len(ring) >= 3 {
		return ring, true
	}
	var pts []geom.Point
	for _, ring := range f.Rings {
		for _, p := range ring {
			pts = append(pts, p.XY())
		}
	}
	if len(pts) < 3 {
		return nil, false
	}
	hull := geom.ConvexHull(pts)
	if len(hull) < 3 {
		return nil, false
	}
	return hull, true
}

func covered(idx *greenroof.Index, footprint geom.Ring) bool {
	_, ok := idx.Query(footprint.Bounds())
	return ok
}

// analyzeBuilding mirrors the Python predecessor's process_single_building:
// it validates the mesh geometry before analysis and records a status/error
// pair rather than failing the whole run on one bad building.
func analyzeBuilding(f gdb.Feature, greenIdx *greenroof.Index) roofRow {
	if len(f.Rings) == 0 {
		return roofRow{f: f, analysisStatus: "failed", analysisError: "no rings in geometry"}
	}

	m, err := mesh.FromRings(f.Rings)
	if err != nil {
		return roofRow{f: f, analysisStatus: "failed", analysisError: err.Error()}
	}

	row := roofRow{f: f, res: roof.Analyze(m), analysisStatus: "success"}

	if greenIdx != nil {
		footprint, ok := buildingFootprint(f)
		if ok {
			row.green = greenroof.Analyze(greenIdx, footprint)
			row.hasGreen = true
		}
	}

	return row
}
