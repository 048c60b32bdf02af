// Command volume-estimator computes above-ground building volumes from
// swissALTI3D (terrain) and swissSURFACE3D (surface) raster tiles against
// building footprints loaded from a PostGIS database.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/swissgeo/buildingattrs/internal/db"
	"github.com/swissgeo/buildingattrs/internal/geom"
	"github.com/swissgeo/buildingattrs/internal/pipeline"
	"github.com/swissgeo/buildingattrs/internal/tileindex"
	"github.com/swissgeo/buildingattrs/internal/volume"
)

type volumeRow struct {
	b   db.Building
	res volume.Result
}

func (r volumeRow) Header() []string {
	return []string{"id", "egid", "volume_m3", "footprint_area_m2", "mean_height_m", "max_height_m", "base_height_m", "grid_points_count", "status"}
}

func (r volumeRow) Record() []string {
	return []string{
		fmt.Sprintf("%d", r.b.ID),
		r.b.EGID,
		fmt.Sprintf("%.2f", r.res.VolumeM3),
		fmt.Sprintf("%.2f", r.b.Footprint.AbsArea()),
		fmt.Sprintf("%.2f", r.res.MeanHeightM),
		fmt.Sprintf("%.2f", r.res.MaxHeightM),
		fmt.Sprintf("%.2f", r.res.BaseHeightM),
		fmt.Sprintf("%d", r.res.GridPointsCount),
		string(r.res.Status),
	}
}

func main() {
	app := &cli.App{
		Name:      "volume-estimator",
		Usage:     "Calculate building volumes from PostGIS using Swiss height models",
		ArgsUsage: "db_connection alti3d_dir surface3d_dir",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output CSV file stem (omit to skip CSV export)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Limit number of buildings to process"},
			&cli.Float64SliceFlag{Name: "bbox", Aliases: []string{"b"}, Usage: "Bounding box in WGS84: MINLON,MINLAT,MAXLON,MAXLAT"},
			&cli.Int64SliceFlag{Name: "building-ids", Usage: "Process specific building IDs"},
			&cli.BoolFlag{Name: "write-to-db", Usage: "Write results back to database"},
			&cli.StringFlag{Name: "geometry-column", Value: "geog", Usage: "Name of geometry column"},
			&cli.StringFlag{Name: "table-name", Value: "public.buildings", Usage: "Table name"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit("expected 3 positional args: db_connection alti3d_dir surface3d_dir", 1)
	}
	connString := c.Args().Get(0)
	alti3dDir := c.Args().Get(1)
	surface3dDir := c.Args().Get(2)

	output := c.String("output")
	writeToDB := c.Bool("write-to-db")
	if output == "" && !writeToDB {
		return cli.Exit("must specify either --output for CSV export or --write-to-db for database update", 1)
	}

	if _, err := os.Stat(alti3dDir); err != nil {
		return cli.Exit(fmt.Sprintf("ALTI3D directory not found: %s", alti3dDir), 1)
	}
	if _, err := os.Stat(surface3dDir); err != nil {
		return cli.Exit(fmt.Sprintf("SURFACE3D directory not found: %s", surface3dDir), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Println("indexing available tiles...")
	terrain, err := tileindex.Open(alti3dDir, log.Printf)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer terrain.Close()
	surface, err := tileindex.Open(surface3dDir, log.Printf)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer surface.Close()
	log.Printf("found %d swissALTI3D tiles, %d swissSURFACE3D tiles", terrain.Len(), surface.Len())

	repo, err := db.Open(ctx, connString)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer repo.Close()

	query := db.Query{
		TableName:      c.String("table-name"),
		GeometryColumn: c.String("geometry-column"),
		BuildingIDs:    c.Int64Slice("building-ids"),
		Limit:          c.Int("limit"),
	}
	if bbox := c.Float64Slice("bbox"); len(bbox) == 4 {
		query.BBoxWGS84 = &geom.Rect{MinX: bbox[0], MinY: bbox[1], MaxX: bbox[2], MaxY: bbox[3]}
	}

	log.Printf("loading buildings from %s...", query.TableName)
	buildings, err := repo.LoadFootprints(ctx, query)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(buildings) == 0 {
		log.Println("no buildings found matching criteria")
		return nil
	}
	log.Printf("found %d buildings", len(buildings))

	var updatesMu sync.Mutex
	var updates []db.VolumeUpdate

	process := func(_ context.Context, b db.Building) pipeline.Row {
		res := volume.Estimate(b.Footprint, terrain, surface)
		if writeToDB && res.Status == volume.StatusSuccess {
			updatesMu.Lock()
			updates = append(updates, db.VolumeUpdate{
				ID: b.ID, VolumeM3: res.VolumeM3, BaseHeightM: res.BaseHeightM,
				MeanHeightM: res.MeanHeightM, MaxHeightM: res.MaxHeightM,
			})
			updatesMu.Unlock()
		}
		return volumeRow{b: b, res: res}
	}

	stem := output
	if stem == "" {
		stem = os.TempDir() + "/volume-estimator-run"
	}
	finalCSV, err := pipeline.Run(ctx, buildings, pipeline.Options{OutputStem: stem}, process)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if output != "" {
		log.Printf("results saved to: %s", finalCSV)
	} else {
		os.Remove(finalCSV)
	}

	if writeToDB {
		if err := repo.EnsureVolumeColumns(ctx, query.TableName); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		count, err := repo.UpdateVolume(ctx, query.TableName, updates)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		log.Printf("updated %d buildings in database", count)
	}

	return nil
}
