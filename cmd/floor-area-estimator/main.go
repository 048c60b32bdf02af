// Command floor-area-estimator estimates gross floor area and floor count
// for buildings the volume worker has already processed, using GKAT/GKLAS
// classification codes and a Canton Zurich floor-height lookup table.
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
	"github.com/swissgeo/buildingattrs/internal/floorarea"
	"github.com/swissgeo/buildingattrs/internal/geom"
	"github.com/swissgeo/buildingattrs/internal/pipeline"
)

type floorAreaRow struct {
	b   db.Building
	res floorarea.Result
}

func (r floorAreaRow) Header() []string {
	return []string{"id", "area_floor_total_m2", "area_floor_above_ground_m2", "area_accuracy",
		"floors_total", "floors_above", "floors_accuracy", "status", "error_message"}
}

func (r floorAreaRow) Record() []string {
	return []string{
		fmt.Sprintf("%d", r.b.ID),
		fmt.Sprintf("%.2f", r.res.FloorAreaEstM2),
		fmt.Sprintf("%.2f", r.res.FloorAreaEstM2),
		string(r.res.Accuracy),
		fmt.Sprintf("%d", r.res.FloorsEst),
		fmt.Sprintf("%d", r.res.FloorsEst),
		string(r.res.Accuracy),
		string(r.res.Status),
		r.res.Error,
	}
}

func main() {
	app := &cli.App{
		Name:      "floor-area-estimator",
		Usage:     "Estimate gross floor area and floor count for Swiss buildings",
		ArgsUsage: "db_connection",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output CSV file stem (omit to skip CSV export)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Limit number of buildings to process"},
			&cli.Float64SliceFlag{Name: "bbox", Aliases: []string{"b"}, Usage: "Bounding box in WGS84: MINLON,MINLAT,MAXLON,MAXLAT"},
			&cli.Int64SliceFlag{Name: "building-ids", Usage: "Process specific building IDs"},
			&cli.BoolFlag{Name: "write-to-db", Usage: "Write results back to database"},
			&cli.StringFlag{Name: "table-name", Value: "public.buildings", Usage: "Table name"},
			&cli.BoolFlag{Name: "include-missing-volume", Usage: "Also process buildings without a prior volume estimate"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected 1 positional arg: db_connection", 1)
	}
	connString := c.Args().Get(0)

	output := c.String("output")
	writeToDB := c.Bool("write-to-db")
	if output == "" && !writeToDB {
		return cli.Exit("must specify either --output for CSV export or --write-to-db for database update", 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	repo, err := db.Open(ctx, connString)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer repo.Close()

	query := db.Query{
		TableName:   c.String("table-name"),
		BuildingIDs: c.Int64Slice("building-ids"),
		Limit:       c.Int("limit"),
	}
	if bbox := c.Float64Slice("bbox"); len(bbox) == 4 {
		query.BBoxWGS84 = &geom.Rect{MinX: bbox[0], MinY: bbox[1], MaxX: bbox[2], MaxY: bbox[3]}
	}

	log.Printf("loading buildings from %s...", query.TableName)
	buildings, err := repo.LoadForFloorArea(ctx, query, c.Bool("include-missing-volume"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(buildings) == 0 {
		log.Println("no buildings to process")
		return nil
	}
	log.Printf("found %d buildings with volume data", len(buildings))

	var updatesMu sync.Mutex
	var updates []db.FloorAreaUpdate

	process := func(_ context.Context, b db.Building) pipeline.Row {
		res := floorarea.Estimate(floorarea.Input{
			FootprintAreaM2: b.FootprintAreaM2,
			VolumeM3:        b.VolumeM3,
			HasVolume:       b.HasVolume,
			MeanHeightM:     b.MeanHeightM,
			HasMeanHeight:   b.HasMeanHeight,
			GKAT:            b.GKAT,
			GKLAS:           b.GKLAS,
		})
		if writeToDB && res.Status == floorarea.StatusSuccess {
			updatesMu.Lock()
			updates = append(updates, db.FloorAreaUpdate{
				ID: b.ID, FloorAreaTotalM2: res.FloorAreaEstM2, FloorAreaAboveGroundM2: res.FloorAreaEstM2,
				AreaAccuracy: string(res.Accuracy), FloorsTotal: res.FloorsEst, FloorsAbove: res.FloorsEst,
				FloorsAccuracy: string(res.Accuracy),
			})
			updatesMu.Unlock()
		}
		return floorAreaRow{b: b, res: res}
	}

	stem := output
	if stem == "" {
		stem = os.TempDir() + "/floor-area-estimator-run"
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
		if err := repo.EnsureFloorAreaColumns(ctx, query.TableName); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		count, err := repo.UpdateFloorArea(ctx, query.TableName, updates)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		log.Printf("updated %d buildings in database", count)
	}

	return nil
}
