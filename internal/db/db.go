// Package db is the PostGIS repository used by the volume and floor-area
// CLI tools: it
// loads building footprints (and, for the floor-area worker, classification
// codes and a previously-computed volume) and writes estimator results back
// onto the same table. Database driver details are kept at arm's length
// behind this package, per the footprint/classification query shapes the
// Python predecessors used.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swissgeo/buildingattrs/internal/coord"
	"github.com/swissgeo/buildingattrs/internal/geom"
)

// Repo wraps a connection pool against a single `buildings`-shaped table.
type Repo struct {
	pool *pgxpool.Pool
}

// Open connects to connString and verifies the connection is usable.
func Open(ctx context.Context, connString string) (*Repo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Repo{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (r *Repo) Close() { r.pool.Close() }

// Query filters and bounds a buildings read, mirroring the -b/--bbox,
// --building-ids, -l/--limit, --table-name, --geometry-column CLI flags.
type Query struct {
	TableName      string
	GeometryColumn string
	BBoxWGS84      *geom.Rect
	BuildingIDs    []int64
	Limit          int
}

func (q Query) tableName() string {
	if q.TableName == "" {
		return "public.buildings"
	}
	return q.TableName
}

func (q Query) geometryColumn() string {
	if q.GeometryColumn == "" {
		return "geog"
	}
	return q.GeometryColumn
}

// Building is a row loaded from the database. LoadFootprints populates
// Footprint (reprojected to LV95); LoadForFloorArea instead populates the
// classification, footprint-area and volume/height columns already present
// on the table (volume/height as written by the volume pass).
type Building struct {
	ID        int64
	EGID      string
	Footprint geom.Ring // LV95 metres; set by LoadFootprints only

	// Populated only by LoadForFloorArea.
	GKAT             string
	GKLAS            string
	HasFootprintArea bool
	FootprintAreaM2  float64
	HasVolume        bool
	VolumeM3         float64
	HasMeanHeight    bool
	MeanHeightM      float64
}

// LoadFootprints reads building footprints for the volume worker: id, egid
// and the WGS84 footprint polygon, reprojected once to LV95 here since the
// downstream grid sampler works in projected metres.
func (r *Repo) LoadFootprints(ctx context.Context, q Query) ([]Building, error) {
	geomCol := q.geometryColumn()
	sql := fmt.Sprintf(`
		SELECT id, egid, ST_AsText(%s::geometry) AS geom_wkt
		FROM %s
		WHERE %s IS NOT NULL
	`, geomCol, q.tableName(), geomCol)
	sql += whereClause(q, geomCol)

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("querying footprints: %w", err)
	}
	defer rows.Close()

	var out []Building
	for rows.Next() {
		var id int64
		var egid *string
		var wkt string
		if err := rows.Scan(&id, &egid, &wkt); err != nil {
			return nil, fmt.Errorf("scanning footprint row: %w", err)
		}
		ring, err := parsePolygonWKT(wkt)
		if err != nil {
			return nil, fmt.Errorf("building %d: %w", id, err)
		}
		b := Building{ID: id, Footprint: reprojectRing(ring)}
		if egid != nil {
			b.EGID = *egid
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading footprints: %w", err)
	}
	return out, nil
}

// LoadForFloorArea reads footprint area, classification codes (category,
// class — GKAT/GKLAS) and any previously-written volume/height for
// buildings the volume worker has already processed. Unlike LoadFootprints
// it does not read or reproject geometry: the floor-area worker only needs
// the scalar area_footprint_m2 column, not the polygon itself.
func (r *Repo) LoadForFloorArea(ctx context.Context, q Query, includeMissingVolume bool) ([]Building, error) {
	geomCol := q.geometryColumn()
	sql := fmt.Sprintf(`
		SELECT id, egid, area_footprint_m2, volume_above_ground_m3,
		       height_mean_m, category, class
		FROM %s
		WHERE 1=1
	`, q.tableName())
	if !includeMissingVolume {
		sql += " AND volume_above_ground_m3 IS NOT NULL AND volume_above_ground_m3 > 0"
		sql += " AND area_footprint_m2 IS NOT NULL AND area_footprint_m2 > 0"
	}
	sql += whereClause(q, geomCol)

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("querying buildings for floor area: %w", err)
	}
	defer rows.Close()

	var out []Building
	for rows.Next() {
		var id int64
		var egid string
		var footprintArea, volume, meanHeight *float64
		var gkat, gklas *string
		if err := rows.Scan(&id, &egid, &footprintArea, &volume, &meanHeight, &gkat, &gklas); err != nil {
			return nil, fmt.Errorf("scanning floor-area row: %w", err)
		}
		b := Building{ID: id, EGID: egid}
		if footprintArea != nil {
			b.HasFootprintArea = true
			b.FootprintAreaM2 = *footprintArea
		}
		if gkat != nil {
			b.GKAT = *gkat
		}
		if gklas != nil {
			b.GKLAS = *gklas
		}
		if volume != nil {
			b.HasVolume = true
			b.VolumeM3 = *volume
		}
		if meanHeight != nil {
			b.HasMeanHeight = true
			b.MeanHeightM = *meanHeight
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading floor-area rows: %w", err)
	}
	return out, nil
}

func whereClause(q Query, geomCol string) string {
	var sb strings.Builder
	if len(q.BuildingIDs) > 0 {
		ids := make([]string, len(q.BuildingIDs))
		for i, id := range q.BuildingIDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		fmt.Fprintf(&sb, " AND id IN (%s)", strings.Join(ids, ","))
	}
	if q.BBoxWGS84 != nil {
		b := q.BBoxWGS84
		fmt.Fprintf(&sb, " AND ST_Intersects(%s, ST_MakeEnvelope(%f, %f, %f, %f, 4326))",
			geomCol, b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String()
}

// reprojectRing converts a WGS84 ring to LV95 metres.
func reprojectRing(ring geom.Ring) geom.Ring {
	proj := coord.ForEPSG(2056)
	out := make(geom.Ring, len(ring))
	for i, p := range ring {
		x, y := proj.FromWGS84(p.X, p.Y)
		out[i] = geom.Point{X: x, Y: y}
	}
	return out
}

// EnsureVolumeColumns idempotently adds the volume worker's output columns.
func (r *Repo) EnsureVolumeColumns(ctx context.Context, table string) error {
	return r.ensureColumns(ctx, table, []column{
		{"volume_above_ground_m3", "numeric"},
		{"elevation_base_m", "numeric"},
		{"height_mean_m", "numeric"},
		{"height_max_m", "numeric"},
	})
}

// EnsureFloorAreaColumns idempotently adds the floor-area worker's output
// columns.
func (r *Repo) EnsureFloorAreaColumns(ctx context.Context, table string) error {
	return r.ensureColumns(ctx, table, []column{
		{"area_floor_total_m2", "numeric"},
		{"area_floor_above_ground_m2", "numeric"},
		{"area_accuracy", "text"},
		{"floors_total", "integer"},
		{"floors_above", "integer"},
		{"floors_accuracy", "text"},
	})
}

type column struct {
	name string
	typ  string
}

func (r *Repo) ensureColumns(ctx context.Context, table string, cols []column) error {
	for _, c := range cols {
		sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, c.name, c.typ)
		if _, err := r.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("adding column %s: %w", c.name, err)
		}
	}
	return nil
}

// VolumeUpdate is one row of volume-worker output to write back.
type VolumeUpdate struct {
	ID          int64
	VolumeM3    float64
	BaseHeightM float64
	MeanHeightM float64
	MaxHeightM  float64
}

// UpdateVolume writes every successful volume result back in a single
// transaction, matching the Python predecessor's one-commit-per-run shape.
func (r *Repo) UpdateVolume(ctx context.Context, table string, updates []VolumeUpdate) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sql := fmt.Sprintf(`
		UPDATE %s
		SET volume_above_ground_m3 = $1, elevation_base_m = $2,
		    height_mean_m = $3, height_max_m = $4, updated_at = NOW()
		WHERE id = $5
	`, table)

	var count int
	for _, u := range updates {
		if _, err := tx.Exec(ctx, sql, u.VolumeM3, u.BaseHeightM, u.MeanHeightM, u.MaxHeightM, u.ID); err != nil {
			return count, fmt.Errorf("updating building %d: %w", u.ID, err)
		}
		count++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing volume updates: %w", err)
	}
	return count, nil
}

// FloorAreaUpdate is one row of floor-area-worker output to write back.
type FloorAreaUpdate struct {
	ID                    int64
	FloorAreaTotalM2      float64
	FloorAreaAboveGroundM2 float64
	AreaAccuracy          string
	FloorsTotal           int
	FloorsAbove           int
	FloorsAccuracy        string
}

// UpdateFloorArea writes every successful floor-area result back in a
// single transaction.
func (r *Repo) UpdateFloorArea(ctx context.Context, table string, updates []FloorAreaUpdate) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sql := fmt.Sprintf(`
		UPDATE %s
		SET area_floor_total_m2 = $1, area_floor_above_ground_m2 = $2,
		    area_accuracy = $3, floors_total = $4, floors_above = $5,
		    floors_accuracy = $6, updated_at = NOW()
		WHERE id = $7
	`, table)

	var count int
	for _, u := range updates {
		if _, err := tx.Exec(ctx, sql, u.FloorAreaTotalM2, u.FloorAreaAboveGroundM2,
			u.AreaAccuracy, u.FloorsTotal, u.FloorsAbove, u.FloorsAccuracy, u.ID); err != nil {
			return count, fmt.Errorf("updating building %d: %w", u.ID, err)
		}
		count++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing floor-area updates: %w", err)
	}
	return count, nil
}
