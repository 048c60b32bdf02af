package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/swissgeo/buildingattrs/internal/geom"
)

// parsePolygonWKT parses the outer ring of a WKT POLYGON or MULTIPOLYGON,
// which is all ST_AsText ever hands back for the geography columns this
// package reads. Inner rings (holes) are discarded: no module downstream of
// the footprint loader needs them.
func parsePolygonWKT(wkt string) (geom.Ring, error) {
	wkt = strings.TrimSpace(wkt)
	upper := strings.ToUpper(wkt)

	var body string
	switch {
	case strings.HasPrefix(upper, "POLYGON"):
		body = wkt[len("POLYGON"):]
	case strings.HasPrefix(upper, "MULTIPOLYGON"):
		body = wkt[len("MULTIPOLYGON"):]
	default:
		return nil, fmt.Errorf("unsupported WKT geometry type: %q", firstToken(wkt))
	}

	coords := firstCoordList(body)
	if coords == "" {
		return nil, fmt.Errorf("malformed WKT: empty coordinate list")
	}

	var ring geom.Ring
	for _, pair := range strings.Split(coords, ",") {
		fields := strings.Fields(strings.TrimSpace(pair))
		if len(fields) < 2 {
			continue
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing X coordinate %q: %w", fields[0], err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing Y coordinate %q: %w", fields[1], err)
		}
		ring = append(ring, geom.Point{X: x, Y: y})
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("degenerate ring: %d points", len(ring))
	}
	return ring, nil
}

// firstCoordList returns the text inside the first innermost parenthesized
// group in body: the outer ring's coordinate list, whether body is a
// POLYGON's single wrapping or a MULTIPOLYGON's extra nesting, since the
// first ')' encountered always closes the most recently opened (and
// therefore innermost, hole-free) group.
func firstCoordList(body string) string {
	var starts []int
	for i, r := range body {
		switch r {
		case '(':
			starts = append(starts, i+1)
		case ')':
			if len(starts) == 0 {
				continue
			}
			start := starts[len(starts)-1]
			return body[start:i]
		}
	}
	return ""
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}
