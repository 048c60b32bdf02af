package raster

import "strconv"

// GeoTIFF GeoKey IDs.
const (
	gkGeographicTypeGeoKey  = 2048
	gkProjectedCSTypeGeoKey = 3072
)

// GeoInfo holds the georeferencing metadata needed to place raster cells in
// the source CRS (always EPSG:2056 for this pipeline's inputs).
type GeoInfo struct {
	EPSG       int
	OriginX    float64 // easting of the upper-left pixel corner
	OriginY    float64 // northing of the upper-left pixel corner
	PixelSizeX float64
	PixelSizeY float64
	NoData     float64
	HasNoData  bool
}

func parseGeoInfo(ifd *IFD) GeoInfo {
	info := GeoInfo{}

	if len(ifd.ModelPixelScale) >= 2 {
		info.PixelSizeX = ifd.ModelPixelScale[0]
		info.PixelSizeY = ifd.ModelPixelScale[1]
	}

	if len(ifd.ModelTiepoint) >= 6 {
		info.OriginX = ifd.ModelTiepoint[3] - ifd.ModelTiepoint[0]*info.PixelSizeX
		info.OriginY = ifd.ModelTiepoint[4] + ifd.ModelTiepoint[1]*info.PixelSizeY
	}

	info.EPSG = parseEPSG(ifd.GeoKeys)

	if ifd.NoDataText != "" {
		if v, err := strconv.ParseFloat(trimNull(ifd.NoDataText), 64); err == nil {
			info.NoData = v
			info.HasNoData = true
		}
	}

	return info
}

func trimNull(s string) string {
	for i, r := range s {
		if r == 0 {
			return s[:i]
		}
	}
	return s
}

func parseEPSG(geoKeys []uint16) int {
	if len(geoKeys) < 4 {
		return 0
	}
	numKeys := int(geoKeys[3])
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(geoKeys) {
			break
		}
		keyID := geoKeys[base]
		valueOffset := geoKeys[base+3]
		switch keyID {
		case gkProjectedCSTypeGeoKey, gkGeographicTypeGeoKey:
			if valueOffset > 0 {
				return int(valueOffset)
			}
		}
	}
	return 0
}
