// Package roof classifies a building mesh's faces into footprint, wall,
// flat-roof and sloped-roof surfaces, then derives a roof-shape label from
// the azimuthal distribution of the sloped faces.
package roof

import (
	"math"
	"sort"

	"github.com/swissgeo/buildingattrs/internal/mesh"
)

// Shape is the classified roof geometry.
type Shape string

const (
	ShapeFlat    Shape = "flat"
	ShapeGable   Shape = "gable"
	ShapeHip     Shape = "hip"
	ShapeShed    Shape = "shed"
	ShapeMansard Shape = "mansard"
	ShapeComplex Shape = "complex"
	ShapeUnknown Shape = "unknown"
)

const orientationToleranceDeg = 10.0

type orientation int

const (
	orientHorizontalUp orientation = iota
	orientHorizontalDown
	orientVertical
	orientSloped
)

type classifiedFace struct {
	area       float64
	centroidZ  float64
	slopeDeg   float64
	azimuthDeg float64
	orient     orientation
}

// Result is the full roof/mesh analysis output for one building.
type Result struct {
	FootprintAreaM2  float64
	WallAreaM2       float64
	FlatRoofAreaM2   float64
	SlopedRoofAreaM2 float64
	TotalSurfaceM2   float64

	Shape         Shape
	Confidence    float64
	PrimarySlope  float64
	SecondarySlope float64
	PrimaryAzimuth float64
	RidgeOrientation float64
	HasRidgeOrientation bool

	BuildingHeightM float64
	EaveHeightM     float64
	RidgeHeightM    float64
	WallPerimeterM  float64

	FootprintFaces int
	WallFaces      int
	FlatRoofFaces  int
	SlopedFaces    int
}

// Analyze classifies every face of m and derives roof-shape and area metrics.
func Analyze(m mesh.Mesh) Result {
	faces := make([]classifiedFace, len(m.Faces))
	var totalSurface float64
	minElev, maxElev := math.Inf(1), math.Inf(-1)
	for _, v := range m.Vertices {
		if v.Z < minElev {
			minElev = v.Z
		}
		if v.Z > maxElev {
			maxElev = v.Z
		}
	}

	for i, f := range m.Faces {
		n, area, centroid := mesh.FaceNormal(m, f)
		slope := math.Acos(math.Min(1, math.Abs(n.Z))) * 180 / math.Pi
		azimuth := math.Atan2(n.X, n.Y) * 180 / math.Pi
		if azimuth < 0 {
			azimuth += 360
		}

		faces[i] = classifiedFace{
			area:       area,
			centroidZ:  centroid.Z,
			slopeDeg:   slope,
			azimuthDeg: azimuth,
			orient:     classifyOrientation(n.Z),
		}
		totalSurface += area
	}

	var horizontal []classifiedFace
	var vertical []classifiedFace
	var sloped []classifiedFace
	for _, f := range faces {
		switch f.orient {
		case orientHorizontalUp, orientHorizontalDown:
			horizontal = append(horizontal, f)
		case orientVertical:
			vertical = append(vertical, f)
		case orientSloped:
			sloped = append(sloped, f)
		}
	}

	footprintFaces, flatRoofFaces := splitHorizontal(horizontal)

	var footprintArea, flatRoofArea, wallArea float64
	for _, f := range footprintFaces {
		footprintArea += f.area
	}
	for _, f := range flatRoofFaces {
		flatRoofArea += f.area
	}
	for _, f := range vertical {
		wallArea += f.area
	}

	footprintZ := 0.0
	if len(footprintFaces) > 0 {
		var sum float64
		for _, f := range footprintFaces {
			sum += f.centroidZ
		}
		footprintZ = sum / float64(len(footprintFaces))
	}

	var slopedRoofFaces []classifiedFace
	for _, f := range sloped {
		if f.centroidZ > footprintZ+0.5 {
			slopedRoofFaces = append(slopedRoofFaces, f)
		}
	}
	var slopedRoofArea float64
	for _, f := range slopedRoofFaces {
		slopedRoofArea += f.area
	}

	res := Result{
		FootprintAreaM2:  footprintArea,
		WallAreaM2:       wallArea,
		FlatRoofAreaM2:   flatRoofArea,
		SlopedRoofAreaM2: slopedRoofArea,
		TotalSurfaceM2:   totalSurface,
		FootprintFaces:   len(footprintFaces),
		WallFaces:        len(vertical),
		FlatRoofFaces:    len(flatRoofFaces),
		SlopedFaces:      len(slopedRoofFaces),
	}

	if len(m.Vertices) > 0 {
		res.BuildingHeightM = maxElev - minElev
		res.RidgeHeightM = maxElev
	}
	if len(vertical) > 0 {
		maxVertZ := math.Inf(-1)
		for _, f := range vertical {
			if f.centroidZ > maxVertZ {
				maxVertZ = f.centroidZ
			}
		}
		res.EaveHeightM = maxVertZ - minElev
	}
	if wallArea > 0 && res.BuildingHeightM > 0 {
		res.WallPerimeterM = wallArea / res.BuildingHeightM
	}

	classifyShape(&res, slopedRoofFaces)
	return res
}

func classifyOrientation(nz float64) orientation {
	tol := orientationToleranceDeg * math.Pi / 180
	absNz := math.Abs(nz)
	switch {
	case absNz > math.Cos(tol):
		if nz > 0 {
			return orientHorizontalUp
		}
		return orientHorizontalDown
	case absNz < math.Sin(tol):
		return orientVertical
	default:
		return orientSloped
	}
}

func splitHorizontal(horizontal []classifiedFace) (footprint, flatRoof []classifiedFace) {
	if len(horizontal) == 0 {
		return nil, nil
	}
	zMin, zMax := math.Inf(1), math.Inf(-1)
	for _, f := range horizontal {
		if f.centroidZ < zMin {
			zMin = f.centroidZ
		}
		if f.centroidZ > zMax {
			zMax = f.centroidZ
		}
	}
	zRange := zMax - zMin
	var threshold float64
	if zRange < 0.01 {
		threshold = zMin + 0.1
	} else {
		threshold = zMin + 0.1*zRange
	}

	for _, f := range horizontal {
		if f.centroidZ <= threshold {
			footprint = append(footprint, f)
		} else {
			flatRoof = append(flatRoof, f)
		}
	}
	return footprint, flatRoof
}

type sector struct {
	index      int
	area       float64
	weightedSlope   float64
	weightedAzSin   float64
	weightedAzCos   float64
}

func (s sector) meanSlope() float64 {
	if s.area == 0 {
		return 0
	}
	return s.weightedSlope / s.area
}

func (s sector) meanAzimuth() float64 {
	if s.area == 0 {
		return 0
	}
	az := math.Atan2(s.weightedAzSin/s.area, s.weightedAzCos/s.area) * 180 / math.Pi
	if az < 0 {
		az += 360
	}
	return az
}

func classifyShape(res *Result, slopedRoofFaces []classifiedFace) {
	rTotal := res.FlatRoofAreaM2 + res.SlopedRoofAreaM2
	if rTotal == 0 {
		res.Shape = ShapeUnknown
		res.Confidence = 0
		return
	}

	flatRatio := res.FlatRoofAreaM2 / rTotal

	if flatRatio > 0.85 {
		res.Shape = ShapeFlat
		res.Confidence = flatRatio
		res.PrimarySlope = meanSlope(slopedRoofFaces)
		return
	}
	if len(slopedRoofFaces) == 0 {
		res.Shape = ShapeFlat
		res.Confidence = 1
		return
	}

	sectors := binBySector(slopedRoofFaces)
	significant := significantSectors(sectors, res.SlopedRoofAreaM2)
	sort.Slice(significant, func(i, j int) bool { return significant[i].area > significant[j].area })

	switch {
	case len(significant) == 1:
		res.Shape = ShapeShed
		res.Confidence = 0.8
	case len(significant) == 2 && azimuthsOpposite(significant[0].meanAzimuth(), significant[1].meanAzimuth()):
		res.Shape = ShapeGable
		res.Confidence = 0.85
		res.RidgeOrientation = math.Mod(significant[0].meanAzimuth()+90, 360)
		res.HasRidgeOrientation = true
	case len(significant) >= 4 && coefficientOfVariation(significant) < 0.5:
		res.Shape = ShapeHip
		res.Confidence = 0.8
	case len(significant) >= 3 && maxSlope(slopedRoofFaces) > 60 && minSlope(slopedRoofFaces) < 40:
		res.Shape = ShapeMansard
		res.Confidence = 0.7
	case len(significant) > 4 || (len(significant) > 2 && flatRatio > 0.2):
		res.Shape = ShapeComplex
		res.Confidence = 0.6
	default:
		res.Shape = ShapeComplex
		res.Confidence = 0.5
	}

	if len(significant) > 0 {
		res.PrimaryAzimuth = significant[0].meanAzimuth()
		res.PrimarySlope = significant[0].meanSlope()
	}
	if len(significant) > 1 {
		res.SecondarySlope = significant[1].meanSlope()
	}
}

func binBySector(faces []classifiedFace) map[int]*sector {
	sectors := make(map[int]*sector)
	for _, f := range faces {
		idx := int(math.Floor((f.azimuthDeg+22.5)/45)) % 8
		if idx < 0 {
			idx += 8
		}
		s, ok := sectors[idx]
		if !ok {
			s = &sector{index: idx}
			sectors[idx] = s
		}
		s.area += f.area
		s.weightedSlope += f.slopeDeg * f.area
		rad := f.azimuthDeg * math.Pi / 180
		s.weightedAzSin += math.Sin(rad) * f.area
		s.weightedAzCos += math.Cos(rad) * f.area
	}
	return sectors
}

func significantSectors(sectors map[int]*sector, slopedTotal float64) []sector {
	var out []sector
	for _, s := range sectors {
		if slopedTotal > 0 && s.area > 0.1*slopedTotal {
			out = append(out, *s)
		}
	}
	return out
}

func azimuthsOpposite(a, b float64) bool {
	diff := math.Mod(math.Abs(a-b), 360)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff >= 150 && diff <= 210
}

func coefficientOfVariation(sectors []sector) float64 {
	if len(sectors) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sectors {
		sum += s.area
	}
	mean := sum / float64(len(sectors))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, s := range sectors {
		d := s.area - mean
		variance += d * d
	}
	variance /= float64(len(sectors))
	return math.Sqrt(variance) / mean
}

func meanSlope(faces []classifiedFace) float64 {
	if len(faces) == 0 {
		return 0
	}
	var sum float64
	for _, f := range faces {
		sum += f.slopeDeg
	}
	return sum / float64(len(faces))
}

func maxSlope(faces []classifiedFace) float64 {
	max := math.Inf(-1)
	for _, f := range faces {
		if f.slopeDeg > max {
			max = f.slopeDeg
		}
	}
	return max
}

func minSlope(faces []classifiedFace) float64 {
	min := math.Inf(1)
	for _, f := range faces {
		if f.slopeDeg < min {
			min = f.slopeDeg
		}
	}
	return min
}
