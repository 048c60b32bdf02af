// Package geom provides the minimal 2D/3D computational geometry primitives
// the building-attribute pipeline needs: polygon rings, centroids, rotation,
// point-in-polygon testing, convex hulls and minimum-area bounding rectangles.
package geom

import "math"

// Point is a 2D point in planar (projected) coordinates, typically LV95
// easting/northing metres.
type Point struct {
	X, Y float64
}

// Point3 is a 3D vertex, Z in metres above sea level.
type Point3 struct {
	X, Y, Z float64
}

// XY drops the Z coordinate.
func (p Point3) XY() Point { return Point{X: p.X, Y: p.Y} }

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether p lies within r, inclusive of the boundary.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Intersects reports whether r and o overlap (including touching edges).
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && r.MaxX >= o.MinX && r.MinY <= o.MaxY && r.MaxY >= o.MinY
}

// Width returns the rectangle's extent along X.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the rectangle's extent along Y.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Ring is a closed polygon boundary: a sequence of vertices, first and last
// not required to be equal (Contains/Area close it implicitly).
type Ring []Point

// Bounds returns the axis-aligned bounding box of the ring. Returns a
// zero-value Rect if the ring is empty.
func (r Ring) Bounds() Rect {
	if len(r) == 0 {
		return Rect{}
	}
	b := Rect{MinX: r[0].X, MinY: r[0].Y, MaxX: r[0].X, MaxY: r[0].Y}
	for _, p := range r[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// Area returns the signed area of the ring via the shoelace formula.
// Positive for counter-clockwise vertex order, negative for clockwise.
func (r Ring) Area() float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return sum / 2
}

// AbsArea returns the unsigned area.
func (r Ring) AbsArea() float64 { return math.Abs(r.Area()) }

// Centroid returns the area-weighted centroid of the ring. Falls back to the
// arithmetic mean of vertices if the ring is degenerate (zero area).
func (r Ring) Centroid() Point {
	n := len(r)
	if n == 0 {
		return Point{}
	}
	area := r.Area()
	if math.Abs(area) < 1e-9 {
		var sx, sy float64
		for _, p := range r {
			sx += p.X
			sy += p.Y
		}
		return Point{X: sx / float64(n), Y: sy / float64(n)}
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := r[i].X*r[j].Y - r[j].X*r[i].Y
		cx += (r[i].X + r[j].X) * cross
		cy += (r[i].Y + r[j].Y) * cross
	}
	factor := 1.0 / (6 * area)
	return Point{X: cx * factor, Y: cy * factor}
}

// Rotate returns a new ring with every vertex rotated by angle radians
// (counter-clockwise) around origin.
func (r Ring) Rotate(origin Point, angle float64) Ring {
	sin, cos := math.Sincos(angle)
	out := make(Ring, len(r))
	for i, p := range r {
		dx, dy := p.X-origin.X, p.Y-origin.Y
		out[i] = Point{
			X: origin.X + dx*cos - dy*sin,
			Y: origin.Y + dx*sin + dy*cos,
		}
	}
	return out
}

// ContainsPoint reports whether p lies inside or on the boundary of the
// ring, using a ray-casting test for the interior and an explicit
// on-segment check so that boundary points ("touches") count as contained,
// matching the grid sampler's "contains or touches" requirement.
func (r Ring) ContainsPoint(p Point) bool {
	n := len(r)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		if onSegment(r[i], r[j], p) {
			return true
		}
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := r[i], r[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			xCross := pi.X + (p.Y-pi.Y)*(pj.X-pi.X)/(pj.Y-pi.Y)
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p Point) bool {
	const eps = 1e-9
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > eps {
		return false
	}
	dot := (p.X-a.X)*(b.X-a.X) + (p.Y-a.Y)*(b.Y-a.Y)
	if dot < -eps {
		return false
	}
	lenSq := (b.X-a.X)*(b.X-a.X) + (b.Y-a.Y)*(b.Y-a.Y)
	return dot <= lenSq+eps
}
