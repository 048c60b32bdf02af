package geom

import (
	"math"
	"testing"
)

func TestRing_Area(t *testing.T) {
	cases := []struct {
		name string
		ring Ring
		want float64
	}{
		{
			name: "unit square CCW",
			ring: Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
			want: 1,
		},
		{
			name: "10x20 rectangle CCW",
			ring: Ring{{0, 0}, {10, 0}, {10, 20}, {0, 20}},
			want: 200,
		},
		{
			name: "unit square CW is negative",
			ring: Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
			want: -1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.ring.Area(); math.Abs(got-c.want) > 1e-9 {
				t.Errorf("Area() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestRing_Centroid(t *testing.T) {
	square := Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	c := square.Centroid()
	if math.Abs(c.X-1) > 1e-9 || math.Abs(c.Y-1) > 1e-9 {
		t.Errorf("Centroid() = %+v, want {1 1}", c)
	}
}

func TestRing_ContainsPoint(t *testing.T) {
	square := Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	cases := []struct {
		name string
		p    Point
		want bool
	}{
		{"interior", Point{5, 5}, true},
		{"on edge", Point{0, 5}, true},
		{"on corner", Point{10, 10}, true},
		{"outside", Point{15, 5}, false},
		{"outside above", Point{5, 15}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := square.ContainsPoint(c.p); got != c.want {
				t.Errorf("ContainsPoint(%+v) = %v, want %v", c.p, got, c.want)
			}
		})
	}
}

func TestRing_Rotate_PreservesArea(t *testing.T) {
	r := Ring{{0, 0}, {4, 0}, {4, 3}, {0, 3}}
	rotated := r.Rotate(Point{2, 1.5}, math.Pi/4)
	wantArea := r.AbsArea()
	if got := rotated.AbsArea(); math.Abs(got-wantArea) > 1e-6 {
		t.Errorf("Area after rotation = %v, want %v", got, wantArea)
	}
}

func TestRect_Contains(t *testing.T) {
	r := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	if !r.Contains(Point{5, 5}) {
		t.Error("expected rect to contain interior point")
	}
	if r.Contains(Point{11, 5}) {
		t.Error("expected rect to not contain point outside X range")
	}
}

func TestRect_Intersects(t *testing.T) {
	a := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	b := Rect{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}
	c := Rect{MinX: 20, MinY: 20, MaxX: 30, MaxY: 30}
	if !a.Intersects(b) {
		t.Error("touching rects should intersect")
	}
	if a.Intersects(c) {
		t.Error("disjoint rects should not intersect")
	}
}
