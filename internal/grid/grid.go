// Package grid builds the immutable spatial partition a simulation runs
// over. Cells are addressed by integer ids that define the leading axis of
// every spatial array; ids are row-major (id = x + y*nx) with row zero at
// the top of the extent. Coordinates are assumed to be a projected system
// in metres; no projection handling is attempted.
package grid

import (
	"fmt"
	"math"
)

// Shape selects a cell geometry.
type Shape string

const (
	ShapeSquare  Shape = "square"
	ShapeHexagon Shape = "hexagon"
)

// Config holds the grid construction settings.
type Config struct {
	Shape    Shape
	CellArea float64
	NX       int
	NY       int
	XOff     float64
	YOff     float64
}

// Grid is the constructed cell set. Immutable after New.
type Grid struct {
	shape     Shape
	cellArea  float64
	nx, ny    int
	xoff      float64
	yoff      float64
	centroids [][2]float64
	polygons  [][][2]float64
}

type builder func(cfg Config) (centroids [][2]float64, polygons [][][2]float64)

// Explicit shape table; adding a geometry means adding an entry here.
var builders = map[Shape]builder{
	ShapeSquare:  buildSquare,
	ShapeHexagon: buildHexagon,
}

// New validates the config and constructs the grid.
func New(cfg Config) (*Grid, error) {
	build, ok := builders[cfg.Shape]
	if !ok {
		return nil, fmt.Errorf("grid: unknown shape %q", cfg.Shape)
	}
	if cfg.CellArea <= 0 {
		return nil, fmt.Errorf("grid: cell area must be positive, got %g", cfg.CellArea)
	}
	if cfg.NX < 1 || cfg.NY < 1 {
		return nil, fmt.Errorf("grid: cell counts must be at least 1, got %dx%d", cfg.NX, cfg.NY)
	}
	centroids, polygons := build(cfg)
	return &Grid{
		shape:     cfg.Shape,
		cellArea:  cfg.CellArea,
		nx:        cfg.NX,
		ny:        cfg.NY,
		xoff:      cfg.XOff,
		yoff:      cfg.YOff,
		centroids: centroids,
		polygons:  polygons,
	}, nil
}

func buildSquare(cfg Config) ([][2]float64, [][][2]float64) {
	side := math.Sqrt(cfg.CellArea)
	centroids := make([][2]float64, 0, cfg.NX*cfg.NY)
	polygons := make([][][2]float64, 0, cfg.NX*cfg.NY)
	for y := 0; y < cfg.NY; y++ {
		for x := 0; x < cfg.NX; x++ {
			ox := cfg.XOff + float64(x)*side
			oy := cfg.YOff + float64(cfg.NY-1-y)*side
			centroids = append(centroids, [2]float64{ox + side/2, oy + side/2})
			// Anti-clockwise ring, closed.
			polygons = append(polygons, [][2]float64{
				{ox, oy},
				{ox + side, oy},
				{ox + side, oy + side},
				{ox, oy + side},
				{ox, oy},
			})
		}
	}
	return centroids, polygons
}

func buildHexagon(cfg Config) ([][2]float64, [][][2]float64) {
	// Pointy-top hexagon with the requested area: side from
	// area = (3*sqrt(3)/2) * side^2, apothem = sqrt(3)*side/2.
	side := math.Pow(3, 0.25) * math.Sqrt(2*cfg.CellArea/9)
	apothem := math.Sqrt(3) * side / 2
	proto := [][2]float64{
		{apothem, 0},
		{2 * apothem, 0.5 * side},
		{2 * apothem, 1.5 * side},
		{apothem, 2 * side},
		{0, 1.5 * side},
		{0, 0.5 * side},
		{apothem, 0},
	}
	centroids := make([][2]float64, 0, cfg.NX*cfg.NY)
	polygons := make([][][2]float64, 0, cfg.NX*cfg.NY)
	for y := 0; y < cfg.NY; y++ {
		for x := 0; x < cfg.NX; x++ {
			// Odd rows shift right by one apothem; rows tile at 1.5 sides.
			ox := cfg.XOff + 2*apothem*float64(x) + apothem*float64(y%2)
			oy := cfg.YOff + 1.5*side*float64(cfg.NY-1-y)
			centroids = append(centroids, [2]float64{ox + apothem, oy + side})
			ring := make([][2]float64, len(proto))
			for i, v := range proto {
				ring[i] = [2]float64{v[0] + ox, v[1] + oy}
			}
			polygons = append(polygons, ring)
		}
	}
	return centroids, polygons
}

// CellCount returns the number of cells.
func (g *Grid) CellCount() int {
	return len(g.centroids)
}

// Shape returns the cell geometry.
func (g *Grid) Shape() Shape {
	return g.shape
}

// CellArea returns the configured per-cell area.
func (g *Grid) CellArea() float64 {
	return g.cellArea
}

// NX returns the cell count along the x axis.
func (g *Grid) NX() int {
	return g.nx
}

// NY returns the cell count along the y axis.
func (g *Grid) NY() int {
	return g.ny
}

// Centroid returns the centre point of a cell. Ids run 0..CellCount-1.
func (g *Grid) Centroid(id int) (x, y float64) {
	c := g.centroids[id]
	return c[0], c[1]
}

// Polygon returns a copy of the cell's closed boundary ring.
func (g *Grid) Polygon(id int) [][2]float64 {
	ring := make([][2]float64, len(g.polygons[id]))
	copy(ring, g.polygons[id])
	return ring
}

// Neighbours returns, per cell, the ids of other cells whose centroids lie
// within the given distance. The cell itself is excluded.
func (g *Grid) Neighbours(distance float64) [][]int {
	n := g.CellCount()
	out := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dx := g.centroids[i][0] - g.centroids[j][0]
			dy := g.centroids[i][1] - g.centroids[j][1]
			if math.Hypot(dx, dy) <= distance {
				out[i] = append(out[i], j)
			}
		}
	}
	return out
}
