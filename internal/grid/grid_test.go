package grid

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestSquareGridLayout(t *testing.T) {
	g, err := New(Config{Shape: ShapeSquare, CellArea: 100, NX: 10, NY: 10})
	if err != nil {
		t.Fatalf("new grid failed: %v", err)
	}
	if g.CellCount() != 100 {
		t.Fatalf("expected 100 cells got %d", g.CellCount())
	}
	// Row zero is the top of the extent.
	x, y := g.Centroid(0)
	if x != 5 || y != 95 {
		t.Fatalf("cell 0 centroid (%g, %g), expected (5, 95)", x, y)
	}
	x, y = g.Centroid(90)
	if x != 5 || y != 5 {
		t.Fatalf("cell 90 centroid (%g, %g), expected (5, 5)", x, y)
	}
	x, y = g.Centroid(99)
	if x != 95 || y != 5 {
		t.Fatalf("cell 99 centroid (%g, %g), expected (95, 5)", x, y)
	}
}

func TestSquareGridOffsets(t *testing.T) {
	g, err := New(Config{Shape: ShapeSquare, CellArea: 100, NX: 2, NY: 1, XOff: 100, YOff: -50})
	if err != nil {
		t.Fatalf("new grid failed: %v", err)
	}
	x, y := g.Centroid(0)
	if x != 105 || y != -45 {
		t.Fatalf("offset centroid (%g, %g), expected (105, -45)", x, y)
	}
}

func TestSquareNeighboursLateralOnly(t *testing.T) {
	g, err := New(Config{Shape: ShapeSquare, CellArea: 100, NX: 10, NY: 10})
	if err != nil {
		t.Fatalf("new grid failed: %v", err)
	}
	neigh := g.Neighbours(10)
	// Interior cell 55 is (x=5, y=5).
	got := neigh[55]
	want := []int{45, 54, 56, 65}
	if len(got) != len(want) {
		t.Fatalf("cell 55 neighbours %v, expected %v", got, want)
	}
	for i, id := range want {
		if got[i] != id {
			t.Fatalf("cell 55 neighbours %v, expected %v", got, want)
		}
	}
	// Corner cell has two.
	if len(neigh[0]) != 2 {
		t.Fatalf("corner neighbours %v, expected 2", neigh[0])
	}
}

// shoelace computes the signed area of a closed ring.
func shoelace(ring [][2]float64) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}

func TestHexagonCellArea(t *testing.T) {
	g, err := New(Config{Shape: ShapeHexagon, CellArea: 100, NX: 4, NY: 3})
	if err != nil {
		t.Fatalf("new grid failed: %v", err)
	}
	if g.CellCount() != 12 {
		t.Fatalf("expected 12 cells got %d", g.CellCount())
	}
	for id := 0; id < g.CellCount(); id++ {
		area := shoelace(g.Polygon(id))
		if math.Abs(area-100) > 1e-6 {
			t.Fatalf("cell %d area %g, expected 100", id, area)
		}
	}
}

func TestHexagonOddRowOffset(t *testing.T) {
	g, err := New(Config{Shape: ShapeHexagon, CellArea: 100, NX: 2, NY: 2})
	if err != nil {
		t.Fatalf("new grid failed: %v", err)
	}
	// Cell 2 is (x=0, y=1), the odd row, shifted right by one apothem
	// relative to cell 0 directly above it.
	x0, _ := g.Centroid(0)
	x2, _ := g.Centroid(2)
	side := math.Pow(3, 0.25) * math.Sqrt(2*100.0/9)
	apothem := math.Sqrt(3) * side / 2
	if math.Abs((x2-x0)-apothem) > 1e-9 {
		t.Fatalf("odd row shift %g, expected apothem %g", x2-x0, apothem)
	}
}

func TestNewGridRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{Shape: "triangle", CellArea: 100, NX: 2, NY: 2},
		{Shape: ShapeSquare, CellArea: 0, NX: 2, NY: 2},
		{Shape: ShapeSquare, CellArea: 100, NX: 0, NY: 2},
	}
	for _, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Fatalf("expected error for config %+v", cfg)
		}
	}
}

func TestWriteGeoJSON(t *testing.T) {
	g, err := New(Config{Shape: ShapeSquare, CellArea: 100, NX: 2, NY: 2})
	if err != nil {
		t.Fatalf("new grid failed: %v", err)
	}
	var buf bytes.Buffer
	if err := g.WriteGeoJSON(&buf); err != nil {
		t.Fatalf("write geojson failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"FeatureCollection"`) {
		t.Fatalf("missing feature collection: %s", out)
	}
	if !strings.Contains(out, `"cell_id": 3`) {
		t.Fatalf("missing cell id property: %s", out)
	}
}
