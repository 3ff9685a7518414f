package grid

import (
	"encoding/json"
	"fmt"
	"io"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	Properties featureProperties `json:"properties"`
	Geometry   geometry          `json:"geometry"`
}

type featureProperties struct {
	CellID int     `json:"cell_id"`
	Area   float64 `json:"area"`
}

type geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// WriteGeoJSON dumps the cell polygons as a GeoJSON FeatureCollection, one
// feature per cell with its id and area as properties.
func (g *Grid) WriteGeoJSON(w io.Writer) error {
	fc := featureCollection{Type: "FeatureCollection"}
	for id := range g.polygons {
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			Properties: featureProperties{
				CellID: id,
				Area:   g.cellArea,
			},
			Geometry: geometry{
				Type:        "Polygon",
				Coordinates: [][][2]float64{g.polygons[id]},
			},
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("grid: encode geojson: %w", err)
	}
	return nil
}
