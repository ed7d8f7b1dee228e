package stormtable

import (
	"fmt"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
)

// ReadStormOutlines loads polygon outlines from an ESRI shapefile, keyed by
// the given string attribute. Shapefile X/Y are longitude/latitude degrees.
func ReadStormOutlines(path, idField string) (map[string]orb.Polygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer reader.Close()

	idIndex := -1
	for i, field := range reader.Fields() {
		if field.String() == idField {
			idIndex = i
			break
		}
	}
	if idIndex < 0 {
		return nil, fmt.Errorf("shapefile has no %q attribute", idField)
	}

	outlines := make(map[string]orb.Polygon)
	for reader.Next() {
		row, shape := reader.Shape()

		polygon, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, fmt.Errorf("shapefile record %d is not a polygon", row)
		}

		id := reader.ReadAttribute(row, idIndex)
		if id == "" {
			return nil, fmt.Errorf("shapefile record %d has empty %q attribute", row, idField)
		}
		if _, exists := outlines[id]; exists {
			return nil, fmt.Errorf("shapefile record %d duplicates id %q", row, id)
		}

		outlines[id] = toOrbPolygon(polygon)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}

	return outlines, nil
}

// MergeStormOutlines replaces each storm's own-outline buffer polygon with
// the higher-fidelity shapefile outline, matched by full ID. Storms without
// a shapefile entry keep their table polygon.
func MergeStormOutlines(storms []*domain.StormObject, outlines map[string]orb.Polygon) int {
	merged := 0
	for _, storm := range storms {
		outline, ok := outlines[storm.FullID]
		if !ok {
			continue
		}
		for key, buffer := range storm.Buffers {
			if key.IsStormPolygon() {
				buffer.LatLngPolygon = outline
				merged++
				break
			}
		}
	}
	return merged
}

// toOrbPolygon splits a shapefile polygon's flat point list into rings at
// its part offsets.
func toOrbPolygon(p *shp.Polygon) orb.Polygon {
	parts := p.Parts
	if len(parts) == 0 {
		parts = []int32{0}
	}

	out := make(orb.Polygon, 0, len(parts))
	for i, start := range parts {
		end := int32(len(p.Points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}

		ring := make(orb.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		out = append(out, ring)
	}
	return out
}
