// Package shapefile reads county boundaries from a zipped ESRI shapefile.
package shapefile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
)

const (
	// KeyField is the attribute holding the county FIPS code.
	KeyField  = "FIPS_BEA"
	nameField = "NAME"
)

// Reader loads county geometry from a zip archive holding one shapefile.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a shapefile reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadGeometry returns one CountyGeometry per polygon record in the archive,
// in file order. Non-polygon records are skipped.
func (r *Reader) ReadGeometry(ctx context.Context, path string) ([]domain.CountyGeometry, error) {
	zr, err := shp.OpenZip(path)
	if err != nil {
		return nil, fmt.Errorf("open geometry %s: %w: %w", path, domain.ErrSourceUnavailable, err)
	}
	defer zr.Close()

	keyIdx, nameIdx := -1, -1
	for i, f := range zr.Fields() {
		switch strings.ToUpper(strings.TrimSpace(f.String())) {
		case KeyField:
			keyIdx = i
		case nameField:
			nameIdx = i
		}
	}
	if keyIdx < 0 {
		return nil, fmt.Errorf("read geometry %s: %w: attribute %s not found", path, domain.ErrSchema, KeyField)
	}

	var (
		out     []domain.CountyGeometry
		skipped int
	)
	for zr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, shape := zr.Shape()
		geom, ok := toGeometry(shape)
		if !ok {
			skipped++
			continue
		}
		g := domain.CountyGeometry{
			FIPS:     attribute(zr, keyIdx),
			Geometry: geom,
		}
		if nameIdx >= 0 {
			g.Name = attribute(zr, nameIdx)
		}
		out = append(out, g)
	}
	if err := zr.Err(); err != nil {
		return nil, fmt.Errorf("read geometry %s: %w: %w", path, domain.ErrSourceUnavailable, err)
	}

	r.logger.Info("geometry loaded", "path", path, "counties", len(out), "skipped", skipped)
	return out, nil
}

// attribute strips the space and NUL padding of fixed-width dbf fields.
func attribute(zr *shp.ZipReader, i int) string {
	return strings.Trim(zr.Attribute(i), " \x00")
}

func toGeometry(shape shp.Shape) (orb.Geometry, bool) {
	switch s := shape.(type) {
	case *shp.Polygon:
		return polygonFromRings(s.Parts, s.Points)
	case *shp.PolygonZ:
		return polygonFromRings(s.Parts, s.Points)
	case *shp.PolygonM:
		return polygonFromRings(s.Parts, s.Points)
	}
	return nil, false
}

// polygonFromRings groups shapefile rings into polygons. Shapefiles store
// outer rings clockwise and holes counter-clockwise; each outer ring opens a
// new polygon. Rings are reversed so outer rings run counter-clockwise as
// GeoJSON expects.
func polygonFromRings(parts []int32, points []shp.Point) (orb.Geometry, bool) {
	var polys orb.MultiPolygon
	for i := range parts {
		start := int(parts[i])
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if start < 0 || end > len(points) || end-start < 4 {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}

		isHole := ring.Orientation() == orb.CCW
		ring.Reverse()
		if isHole && len(polys) > 0 {
			polys[len(polys)-1] = append(polys[len(polys)-1], ring)
			continue
		}
		polys = append(polys, orb.Polygon{ring})
	}

	switch len(polys) {
	case 0:
		return nil, false
	case 1:
		return polys[0], true
	default:
		return polys, true
	}
}
