package domain

import (
	"context"
	"log/slog"
	"math"
)

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat       float64
	Lon       float64
	PlaceName string
	// Confidence is the provider's relevance score in [0, 1].
	Confidence float64
}

// Found reports whether the provider returned a location.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a place name, optionally qualified by a region, to coordinates.
	ForwardGeocode(ctx context.Context, name, region string) (GeocodingResult, error)
}

// Map view sources.
const (
	ViewFromBounds   = "bounds"
	ViewFromGeocoder = "geocoded"
	ViewDefault      = "default"
	ViewFailed       = "failed"
)

// Geographic centre of the contiguous United States.
const (
	usCenterLat = 39.83
	usCenterLon = -98.58
	usZoom      = 4
	stateZoom   = 6
)

// MapView is the initial viewport for a choropleth.
type MapView struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      int     `json:"zoom"`
	Source    string  `json:"source"`
}

// CenterMap picks the viewport for c. Matched regions define it directly;
// otherwise the state name is geocoded, and on failure or without a geocoder
// the view falls back to the whole country.
func CenterMap(ctx context.Context, c Choropleth, geocoder Geocoder, logger *slog.Logger) MapView {
	if b, ok := c.Bound(); ok {
		center := b.Center()
		return MapView{
			CenterLat: center.Lat(),
			CenterLon: center.Lon(),
			Zoom:      zoomForSpan(math.Max(b.Max.Lon()-b.Min.Lon(), b.Max.Lat()-b.Min.Lat())),
			Source:    ViewFromBounds,
		}
	}

	fallback := MapView{CenterLat: usCenterLat, CenterLon: usCenterLon, Zoom: usZoom, Source: ViewDefault}
	if geocoder == nil || c.State == "" {
		return fallback
	}

	result, err := geocoder.ForwardGeocode(ctx, c.State, "United States")
	if err != nil {
		logger.Warn("forward geocoding failed",
			"state", c.State,
			"error", err,
		)
		fallback.Source = ViewFailed
		return fallback
	}
	if !result.Found() {
		return fallback
	}
	return MapView{CenterLat: result.Lat, CenterLon: result.Lon, Zoom: stateZoom, Source: ViewFromGeocoder}
}

// zoomForSpan maps the larger side of a bounding box, in degrees, to a web
// map zoom level.
func zoomForSpan(span float64) int {
	if span <= 0 {
		return 10
	}
	z := int(math.Floor(math.Log2(360 / span)))
	return max(3, min(z, 10))
}
