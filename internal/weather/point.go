package weather

import (
	"github.com/pwscontext/pwscontext/internal/ngsi"
)

// Point is an immutable geographic position. Elevation is in meters and optional.
type Point struct {
	latitude     float64
	longitude    float64
	elevation    float64
	hasElevation bool
}

// NewPoint creates a point without elevation.
func NewPoint(lat, lon float64) (Point, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return Point{}, err
	}
	return Point{latitude: lat, longitude: lon}, nil
}

// NewPointWithElevation creates a point with an elevation in meters.
func NewPointWithElevation(lat, lon, elevation float64) (Point, error) {
	p, err := NewPoint(lat, lon)
	if err != nil {
		return Point{}, err
	}
	p.elevation = elevation
	p.hasElevation = true
	return p, nil
}

// Latitude returns the latitude in decimal degrees.
func (p Point) Latitude() float64 { return p.latitude }

// Longitude returns the longitude in decimal degrees.
func (p Point) Longitude() float64 { return p.longitude }

// Elevation returns the elevation and whether it is known.
func (p Point) Elevation() (float64, bool) { return p.elevation, p.hasElevation }

// Normalize returns the geo:json attribute. Coordinates use GeoJSON order:
// longitude, latitude and elevation when known.
func (p Point) Normalize() *ngsi.Attribute {
	if p.hasElevation {
		return ngsi.GeoPoint(p.longitude, p.latitude, p.elevation)
	}
	return ngsi.GeoPoint(p.longitude, p.latitude)
}

// validateCoordinates checks if coordinates are valid.
func validateCoordinates(lat, lon float64) error {
	if !(lat >= -90 && lat <= 90) {
		return valueErrorf("Unable to set value due to invalid latitude value %v. Valid latitude range is -90 ... 90.", lat)
	}
	if !(lon >= -180 && lon <= 180) {
		return valueErrorf("Unable to set value due to invalid longitude value %v. Valid longitude range is -180 ... 180.", lon)
	}
	return nil
}
