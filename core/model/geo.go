package model

import (
	"math"

	"github.com/link-bedside-nurses/dispatch/core/fault"
)

const earthRadiusMeters = 6371000

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks the coordinates fall within valid WGS84 bounds.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return fault.New(fault.KindValidation, "coordinates must be numbers")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fault.New(fault.KindValidation, "latitude %v out of range [-90,90]", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fault.New(fault.KindValidation, "longitude %v out of range [-180,180]", p.Lng)
	}
	return nil
}

// DistanceMeters returns the great-circle distance between two points using
// the haversine formula.
func (p GeoPoint) DistanceMeters(o GeoPoint) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := o.Lat * math.Pi / 180
	dLat := (o.Lat - p.Lat) * math.Pi / 180
	dLng := (o.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
