// Package geo holds the coordinate values, projections and boxes used to map
// geographic extents onto rasters and tiles.
package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// LatLon is a point on the sphere. Angles are kept in radians and are not
// clamped to any range.
type LatLon struct {
	lat s1.Angle
	lon s1.Angle
}

// NewLatLon creates a LatLon from radians
func NewLatLon(lat, lon float64) LatLon {
	return LatLon{lat: s1.Angle(lat), lon: s1.Angle(lon)}
}

// NewLatLonDegrees creates a LatLon from degrees
func NewLatLonDegrees(lat, lon float64) LatLon {
	return LatLon{lat: s1.Angle(lat) * s1.Degree, lon: s1.Angle(lon) * s1.Degree}
}

// LatLonFromS2 converts an s2.LatLng.
func LatLonFromS2(ll s2.LatLng) LatLon {
	return LatLon{lat: ll.Lat, lon: ll.Lng}
}

// Lat returns the latitude in radians.
func (ll LatLon) Lat() float64 { return ll.lat.Radians() }

// Lon returns the longitude in radians.
func (ll LatLon) Lon() float64 { return ll.lon.Radians() }

// LatDegrees returns the latitude in degrees.
func (ll LatLon) LatDegrees() float64 { return ll.lat.Degrees() }

// LonDegrees returns the longitude in degrees.
func (ll LatLon) LonDegrees() float64 { return ll.lon.Degrees() }

// S2 returns the point as an s2.LatLng.
func (ll LatLon) S2() s2.LatLng {
	return s2.LatLng{Lat: ll.lat, Lng: ll.lon}
}

// NormMerc converts the point into normalized Mercator space.
func (ll LatLon) NormMerc() NormMerc {
	return NormMercFromLatLon(ll)
}

func (ll LatLon) String() string {
	return fmt.Sprintf("LatLon(%.10g, %.10g)", ll.LatDegrees(), ll.LonDegrees())
}

// EastNorth is a planar coordinate in the linear units of the projection
// that produced it.
type EastNorth struct {
	E, N float64
}

func (en EastNorth) String() string {
	return fmt.Sprintf("EastNorth(%.10g, %.10g)", en.E, en.N)
}

// NormMerc is a normalized web Mercator coordinate. Both axes span [0, 1]
// for the mapped world, with the origin at the top-left (north-west) corner.
type NormMerc struct {
	X, Y float64
}

// NormMercFromLatLon projects ll into normalized Mercator space. This is a
// fixed closed-form transform and does not depend on any Projection.
func NormMercFromLatLon(ll LatLon) NormMerc {
	lat := ll.Lat()
	return NormMerc{
		X: (ll.Lon() + math.Pi) / (2 * math.Pi),
		Y: (1 - math.Log(math.Tan(lat)+1/math.Cos(lat))/math.Pi) / 2,
	}
}

// LatLon is the inverse of NormMercFromLatLon.
func (nm NormMerc) LatLon() LatLon {
	return NewLatLon(
		math.Atan(math.Sinh(math.Pi*(1-2*nm.Y))),
		2*math.Pi*nm.X-math.Pi,
	)
}

func (nm NormMerc) String() string {
	return fmt.Sprintf("NormMerc(%.10g, %.10g)", nm.X, nm.Y)
}
