package geo

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s2"
)

// EarthRadius is the WGS84 semi-major axis in meters, the radius used by
// EPSG:3857.
const EarthRadius = 6378137.0

// Projection converts between geographic and planar coordinates.
// ToEastNorth and ToLatLon must be inverses of each other to floating point
// tolerance. Implementations are expected to be safe for concurrent use.
type Projection interface {
	ToEastNorth(ll LatLon) EastNorth
	ToLatLon(en EastNorth) LatLon
}

// SphericalProjection is a Mercator projection on a perfect sphere. It is
// meant for tests and rough calculations.
type SphericalProjection struct {
	Radius float64
}

// NewSphericalProjection returns a spherical Mercator projection with the
// given radius.
func NewSphericalProjection(radius float64) SphericalProjection {
	return SphericalProjection{Radius: radius}
}

func (p SphericalProjection) ToEastNorth(ll LatLon) EastNorth {
	return EastNorth{
		E: p.Radius * ll.Lon(),
		N: p.Radius * math.Log(math.Tan(math.Pi/4+ll.Lat()/2)),
	}
}

func (p SphericalProjection) ToLatLon(en EastNorth) LatLon {
	return NewLatLon(
		2*math.Atan(math.Exp(en.N/p.Radius))-math.Pi/2,
		en.E/p.Radius,
	)
}

// MercatorProjection delegates to the Mercator projection of golang/geo.
// Longitudes coming back from ToLatLon are wrapped into [-π, π].
type MercatorProjection struct {
	proj s2.Projection
}

// NewMercatorProjection returns a Mercator projection scaled so that
// east/north are expressed in the units of radius.
func NewMercatorProjection(radius float64) *MercatorProjection {
	return &MercatorProjection{proj: s2.NewMercatorProjection(math.Pi * radius)}
}

func (p *MercatorProjection) ToEastNorth(ll LatLon) EastNorth {
	pt := p.proj.FromLatLng(ll.S2())
	return EastNorth{E: pt.X, N: pt.Y}
}

func (p *MercatorProjection) ToLatLon(en EastNorth) LatLon {
	return LatLonFromS2(p.proj.ToLatLng(r2.Point{X: en.E, Y: en.N}))
}
