package geo

import (
	"fmt"
	"math"
)

// BoundingBox is a non-degenerate, axis aligned geographic rectangle.
// Corners are kept in normalized Mercator space; the projection is only used
// to move to and from EastNorth and LatLon.
type BoundingBox struct {
	nw, se NormMerc
	proj   Projection
}

// NewBoundingBox builds a box from normalized Mercator corners.
func NewBoundingBox(nw, se NormMerc, p Projection) (BoundingBox, error) {
	if !(nw.X < se.X) || !(nw.Y < se.Y) {
		return BoundingBox{}, errorf(ErrInvalidGeometry,
			"north-west corner %v must be strictly west and north of south-east corner %v", nw, se)
	}
	return newBoundingBox(nw, se, p)
}

// NewBoundingBoxLatLon builds a box from geographic corners.
func NewBoundingBoxLatLon(nw, se LatLon, p Projection) (BoundingBox, error) {
	if !(nw.Lon() < se.Lon()) || !(nw.Lat() > se.Lat()) {
		return BoundingBox{}, errorf(ErrInvalidGeometry,
			"north-west corner %v must be strictly west and north of south-east corner %v", nw, se)
	}
	return newBoundingBox(nw.NormMerc(), se.NormMerc(), p)
}

// NewBoundingBoxEastNorth builds a box from planar corners in the units of p.
func NewBoundingBoxEastNorth(nw, se EastNorth, p Projection) (BoundingBox, error) {
	if !(nw.E < se.E) || !(nw.N > se.N) {
		return BoundingBox{}, errorf(ErrInvalidGeometry,
			"north-west corner %v must be strictly west and north of south-east corner %v", nw, se)
	}
	if p == nil {
		return BoundingBox{}, errorf(ErrInvalidGeometry, "bounding box needs a projection")
	}
	return newBoundingBox(p.ToLatLon(nw).NormMerc(), p.ToLatLon(se).NormMerc(), p)
}

// newBoundingBox checks the canonical corners, which may have collapsed
// while converting from another coordinate system.
func newBoundingBox(nw, se NormMerc, p Projection) (BoundingBox, error) {
	if p == nil {
		return BoundingBox{}, errorf(ErrInvalidGeometry, "bounding box needs a projection")
	}
	if !(nw.X < se.X) || !(nw.Y < se.Y) {
		return BoundingBox{}, errorf(ErrInvalidGeometry,
			"corners %v and %v collapse to a degenerate box", nw, se)
	}
	return BoundingBox{nw: nw, se: se, proj: p}, nil
}

// NW returns the north-west corner in normalized Mercator space.
func (b BoundingBox) NW() NormMerc { return b.nw }

// SE returns the south-east corner in normalized Mercator space.
func (b BoundingBox) SE() NormMerc { return b.se }

func (b BoundingBox) NWLatLon() LatLon { return b.nw.LatLon() }
func (b BoundingBox) SELatLon() LatLon { return b.se.LatLon() }

func (b BoundingBox) NWEastNorth() EastNorth { return b.proj.ToEastNorth(b.nw.LatLon()) }
func (b BoundingBox) SEEastNorth() EastNorth { return b.proj.ToEastNorth(b.se.LatLon()) }

// Projection returns the projection the box was built with.
func (b BoundingBox) Projection() Projection { return b.proj }

// DX is the width in normalized Mercator units.
func (b BoundingBox) DX() float64 { return b.se.X - b.nw.X }

// DY is the height in normalized Mercator units.
func (b BoundingBox) DY() float64 { return b.se.Y - b.nw.Y }

// DE is the width in the projection's units.
func (b BoundingBox) DE() float64 { return b.SEEastNorth().E - b.NWEastNorth().E }

// DN is the height in the projection's units.
func (b BoundingBox) DN() float64 { return b.NWEastNorth().N - b.SEEastNorth().N }

// equalTolerance absorbs the rounding of a round trip through LatLon or
// EastNorth, about 40 micrometers on the ground.
const equalTolerance = 1e-12

// Equal reports whether both boxes describe the same extent, whatever
// coordinate system they were built from. The projections are not compared.
func (b BoundingBox) Equal(o BoundingBox) bool {
	return b.ApproxEqual(o, equalTolerance)
}

// ApproxEqual reports whether every corner coordinate of b and o differs by
// at most tol normalized Mercator units.
func (b BoundingBox) ApproxEqual(o BoundingBox, tol float64) bool {
	return math.Abs(b.nw.X-o.nw.X) <= tol && math.Abs(b.nw.Y-o.nw.Y) <= tol &&
		math.Abs(b.se.X-o.se.X) <= tol && math.Abs(b.se.Y-o.se.Y) <= tol
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("BoundingBox[%v - %v]", b.nw, b.se)
}

// Intersecting reports whether a and b overlap on both axes. Boxes that only
// share an edge do not intersect.
func Intersecting(a, b BoundingBox) bool {
	return a.nw.X < b.se.X && b.nw.X < a.se.X &&
		a.nw.Y < b.se.Y && b.nw.Y < a.se.Y
}

// Intersect returns the overlap of a and b, using a's projection.
func Intersect(a, b BoundingBox) (BoundingBox, error) {
	if !Intersecting(a, b) {
		return BoundingBox{}, errorf(ErrNonIntersecting, "%v and %v", a, b)
	}
	nw := NormMerc{X: math.Max(a.nw.X, b.nw.X), Y: math.Max(a.nw.Y, b.nw.Y)}
	se := NormMerc{X: math.Min(a.se.X, b.se.X), Y: math.Min(a.se.Y, b.se.Y)}
	return newBoundingBox(nw, se, a.proj)
}

// Union returns the smallest box containing a and b, using a's projection.
func Union(a, b BoundingBox) BoundingBox {
	return BoundingBox{
		nw:   NormMerc{X: math.Min(a.nw.X, b.nw.X), Y: math.Min(a.nw.Y, b.nw.Y)},
		se:   NormMerc{X: math.Max(a.se.X, b.se.X), Y: math.Max(a.se.Y, b.se.Y)},
		proj: a.proj,
	}
}
