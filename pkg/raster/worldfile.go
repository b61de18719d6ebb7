package raster

import (
	"bytes"
	"fmt"

	"github.com/kiesman99/tilecut/pkg/geo"
)

// WorldFile renders the ESRI world file georeferencing box: pixel size x,
// two rotation terms, negative pixel size y, then the east and north of the
// top-left corner.
func WorldFile(box geo.ImageBox) []byte {
	px, py := box.PixelSize()
	nw := box.Bound().NWEastNorth()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%24.10f\n", px)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", -py)
	fmt.Fprintf(&buf, "%24.10f\n", nw.E)
	fmt.Fprintf(&buf, "%24.10f\n", nw.N)
	return buf.Bytes()
}

// WorldFileExt returns the world file extension paired with f.
func WorldFileExt(f Format) string {
	switch f {
	case PNG:
		return "pgw"
	case JPEG:
		return "jgw"
	}
	return "tfw"
}
