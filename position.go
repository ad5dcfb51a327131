package keycap

import "github.com/unixpickle/model3d/model3d"

// overlapMargin sinks the cutter slightly below the engraving surface so
// its overlap with the body is watertight. Zero or negative overlap makes
// the boolean fail or leaves a non-manifold seam.
const overlapMargin = 0.1

// PositionCutter places an extruded cutter in the body's frame: centered
// on the body's horizontal bounding-box center plus the manual offset,
// with the cutter's bottom overlapMargin below the body's bottom face
// (the engraving surface). The input cutter is left untouched.
//
// Mirroring for bottom-face engraving is not done here: it is a property
// of how the contours were generated (see MirrorContours), because
// mirroring a finished solid would invert its face winding and break
// boolean robustness.
func PositionCutter(cutter *model3d.Mesh, body *Body, offsetX, offsetY float64) *model3d.Mesh {
	center := body.Min().Mid(body.Max())
	offset := model3d.Coord3D{
		X: center.X + offsetX,
		Y: center.Y + offsetY,
		Z: body.Min().Z - overlapMargin,
	}
	return cutter.MapCoords(offset.Add)
}
