package keycap

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model2d"
	"github.com/unixpickle/model3d/model3d"
)

// ExtrudeRegion lifts a resolved region into a closed prism spanning z in
// [0, height]: a bottom cap, a top cap, and side walls, with hole walls
// facing inward. The region is first centered on its exterior ring's
// centroid (translation only), so every cutter comes out in a consistent
// local frame regardless of font side-bearing offsets.
//
// Extrusion failure on a malformed region is a recoverable error; callers
// treat it the same as "no region".
func ExtrudeRegion(region *Region, height float64) (*model3d.Mesh, error) {
	if region == nil || len(region.Exterior) < 3 {
		return nil, errors.New("extrude: empty region")
	}
	if height <= 0 {
		return nil, errors.Errorf("extrude: height must be > 0, got %v", height)
	}

	centroid := ringCentroid(region.Exterior)
	mesh2d := model2d.NewMesh()
	addRing(mesh2d, orientRing(region.Exterior, true), centroid)
	for _, h := range region.Holes {
		addRing(mesh2d, orientRing(h, false), centroid)
	}
	if mesh2d.NumSegments() == 0 {
		return nil, errors.New("extrude: degenerate region")
	}

	return profileMesh(mesh2d, height)
}

// orientRing returns ring wound in the requested direction, reversing it
// when its shoelace sign disagrees. Triangulation requires a clockwise
// exterior and counterclockwise holes, regardless of the winding the
// clipping stage happens to emit.
func orientRing(ring Contour, clockwise bool) Contour {
	if (ringArea(ring) < 0) == clockwise {
		return ring
	}
	rev := make(Contour, len(ring))
	for i, p := range ring {
		rev[len(ring)-1-i] = p
	}
	return rev
}

// addRing adds ring to m as closed segments, translated by -center.
func addRing(m *model2d.Mesh, ring Contour, center model2d.Coord) {
	if len(ring) < 3 {
		return
	}
	shifted := make(Contour, len(ring))
	for i, p := range ring {
		shifted[i] = p.Sub(center)
	}
	for i := 1; i < len(shifted); i++ {
		if shifted[i] != shifted[i-1] {
			m.Add(&model2d.Segment{shifted[i-1], shifted[i]})
		}
	}
	if shifted[0] != shifted[len(shifted)-1] {
		m.Add(&model2d.Segment{shifted[len(shifted)-1], shifted[0]})
	}
}

// profileMesh caps and walls the even-odd filled area of m between z=0
// and z=height. model3d panics on regions it cannot triangulate; that is
// converted to an error here so the pipeline can degrade instead of
// crashing a whole batch.
func profileMesh(m *model2d.Mesh, height float64) (mesh *model3d.Mesh, err error) {
	defer func() {
		if r := recover(); r != nil {
			mesh = nil
			err = errors.Errorf("extrude: triangulation failed: %v", r)
		}
	}()
	return model3d.ProfileMesh(m, 0, height), nil
}
