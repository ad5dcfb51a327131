package keycap

import (
	"math"
	"sort"

	clipper "github.com/ctessum/go.clipper"
	"github.com/unixpickle/model3d/model2d"
)

// clipperScale maps millimeter coordinates onto clipper's integer grid,
// giving 0.1 µm resolution, far below any printable feature.
const clipperScale = 1e4

// minRingArea is the smallest ring area (in mm^2) that survives
// resolution. Near-zero slivers are clamped out here rather than allowed
// to propagate into extrusion.
const minRingArea = 1e-4

// Region is a single filled area: one exterior ring plus zero or more
// hole rings. Holes are voids in the exterior, never in each other.
type Region struct {
	Exterior Contour
	Holes    []Contour
}

// Area returns the filled area of the region in mm^2.
func (r *Region) Area() float64 {
	a := math.Abs(ringArea(r.Exterior))
	for _, h := range r.Holes {
		a -= math.Abs(ringArea(h))
	}
	return a
}

// ResolveRegion converts raw glyph contours into a filled region.
//
// Each contour is regularized and validated; degenerate or zero-area
// contours are discarded. Of the survivors, the largest-area ring is the
// exterior, and every other ring spatially contained in it becomes a
// hole. Valid rings outside the exterior are discarded, which keeps the
// result a single connected region; glyphs with genuinely disjoint
// strokes ("i", "%", "=") lose their smaller parts. The final region is
// exterior minus the union of holes.
//
// Returns nil when no valid polygon exists, which upstream treats as
// "nothing to extrude".
func ResolveRegion(contours []Contour) *Region {
	var rings []clipper.Path
	for _, c := range contours {
		if ring, ok := regularizeContour(c); ok {
			rings = append(rings, ring)
		}
	}
	if len(rings) == 0 {
		return nil
	}

	sort.Slice(rings, func(i, j int) bool {
		return math.Abs(clipper.Area(rings[i])) > math.Abs(clipper.Area(rings[j]))
	})

	exterior := rings[0]
	var holes []clipper.Path
	for _, ring := range rings[1:] {
		if pathInsidePath(ring, exterior) {
			holes = append(holes, ring)
		} else {
			Logger().Debug("discarding contour outside exterior",
				"area", math.Abs(clipper.Area(ring))/(clipperScale*clipperScale))
		}
	}

	if len(holes) == 0 {
		return &Region{Exterior: pathToContour(exterior)}
	}

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPath(exterior, clipper.PtSubject, true)
	c.AddPaths(clipper.Paths(holes), clipper.PtClip, true)
	solution, ok := c.Execute1(clipper.CtDifference, clipper.PftNonZero, clipper.PftNonZero)
	if !ok || len(solution) == 0 {
		return nil
	}

	return regionFromPaths(solution)
}

// regularizeContour validates one raw contour and repairs repairable
// self-intersections by taking its non-zero self-union. The returned path
// is the largest resulting ring. The second return is false for contours
// that are degenerate beyond repair or below the area epsilon.
func regularizeContour(c Contour) (clipper.Path, bool) {
	if len(c) < 3 {
		return nil, false
	}
	path := contourToPath(c)

	cl := clipper.NewClipper(clipper.IoNone)
	if !cl.AddPath(path, clipper.PtSubject, true) {
		return nil, false
	}
	solution, ok := cl.Execute1(clipper.CtUnion, clipper.PftNonZero, clipper.PftNonZero)
	if !ok || len(solution) == 0 {
		return nil, false
	}

	best := solution[0]
	bestArea := math.Abs(clipper.Area(best))
	for _, p := range solution[1:] {
		if a := math.Abs(clipper.Area(p)); a > bestArea {
			best, bestArea = p, a
		}
	}
	if bestArea/(clipperScale*clipperScale) < minRingArea {
		return nil, false
	}
	return best, true
}

// regionFromPaths rebuilds a Region from a clipper difference result. The
// largest ring is the exterior; rings with the opposite orientation are
// its holes. Slivers below the epsilon and any detached secondary outers
// are dropped.
func regionFromPaths(paths clipper.Paths) *Region {
	bestIdx := -1
	bestArea := 0.0
	for i, p := range paths {
		if a := math.Abs(clipper.Area(p)); a > bestArea {
			bestIdx, bestArea = i, a
		}
	}
	if bestIdx < 0 || bestArea/(clipperScale*clipperScale) < minRingArea {
		return nil
	}

	exterior := paths[bestIdx]
	exteriorCW := clipper.Orientation(exterior)

	region := &Region{Exterior: pathToContour(exterior)}
	for i, p := range paths {
		if i == bestIdx {
			continue
		}
		if math.Abs(clipper.Area(p))/(clipperScale*clipperScale) < minRingArea {
			continue
		}
		if clipper.Orientation(p) != exteriorCW && pathInsidePath(p, exterior) {
			region.Holes = append(region.Holes, pathToContour(p))
		}
	}
	return region
}

// pathInsidePath reports whether inner lies spatially within outer: every
// vertex of inner is inside outer or on its boundary.
func pathInsidePath(inner, outer clipper.Path) bool {
	if len(inner) == 0 {
		return false
	}
	for _, pt := range inner {
		if clipper.PointInPolygon(pt, outer) == 0 {
			return false
		}
	}
	return true
}

func contourToPath(c Contour) clipper.Path {
	// Drop an explicit closing point; clipper paths are implicitly closed.
	pts := c
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	path := make(clipper.Path, 0, len(pts))
	for _, p := range pts {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(p.X * clipperScale)),
			Y: clipper.CInt(math.Round(p.Y * clipperScale)),
		})
	}
	return path
}

func pathToContour(p clipper.Path) Contour {
	c := make(Contour, 0, len(p)+1)
	for _, pt := range p {
		c = append(c, model2d.Coord{
			X: float64(pt.X) / clipperScale,
			Y: float64(pt.Y) / clipperScale,
		})
	}
	if len(c) > 0 {
		c = append(c, c[0])
	}
	return c
}

// ringArea returns the signed shoelace area of a closed ring in mm^2.
func ringArea(c Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	a := 0.0
	j := len(c) - 1
	for i := 0; i < len(c); i++ {
		a += (c[j].X + c[i].X) * (c[j].Y - c[i].Y)
		j = i
	}
	return -a / 2
}

// ringCentroid returns the area centroid of a closed ring.
func ringCentroid(c Contour) model2d.Coord {
	a := ringArea(c)
	if a == 0 {
		// Degenerate ring: fall back to the vertex mean.
		var sum model2d.Coord
		for _, p := range c {
			sum = sum.Add(p)
		}
		return sum.Scale(1 / float64(len(c)))
	}
	var cx, cy float64
	j := len(c) - 1
	for i := 0; i < len(c); i++ {
		cross := c[j].X*c[i].Y - c[i].X*c[j].Y
		cx += (c[j].X + c[i].X) * cross
		cy += (c[j].Y + c[i].Y) * cross
		j = i
	}
	// The signed area cancels the orientation sign of the cross terms.
	return model2d.Coord{X: cx / (6 * a), Y: cy / (6 * a)}
}
