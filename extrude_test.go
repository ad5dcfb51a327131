package keycap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"
)

func nestedSquareRegion(t *testing.T) *Region {
	t.Helper()
	region := ResolveRegion([]Contour{
		squareContour(0, 0, 10),
		squareContour(0, 0, 4),
	})
	require.NotNil(t, region)
	return region
}

func meshVertexCount(m *model3d.Mesh) int {
	seen := map[model3d.Coord3D]bool{}
	for _, tri := range m.TriangleSlice() {
		for _, p := range tri {
			seen[p] = true
		}
	}
	return len(seen)
}

func TestExtrudeRegionPrism(t *testing.T) {
	mesh, err := ExtrudeRegion(nestedSquareRegion(t), 1.5)
	require.NoError(t, err)
	require.NotEmpty(t, mesh.TriangleSlice())

	// Closed prism: caps plus walls, watertight.
	assert.False(t, mesh.NeedsRepair())

	min, max := mesh.Min(), mesh.Max()
	assert.InDelta(t, -5, min.X, 1e-3)
	assert.InDelta(t, -5, min.Y, 1e-3)
	assert.InDelta(t, 0, min.Z, 1e-9)
	assert.InDelta(t, 5, max.X, 1e-3)
	assert.InDelta(t, 5, max.Y, 1e-3)
	assert.InDelta(t, 1.5, max.Z, 1e-9)

	// The hole is really a void: its center is outside the solid.
	solid := mesh.Solid()
	assert.False(t, solid.Contains(model3d.Coord3D{X: 0, Y: 0, Z: 0.75}))
	assert.True(t, solid.Contains(model3d.Coord3D{X: 4, Y: 0, Z: 0.75}))
}

func TestExtrudeRegionIdempotent(t *testing.T) {
	region := nestedSquareRegion(t)
	a, err := ExtrudeRegion(region, 1.0)
	require.NoError(t, err)
	b, err := ExtrudeRegion(region, 1.0)
	require.NoError(t, err)

	assert.Equal(t, len(a.TriangleSlice()), len(b.TriangleSlice()))
	assert.Equal(t, meshVertexCount(a), meshVertexCount(b))
	assert.Equal(t, a.Min(), b.Min())
	assert.Equal(t, a.Max(), b.Max())
}

func TestExtrudeRegionCentersOnCentroid(t *testing.T) {
	// The region sits far from the origin; the prism must not.
	region := ResolveRegion([]Contour{squareContour(40, -25, 6)})
	require.NotNil(t, region)

	mesh, err := ExtrudeRegion(region, 1)
	require.NoError(t, err)
	assert.InDelta(t, -3, mesh.Min().X, 1e-3)
	assert.InDelta(t, 3, mesh.Max().X, 1e-3)
	assert.InDelta(t, -3, mesh.Min().Y, 1e-3)
	assert.InDelta(t, 3, mesh.Max().Y, 1e-3)
}

func TestExtrudeRegionWindingAgnostic(t *testing.T) {
	// Triangulation demands a clockwise exterior and counterclockwise
	// holes; callers hand rings in whatever winding the resolution
	// stage emitted, so extrusion must normalize both directions.
	reverse := func(c Contour) Contour {
		rev := make(Contour, len(c))
		for i, p := range c {
			rev[len(c)-1-i] = p
		}
		return rev
	}

	exterior := squareContour(0, 0, 10)
	hole := squareContour(0, 0, 4)

	var meshes []*model3d.Mesh
	for _, region := range []*Region{
		{Exterior: exterior, Holes: []Contour{hole}},
		{Exterior: reverse(exterior), Holes: []Contour{hole}},
		{Exterior: exterior, Holes: []Contour{reverse(hole)}},
		{Exterior: reverse(exterior), Holes: []Contour{reverse(hole)}},
	} {
		mesh, err := ExtrudeRegion(region, 1)
		require.NoError(t, err)
		require.NotEmpty(t, mesh.TriangleSlice())
		assert.False(t, mesh.NeedsRepair())
		meshes = append(meshes, mesh)
	}

	// All four windings describe the same prism.
	for _, m := range meshes[1:] {
		assert.Equal(t, len(meshes[0].TriangleSlice()), len(m.TriangleSlice()))
		assert.Equal(t, meshes[0].Min(), m.Min())
		assert.Equal(t, meshes[0].Max(), m.Max())
	}
}

func TestExtrudeRegionBadInput(t *testing.T) {
	region := nestedSquareRegion(t)

	_, err := ExtrudeRegion(region, 0)
	assert.Error(t, err)
	_, err = ExtrudeRegion(region, -2)
	assert.Error(t, err)
	_, err = ExtrudeRegion(nil, 1)
	assert.Error(t, err)
	_, err = ExtrudeRegion(&Region{}, 1)
	assert.Error(t, err)
}
