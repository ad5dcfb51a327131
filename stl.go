package keycap

import (
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
)

// Body is the target solid that gets engraved. It is loaded once per
// batch and read-only afterwards, so it is safe to share across workers.
//
// The original triangle order is pinned at load time: model3d meshes do
// not iterate triangles in a stable order, and the fallback path must
// export the body byte-for-byte identically to a direct export.
type Body struct {
	mesh *model3d.Mesh
	tris []*model3d.Triangle

	min, max model3d.Coord3D
}

// LoadBody reads a binary STL body from r.
func LoadBody(r io.Reader) (*Body, error) {
	tris, err := model3d.ReadSTL(r)
	if err != nil {
		return nil, errors.Wrap(err, "load body")
	}
	return NewBody(tris)
}

// LoadBodyFile reads a binary STL body from disk.
func LoadBodyFile(path string) (*Body, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load body %s", path)
	}
	defer f.Close()
	return LoadBody(f)
}

// NewBody wraps a triangle soup as a target body, computing its bounding
// box once.
func NewBody(tris []*model3d.Triangle) (*Body, error) {
	if len(tris) == 0 {
		return nil, errors.New("body has no triangles")
	}
	min := model3d.Coord3D{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := model3d.Coord3D{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, t := range tris {
		for _, p := range t {
			min.X = math.Min(min.X, p.X)
			min.Y = math.Min(min.Y, p.Y)
			min.Z = math.Min(min.Z, p.Z)
			max.X = math.Max(max.X, p.X)
			max.Y = math.Max(max.Y, p.Y)
			max.Z = math.Max(max.Z, p.Z)
		}
	}
	return &Body{
		mesh: model3d.NewMeshTriangles(tris),
		tris: tris,
		min:  min,
		max:  max,
	}, nil
}

// Mesh returns the body's mesh. Callers must not mutate it.
func (b *Body) Mesh() *model3d.Mesh { return b.mesh }

// Triangles returns the body's triangles in load order.
func (b *Body) Triangles() []*model3d.Triangle { return b.tris }

// NumTriangles returns the triangle count of the body.
func (b *Body) NumTriangles() int { return len(b.tris) }

// Min returns the minimum corner of the body's bounding box.
func (b *Body) Min() model3d.Coord3D { return b.min }

// Max returns the maximum corner of the body's bounding box.
func (b *Body) Max() model3d.Coord3D { return b.max }

// EncodeSTL serializes the body unmodified, in load order.
func (b *Body) EncodeSTL() []byte { return model3d.EncodeSTL(b.tris) }

// EncodeMesh serializes a mesh to binary STL: 80-byte header, uint32
// triangle count, then 50 bytes per triangle (normal, three vertices as
// 32-bit little-endian floats, 2-byte attribute field). Pure
// serialization; the engraved result and the fallback body go through
// the same format.
func EncodeMesh(m *model3d.Mesh) []byte {
	return model3d.EncodeSTL(m.TriangleSlice())
}

// WriteMesh streams a mesh to w as binary STL.
func WriteMesh(w io.Writer, m *model3d.Mesh) error {
	return model3d.WriteSTL(w, m.TriangleSlice())
}
