package keycap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"
)

type stubBackend struct {
	name  string
	mesh  *model3d.Mesh
	err   error
	sleep time.Duration

	calls int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Subtract(ctx context.Context, target *Body, cutter *model3d.Mesh) (*model3d.Mesh, error) {
	s.calls++
	if s.sleep > 0 {
		select {
		case <-time.After(s.sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.mesh, s.err
}

func boxBody(t *testing.T) *Body {
	t.Helper()
	mesh := model3d.NewMeshRect(
		model3d.Coord3D{X: 0, Y: 0, Z: 0},
		model3d.Coord3D{X: 18, Y: 18, Z: 10},
	)
	body, err := NewBody(mesh.TriangleSlice())
	require.NoError(t, err)
	return body
}

func TestEngineChainAllFail(t *testing.T) {
	body := boxBody(t)
	cutter := model3d.NewMeshRect(
		model3d.Coord3D{X: 8, Y: 8, Z: -0.1},
		model3d.Coord3D{X: 10, Y: 10, Z: 1},
	)

	a := &stubBackend{name: "a", err: errors.New("nope")}
	b := &stubBackend{name: "b", err: errors.New("still no")}
	chain := NewEngineChainBackends(time.Second, a, b)

	_, err := chain.Subtract(context.Background(), body, cutter)
	require.ErrorIs(t, err, ErrBooleanFailed)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestEngineChainFallsThrough(t *testing.T) {
	body := boxBody(t)
	want := model3d.NewMeshRect(
		model3d.Coord3D{X: 0, Y: 0, Z: 0},
		model3d.Coord3D{X: 1, Y: 1, Z: 1},
	)

	a := &stubBackend{name: "a", err: errors.New("nope")}
	b := &stubBackend{name: "b", mesh: want}
	c := &stubBackend{name: "c", mesh: model3d.NewMesh()}
	chain := NewEngineChainBackends(time.Second, a, b, c)

	got, err := chain.Subtract(context.Background(), body, nil)
	require.NoError(t, err)
	assert.Same(t, want, got)
	// The chain stops at the first success.
	assert.Equal(t, 0, c.calls)
}

func TestEngineChainBackendBudget(t *testing.T) {
	body := boxBody(t)
	want := model3d.NewMesh()

	slow := &stubBackend{name: "slow", sleep: time.Minute, mesh: want}
	fast := &stubBackend{name: "fast", mesh: want}
	chain := NewEngineChainBackends(20*time.Millisecond, slow, fast)

	start := time.Now()
	got, err := chain.Subtract(context.Background(), body, nil)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestEngineChainPanicIsFailure(t *testing.T) {
	body := boxBody(t)
	chain := NewEngineChainBackends(time.Second, panicBackend{})
	_, err := chain.Subtract(context.Background(), body, nil)
	assert.ErrorIs(t, err, ErrBooleanFailed)
}

type panicBackend struct{}

func (panicBackend) Name() string { return "panic" }
func (panicBackend) Subtract(context.Context, *Body, *model3d.Mesh) (*model3d.Mesh, error) {
	panic("unstable geometry")
}

func TestIsoBackendSubtract(t *testing.T) {
	if testing.Short() {
		t.Skip("isosurface extraction is slow")
	}
	body := boxBody(t)
	cutter := model3d.NewMeshRect(
		model3d.Coord3D{X: 7, Y: 7, Z: -0.1},
		model3d.Coord3D{X: 11, Y: 11, Z: 1.2},
	)

	backend := &isoBackend{name: "mc-search", delta: 0.25, iters: 8}
	mesh, err := backend.Subtract(context.Background(), body, cutter)
	require.NoError(t, err)
	require.NotEmpty(t, mesh.TriangleSlice())
	assert.False(t, mesh.NeedsRepair())

	// The cut region is empty, the rest of the body is not.
	solid := mesh.Solid()
	assert.False(t, solid.Contains(model3d.Coord3D{X: 9, Y: 9, Z: 0.5}))
	assert.True(t, solid.Contains(model3d.Coord3D{X: 3, Y: 3, Z: 5}))
	assert.True(t, solid.Contains(model3d.Coord3D{X: 9, Y: 9, Z: 8}))
}
