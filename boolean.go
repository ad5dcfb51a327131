package keycap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unixpickle/model3d/model3d"
)

// ErrBooleanFailed reports that every backend in the chain failed. The
// caller decides whether to substitute the unmodified body.
var ErrBooleanFailed = errors.New("all boolean backends failed")

const (
	// defaultResolution is the isosurface grid spacing in millimeters.
	defaultResolution = 0.1
	// defaultBackendBudget bounds one backend attempt so a single
	// pathological glyph cannot stall a whole batch.
	defaultBackendBudget = 30 * time.Second
)

// A BooleanBackend makes one attempt at subtracting a cutter from the
// target body. Implementations must be safe for concurrent use and should
// fail with an error rather than return a broken mesh.
type BooleanBackend interface {
	Name() string
	Subtract(ctx context.Context, target *Body, cutter *model3d.Mesh) (*model3d.Mesh, error)
}

// EngineChain tries a fixed, ordered sequence of boolean backends. On a
// backend's failure (error, non-manifold result, or budget timeout) the
// chain advances to the next one without surfacing the error; only when
// every backend fails does Subtract return ErrBooleanFailed.
type EngineChain struct {
	backends []BooleanBackend
	budget   time.Duration
}

// NewEngineChain builds the default chain: a fast isosurface search at
// the given resolution, a finer but slower plain pass, and a coarse
// last-resort pass. Non-positive arguments select defaults.
func NewEngineChain(resolution float64, budget time.Duration) *EngineChain {
	if resolution <= 0 {
		resolution = defaultResolution
	}
	return NewEngineChainBackends(budget,
		&isoBackend{name: "mc-search", delta: resolution, iters: 8},
		&isoBackend{name: "mc-dense", delta: resolution / 2},
		&isoBackend{name: "mc-coarse", delta: resolution * 2},
	)
}

// NewEngineChainBackends builds a chain over an explicit backend list.
func NewEngineChainBackends(budget time.Duration, backends ...BooleanBackend) *EngineChain {
	if budget <= 0 {
		budget = defaultBackendBudget
	}
	return &EngineChain{backends: backends, budget: budget}
}

// Subtract computes target minus cutter using the first backend that
// produces a valid manifold mesh.
func (c *EngineChain) Subtract(ctx context.Context, target *Body, cutter *model3d.Mesh) (*model3d.Mesh, error) {
	for _, b := range c.backends {
		mesh, err := c.runBackend(ctx, b, target, cutter)
		if err != nil {
			Logger().Debug("boolean backend failed", "backend", b.Name(), "err", err)
			continue
		}
		return mesh, nil
	}
	return nil, ErrBooleanFailed
}

// runBackend applies the per-backend time budget. The isosurface
// extractors have no internal cancellation point, so a timed-out backend
// keeps running on its goroutine until done and its result is dropped.
func (c *EngineChain) runBackend(ctx context.Context, b BooleanBackend, target *Body, cutter *model3d.Mesh) (*model3d.Mesh, error) {
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	type outcome struct {
		mesh *model3d.Mesh
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("backend panic: %v", r)}
			}
		}()
		mesh, err := b.Subtract(ctx, target, cutter)
		ch <- outcome{mesh: mesh, err: err}
	}()

	select {
	case out := <-ch:
		return out.mesh, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// isoBackend re-meshes the CSG difference of the two solids with an
// isosurface extraction at grid spacing delta. iters > 0 selects the
// search variant, which refines vertices toward the true surface.
type isoBackend struct {
	name  string
	delta float64
	iters int
}

func (b *isoBackend) Name() string { return b.name }

func (b *isoBackend) Subtract(ctx context.Context, target *Body, cutter *model3d.Mesh) (*model3d.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	diff := &model3d.SubtractedSolid{
		Positive: target.Mesh().Solid(),
		Negative: cutter.Solid(),
	}

	var mesh *model3d.Mesh
	if b.iters > 0 {
		mesh = model3d.MarchingCubesSearch(diff, b.delta, b.iters)
	} else {
		mesh = model3d.MarchingCubes(diff, b.delta)
	}

	if mesh == nil || len(mesh.TriangleSlice()) == 0 {
		return nil, errors.New("empty result")
	}
	if mesh.NeedsRepair() {
		return nil, errors.New("non-manifold result")
	}
	return mesh, nil
}
