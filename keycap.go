// Package keycap turns single font glyphs into three-dimensional
// engravings cut into a keycap body, producing printable STL solids.
//
// The pipeline per character: glyph outline extraction, resolution of the
// contours into a filled region with holes, extrusion of that region into
// a cutter prism, placement of the cutter under the body's bottom face,
// and boolean subtraction through a chain of backends. Per-character
// geometry failures degrade to the unengraved body; only missing shared
// resources (font, body) abort a batch.
package keycap

import (
	"context"
	"errors"
	"time"
)

var errNilResources = errors.New("pipeline requires a font and a body")

// Defaults matching the original generator's request schema.
const (
	DefaultTextSize     = 12.0
	DefaultEngraveDepth = 0.8
)

// cutterExtraHeight extends the cutter prism past the engrave depth so
// its top cap clears the overlap margin below the engraving surface.
const cutterExtraHeight = 0.5

// FailReason classifies a recoverable per-character failure.
type FailReason int

const (
	// FailNone means the character was engraved.
	FailNone FailReason = iota
	// FailNoOutline means the character has no visible outline in the
	// font (space, unmapped code point). Not an error: there is simply
	// nothing to engrave.
	FailNoOutline
	// FailDegenerateGeometry means contour, polygon, or extrusion
	// construction failed.
	FailDegenerateGeometry
	// FailBooleanFailure means every boolean backend failed.
	FailBooleanFailure
)

func (r FailReason) String() string {
	switch r {
	case FailNone:
		return "none"
	case FailNoOutline:
		return "no outline"
	case FailDegenerateGeometry:
		return "degenerate geometry"
	case FailBooleanFailure:
		return "boolean failure"
	default:
		return "unknown"
	}
}

// Job describes one keycap engraving. Jobs are created per batch entry,
// consumed once, and never mutated.
type Job struct {
	ID      int
	Char    rune
	Size    float64 // text size in mm; 0 selects the batch default
	Depth   float64 // engrave depth in mm; 0 selects the batch default
	OffsetX float64 // manual centering offset in mm
	OffsetY float64
}

// Config tunes the pipeline. The zero value selects defaults.
type Config struct {
	// CurveSegs is the number of flattening segments per quadratic
	// (default 8).
	CurveSegs int
	// Resolution is the boolean grid spacing in mm (default 0.1).
	Resolution float64
	// BackendBudget bounds each boolean backend attempt (default 30s).
	BackendBudget time.Duration
	// DisableMirror skips the X mirror. By default contours are
	// mirrored because the engraving is viewed from the underside.
	DisableMirror bool
	// Chain overrides the default boolean engine chain.
	Chain *EngineChain
}

// Result is the outcome of one job: either an engraved solid or the
// unmodified body with a typed failure reason. The STL bytes are always
// usable; degradation to the unengraved body is an explicit branch, not
// an error.
type Result struct {
	Job      Job
	STL      []byte
	Engraved bool
	Reason   FailReason
}

// Pipeline engraves characters into one shared body using one shared
// font. Both are read-only, so a Pipeline is safe for concurrent use.
type Pipeline struct {
	font  *Font
	body  *Body
	chain *EngineChain
	cfg   Config
}

// NewPipeline builds a pipeline over a parsed font and a loaded body.
func NewPipeline(font *Font, body *Body, cfg Config) *Pipeline {
	chain := cfg.Chain
	if chain == nil {
		chain = NewEngineChain(cfg.Resolution, cfg.BackendBudget)
	}
	return &Pipeline{font: font, body: body, chain: chain, cfg: cfg}
}

// Body returns the pipeline's target body.
func (p *Pipeline) Body() *Body { return p.body }

// Generate runs the full pipeline for one job. Geometric failures are
// absorbed: the result then carries the unmodified body and a reason.
// A non-nil error is unrecoverable (context cancellation, missing
// resources) and means no artifact was produced.
func (p *Pipeline) Generate(ctx context.Context, job Job) (Result, error) {
	if p.font == nil || p.body == nil {
		return Result{}, errNilResources
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	size := job.Size
	if size <= 0 {
		size = DefaultTextSize
	}
	depth := job.Depth
	if depth <= 0 {
		depth = DefaultEngraveDepth
	}

	contours, err := ExtractOutlines(p.font, job.Char, size, p.cfg.CurveSegs)
	if err != nil {
		return p.degrade(job, FailDegenerateGeometry, err), nil
	}
	if len(contours) == 0 {
		return p.degrade(job, FailNoOutline, nil), nil
	}
	if !p.cfg.DisableMirror {
		contours = MirrorContours(contours)
	}

	region := ResolveRegion(contours)
	if region == nil {
		return p.degrade(job, FailDegenerateGeometry, nil), nil
	}

	cutter, err := ExtrudeRegion(region, depth+cutterExtraHeight)
	if err != nil {
		return p.degrade(job, FailDegenerateGeometry, err), nil
	}

	positioned := PositionCutter(cutter, p.body, job.OffsetX, job.OffsetY)

	engraved, err := p.chain.Subtract(ctx, p.body, positioned)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return p.degrade(job, FailBooleanFailure, err), nil
	}

	return Result{
		Job:      job,
		STL:      EncodeMesh(engraved),
		Engraved: true,
	}, nil
}

// degrade substitutes the unmodified body for a failed character. The
// artifact is still delivered; the failure is observable via logs.
func (p *Pipeline) degrade(job Job, reason FailReason, err error) Result {
	if reason == FailNoOutline {
		Logger().Debug("nothing to engrave", "char", string(job.Char))
	} else {
		Logger().Warn("falling back to unengraved body",
			"char", string(job.Char), "reason", reason.String(), "err", err)
	}
	return Result{
		Job:    job,
		STL:    p.body.EncodeSTL(),
		Reason: reason,
	}
}
