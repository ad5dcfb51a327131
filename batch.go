package keycap

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
)

// Batch is one request: an ordered sequence of jobs sharing a font, a
// default text size, and a default engrave depth. A batch lives for one
// request/response cycle and is not persisted.
type Batch struct {
	Jobs []Job
	// EngraveDepth is the default depth for jobs that leave Depth zero.
	EngraveDepth float64
	// DefaultSize is the default text size for jobs that leave Size zero.
	DefaultSize float64
}

// Artifact is one produced output, keyed by the caller-supplied job ID
// and the character.
type Artifact struct {
	ID       int
	Char     rune
	Name     string
	STL      []byte
	Engraved bool
}

// ArtifactName builds the output filename for a job, sanitized the way
// the downstream packaging expects ("+" and "-" are spelled out).
func ArtifactName(id int, ch rune) string {
	name := fmt.Sprintf("keycap_%02d_%c.stl", id, ch)
	name = strings.ReplaceAll(name, "+", "plus")
	name = strings.ReplaceAll(name, "-", "minus")
	return name
}

// GenerateBatch runs every job in the batch across a worker pool and
// returns the artifacts in job order. Jobs are independent: they share
// only the read-only body and font, so failures are isolated per
// character and a degraded job still yields an artifact (the unengraved
// body). Only unrecoverable failures (context cancellation) omit a job's
// artifact. workers <= 0 selects GOMAXPROCS.
func (p *Pipeline) GenerateBatch(ctx context.Context, batch Batch, workers int) []Artifact {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(batch.Jobs) {
		workers = len(batch.Jobs)
	}

	Logger().Info("generating batch", "jobs", len(batch.Jobs), "workers", workers)

	results := make([]*Artifact, len(batch.Jobs))
	jobCh := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				job := batch.Jobs[i]
				if job.Size <= 0 {
					job.Size = batch.DefaultSize
				}
				if job.Depth <= 0 {
					job.Depth = batch.EngraveDepth
				}
				res, err := p.Generate(ctx, job)
				if err != nil {
					Logger().Warn("job produced no artifact",
						"char", string(job.Char), "err", err)
					continue
				}
				results[i] = &Artifact{
					ID:       job.ID,
					Char:     job.Char,
					Name:     ArtifactName(job.ID, job.Char),
					STL:      res.STL,
					Engraved: res.Engraved,
				}
			}
		}()
	}

feed:
	for i := range batch.Jobs {
		select {
		case jobCh <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)
	wg.Wait()

	artifacts := make([]Artifact, 0, len(results))
	for _, a := range results {
		if a != nil {
			artifacts = append(artifacts, *a)
		}
	}
	return artifacts
}

// PackZip writes the artifacts as a deflated zip archive, one STL per
// entry.
func PackZip(w io.Writer, artifacts []Artifact) error {
	zw := zip.NewWriter(w)
	for _, a := range artifacts {
		f, err := zw.Create(a.Name)
		if err != nil {
			return err
		}
		if _, err := f.Write(a.STL); err != nil {
			return err
		}
	}
	return zw.Close()
}
