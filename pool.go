package galkin

import (
	"context"
	"runtime"
	"sync"
)

// Pool runs the frame transforms across a fixed set of goroutines by
// splitting the input into contiguous chunks. Each chunk writes only its
// own index range of the preallocated outputs, so results are identical to
// the sequential Frame methods regardless of worker count or scheduling.
type Pool struct {
	workers int
}

// NewPool creates a pool. workers <= 0 selects runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the pool's worker count.
func (p *Pool) Workers() int { return p.workers }

// Galactic computes Frame.Galactic across the pool's workers.
func (p *Pool) Galactic(ctx context.Context, f *Frame, ra, dec []float64) (gl, gb []float64, err error) {
	if err := checkLen("dec", dec, len(ra)); err != nil {
		return nil, nil, err
	}
	gl = make([]float64, len(ra))
	gb = make([]float64, len(ra))
	err = p.run(ctx, len(ra), func(lo, hi int) {
		f.galacticInto(ra[lo:hi], dec[lo:hi], gl[lo:hi], gb[lo:hi])
	})
	if err != nil {
		return nil, nil, err
	}
	return gl, gb, nil
}

// Position computes Frame.Position across the pool's workers.
func (p *Pool) Position(ctx context.Context, f *Frame, ra, dec, dist []float64, in *PositionErrorInputs) (*Position, error) {
	if err := validatePosition(ra, dec, dist, in); err != nil {
		return nil, err
	}
	out := newPosition(len(ra), in.present())
	err := p.run(ctx, len(ra), func(lo, hi int) {
		f.positionInto(ra[lo:hi], dec[lo:hi], dist[lo:hi], in.slice(lo, hi), out.slice(lo, hi))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Velocity computes Frame.Velocity across the pool's workers.
func (p *Pool) Velocity(ctx context.Context, f *Frame, ra, dec, pmra, pmdec, rv, dist []float64, in *VelocityErrorInputs) (*Velocity, error) {
	if err := validateVelocity(ra, dec, pmra, pmdec, rv, dist, in); err != nil {
		return nil, err
	}
	out := newVelocity(len(ra), in.present())
	err := p.run(ctx, len(ra), func(lo, hi int) {
		f.velocityInto(ra[lo:hi], dec[lo:hi], pmra[lo:hi], pmdec[lo:hi], rv[lo:hi], dist[lo:hi],
			in.slice(lo, hi), out.slice(lo, hi))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// span is a contiguous index range [lo, hi) handed to one worker.
type span struct {
	lo, hi int
}

// minChunk keeps goroutine overhead negligible for small inputs.
const minChunk = 1024

// run splits [0, n) into chunks and processes them on the pool's workers.
// fn must be safe for concurrent calls on disjoint ranges. Returns ctx.Err()
// when the context was canceled before the work completed.
func (p *Pool) run(ctx context.Context, n int, fn func(lo, hi int)) error {
	size := (n + p.workers*4 - 1) / (p.workers * 4)
	if size < minChunk {
		size = minChunk
	}

	jobs := make(chan span, p.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				fn(s.lo, s.hi)
			}
		}()
	}

	// Feed chunks in a goroutine so workers drain as we go.
	go func() {
		defer close(jobs)
		for lo := 0; lo < n; lo += size {
			hi := lo + size
			if hi > n {
				hi = n
			}
			select {
			case jobs <- span{lo, hi}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return ctx.Err()
}

// slice returns a view of the result restricted to [lo, hi).
func (pos *Position) slice(lo, hi int) *Position {
	sub := &Position{X: pos.X[lo:hi], Y: pos.Y[lo:hi], Z: pos.Z[lo:hi]}
	if pos.Err != nil {
		sub.Err = &PositionErrors{X: pos.Err.X[lo:hi], Y: pos.Err.Y[lo:hi], Z: pos.Err.Z[lo:hi]}
	}
	return sub
}

// slice returns a view of the result restricted to [lo, hi).
func (vel *Velocity) slice(lo, hi int) *Velocity {
	sub := &Velocity{U: vel.U[lo:hi], V: vel.V[lo:hi], W: vel.W[lo:hi]}
	if vel.Err != nil {
		sub.Err = &VelocityErrors{U: vel.Err.U[lo:hi], V: vel.Err.V[lo:hi], W: vel.Err.W[lo:hi]}
	}
	return sub
}

// sliceOrNil restricts s to [lo, hi), passing a nil slice through.
func sliceOrNil(s []float64, lo, hi int) []float64 {
	if s == nil {
		return nil
	}
	return s[lo:hi]
}
