package galkin

import "math"

// Position holds Galactic Cartesian coordinates in parsecs: X toward the
// Galactic center, Y along Galactic rotation, Z toward the north Galactic
// pole. Err is nil unless the transform was given a distance error to
// propagate.
type Position struct {
	X, Y, Z []float64 // pc
	Err     *PositionErrors
}

// PositionErrors holds propagated coordinate errors in parsecs.
type PositionErrors struct {
	X, Y, Z []float64 // pc
}

// PositionErrorInputs carries the optional measurement error for the
// position transform. A nil Dist means the distance is exact.
type PositionErrorInputs struct {
	Dist []float64 // pc
}

// present reports whether any error input was supplied.
func (in *PositionErrorInputs) present() bool {
	return in != nil && in.Dist != nil
}

// slice returns the inputs restricted to [lo, hi), preserving nil fields.
func (in *PositionErrorInputs) slice(lo, hi int) *PositionErrorInputs {
	if in == nil {
		return nil
	}
	return &PositionErrorInputs{Dist: sliceOrNil(in.Dist, lo, hi)}
}

// Position converts equatorial coordinates and distances to Galactic
// Cartesian coordinates. ra and dec are in degrees, dist in parsecs; all
// three must share a length. When in carries a distance error of the same
// length, the result's Err field holds the propagated coordinate errors.
// The direction angles are treated as exact, so each coordinate error is
// the distance error scaled by the magnitude of that coordinate's direction
// cosine.
func (f *Frame) Position(ra, dec, dist []float64, in *PositionErrorInputs) (*Position, error) {
	n := len(ra)
	if err := validatePosition(ra, dec, dist, in); err != nil {
		return nil, err
	}

	out := newPosition(n, in.present())
	f.positionInto(ra, dec, dist, in, out)
	return out, nil
}

// validatePosition checks every slice length against len(ra) up front.
func validatePosition(ra, dec, dist []float64, in *PositionErrorInputs) error {
	n := len(ra)
	if err := checkLen("dec", dec, n); err != nil {
		return err
	}
	if err := checkLen("dist", dist, n); err != nil {
		return err
	}
	if in != nil {
		if err := checkOptLen("dist_error", in.Dist, n); err != nil {
			return err
		}
	}
	return nil
}

// newPosition allocates a result for n stars, with error slices when the
// transform will propagate errors.
func newPosition(n int, withErr bool) *Position {
	out := &Position{
		X: make([]float64, n),
		Y: make([]float64, n),
		Z: make([]float64, n),
	}
	if withErr {
		out.Err = &PositionErrors{
			X: make([]float64, n),
			Y: make([]float64, n),
			Z: make([]float64, n),
		}
	}
	return out
}

// positionInto fills a preallocated Position. Lengths must be validated and
// out.Err allocated beforehand when in carries errors.
func (f *Frame) positionInto(ra, dec, dist []float64, in *PositionErrorInputs, out *Position) {
	gl := make([]float64, len(ra))
	gb := make([]float64, len(ra))
	f.galacticInto(ra, dec, gl, gb)

	for i := range ra {
		sinL, cosL := math.Sincos(gl[i] * degToRad)
		sinB, cosB := math.Sincos(gb[i] * degToRad)

		out.X[i] = cosB * cosL * dist[i]
		out.Y[i] = cosB * sinL * dist[i]
		out.Z[i] = sinB * dist[i]

		if out.Err != nil {
			de := in.Dist[i]
			out.Err.X[i] = math.Abs(cosB*cosL) * de
			out.Err.Y[i] = math.Abs(cosB*sinL) * de
			out.Err.Z[i] = math.Abs(sinB) * de
		}
	}
}
