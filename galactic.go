package galkin

import "math"

// Galactic converts equatorial coordinates (degrees) to Galactic longitude
// and latitude (degrees). Longitude is wrapped into [0, 360); latitude lies
// in [−90, 90]. ra and dec must have equal length, otherwise a *ShapeError
// is returned.
//
// The sine of the latitude is clamped to [−1, 1] before the arcsine, which
// absorbs float64 rounding overshoot for coordinates exactly at the pole.
// The clamp does not sanitize bad input: NaN or Inf coordinates still
// produce NaN outputs. At the Galactic pole itself the longitude is
// degenerate; the returned gl there is an atan2(0, 0) artifact.
func (f *Frame) Galactic(ra, dec []float64) (gl, gb []float64, err error) {
	if err := checkLen("dec", dec, len(ra)); err != nil {
		return nil, nil, err
	}
	gl = make([]float64, len(ra))
	gb = make([]float64, len(ra))
	f.galacticInto(ra, dec, gl, gb)
	return gl, gb, nil
}

// galacticInto computes the angle transform into caller-owned output
// slices. Lengths must be validated before the call.
func (f *Frame) galacticInto(ra, dec, gl, gb []float64) {
	for i := range ra {
		dra := (ra[i] - f.poleRA) * degToRad
		sinDec, cosDec := math.Sincos(dec[i] * degToRad)

		// Sine of the Galactic latitude.
		gamma := f.sinPoleDec*sinDec + f.cosPoleDec*cosDec*math.Cos(dra)
		if gamma > 1 {
			gamma = 1 // rounding overshoot at the pole; NaN falls through
		} else if gamma < -1 {
			gamma = -1
		}
		gb[i] = math.Asin(gamma) * radToDeg

		// Longitude measured from the node, quadrant resolved by atan2.
		x1 := cosDec * math.Sin(dra)
		x2 := (sinDec - f.sinPoleDec*gamma) / f.cosPoleDec
		lon := math.Mod(f.lonNorth-math.Atan2(x1, x2)*radToDeg, 360)
		if lon < 0 {
			lon += 360
		}
		gl[i] = lon
	}
}
