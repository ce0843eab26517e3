package galkin

import "math"

// Velocity holds Galactic space-velocity components in km/s: U toward the
// Galactic center, V along Galactic rotation, W toward the north Galactic
// pole. Err is nil unless at least one measurement error was supplied.
type Velocity struct {
	U, V, W []float64 // km/s
	Err     *VelocityErrors
}

// VelocityErrors holds propagated velocity errors in km/s.
type VelocityErrors struct {
	U, V, W []float64 // km/s
}

// VelocityErrorInputs carries the optional measurement errors for the
// velocity transform. Each field is independently optional; nil means that
// measurement is exact. Supplying any one of them switches the transform
// into full error propagation with the absent ones taken as zero.
type VelocityErrorInputs struct {
	PMRA  []float64 // mas/yr
	PMDec []float64 // mas/yr
	RV    []float64 // km/s
	Dist  []float64 // pc
}

// present reports whether any error input was supplied.
func (in *VelocityErrorInputs) present() bool {
	return in != nil && (in.PMRA != nil || in.PMDec != nil || in.RV != nil || in.Dist != nil)
}

// slice returns the inputs restricted to [lo, hi), preserving nil fields.
func (in *VelocityErrorInputs) slice(lo, hi int) *VelocityErrorInputs {
	if in == nil {
		return nil
	}
	return &VelocityErrorInputs{
		PMRA:  sliceOrNil(in.PMRA, lo, hi),
		PMDec: sliceOrNil(in.PMDec, lo, hi),
		RV:    sliceOrNil(in.RV, lo, hi),
		Dist:  sliceOrNil(in.Dist, lo, hi),
	}
}

// Velocity converts astrometric measurements to Galactic space velocities.
// ra and dec are in degrees, pmra and pmdec in mas/yr (pmra must already
// include the cos(dec) factor), rv in km/s, dist in parsecs. All six slices
// must share a length.
//
// Each component combines the radial velocity with the transverse velocity
// from proper motion, Kappa·dist converting mas/yr into km/s. With error
// inputs present, each component error is the quadrature sum of the
// radial-velocity, proper-motion, distance, and pm–distance cross terms,
// assuming independent Gaussian measurement errors with no covariance.
func (f *Frame) Velocity(ra, dec, pmra, pmdec, rv, dist []float64, in *VelocityErrorInputs) (*Velocity, error) {
	n := len(ra)
	if err := validateVelocity(ra, dec, pmra, pmdec, rv, dist, in); err != nil {
		return nil, err
	}

	out := newVelocity(n, in.present())
	f.velocityInto(ra, dec, pmra, pmdec, rv, dist, in, out)
	return out, nil
}

// validateVelocity checks every slice length against len(ra) up front.
func validateVelocity(ra, dec, pmra, pmdec, rv, dist []float64, in *VelocityErrorInputs) error {
	n := len(ra)
	if err := checkLen("dec", dec, n); err != nil {
		return err
	}
	if err := checkLen("pmra", pmra, n); err != nil {
		return err
	}
	if err := checkLen("pmdec", pmdec, n); err != nil {
		return err
	}
	if err := checkLen("rv", rv, n); err != nil {
		return err
	}
	if err := checkLen("dist", dist, n); err != nil {
		return err
	}
	if in != nil {
		if err := checkOptLen("pmra_error", in.PMRA, n); err != nil {
			return err
		}
		if err := checkOptLen("pmdec_error", in.PMDec, n); err != nil {
			return err
		}
		if err := checkOptLen("rv_error", in.RV, n); err != nil {
			return err
		}
		if err := checkOptLen("dist_error", in.Dist, n); err != nil {
			return err
		}
	}
	return nil
}

// newVelocity allocates a result for n stars, with error slices when the
// transform will propagate errors.
func newVelocity(n int, withErr bool) *Velocity {
	out := &Velocity{
		U: make([]float64, n),
		V: make([]float64, n),
		W: make([]float64, n),
	}
	if withErr {
		out.Err = &VelocityErrors{
			U: make([]float64, n),
			V: make([]float64, n),
			W: make([]float64, n),
		}
	}
	return out
}

// velocityInto fills a preallocated Velocity. Lengths must be validated and
// out.Err allocated beforehand when in carries errors.
func (f *Frame) velocityInto(ra, dec, pmra, pmdec, rv, dist []float64, in *VelocityErrorInputs, out *Velocity) {
	r := &f.rot
	for i := range ra {
		sinRa, cosRa := math.Sincos(ra[i] * degToRad)
		sinDec, cosDec := math.Sincos(dec[i] * degToRad)

		// Rotation matrix expressed in the star-local tangent frame: per
		// Galactic axis, one radial and two proper-motion projections.
		t1 := r[0][0]*cosRa*cosDec + r[0][1]*sinRa*cosDec + r[0][2]*sinDec
		t2 := -r[0][0]*sinRa + r[0][1]*cosRa
		t3 := -r[0][0]*cosRa*sinDec - r[0][1]*sinRa*sinDec + r[0][2]*cosDec
		t4 := r[1][0]*cosRa*cosDec + r[1][1]*sinRa*cosDec + r[1][2]*sinDec
		t5 := -r[1][0]*sinRa + r[1][1]*cosRa
		t6 := -r[1][0]*cosRa*sinDec - r[1][1]*sinRa*sinDec + r[1][2]*cosDec
		t7 := r[2][0]*cosRa*cosDec + r[2][1]*sinRa*cosDec + r[2][2]*sinDec
		t8 := -r[2][0]*sinRa + r[2][1]*cosRa
		t9 := -r[2][0]*cosRa*sinDec - r[2][1]*sinRa*sinDec + r[2][2]*cosDec

		rd := Kappa * dist[i]
		out.U[i] = t1*rv[i] + t2*pmra[i]*rd + t3*pmdec[i]*rd
		out.V[i] = t4*rv[i] + t5*pmra[i]*rd + t6*pmdec[i]*rd
		out.W[i] = t7*rv[i] + t8*pmra[i]*rd + t9*pmdec[i]*rd

		if out.Err == nil {
			continue
		}

		pmraE := at(in.PMRA, i)
		pmdecE := at(in.PMDec, i)
		rvE := at(in.RV, i)
		rdE := Kappa * at(in.Dist, i)

		out.Err.U[i] = propagate(t1, t2, t3, pmra[i], pmdec[i], pmraE, pmdecE, rvE, rd, rdE)
		out.Err.V[i] = propagate(t4, t5, t6, pmra[i], pmdec[i], pmraE, pmdecE, rvE, rd, rdE)
		out.Err.W[i] = propagate(t7, t8, t9, pmra[i], pmdec[i], pmraE, pmdecE, rvE, rd, rdE)
	}
}

// propagate combines the four independent error terms of one velocity
// component in quadrature: radial velocity, proper-motion error scaled by
// reduced distance, distance error scaled by the true proper motion, and
// the pm–distance cross term.
func propagate(tr, ta, tb, pmra, pmdec, pmraE, pmdecE, rvE, rd, rdE float64) float64 {
	pm2 := sq(ta*pmra) + sq(tb*pmdec)
	pmE2 := sq(ta*pmraE) + sq(tb*pmdecE)
	return math.Sqrt(sq(tr*rvE) + pmE2*sq(rd) + pm2*sq(rdE) + pmE2*sq(rdE))
}

// at returns s[i], or 0 when the slice is absent.
func at(s []float64, i int) float64 {
	if s == nil {
		return 0
	}
	return s[i]
}

func sq(x float64) float64 { return x * x }
