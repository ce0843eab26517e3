// Package galkin converts stellar astrometric measurements between the
// equatorial and Galactic reference frames: sky coordinates to Galactic
// angles, to Cartesian Galactic position, and to Galactic space velocity
// (U, V, W), with optional first-order propagation of measurement errors.
//
// All transforms operate element-wise over equal-length float64 slices, one
// element per star. Angles are in degrees, proper motions in mas/yr, radial
// velocities in km/s, distances in parsecs. Calls are stateless and
// deterministic; the only error condition is a *ShapeError for slices of
// unequal length.
//
// Method: fixed-epoch rotation between the equatorial (ICRS) frame and the
// IAU Galactic frame, defined by the Galactic pole at RA 192.8595°,
// Dec 27.12825° and node longitude 122.932°, following the convention of
// the Gaia archive pipelines. No precession, epoch propagation, or
// relativistic corrections are applied.
//
// Reference: Johnson & Soderblom (1987), AJ 93, 864, and the ESA Gaia DR2
// documentation chapter on transformations of astrometric data.
package galkin

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kappa converts the product of a proper motion (mas/yr) and a distance
// (parsecs) into a transverse velocity (km/s).
const Kappa = 0.004743717361

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// Frame holds a fixed equatorial→Galactic rotation: the Galactic pole's
// equatorial coordinates, the Galactic longitude of the north celestial
// pole, and the equivalent 3×3 rotation matrix. A Frame is immutable once
// constructed. The zero value is not usable; use J2000 or NewFrame.
type Frame struct {
	poleRA   float64 // Galactic pole right ascension (degrees)
	poleDec  float64 // Galactic pole declination (degrees)
	lonNorth float64 // Galactic longitude of the north celestial pole (degrees)

	sinPoleDec float64
	cosPoleDec float64
	rot        [3][3]float64 // equatorial→Galactic rotation, row-major
}

// j2000 is the fixed IAU frame used by Gaia data releases. The matrix holds
// the published digits rather than a recomputation from the angles, so
// velocity output matches catalog pipelines that embed the same table.
var j2000 = &Frame{
	poleRA:     192.8595,
	poleDec:    27.12825,
	lonNorth:   122.932,
	sinPoleDec: math.Sin(27.12825 * degToRad),
	cosPoleDec: math.Cos(27.12825 * degToRad),
	rot: [3][3]float64{
		{-0.0548755604, -0.8734370902, -0.4838350155},
		{0.4941094279, -0.4448296300, 0.7469822445},
		{-0.8676661490, -0.1980763734, 0.4559837762},
	},
}

// J2000 returns the standard J2000/ICRS Galactic frame.
func J2000() *Frame {
	return j2000
}

// NewFrame builds a frame for an arbitrary Galactic pole and node longitude
// (all in degrees). The rotation matrix is composed as the 3-1-3 Euler
// product Rz(90°−lonNorth) · Rx(90°−poleDec) · Rz(poleRA+90°).
func NewFrame(poleRA, poleDec, lonNorth float64) *Frame {
	var tmp, r mat.Dense
	tmp.Mul(rotX((90-poleDec)*degToRad), rotZ((poleRA+90)*degToRad))
	r.Mul(rotZ((90-lonNorth)*degToRad), &tmp)

	f := &Frame{
		poleRA:     poleRA,
		poleDec:    poleDec,
		lonNorth:   lonNorth,
		sinPoleDec: math.Sin(poleDec * degToRad),
		cosPoleDec: math.Cos(poleDec * degToRad),
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f.rot[i][j] = r.At(i, j)
		}
	}
	return f
}

// PoleRA returns the Galactic pole right ascension in degrees.
func (f *Frame) PoleRA() float64 { return f.poleRA }

// PoleDec returns the Galactic pole declination in degrees.
func (f *Frame) PoleDec() float64 { return f.poleDec }

// LonNorth returns the Galactic longitude of the north celestial pole in degrees.
func (f *Frame) LonNorth() float64 { return f.lonNorth }

// RotationMatrix returns a copy of the equatorial→Galactic rotation matrix.
// Mutating the returned matrix does not affect the frame.
func (f *Frame) RotationMatrix() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, f.rot[i][j])
		}
	}
	return m
}

// rotZ returns the frame rotation about the Z axis by angle a (radians).
func rotZ(a float64) *mat.Dense {
	s, c := math.Sincos(a)
	return mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})
}

// rotX returns the frame rotation about the X axis by angle a (radians).
func rotX(a float64) *mat.Dense {
	s, c := math.Sincos(a)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, s,
		0, -s, c,
	})
}
