package emath

// Some basic affine transformations, used to map between pixel grids
// and world coordinates, and 3x3 rotations for celestial frames.

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f64" // Will be "image/math/f64" at some point, hopefully make this file redundant
	"gonum.org/v1/gonum/mat"
)

// Use a local type so we can hang methods off it
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3) Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

// Remember they compose back to front - rightmost operations performed first
func (m1 Aff3) Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx, 0, 1, ty})
}

func (m Aff3) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Invert returns the inverse transform; it fails if the linear part is singular.
func (m Aff3) Invert() (Aff3, error) {
	a := mat.NewDense(3, 3, []float64{
		m[0], m[1], m[2],
		m[3], m[4], m[5],
		0, 0, 1,
	})

	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return Aff3{}, fmt.Errorf("aff3 invert %v: %v", m, err)
	}

	return Aff3{
		inv.At(0, 0), inv.At(0, 1), inv.At(0, 2),
		inv.At(1, 0), inv.At(1, 1), inv.At(1, 2),
	}, nil
}

// Actual 3x3 matrixes, used for rotating between celestial frames
type Vec3 f64.Vec3
type Mat3 f64.Mat3

func (a Mat3) Mult(b Mat3) Mat3 {
	return Mat3{
		a[3*0+0]*b[3*0+0] + a[3*0+1]*b[3*1+0] + a[3*0+2]*b[3*2+0],
		a[3*0+0]*b[3*0+1] + a[3*0+1]*b[3*1+1] + a[3*0+2]*b[3*2+1],
		a[3*0+0]*b[3*0+2] + a[3*0+1]*b[3*1+2] + a[3*0+2]*b[3*2+2],

		a[3*1+0]*b[3*0+0] + a[3*1+1]*b[3*1+0] + a[3*1+2]*b[3*2+0],
		a[3*1+0]*b[3*0+1] + a[3*1+1]*b[3*1+1] + a[3*1+2]*b[3*2+1],
		a[3*1+0]*b[3*0+2] + a[3*1+1]*b[3*1+2] + a[3*1+2]*b[3*2+2],

		a[3*2+0]*b[3*0+0] + a[3*2+1]*b[3*1+0] + a[3*2+2]*b[3*2+0],
		a[3*2+0]*b[3*0+1] + a[3*2+1]*b[3*1+1] + a[3*2+2]*b[3*2+1],
		a[3*2+0]*b[3*0+2] + a[3*2+1]*b[3*1+2] + a[3*2+2]*b[3*2+2],
	}
}

func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		(m[3*0+0]*v[0] + m[3*0+1]*v[1] + m[3*0+2]*v[2]),
		(m[3*1+0]*v[0] + m[3*1+1]*v[1] + m[3*1+2]*v[2]),
		(m[3*2+0]*v[0] + m[3*2+1]*v[1] + m[3*2+2]*v[2]),
	}
}

// Transpose is also the inverse, for the rotation matrices we use.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

func (m Mat3) String() string {
	str := fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*0+0], m[3*0+1], m[3*0+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*1+0], m[3*1+1], m[3*1+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*2+0], m[3*2+1], m[3*2+2])
	return str
}
func (v Vec3) String() string {
	return fmt.Sprintf("[%12.10f, %12.10f, %12.10f]", v[0], v[1], v[2])
}

// Spherical <-> cartesian, angles in degrees
func UnitVector(lonDeg, latDeg float64) Vec3 {
	lon, lat := Deg2Rad(lonDeg), Deg2Rad(latDeg)
	return Vec3{math.Cos(lat) * math.Cos(lon), math.Cos(lat) * math.Sin(lon), math.Sin(lat)}
}

func (v Vec3) LonLat() (float64, float64) {
	r := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	lon := WrapDegrees(Rad2Deg(math.Atan2(v[1], v[0])))
	lat := Rad2Deg(math.Asin(v[2] / r))
	return lon, lat
}

func (v Vec3) Dot(w Vec3) float64 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }
