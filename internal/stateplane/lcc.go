package stateplane

import (
	"fmt"
	"math"
)

// lambertConic is the ellipsoidal Lambert conformal conic with one or two
// standard parallels. go-spatial/proj has no lcc operation.
type lambertConic struct {
	e    float64
	n    float64
	aF   float64 // a * k0 * F
	rho0 float64
	lon0 float64
}

func newLambertConic(a, es, lat0, lon0, lat1, lat2, k0 float64) (*lambertConic, error) {
	if math.Abs(lat1+lat2) < 1e-10 {
		return nil, fmt.Errorf("%w: lcc standard parallels opposite the equator", ErrUnsupported)
	}
	lc := &lambertConic{e: math.Sqrt(es), lon0: lon0}

	phi1, phi2 := radians(lat1), radians(lat2)
	m1, t1 := lc.m(phi1), lc.t(phi1)
	if math.Abs(lat1-lat2) < 1e-10 {
		lc.n = math.Sin(phi1)
	} else {
		m2, t2 := lc.m(phi2), lc.t(phi2)
		lc.n = math.Log(m1/m2) / math.Log(t1/t2)
	}

	lc.aF = a * k0 * m1 / (lc.n * math.Pow(t1, lc.n))
	lc.rho0 = lc.rho(radians(lat0))
	return lc, nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func (lc *lambertConic) m(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-lc.e*lc.e*s*s)
}

func (lc *lambertConic) t(phi float64) float64 {
	es := lc.e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), lc.e/2)
}

func (lc *lambertConic) rho(phi float64) float64 {
	if math.Abs(math.Abs(phi)-math.Pi/2) < 1e-12 {
		if phi*lc.n > 0 {
			return 0
		}
		return math.Inf(1)
	}
	return lc.aF * math.Pow(lc.t(phi), lc.n)
}

func (lc *lambertConic) forward(lon, lat float64) (float64, float64, error) {
	if math.Abs(lat) > 90 {
		return 0, 0, ErrOutOfRange
	}
	rho := lc.rho(radians(lat))
	dlon := math.Remainder(lon-lc.lon0, 360)
	theta := lc.n * radians(dlon)
	return rho * math.Sin(theta), lc.rho0 - rho*math.Cos(theta), nil
}

func (lc *lambertConic) inverse(x, y float64) (float64, float64, error) {
	dy := lc.rho0 - y
	rho := math.Hypot(x, dy)
	if lc.n < 0 {
		rho, x, dy = -rho, -x, -dy
	}
	if rho == 0 {
		return lc.lon0, math.Copysign(90, lc.n), nil
	}

	theta := math.Atan2(x, dy)
	t := math.Pow(rho/lc.aF, 1/lc.n)

	phi := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < 15; i++ {
		es := lc.e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-es)/(1+es), lc.e/2))
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			return degrees(theta/lc.n) + lc.lon0, degrees(phi), nil
		}
		phi = next
	}
	return 0, 0, fmt.Errorf("%w: latitude did not converge", ErrOutOfRange)
}
