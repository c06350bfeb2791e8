package stateplane

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-spatial/proj/core"
	_ "github.com/go-spatial/proj/operations" // registers etmerc
	"github.com/go-spatial/proj/support"
)

// transverseMercator runs the extended transverse Mercator of go-spatial/proj
// centred on the Greenwich meridian and the equator; the zone's central
// meridian and origin latitude are applied here.
type transverseMercator struct {
	op        core.IConvertLPToXY
	lon0      float64
	northing0 float64 // projected northing of the origin latitude
}

func newTransverseMercator(ellps string, lat0, lon0, k0 float64) (*transverseMercator, error) {
	ps, err := support.NewProjString("+proj=etmerc +ellps=" + ellps + " +k_0=" + strconv.FormatFloat(k0, 'g', -1, 64))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	_, opx, err := core.NewSystem(ps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	op, ok := opx.(core.IConvertLPToXY)
	if !ok {
		return nil, fmt.Errorf("%w: etmerc is not a forward projection", ErrUnsupported)
	}

	tm := &transverseMercator{op: op, lon0: lon0}
	origin, err := op.Forward(&core.CoordLP{Lam: 0, Phi: support.DDToR(lat0)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	tm.northing0 = origin.Y
	return tm, nil
}

func (tm *transverseMercator) forward(lon, lat float64) (float64, float64, error) {
	xy, err := tm.op.Forward(&core.CoordLP{Lam: support.DDToR(lon - tm.lon0), Phi: support.DDToR(lat)})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	if xy.X == math.MaxFloat64 {
		return 0, 0, ErrOutOfRange
	}
	return xy.X, xy.Y - tm.northing0, nil
}

func (tm *transverseMercator) inverse(x, y float64) (float64, float64, error) {
	lp, err := tm.op.Inverse(&core.CoordXY{X: x, Y: y + tm.northing0})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	if lp.Lam == math.MaxFloat64 || lp.Phi == math.MaxFloat64 {
		return 0, 0, ErrOutOfRange
	}
	return support.RToDD(lp.Lam) + tm.lon0, support.RToDD(lp.Phi), nil
}
