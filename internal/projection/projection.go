// Package projection implements the two conformal-ish spherical map
// projections used for storm-hazard gridding: Lambert conformal conic (the
// RAP-model projection) and azimuthal equidistant. Both are invertible and
// computed on a sphere of radius 6 370 997 m.
//
// Coordinates are always (latitude °N, longitude °E) on the geographic side
// and (x, y) metres on the planar side, x increasing eastward and y
// northward. Longitudes are normalized into the 0–360°E convention so grids
// spanning the ±180° meridian stay monotonic.
package projection

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusMetres is the sphere radius shared by both projection families.
const EarthRadiusMetres = 6370997.0

// Family names a supported projection family.
type Family string

const (
	// LambertConformal is a Lambert conformal conic projection defined by two
	// standard parallels and a central meridian.
	LambertConformal Family = "lambert-conformal"

	// AzimuthalEquidistant is an azimuthal equidistant projection defined by
	// a central latitude and longitude.
	AzimuthalEquidistant Family = "azimuthal-equidistant"
)

var (
	// ErrInvalidLatitude indicates a latitude outside [-90, 90].
	ErrInvalidLatitude = errors.New("latitude out of range [-90, 90]")

	// ErrDegenerateProjection indicates parameters from which no invertible
	// projection can be built.
	ErrDegenerateProjection = errors.New("degenerate projection parameters")
)

// Params defines a projection. For LambertConformal, StandardParallels and
// CentralLongitude are used; for AzimuthalEquidistant, CentralLatitude and
// CentralLongitude.
type Params struct {
	Family            Family     `json:"family"`
	StandardParallels [2]float64 `json:"standard_parallels,omitempty"`
	CentralLatitude   float64    `json:"central_latitude,omitempty"`
	CentralLongitude  float64    `json:"central_longitude"`
}

// Projection is an invertible map between geographic and planar coordinates.
// It is immutable after construction; callers inject it explicitly wherever a
// conversion is needed.
type Projection struct {
	params Params

	// Lambert cone constants.
	n    float64
	bigF float64
	rho0 float64

	// Azimuthal-equidistant center, radians.
	phi0 float64

	// Central meridian, radians, shared by both families.
	lambda0 float64
}

// New builds a projection from params.
func New(params Params) (*Projection, error) {
	p := &Projection{params: params}
	p.params.CentralLongitude = normalizeLongitude(params.CentralLongitude)
	p.lambda0 = toRadians(p.params.CentralLongitude)

	switch params.Family {
	case LambertConformal:
		lat1 := params.StandardParallels[0]
		lat2 := params.StandardParallels[1]
		for _, lat := range []float64{lat1, lat2} {
			if err := checkLatitude(lat); err != nil {
				return nil, err
			}
			if math.Abs(lat) == 90 {
				return nil, fmt.Errorf("%w: standard parallel at a pole", ErrDegenerateProjection)
			}
		}

		phi1 := toRadians(lat1)
		phi2 := toRadians(lat2)
		if lat1 == lat2 {
			p.n = math.Sin(phi1)
		} else {
			p.n = math.Log(math.Cos(phi1)/math.Cos(phi2)) /
				math.Log(math.Tan(math.Pi/4+phi2/2)/math.Tan(math.Pi/4+phi1/2))
		}
		if p.n == 0 {
			// Parallels symmetric about the equator collapse the cone to a
			// cylinder, which this family cannot represent.
			return nil, fmt.Errorf("%w: standard parallels %v yield a zero cone constant", ErrDegenerateProjection, params.StandardParallels)
		}

		p.bigF = math.Cos(phi1) * math.Pow(math.Tan(math.Pi/4+phi1/2), p.n) / p.n
		p.rho0 = EarthRadiusMetres * p.bigF // reference latitude 0°

	case AzimuthalEquidistant:
		if err := checkLatitude(params.CentralLatitude); err != nil {
			return nil, err
		}
		p.phi0 = toRadians(params.CentralLatitude)

	default:
		return nil, fmt.Errorf("%w: unknown family %q", ErrDegenerateProjection, params.Family)
	}

	return p, nil
}

// Params returns the definition this projection was built from, with the
// central longitude normalized to 0–360°E.
func (p *Projection) Params() Params {
	return p.params
}

// ToXY converts one geographic point to planar coordinates, adding the false
// easting and northing to the result. NaN inputs yield NaN outputs rather
// than an error, so missing observations propagate through untouched.
func (p *Projection) ToXY(lat, lon, falseEasting, falseNorthing float64) (x, y float64, err error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return math.NaN(), math.NaN(), nil
	}
	if err := checkLatitude(lat); err != nil {
		return 0, 0, err
	}

	lon = normalizeLongitude(lon)
	phi := toRadians(lat)
	dLambda := wrapRadians(toRadians(lon) - p.lambda0)

	switch p.params.Family {
	case LambertConformal:
		rho := p.rho(phi)
		theta := p.n * dLambda
		x = rho * math.Sin(theta)
		y = p.rho0 - rho*math.Cos(theta)

	case AzimuthalEquidistant:
		cosC := math.Sin(p.phi0)*math.Sin(phi) +
			math.Cos(p.phi0)*math.Cos(phi)*math.Cos(dLambda)
		cosC = clamp(cosC, -1, 1)
		c := math.Acos(cosC)

		k := 1.0
		if c != 0 {
			k = c / math.Sin(c)
		}
		x = EarthRadiusMetres * k * math.Cos(phi) * math.Sin(dLambda)
		y = EarthRadiusMetres * k *
			(math.Cos(p.phi0)*math.Sin(phi) - math.Sin(p.phi0)*math.Cos(phi)*math.Cos(dLambda))
	}

	return x + falseEasting, y + falseNorthing, nil
}

// ToLatLon converts one planar point back to geographic coordinates,
// subtracting the false easting and northing first. NaN inputs yield NaN
// outputs. Longitudes come back in the 0–360°E convention.
func (p *Projection) ToLatLon(x, y, falseEasting, falseNorthing float64) (lat, lon float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN(), math.NaN()
	}

	x -= falseEasting
	y -= falseNorthing

	switch p.params.Family {
	case LambertConformal:
		dy := p.rho0 - y
		rho := math.Hypot(x, dy)
		if p.n < 0 {
			rho = -rho
			x = -x
			dy = -dy
		}
		if rho == 0 {
			pole := 90.0
			if p.n < 0 {
				pole = -90.0
			}
			return pole, p.params.CentralLongitude
		}

		theta := math.Atan2(x, dy)
		phi := 2*math.Atan(math.Pow(EarthRadiusMetres*p.bigF/rho, 1/p.n)) - math.Pi/2
		lat = toDegrees(phi)
		lon = normalizeLongitude(p.params.CentralLongitude + toDegrees(theta/p.n))
		return lat, lon

	case AzimuthalEquidistant:
		rho := math.Hypot(x, y)
		if rho == 0 {
			return toDegrees(p.phi0), p.params.CentralLongitude
		}
		c := rho / EarthRadiusMetres
		sinC, cosC := math.Sin(c), math.Cos(c)

		phi := math.Asin(clamp(cosC*math.Sin(p.phi0)+y*sinC*math.Cos(p.phi0)/rho, -1, 1))
		dLambda := math.Atan2(
			x*sinC,
			rho*cosC*math.Cos(p.phi0)-y*sinC*math.Sin(p.phi0),
		)
		lat = toDegrees(phi)
		lon = normalizeLongitude(p.params.CentralLongitude + toDegrees(dLambda))
		return lat, lon
	}

	return math.NaN(), math.NaN()
}

// LatLonsToXY converts parallel latitude/longitude slices elementwise.
func (p *Projection) LatLonsToXY(lats, lons []float64, falseEasting, falseNorthing float64) (xs, ys []float64, err error) {
	if len(lats) != len(lons) {
		return nil, nil, fmt.Errorf("coordinate arrays differ in length: %d vs %d", len(lats), len(lons))
	}
	xs = make([]float64, len(lats))
	ys = make([]float64, len(lats))
	for i := range lats {
		xs[i], ys[i], err = p.ToXY(lats[i], lons[i], falseEasting, falseNorthing)
		if err != nil {
			return nil, nil, fmt.Errorf("point %d: %w", i, err)
		}
	}
	return xs, ys, nil
}

// XYsToLatLon converts parallel x/y slices elementwise.
func (p *Projection) XYsToLatLon(xs, ys []float64, falseEasting, falseNorthing float64) (lats, lons []float64, err error) {
	if len(xs) != len(ys) {
		return nil, nil, fmt.Errorf("coordinate arrays differ in length: %d vs %d", len(xs), len(ys))
	}
	lats = make([]float64, len(xs))
	lons = make([]float64, len(xs))
	for i := range xs {
		lats[i], lons[i] = p.ToLatLon(xs[i], ys[i], falseEasting, falseNorthing)
	}
	return lats, lons, nil
}

// rho returns the Lambert cone distance (metres) from the apex for a given
// latitude in radians.
func (p *Projection) rho(phi float64) float64 {
	return EarthRadiusMetres * p.bigF / math.Pow(math.Tan(math.Pi/4+phi/2), p.n)
}

func checkLatitude(lat float64) error {
	if math.Abs(lat) > 90 {
		return fmt.Errorf("%w: got %g", ErrInvalidLatitude, lat)
	}
	return nil
}

// normalizeLongitude maps any longitude into [0, 360)°E.
func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

// wrapRadians maps an angle into (-π, π].
func wrapRadians(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }
