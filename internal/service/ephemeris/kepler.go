package ephemeris

import "math"

// element is a J2000 value and its rate per Julian century.
type element struct{ v, rate float64 }

func (e element) at(T float64) float64 { return e.v + e.rate*T }

// orbit holds Keplerian elements referred to the J2000 ecliptic and equinox
// (Standish, JPL "Keplerian Elements for Approximate Positions of the Major Planets", 1800-2050).
type orbit struct {
	a, e, i, l, peri, node element
}

var (
	mercuryOrbit = orbit{
		a: element{0.38709927, 0.00000037}, e: element{0.20563593, 0.00001906},
		i: element{7.00497902, -0.00594749}, l: element{252.25032350, 149472.67411175},
		peri: element{77.45779628, 0.16047689}, node: element{48.33076593, -0.12534081},
	}
	venusOrbit = orbit{
		a: element{0.72333566, 0.00000390}, e: element{0.00677672, -0.00004107},
		i: element{3.39467605, -0.00078890}, l: element{181.97909950, 58517.81538729},
		peri: element{131.60246718, 0.00268329}, node: element{76.67984255, -0.27769418},
	}
	earthOrbit = orbit{
		a: element{1.00000261, 0.00000562}, e: element{0.01671123, -0.00004392},
		i: element{-0.00001531, -0.01294668}, l: element{100.46457166, 35999.37244981},
		peri: element{102.93768193, 0.32327364}, node: element{0, 0},
	}
	marsOrbit = orbit{
		a: element{1.52371034, 0.00001847}, e: element{0.09339410, 0.00007882},
		i: element{1.84969142, -0.00813131}, l: element{-4.55343205, 19140.30268499},
		peri: element{-23.94362959, 0.44441088}, node: element{49.55953891, -0.29257343},
	}
	jupiterOrbit = orbit{
		a: element{5.20288700, -0.00011607}, e: element{0.04838624, -0.00013253},
		i: element{1.30439695, -0.00183714}, l: element{34.39644051, 3034.74612775},
		peri: element{14.72847983, 0.21252668}, node: element{100.47390909, 0.20469106},
	}
	saturnOrbit = orbit{
		a: element{9.53667594, -0.00125060}, e: element{0.05386179, -0.00050991},
		i: element{2.48599187, 0.00193609}, l: element{49.95424423, 1222.49362201},
		peri: element{92.59887831, -0.41897216}, node: element{113.66242448, -0.28867794},
	}
)

// heliocentric returns ecliptic J2000 rectangular coordinates in AU.
func (o orbit) heliocentric(T float64) (x, y, z float64) {
	a := o.a.at(T)
	e := o.e.at(T)
	incl := o.i.at(T) * deg2rad
	peri := o.peri.at(T)
	node := o.node.at(T)
	argPeri := (peri - node) * deg2rad
	meanAnom := norm180(o.l.at(T) - peri)

	ecc := solveKepler(meanAnom*deg2rad, e)
	xp := a * (math.Cos(ecc) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(ecc)

	cw, sw := math.Cos(argPeri), math.Sin(argPeri)
	cn, sn := math.Cos(node*deg2rad), math.Sin(node*deg2rad)
	ci, si := math.Cos(incl), math.Sin(incl)

	x = (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp
	y = (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp
	z = (sw*si)*xp + (cw*si)*yp
	return x, y, z
}

// geocentricLongitude of a planet, ecliptic J2000, in degrees.
func geocentricLongitude(planet orbit, T float64) float64 {
	px, py, _ := planet.heliocentric(T)
	ex, ey, _ := earthOrbit.heliocentric(T)
	return norm360(math.Atan2(py-ey, px-ex) * rad2deg)
}

// solveKepler solves E - e sin E = M by Newton iteration. Angles in radians.
func solveKepler(m, e float64) float64 {
	ecc := m + e*math.Sin(m)
	for i := 0; i < 30; i++ {
		delta := (ecc - e*math.Sin(ecc) - m) / (1 - e*math.Cos(ecc))
		ecc -= delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	return ecc
}

func norm180(d float64) float64 {
	d = norm360(d)
	if d > 180 {
		d -= 360
	}
	return d
}
