package ephemeris

// lahiriJ2000 is the Lahiri ayanamsa at J2000.0 in degrees.
const lahiriJ2000 = 23.857

// lahiri returns the Lahiri ayanamsa of date, T in Julian centuries from J2000.
func lahiri(T float64) float64 {
	return lahiriJ2000 + 1.396971*T + 0.0003086*T*T
}
