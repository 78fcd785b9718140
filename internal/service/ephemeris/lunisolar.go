package ephemeris

// Low-precision solar and lunar theory after Meeus, Astronomical Algorithms ch. 25 and 47.
// Longitudes are tropical, referred to the mean equinox of date.

func sunApparent(T float64) float64 {
	l0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	m := 357.52911 + 35999.05029*T - 0.0001537*T*T
	c := (1.914602-0.004817*T-0.000014*T*T)*sind(m) +
		(0.019993-0.000101*T)*sind(2*m) +
		0.000289*sind(3*m)
	omega := 125.04 - 1934.136*T
	return norm360(l0 + c - 0.00569 - 0.00478*sind(omega))
}

// lunarTerm is one periodic term: coefficient (1e-6 deg) times sin(d*D + m*M + mp*M' + f*F).
type lunarTerm struct {
	d, m, mp, f int
	coeff       float64
}

var lunarLongitude = []lunarTerm{
	{0, 0, 1, 0, 6288774},
	{2, 0, -1, 0, 1274027},
	{2, 0, 0, 0, 658314},
	{0, 0, 2, 0, 213618},
	{0, 1, 0, 0, -185116},
	{0, 0, 0, 2, -114332},
	{2, 0, -2, 0, 58793},
	{2, -1, -1, 0, 57066},
	{2, 0, 1, 0, 53322},
	{2, -1, 0, 0, 45758},
	{0, 1, -1, 0, -40923},
	{1, 0, 0, 0, -34720},
	{0, 1, 1, 0, -30383},
	{2, 0, 0, -2, 15327},
	{0, 0, 1, 2, -12528},
	{0, 0, 1, -2, 10980},
	{4, 0, -1, 0, 10675},
	{0, 0, 3, 0, 10034},
	{4, 0, -2, 0, 8548},
	{2, 1, -1, 0, -7888},
	{2, 1, 0, 0, -6766},
	{1, 0, -1, 0, -5163},
	{1, 1, 0, 0, 4987},
	{2, -1, 1, 0, 4036},
	{2, 0, 2, 0, 3994},
	{4, 0, 0, 0, 3861},
	{2, 0, -3, 0, 3665},
	{0, 1, -2, 0, -2689},
	{2, 0, -1, 2, -2602},
	{2, -1, -2, 0, 2390},
	{1, 0, 1, 0, -2348},
	{2, -2, 0, 0, 2236},
	{0, 1, 2, 0, -2120},
	{0, 2, 0, 0, -2069},
}

func moonLongitude(T float64) float64 {
	lp := 218.3164477 + 481267.88123421*T - 0.0015786*T*T
	d := 297.8501921 + 445267.1114034*T - 0.0018819*T*T
	m := 357.5291092 + 35999.0502909*T - 0.0001536*T*T
	mp := 134.9633964 + 477198.8675055*T + 0.0087414*T*T
	f := 93.2720950 + 483202.0175233*T - 0.0036539*T*T
	e := 1 - 0.002516*T - 0.0000074*T*T

	var sum float64
	for _, term := range lunarLongitude {
		arg := float64(term.d)*d + float64(term.m)*m + float64(term.mp)*mp + float64(term.f)*f
		c := term.coeff
		switch term.m {
		case 1, -1:
			c *= e
		case 2, -2:
			c *= e * e
		}
		sum += c * sind(arg)
	}

	a1 := 119.75 + 131.849*T
	a2 := 53.09 + 479264.290*T
	sum += 3958*sind(a1) + 1962*sind(lp-f) + 318*sind(a2)

	return norm360(lp + sum/1e6)
}

// meanNode is the longitude of the mean ascending lunar node.
func meanNode(T float64) float64 {
	return norm360(125.0445479 - 1934.1362891*T + 0.0020754*T*T + T*T*T/467441)
}
