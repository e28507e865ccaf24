// Package solar computes sun geometry for a site: zenith, azimuth and
// atmospheric refraction, from which the irradiance transposition derives
// plane-of-array components.
package solar

import (
	"math"
	"time"
)

// Position is the sun's angular position for one timestamp and site.
// Angles are in degrees; azimuth is measured clockwise from north.
type Position struct {
	Zenith         float64
	ApparentZenith float64
	Elevation      float64
	Azimuth        float64
}

// degToRad converts an angle from degrees to radians
func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

// radToDeg converts an angle from radians to degrees
func radToDeg(rad float64) float64 {
	return rad * (180.0 / math.Pi)
}

// fixAngle normalizes an angle to the range [0, 360) degrees
func fixAngle(angle float64) float64 {
	return math.Mod(math.Mod(angle, 360)+360, 360)
}

// jdFromTime converts a UTC time to Julian Day
func jdFromTime(t time.Time) float64 {
	return 2440587.5 + float64(t.Unix())/86400.0
}

// equationOfTime calculates the Equation of Time in minutes, the difference
// between apparent and mean solar time.
func equationOfTime(t time.Time) float64 {
	jd := jdFromTime(t)
	T := (jd - 2451545.0) / 36525.0 // Julian centuries since J2000.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))            // mean longitude of the Sun (degrees)
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))             // mean anomaly of the Sun (degrees)
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)                  // eccentricity of Earth's orbit
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60 // mean obliquity of the ecliptic (degrees)

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	eqTimeMin := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4 // 4 min per degree

	return eqTimeMin
}

// declination approximates the solar declination angle in degrees for the
// day of year, peaking at the solstices.
func declination(t time.Time) float64 {
	N := t.YearDay()
	return 23.45 * math.Sin(degToRad(360.0/365.0*float64(N-81)))
}

// refractionCorrection estimates atmospheric refraction in degrees at the
// given true elevation, scaled down with altitude as the atmosphere thins.
// Near the horizon refraction lifts the apparent sun by about half a degree.
func refractionCorrection(elevation, altitude float64) float64 {
	if elevation < -1 || elevation >= 90 {
		return 0
	}
	// Saemundsson's formula, in arcminutes
	r := 1.02 / math.Tan(degToRad(elevation+10.3/(elevation+5.11)))
	return r / 60.0 * math.Exp(-altitude/8000.0)
}

// PositionAt computes the sun position for a UTC instant at the given site.
// The timestamp is converted to UTC internally, so callers may pass
// zone-local times.
func PositionAt(t time.Time, latitude, longitude, altitude float64) Position {
	t = t.UTC()

	delta := declination(t)

	// True solar time: clock time shifted by longitude and the equation of
	// time, normalized to one day.
	utcMin := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0
	tst := utcMin + 4*longitude + equationOfTime(t)
	tst = math.Mod(tst, 1440)
	if tst < 0 {
		tst += 1440
	}
	H := (tst / 4) - 180 // hour angle, noon = 0

	latRad := degToRad(latitude)
	deltaRad := degToRad(delta)
	HRad := degToRad(H)

	cosThetaZ := math.Sin(latRad)*math.Sin(deltaRad) + math.Cos(latRad)*math.Cos(deltaRad)*math.Cos(HRad)
	cosThetaZ = clamp(cosThetaZ, -1, 1)
	zenith := radToDeg(math.Acos(cosThetaZ))
	elevation := 90 - zenith

	// Azimuth from the spherical triangle; acos is symmetric, so the hour
	// angle sign decides the east/west half.
	var azimuth float64
	denom := math.Cos(degToRad(elevation)) * math.Cos(latRad)
	if denom != 0 {
		cosAz := (math.Sin(deltaRad) - math.Sin(degToRad(elevation))*math.Sin(latRad)) / denom
		azimuth = radToDeg(math.Acos(clamp(cosAz, -1, 1)))
		if H > 0 {
			azimuth = 360 - azimuth
		}
	} else {
		azimuth = 180
	}

	apparentElevation := elevation + refractionCorrection(elevation, altitude)

	return Position{
		Zenith:         zenith,
		ApparentZenith: 90 - apparentElevation,
		Elevation:      elevation,
		Azimuth:        azimuth,
	}
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
