// Package georisk estimates the ground consequence of a conjunction: a
// weighted composite of infrastructure proximity, latitude-band population
// density, and orbital catalog density under the event's ground point.
package georisk

import (
	"math"

	"github.com/AntAci/AstraGuard/internal/frames"
	"github.com/AntAci/AstraGuard/internal/orbit"
)

// Zone is one entry of the geospatial risk index.
type Zone struct {
	LatDeg    float64
	LonDeg    float64
	RadiusDeg float64 // influence radius, degrees of arc
	Label     string
	Weight    float64
}

// zoneCategory groups zones of one kind with their category weight.
// Categories are a slice, not a map: scoring iterates them in a fixed order
// so ties resolve identically on every run.
type zoneCategory struct {
	name   string
	weight float64
	zones  []Zone
}

var geospatialIndex = []zoneCategory{
	{"launch_sites", 1.0, []Zone{
		{28.5, -80.6, 1.5, "Kennedy Space Center", 0.98},
		{46.0, 63.3, 2.0, "Baikonur Cosmodrome", 0.95},
		{5.2, -52.8, 1.5, "Kourou CSG", 0.93},
		{31.3, 131.0, 1.5, "Tanegashima", 0.90},
		{28.2, -16.6, 1.5, "Canary Islands", 0.88},
		{34.6, -120.6, 1.5, "Vandenberg SFB", 0.92},
		{19.6, 110.9, 1.5, "Wenchang", 0.91},
	}},
	{"tier_1_metro", 0.9, []Zone{
		{35.7, 139.7, 3.0, "Tokyo Metro", 0.95},
		{40.7, -74.0, 3.0, "NYC Metro", 0.92},
		{51.5, -0.1, 3.0, "London", 0.90},
		{31.2, 121.5, 3.0, "Shanghai", 0.90},
		{28.6, 77.2, 3.0, "Delhi NCR", 0.88},
		{23.1, 113.3, 3.0, "Guangzhou-Shenzhen", 0.87},
		{37.6, 127.0, 3.0, "Seoul Metro", 0.86},
		{35.0, 136.9, 2.5, "Nagoya-Osaka Corridor", 0.85},
	}},
	{"tier_2_metro", 0.7, []Zone{
		{-23.5, -46.6, 2.5, "Sao Paulo", 0.78},
		{19.4, -99.1, 2.5, "Mexico City", 0.76},
		{30.0, 31.2, 2.0, "Cairo", 0.74},
		{55.8, 37.6, 2.5, "Moscow", 0.73},
		{-33.9, 151.2, 2.0, "Sydney", 0.70},
		{41.9, 12.5, 2.0, "Rome", 0.68},
		{48.9, 2.3, 2.5, "Paris", 0.75},
	}},
	{"ground_stations", 0.8, []Zone{
		{78.2, 15.6, 2.0, "Svalbard GS", 0.85},
		{64.1, -21.9, 2.0, "Keflavik GS", 0.75},
		{-35.4, 148.9, 2.0, "Canberra DSN", 0.80},
		{35.3, -116.9, 2.0, "Goldstone DSN", 0.80},
		{40.4, -4.2, 2.0, "Madrid DSN", 0.78},
	}},
	{"shipping_corridors", 0.5, []Zone{
		{1.3, 103.8, 2.0, "Strait of Malacca", 0.70},
		{30.0, 32.3, 1.5, "Suez Canal", 0.75},
		{9.0, -79.5, 1.5, "Panama Canal", 0.72},
		{36.0, -5.5, 1.5, "Strait of Gibraltar", 0.65},
		{12.0, 43.0, 1.5, "Bab el-Mandeb", 0.68},
	}},
}

// Latitude-band population density buckets over land-dominated bands.
var populationBands = []struct {
	absLatMin, absLatMax, density float64
}{
	{0, 10, 0.45},
	{10, 25, 0.70},
	{25, 45, 0.85},
	{45, 60, 0.55},
	{60, 90, 0.15},
}

// Confirmed open-ocean circles (center lat/lon deg, radius km). Points
// inside score as ocean regardless of latitude band; radii are conservative
// so coastal and island areas keep the band model.
var oceanZones = []struct {
	latDeg, lonDeg, radiusKM float64
}{
	{-20.0, 80.0, 2500},  // Central Indian Ocean
	{10.0, 160.0, 3000},  // Western Pacific
	{0.0, -140.0, 4000},  // Eastern Pacific
	{-20.0, -25.0, 3000}, // South Atlantic
	{35.0, -40.0, 2500},  // North Atlantic
	{-60.0, 0.0, 5500},   // Southern Ocean (circumpolar)
	{80.0, 0.0, 3000},    // Arctic Ocean
	{-10.0, -25.0, 2000}, // Equatorial Atlantic
}

const oceanPopulationScore = 0.02

// Orbital catalog density by altitude band (km).
var orbitalDensityBands = []struct {
	altMinKM, altMaxKM, density float64
}{
	{0, 400, 0.30},
	{400, 600, 0.55},
	{600, 900, 0.85},
	{900, 1200, 0.60},
	{1200, 2000, 0.35},
	{2000, 36000, 0.20},
	{36000, 100000, 0.10},
}

// Components is the per-factor breakdown of an impact score.
type Components struct {
	Infra      float64 `json:"infra"`
	Population float64 `json:"population"`
	Orbital    float64 `json:"orbital"`
}

// Score is the ground-consequence estimate for one event.
type Score struct {
	Impact         float64    `json:"impact_score"` // 0..1 composite
	GroundLatDeg   float64    `json:"ground_lat"`
	GroundLonDeg   float64    `json:"ground_lon"`
	AltKM          float64    `json:"alt_km"`
	NearestZone    string     `json:"nearest_zone,omitempty"`
	ZoneCategory   string     `json:"zone_category,omitempty"`
	ZoneDistanceKM float64    `json:"zone_distance_km,omitempty"`
	Components     Components `json:"components"`
}

// ScoreECEF computes the impact score under an Earth-fixed position
// (meters), typically the primary object's position at TCA.
func ScoreECEF(pos orbit.Vec3) Score {
	g := frames.EcefToGeodetic(pos)
	latDeg := g.LatRad * 180 / math.Pi
	lonDeg := g.LonRad * 180 / math.Pi
	return scoreGround(latDeg, lonDeg, g.AltM/1000)
}

func scoreGround(latDeg, lonDeg, altKM float64) Score {
	infra, zone, category, distKM := infraProximity(latDeg, lonDeg)
	population := populationScore(latDeg, lonDeg)
	orbital := orbitalDensityScore(altKM)

	impact := 0.6*infra + 0.3*population + 0.1*orbital
	impact = math.Min(1, math.Max(0, impact))

	return Score{
		Impact:         impact,
		GroundLatDeg:   latDeg,
		GroundLonDeg:   lonDeg,
		AltKM:          altKM,
		NearestZone:    zone,
		ZoneCategory:   category,
		ZoneDistanceKM: distKM,
		Components:     Components{Infra: infra, Population: population, Orbital: orbital},
	}
}

// infraProximity finds the strongest zone influence at a ground point.
// Inside a zone's radius the full weight applies; outside it decays
// exponentially with a 500 km scale.
func infraProximity(latDeg, lonDeg float64) (score float64, zone, category string, distKM float64) {
	deg := math.Pi / 180
	for _, cat := range geospatialIndex {
		for _, z := range cat.zones {
			d := frames.Haversine(latDeg*deg, lonDeg*deg, z.LatDeg*deg, z.LonDeg*deg) / 1000
			radiusKM := z.RadiusDeg * 111.0
			s := z.Weight * cat.weight
			if d > radiusKM {
				s *= math.Exp(-(d - radiusKM) / 500.0)
			}
			if s > score {
				score, zone, category, distKM = s, z.Label, cat.name, d
			}
		}
	}
	return math.Min(score, 1), zone, category, distKM
}

func isOpenOcean(latDeg, lonDeg float64) bool {
	deg := math.Pi / 180
	for _, oz := range oceanZones {
		if frames.Haversine(latDeg*deg, lonDeg*deg, oz.latDeg*deg, oz.lonDeg*deg)/1000 <= oz.radiusKM {
			return true
		}
	}
	return false
}

func populationScore(latDeg, lonDeg float64) float64 {
	if isOpenOcean(latDeg, lonDeg) {
		return oceanPopulationScore
	}
	absLat := math.Abs(latDeg)
	for _, b := range populationBands {
		if absLat >= b.absLatMin && absLat < b.absLatMax {
			return b.density
		}
	}
	return 0.10
}

func orbitalDensityScore(altKM float64) float64 {
	for _, b := range orbitalDensityBands {
		if altKM >= b.altMinKM && altKM < b.altMaxKM {
			return b.density
		}
	}
	return 0.10
}
