package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrUnavailable = errors.New("geolocation not available")

type Location struct {
	Name        string `json:"name"`
	Coordinates string `json:"coordinates"`
	Province    string `json:"province,omitempty"`
	Country     string `json:"country,omitempty"`
}

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geolocator reports the device position.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

type GeolocatorFunc func(ctx context.Context) (Position, error)

func (f GeolocatorFunc) CurrentPosition(ctx context.Context) (Position, error) { return f(ctx) }

// StaticGeolocator always reports the same position, or Err when set.
type StaticGeolocator struct {
	Pos Position
	Err error
}

func (s StaticGeolocator) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if s.Err != nil {
		return Position{}, s.Err
	}
	return s.Pos, nil
}

type Spot struct {
	Name     string
	Province string
	Position
}

var Spots = []Spot{
	{"Lake Simcoe", "Ontario", Position{44.42, -79.38}},
	{"Muskoka Lake", "Ontario", Position{45.01, -79.60}},
	{"Georgian Bay", "Ontario", Position{45.28, -80.72}},
	{"Lake Huron", "Ontario", Position{44.50, -82.10}},
	{"Rideau River", "Ontario", Position{45.26, -75.70}},
	{"Ottawa River", "Ontario", Position{45.47, -75.92}},
}

// Nearest returns the known fishing spot closest to p.
func Nearest(p Position) Spot {
	best, bestDist := Spots[0], math.Inf(1)
	for _, s := range Spots {
		if d := distanceKm(p, s.Position); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

// Describe names a position after the nearest spot.
func Describe(p Position) Location {
	spot := Nearest(p)
	return Location{
		Name:        spot.Name,
		Coordinates: FormatCoordinates(p),
		Province:    spot.Province,
		Country:     "Canada",
	}
}

// FormatCoordinates renders "44.4200° N, 79.3800° W".
func FormatCoordinates(p Position) string {
	ns, ew := "N", "E"
	if p.Lat < 0 {
		ns = "S"
	}
	if p.Lng < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.4f° %s, %.4f° %s", math.Abs(p.Lat), ns, math.Abs(p.Lng), ew)
}

func Unknown() Location {
	return Location{Name: "Unknown Location", Coordinates: "Location not available"}
}

func OfflineUnknown() Location {
	return Location{Name: "Unknown Location (Offline)", Coordinates: "Location not available", Country: "Canada"}
}

const earthRadiusKm = 6371.0

func distanceKm(a, b Position) float64 {
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
