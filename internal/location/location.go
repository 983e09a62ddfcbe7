package location

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Location is a resolved latitude/longitude pair.
type Location struct {
	Lat float64
	Lon float64
}

func (l Location) String() string {
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lon)
}

// Valid reports whether the coordinates are finite and in range.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Provider resolves the device location. Lookup may block; it must honor
// ctx cancellation.
type Provider interface {
	Lookup(ctx context.Context) (Location, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (Location, error)

func (f ProviderFunc) Lookup(ctx context.Context) (Location, error) {
	return f(ctx)
}

// ErrNotConfigured is returned by a Static provider without coordinates.
var ErrNotConfigured = errors.New("location not configured")

// Static always returns a fixed location, typically from config.
type Static struct {
	Loc Location
	Set bool
}

// NewStatic returns a provider for lat/lon. Nil pointers yield a provider
// that always fails with ErrNotConfigured.
func NewStatic(lat, lon *float64) Static {
	if lat == nil || lon == nil {
		return Static{}
	}
	return Static{Loc: Location{Lat: *lat, Lon: *lon}, Set: true}
}

func (s Static) Lookup(ctx context.Context) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	if !s.Set {
		return Location{}, ErrNotConfigured
	}
	if !s.Loc.Valid() {
		return Location{}, fmt.Errorf("location %s out of range", s.Loc)
	}
	return s.Loc, nil
}
