// Package field holds the primitives shared by everything a ranger records in the field.
package field

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rpggio/fieldwork/internal/fault"
)

var (
	// ErrMissingCoordinate indicates a latitude or longitude was not supplied.
	ErrMissingCoordinate = fmt.Errorf("%w: latitude and longitude are both required", fault.ErrValidation)
	// ErrCoordinateRange indicates a coordinate outside valid degrees.
	ErrCoordinateRange = fmt.Errorf("%w: coordinate out of range", fault.ErrValidation)
	// ErrMissingTime indicates an empty clock time.
	ErrMissingTime = fmt.Errorf("%w: time is required", fault.ErrValidation)
	// ErrInvalidTime indicates a clock time that is not HH:MM or HH:MM:SS.
	ErrInvalidTime = fmt.Errorf("%w: time must be HH:MM or HH:MM:SS", fault.ErrValidation)
)

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Validate checks both axes are finite and within range.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return ErrCoordinateRange
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return ErrCoordinateRange
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return ErrCoordinateRange
	}
	return nil
}

// Position is user input where either axis may be missing.
// A missing axis is never defaulted to zero.
type Position struct {
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lng,omitempty"`
}

// At builds a fully specified Position.
func At(lat, lng float64) Position {
	return Position{Latitude: &lat, Longitude: &lng}
}

// Coordinates resolves the position, failing if an axis is absent or out of range.
func (p Position) Coordinates() (Coordinates, error) {
	if p.Latitude == nil || p.Longitude == nil {
		return Coordinates{}, ErrMissingCoordinate
	}
	c := Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

// ParseClock validates a wall-clock time of day as entered on the device.
func ParseClock(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrMissingTime
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, value); err == nil {
			return value, nil
		}
	}
	return "", ErrInvalidTime
}

// Durability says when an item reaches the store.
type Durability int

const (
	// Immediate items are persisted as soon as they are captured.
	Immediate Durability = iota
	// Deferred items stay in the session buffer until the activity is finalized.
	Deferred
)

func (d Durability) String() string {
	switch d {
	case Immediate:
		return "immediate"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}
