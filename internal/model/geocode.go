package model

import (
	"time"
)

// GeocodePG is the GORM model for a cached address lookup
type GeocodePG struct {
	Address   string  `gorm:"primaryKey;size:512"`
	Latitude  float64 `gorm:"not null"`
	Longitude float64 `gorm:"not null"`
	Name      string  `gorm:"size:512"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the table name stable regardless of the struct name
func (GeocodePG) TableName() string {
	return "geocode_cache"
}

// ToDestination converts the cached row into a Destination
func (g *GeocodePG) ToDestination() Destination {
	return Destination{
		Coordinate: Coordinate{Latitude: g.Latitude, Longitude: g.Longitude},
		Name:       g.Name,
	}
}

// GeocodeFromDestination builds a cache row for a normalized address
func GeocodeFromDestination(address string, d Destination) *GeocodePG {
	return &GeocodePG{
		Address:   address,
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
		Name:      d.Name,
	}
}
