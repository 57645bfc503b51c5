package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"saferoute/internal/model"
)

// GeocodeStore caches address lookups in the geocode_cache table.
// Only the normalized address and the resolved point are stored.
type GeocodeStore struct {
	db *gorm.DB
}

func NewGeocodeStore(db *gorm.DB) *GeocodeStore {
	return &GeocodeStore{db: db}
}

func (s *GeocodeStore) LookupGeocode(ctx context.Context, address string) (model.Destination, bool, error) {
	var row model.GeocodePG
	err := s.db.WithContext(ctx).Where("address = ?", address).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Destination{}, false, nil
	}
	if err != nil {
		return model.Destination{}, false, err
	}
	return row.ToDestination(), true, nil
}

func (s *GeocodeStore) SaveGeocode(ctx context.Context, address string, destination model.Destination) error {
	row := model.GeocodeFromDestination(address, destination)
	return upsertGeocode(s.db.WithContext(ctx), row).Error
}

func upsertGeocode(db *gorm.DB, row *model.GeocodePG) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "name", "updated_at"}),
	}).Create(row)
}
