package postgres

import (
	"gorm.io/gorm"

	catalogpkg "storage-marketplace/internal/catalog"
	catalogmodel "storage-marketplace/internal/core/datamodel/catalog"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) catalogpkg.Repository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetUnit(unitID int64) (*catalogmodel.StorageUnit, error) {
	var unit catalogmodel.StorageUnit
	err := r.db.First(&unit, unitID).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *CatalogRepository) GetProperty(propertyID int64) (*catalogmodel.Property, error) {
	var property catalogmodel.Property
	err := r.db.First(&property, propertyID).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *CatalogRepository) GetPropertiesByOwner(ownerID int64) ([]*catalogmodel.Property, error) {
	var properties []*catalogmodel.Property
	err := r.db.Where("owner_id = ?", ownerID).Order("id ASC").Find(&properties).Error
	return properties, err
}

func (r *CatalogRepository) SetOccupancy(unitID int64, occupied bool) error {
	return r.db.Model(&catalogmodel.StorageUnit{}).
		Where("id = ?", unitID).
		UpdateColumn("is_occupied", occupied).Error
}

func (r *CatalogRepository) AdjustActiveCount(propertyID int64, delta int) error {
	return r.db.Model(&catalogmodel.Property{}).
		Where("id = ?", propertyID).
		UpdateColumn("active_count", gorm.Expr("active_count + ?", delta)).Error
}
