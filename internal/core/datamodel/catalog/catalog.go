package catalog

import "time"

type Property struct {
	ID          int64     `gorm:"primaryKey"`
	OwnerID     int64     `gorm:"column:owner_id;not null;index"`
	Name        string    `gorm:"column:name;not null"`
	ActiveCount int       `gorm:"column:active_count;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// StorageUnit carries per-period pricing in minor units. Occupancy is derived
// from the booking lifecycle; it is never mutated outside a booking transition.
type StorageUnit struct {
	ID              int64     `gorm:"primaryKey"`
	PropertyID      int64     `gorm:"column:property_id;not null;index"`
	Name            string    `gorm:"column:name;not null"`
	MonthlyCharge   int64     `gorm:"column:monthly_charge;not null"`
	MonthlyDiscount int64     `gorm:"column:monthly_discount;default:0"`
	YearlyCharge    int64     `gorm:"column:yearly_charge;not null"`
	YearlyDiscount  int64     `gorm:"column:yearly_discount;default:0"`
	IsOccupied      bool      `gorm:"column:is_occupied;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
