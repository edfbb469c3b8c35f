package models

import (
	"time"

	"gorm.io/gorm"
)

// Company represents a vendor company attached to one or more user accounts
type Company struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Name                string         `gorm:"not null" json:"name"`
	CommercialRegNumber string         `gorm:"not null" json:"commercial_reg_number"`
	Address             string         `gorm:"not null" json:"address"`
	TotalEmployees      int            `gorm:"not null" json:"total_employees"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Company model
func (Company) TableName() string {
	return "companies"
}
