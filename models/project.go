package models

import (
	"time"

	"gorm.io/gorm"
)

// Project represents a client's construction project; tenders are generated
// against a project
type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Location    string         `gorm:"not null" json:"location"` // Doha, Al Rayyan, Umm Salal, Al Khor & Al Thakira, Al Wakrah, Al Daayen, Al Shamal, Al Shahaniya
	Description string         `gorm:"size:1000;not null" json:"description"`
	Type        string         `gorm:"not null" json:"type"` // Villa, Commercial Building, Industrial Project
	IsApproved  bool           `gorm:"not null;default:false" json:"is_approved"`
	ImageS3Key  *string        `json:"image_s3_key"`
	ClientID    uint           `gorm:"not null;index" json:"client_id"` // foreign key to users table
	Client      User           `gorm:"foreignKey:ClientID" json:"client"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Project model
func (Project) TableName() string {
	return "projects"
}
