package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles. Clients own projects, vendors (consultants, contractors,
// suppliers) bid on tenders, admins run the marketplace.
const (
	RoleClient     = "Client"
	RoleConsultant = "Consultant"
	RoleSupplier   = "Supplier"
	RoleContractor = "Contractor"
	RoleSuperAdmin = "Super_Admin"
	RoleAdmin      = "Admin"
	RoleEmployee   = "Employee"
)

// User represents a marketplace account (client, vendor or admin)
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Auth0ID      string `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	MobileNumber string `gorm:"size:8" json:"mobile_number"`
	Role         string `gorm:"not null;default:'Client'" json:"role"`

	// Contractors are only allowed to bid once an admin flips this flag.
	CanParticipateInTenders bool `gorm:"not null;default:false" json:"can_participate_in_tenders"`

	CompanyID *uint          `gorm:"index" json:"company_id"`
	Company   *Company       `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsVendor reports whether the user belongs to a bidding role
func (u *User) IsVendor() bool {
	return u.Role == RoleConsultant || u.Role == RoleContractor || u.Role == RoleSupplier
}

// IsAdmin reports whether the user belongs to an administrative role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}
