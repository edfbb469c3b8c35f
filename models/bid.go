package models

import (
	"time"

	"gorm.io/gorm"
)

// Bid qualification statuses. An empty status means the bid was registered
// during the protected pre-closing window and its numbers have not been
// finalized yet.
const (
	BidStatusInRange    = "In_Range"
	BidStatusOutOfRange = "Out_Of_Range"
)

// Bid represents a vendor's price/duration submission against a tender
type Bid struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	TenderID          uint    `gorm:"not null;index;uniqueIndex:idx_bids_tender_user" json:"tender_id"`
	Tender            Tender  `gorm:"foreignKey:TenderID" json:"-"`
	UserID            uint    `gorm:"not null;index;uniqueIndex:idx_bids_tender_user" json:"user_id"`
	User              User    `gorm:"foreignKey:UserID" json:"user"`
	DurationInLetters string  `json:"duration_in_letters"`
	DurationInNumbers string  `json:"duration_in_numbers"`
	PriceInLetters    string  `json:"price_in_letters"`
	PriceInNumbers    float64 `json:"price_in_numbers"`
	Status            string  `gorm:"index" json:"status"`
	Stage             string  `json:"stage"` // free-form evaluation stage tag, set by admins

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Bid model
func (Bid) TableName() string {
	return "bids"
}

// EvaluateBidStatus classifies a submitted price against a tender's price
// band. The band is inclusive at both ends.
func EvaluateBidStatus(minimumPrice, maximumPrice, submittedPrice float64) string {
	if submittedPrice >= minimumPrice && submittedPrice <= maximumPrice {
		return BidStatusInRange
	}
	return BidStatusOutOfRange
}
