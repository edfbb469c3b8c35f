package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Tender lifecycle statuses. Transitions are monotonic except for the
// explicit un-award path back to Under_Evaluation; a closed tender is never
// re-opened.
const (
	TenderStatusOpen            = "Open"
	TenderStatusUnderEvaluation = "Under_Evaluation"
	TenderStatusAwarded         = "Awarded"
)

// ProtectedBidWindow is the span before closing during which bid price
// capture is deferred: the bid is registered without numbers and the bidder
// is reminded to finalize it.
const ProtectedBidWindow = 10 * time.Minute

// MaxTenderDocuments caps how many documents may be attached to a tender
const MaxTenderDocuments = 3

// Tender represents a time-boxed request for vendor bids with a price band
type Tender struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenderNumber string    `gorm:"uniqueIndex;not null" json:"tender_number"`
	Type         string    `gorm:"not null" json:"type"`
	OpeningDate  time.Time `gorm:"not null" json:"opening_date"`
	ClosingDate  time.Time `gorm:"not null" json:"closing_date"`
	MinimumPrice float64   `gorm:"not null" json:"minimum_price"`
	MaximumPrice float64   `gorm:"not null" json:"maximum_price"`
	Location     string    `gorm:"not null" json:"location"`
	Description  string    `gorm:"size:1000;not null" json:"description"`
	Status       string    `gorm:"not null;default:'Open';index" json:"status"`

	// Semicolon-joined S3 keys, at most MaxTenderDocuments of them.
	Documents *string `json:"-"`

	// Presigned URLs for Documents, filled on read, never stored.
	DocumentURLs []string `gorm:"-" json:"document_urls,omitempty"`

	ProjectID uint    `gorm:"not null;index" json:"project_id"`
	Project   Project `gorm:"foreignKey:ProjectID" json:"project"`

	// Set by the award transition, cleared by un-award. The company label
	// lives in its own column; the status stays a plain enum.
	AwardedTo      *uint   `gorm:"index" json:"awarded_to"`
	AwardedVendor  *User   `gorm:"foreignKey:AwardedTo" json:"awarded_vendor,omitempty"`
	AwardedCompany *string `json:"awarded_company"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Tender model
func (Tender) TableName() string {
	return "tenders"
}

// DocumentKeys returns the attached document S3 keys
func (t *Tender) DocumentKeys() []string {
	if t.Documents == nil || *t.Documents == "" {
		return nil
	}
	return strings.Split(*t.Documents, ";")
}

// SetDocumentKeys stores the document S3 keys on the tender
func (t *Tender) SetDocumentKeys(keys []string) {
	if len(keys) == 0 {
		t.Documents = nil
		return
	}
	joined := strings.Join(keys, ";")
	t.Documents = &joined
}

// ProtectedWindowStart returns the instant the protected pre-closing window
// begins
func (t *Tender) ProtectedWindowStart() time.Time {
	return t.ClosingDate.Add(-ProtectedBidWindow)
}

// IsBiddingOpen reports whether the tender accepts bids: status still Open
// and now strictly inside the bidding window
func (t *Tender) IsBiddingOpen(now time.Time) bool {
	return t.Status == TenderStatusOpen &&
		now.After(t.OpeningDate) && now.Before(t.ClosingDate)
}
