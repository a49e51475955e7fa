package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Enumeration values for buyer fields. These mirror the database enums and
// are the single source of truth for membership checks.
var (
	Cities        = []string{"Chandigarh", "Mohali", "Zirakpur", "Panchkula", "Other"}
	PropertyTypes = []string{"Apartment", "Villa", "Plot", "Office", "Retail"}
	BHKValues     = []string{"Studio", "1", "2", "3", "4"}
	Purposes      = []string{"Buy", "Rent"}
	Timelines     = []string{"0-3m", "3-6m", ">6m", "Exploring"}
	Sources       = []string{"Website", "Referral", "Walk-in", "Call", "Other"}
	Statuses      = []string{"New", "Qualified", "Contacted", "Visited", "Negotiation", "Converted", "Dropped"}
)

// StatusNew is the default status assigned on creation.
const StatusNew = "New"

// ResidentialPropertyTypes are the property types that require a BHK value.
var ResidentialPropertyTypes = []string{"Apartment", "Villa"}

// IsResidential reports whether the property type requires a BHK value.
func IsResidential(propertyType string) bool {
	for _, t := range ResidentialPropertyTypes {
		if t == propertyType {
			return true
		}
	}
	return false
}

// Tags is a list of free-text tags stored as a JSON column.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(value interface{}) error {
	if value == nil {
		*t = Tags{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported type for tags: %T", value)
	}
}

// JSONMap is an arbitrary JSON object column, used for history diffs.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		m = JSONMap{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported type for json map: %T", value)
	}
}

// Buyer is a real-estate buyer lead tracked through the sales pipeline.
//
// Timestamps are managed by the buyers service, not by GORM: Update relies
// on exact updated_at equality for optimistic concurrency, so automatic
// touch-on-save would break the conflict check.
type Buyer struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID      string    `gorm:"type:uuid;not null;index" json:"ownerId"`
	FullName     string    `gorm:"size:80;not null" json:"fullName"`
	Email        string    `gorm:"size:255" json:"email"`
	Phone        string    `gorm:"size:15;not null;index" json:"phone"`
	City         string    `gorm:"size:20;not null" json:"city"`
	PropertyType string    `gorm:"size:20;not null" json:"propertyType"`
	BHK          string    `gorm:"size:10" json:"bhk,omitempty"`
	Purpose      string    `gorm:"size:10;not null" json:"purpose"`
	BudgetMin    *int      `json:"budgetMin,omitempty"`
	BudgetMax    *int      `json:"budgetMax,omitempty"`
	Timeline     string    `gorm:"size:10;not null" json:"timeline"`
	Source       string    `gorm:"size:20;not null" json:"source"`
	Status       string    `gorm:"size:20;not null;default:New;index" json:"status"`
	Notes        string    `gorm:"size:1000" json:"notes,omitempty"`
	Tags         Tags      `gorm:"type:text" json:"tags"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false;index" json:"updatedAt"`
}

// TableName overrides the GORM table name.
func (Buyer) TableName() string {
	return "buyers"
}

// BuyerHistory is an immutable record of a single change to a buyer.
// Entries are written once per effective mutation and never updated.
// They are retained when the buyer itself is deleted; the retention
// sweep in pkg/jobs prunes them by age.
type BuyerHistory struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID   string    `gorm:"type:uuid;not null;index" json:"buyerId"`
	ChangedBy string    `gorm:"type:uuid;not null" json:"changedBy"`
	ChangedAt time.Time `gorm:"autoCreateTime:false;index" json:"changedAt"`
	Diff      JSONMap   `gorm:"type:text;not null" json:"diff"`
}

// TableName overrides the GORM table name.
func (BuyerHistory) TableName() string {
	return "buyer_history"
}
