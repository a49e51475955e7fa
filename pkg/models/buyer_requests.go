package models

// BuyerInput carries the submitted fields of a buyer, before validation.
// The buyers package validates and normalizes it; handlers and the CSV
// importer both feed rows through the same type.
type BuyerInput struct {
	FullName     string   `json:"fullName" validate:"required,min=2,max=80"`
	Email        string   `json:"email" validate:"omitempty,email"`
	Phone        string   `json:"phone" validate:"required,phonedigits"`
	City         string   `json:"city" validate:"required,oneof=Chandigarh Mohali Zirakpur Panchkula Other"`
	PropertyType string   `json:"propertyType" validate:"required,oneof=Apartment Villa Plot Office Retail"`
	BHK          string   `json:"bhk" validate:"omitempty,oneof=Studio 1 2 3 4"`
	Purpose      string   `json:"purpose" validate:"required,oneof=Buy Rent"`
	BudgetMin    *int     `json:"budgetMin" validate:"omitempty,gt=0"`
	BudgetMax    *int     `json:"budgetMax" validate:"omitempty,gt=0"`
	Timeline     string   `json:"timeline" validate:"required,oneof=0-3m 3-6m >6m Exploring"`
	Source       string   `json:"source" validate:"required,oneof=Website Referral Walk-in Call Other"`
	Status       string   `json:"status" validate:"omitempty,oneof=New Qualified Contacted Visited Negotiation Converted Dropped"`
	Notes        string   `json:"notes" validate:"max=1000"`
	Tags         []string `json:"tags"`
}

// BuyerUpdateRequest is a full buyer payload plus the updatedAt timestamp
// the caller last observed, used for the optimistic-concurrency check.
type BuyerUpdateRequest struct {
	BuyerInput
	UpdatedAt string `json:"updatedAt" validate:"required"`
}

// BuyerSearchRequest represents search parameters for buyers.
type BuyerSearchRequest struct {
	Search       string `query:"search"`
	City         string `query:"city" validate:"omitempty,oneof=Chandigarh Mohali Zirakpur Panchkula Other"`
	PropertyType string `query:"propertyType" validate:"omitempty,oneof=Apartment Villa Plot Office Retail"`
	Status       string `query:"status" validate:"omitempty,oneof=New Qualified Contacted Visited Negotiation Converted Dropped"`
	Timeline     string `query:"timeline" validate:"omitempty,oneof=0-3m 3-6m >6m Exploring"`
	Page         int    `query:"page" validate:"omitempty,min=1"`
	Limit        int    `query:"limit" validate:"omitempty,min=1,max=100"`
	SortBy       string `query:"sortBy" validate:"omitempty,oneof=updatedAt createdAt fullName"`
	SortOrder    string `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// BuyerExportRequest carries the same filter predicate as a search, with
// ordering but no pagination.
type BuyerExportRequest struct {
	Search       string `query:"search"`
	City         string `query:"city" validate:"omitempty,oneof=Chandigarh Mohali Zirakpur Panchkula Other"`
	PropertyType string `query:"propertyType" validate:"omitempty,oneof=Apartment Villa Plot Office Retail"`
	Status       string `query:"status" validate:"omitempty,oneof=New Qualified Contacted Visited Negotiation Converted Dropped"`
	Timeline     string `query:"timeline" validate:"omitempty,oneof=0-3m 3-6m >6m Exploring"`
	SortBy       string `query:"sortBy" validate:"omitempty,oneof=updatedAt createdAt fullName"`
	SortOrder    string `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// SearchFilter converts the export request to a search request with
// pagination disabled.
func (r BuyerExportRequest) SearchFilter() BuyerSearchRequest {
	return BuyerSearchRequest{
		Search:       r.Search,
		City:         r.City,
		PropertyType: r.PropertyType,
		Status:       r.Status,
		Timeline:     r.Timeline,
		SortBy:       r.SortBy,
		SortOrder:    r.SortOrder,
	}
}

// PaginationInfo contains pagination metadata.
type PaginationInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// BuyerListResponse represents a paginated list of buyers.
type BuyerListResponse struct {
	Data       []Buyer        `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
}

// BuyerImportResponse reports the outcome of a bulk import.
type BuyerImportResponse struct {
	TotalRows int              `json:"totalRows"`
	Imported  int              `json:"imported"`
	Buyers    []Buyer          `json:"buyers,omitempty"`
	Errors    []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError carries all messages collected for a single CSV row.
// Row 0 is reserved for header-level errors.
type ImportRowError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}
