package buyers

import (
	"github.com/jordanlanch/leadintake/pkg/models"
)

// FieldChange records the old and new value of a single changed field.
type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// diffField compares one buyer field between the stored record and the
// proposed values. An explicit table keeps the diff shape stable and typed
// instead of reflecting over arbitrary structs.
type diffField struct {
	name string
	old  func(*models.Buyer) interface{}
	new  func(*models.BuyerInput) interface{}
	eq   func(*models.Buyer, *models.BuyerInput) bool
}

var diffFields = []diffField{
	{
		name: "fullName",
		old:  func(b *models.Buyer) interface{} { return b.FullName },
		new:  func(in *models.BuyerInput) interface{} { return in.FullName },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.FullName == in.FullName },
	},
	{
		name: "email",
		old:  func(b *models.Buyer) interface{} { return b.Email },
		new:  func(in *models.BuyerInput) interface{} { return in.Email },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.Email == in.Email },
	},
	{
		name: "phone",
		old:  func(b *models.Buyer) interface{} { return b.Phone },
		new:  func(in *models.BuyerInput) interface{} { return in.Phone },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.Phone == in.Phone },
	},
	{
		name: "city",
		old:  func(b *models.Buyer) interface{} { return b.City },
		new:  func(in *models.BuyerInput) interface{} { return in.City },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.City == in.City },
	},
	{
		name: "propertyType",
		old:  func(b *models.Buyer) interface{} { return b.PropertyType },
		new:  func(in *models.BuyerInput) interface{} { return in.PropertyType },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.PropertyType == in.PropertyType },
	},
	{
		name: "bhk",
		old:  func(b *models.Buyer) interface{} { return b.BHK },
		new:  func(in *models.BuyerInput) interface{} { return in.BHK },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.BHK == in.BHK },
	},
	{
		name: "purpose",
		old:  func(b *models.Buyer) interface{} { return b.Purpose },
		new:  func(in *models.BuyerInput) interface{} { return in.Purpose },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.Purpose == in.Purpose },
	},
	{
		name: "budgetMin",
		old:  func(b *models.Buyer) interface{} { return intPtrValue(b.BudgetMin) },
		new:  func(in *models.BuyerInput) interface{} { return intPtrValue(in.BudgetMin) },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return intPtrEqual(b.BudgetMin, in.BudgetMin) },
	},
	{
		name: "budgetMax",
		old:  func(b *models.Buyer) interface{} { return intPtrValue(b.BudgetMax) },
		new:  func(in *models.BuyerInput) interface{} { return intPtrValue(in.BudgetMax) },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return intPtrEqual(b.BudgetMax, in.BudgetMax) },
	},
	{
		name: "timeline",
		old:  func(b *models.Buyer) interface{} { return b.Timeline },
		new:  func(in *models.BuyerInput) interface{} { return in.Timeline },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.Timeline == in.Timeline },
	},
	{
		name: "source",
		old:  func(b *models.Buyer) interface{} { return b.Source },
		new:  func(in *models.BuyerInput) interface{} { return in.Source },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.Source == in.Source },
	},
	{
		name: "status",
		old:  func(b *models.Buyer) interface{} { return b.Status },
		new:  func(in *models.BuyerInput) interface{} { return in.Status },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.Status == in.Status },
	},
	{
		name: "notes",
		old:  func(b *models.Buyer) interface{} { return b.Notes },
		new:  func(in *models.BuyerInput) interface{} { return in.Notes },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return b.Notes == in.Notes },
	},
	{
		name: "tags",
		old:  func(b *models.Buyer) interface{} { return []string(b.Tags) },
		new:  func(in *models.BuyerInput) interface{} { return in.Tags },
		eq:   func(b *models.Buyer, in *models.BuyerInput) bool { return tagsEqual(b.Tags, in.Tags) },
	},
}

// Diff computes the field-by-field changes between the stored buyer and a
// validated update. The id and timestamps are never part of the diff.
func Diff(current *models.Buyer, next *models.BuyerInput) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	for _, f := range diffFields {
		if !f.eq(current, next) {
			changes[f.name] = FieldChange{Old: f.old(current), New: f.new(next)}
		}
	}
	return changes
}

func intPtrValue(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func tagsEqual(a models.Tags, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
