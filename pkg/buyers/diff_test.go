package buyers

import (
	"testing"

	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/stretchr/testify/assert"
)

func buyerFromInput(in models.BuyerInput) *models.Buyer {
	return &models.Buyer{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		City:         in.City,
		PropertyType: in.PropertyType,
		BHK:          in.BHK,
		Purpose:      in.Purpose,
		BudgetMin:    in.BudgetMin,
		BudgetMax:    in.BudgetMax,
		Timeline:     in.Timeline,
		Source:       in.Source,
		Status:       in.Status,
		Notes:        in.Notes,
		Tags:         models.Tags(in.Tags),
	}
}

func TestDiff_NoChanges(t *testing.T) {
	in := validInput()
	current := buyerFromInput(in)

	changes := Diff(current, &in)
	assert.Empty(t, changes)
}

func TestDiff_ScalarChange(t *testing.T) {
	in := validInput()
	current := buyerFromInput(in)

	next := in
	next.Status = "Qualified"
	next.Notes = "Called back"

	changes := Diff(current, &next)
	assert.Len(t, changes, 2)
	assert.Equal(t, FieldChange{Old: "New", New: "Qualified"}, changes["status"])
	assert.Equal(t, FieldChange{Old: in.Notes, New: "Called back"}, changes["notes"])
}

func TestDiff_BudgetPointers(t *testing.T) {
	in := validInput()
	current := buyerFromInput(in)

	next := in
	next.BudgetMin = nil
	newMax := 9000000
	next.BudgetMax = &newMax

	changes := Diff(current, &next)
	assert.Len(t, changes, 2)
	assert.Equal(t, *in.BudgetMin, changes["budgetMin"].Old)
	assert.Nil(t, changes["budgetMin"].New)
	assert.Equal(t, 9000000, changes["budgetMax"].New)
}

func TestDiff_EqualBudgetPointersNotReported(t *testing.T) {
	in := validInput()
	current := buyerFromInput(in)

	// A fresh pointer to the same value is not a change.
	next := in
	v := *in.BudgetMin
	next.BudgetMin = &v

	changes := Diff(current, &next)
	assert.Empty(t, changes)
}

func TestDiff_Tags(t *testing.T) {
	in := validInput()
	current := buyerFromInput(in)

	next := in
	next.Tags = []string{"hot-lead", "follow-up"}

	changes := Diff(current, &next)
	assert.Len(t, changes, 1)
	assert.Equal(t, []string{"hot-lead"}, changes["tags"].Old)
	assert.Equal(t, []string{"hot-lead", "follow-up"}, changes["tags"].New)
}

func TestDiff_NeverIncludesTimestampsOrID(t *testing.T) {
	in := validInput()
	current := buyerFromInput(in)
	current.ID = "some-id"

	next := in
	next.FullName = "Someone Else"

	changes := Diff(current, &next)
	assert.NotContains(t, changes, "id")
	assert.NotContains(t, changes, "updatedAt")
	assert.NotContains(t, changes, "createdAt")
	assert.Contains(t, changes, "fullName")
}
