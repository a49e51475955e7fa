package testdata

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jordanlanch/leadintake/pkg/models"
	"gorm.io/gorm"
)

// BuyerGeneratorConfig configures buyer generation parameters
type BuyerGeneratorConfig struct {
	OwnerID     string
	Count       int
	EmailChance float64 // 0.0-1.0 (probability of having an email)
	NotesChance float64
	TagsChance  float64
}

// DefaultConfig returns a config that resembles a real pipeline: most
// leads have an email, about half carry notes or tags.
func DefaultConfig(ownerID string, count int) BuyerGeneratorConfig {
	return BuyerGeneratorConfig{
		OwnerID:     ownerID,
		Count:       count,
		EmailChance: 0.8,
		NotesChance: 0.5,
		TagsChance:  0.4,
	}
}

var tagPool = []string{
	"hot-lead", "follow-up", "nri", "investor", "first-time-buyer",
	"corner-plot", "sea-facing", "urgent", "loan-pending", "site-visit-done",
}

var notesTemplates = []string{
	"Prefers %s facing units.",
	"Looking to close within budget, open to %s as well.",
	"Referred by existing client. Interested in %s.",
	"Wants a site visit on the weekend for %s options.",
}

// GenerateBuyer produces one random buyer owned by config.OwnerID.
func GenerateBuyer(config BuyerGeneratorConfig) models.Buyer {
	propertyType := pick(models.PropertyTypes)

	var bhk string
	if models.IsResidential(propertyType) {
		bhk = pick(models.BHKValues)
	}

	var email string
	if rand.Float64() < config.EmailChance {
		email = strings.ToLower(gofakeit.Email())
	}

	budgetMin := (rand.Intn(80) + 20) * 100000 // 2M..10M
	budgetMax := budgetMin + rand.Intn(50)*100000

	var notes string
	if rand.Float64() < config.NotesChance {
		notes = fmt.Sprintf(pick(notesTemplates), strings.ToLower(pick(models.Cities)))
	}

	var tags models.Tags
	if rand.Float64() < config.TagsChance {
		n := rand.Intn(3) + 1
		seen := map[string]bool{}
		for len(tags) < n {
			tag := pick(tagPool)
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}

	ts := time.Now().UTC().Add(-time.Duration(rand.Intn(90*24)) * time.Hour).Truncate(time.Microsecond)

	return models.Buyer{
		ID:           uuid.NewString(),
		OwnerID:      config.OwnerID,
		FullName:     gofakeit.Name(),
		Email:        email,
		Phone:        fmt.Sprintf("9%09d", rand.Intn(1000000000)),
		City:         pick(models.Cities),
		PropertyType: propertyType,
		BHK:          bhk,
		Purpose:      pick(models.Purposes),
		BudgetMin:    &budgetMin,
		BudgetMax:    &budgetMax,
		Timeline:     pick(models.Timelines),
		Source:       pick(models.Sources),
		Status:       pick(models.Statuses),
		Notes:        notes,
		Tags:         tags,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

// GenerateBuyers produces config.Count random buyers.
func GenerateBuyers(config BuyerGeneratorConfig) []models.Buyer {
	out := make([]models.Buyer, 0, config.Count)
	for i := 0; i < config.Count; i++ {
		out = append(out, GenerateBuyer(config))
	}
	return out
}

// BulkInsertBuyers inserts buyers in batches.
func BulkInsertBuyers(db *gorm.DB, list []models.Buyer, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	return db.CreateInBatches(&list, batchSize).Error
}

func pick(values []string) string {
	return values[rand.Intn(len(values))]
}
