package main

import (
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/leadintake/config"
	"github.com/jordanlanch/leadintake/pkg/auth"
	"github.com/jordanlanch/leadintake/pkg/database"
	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/jordanlanch/leadintake/pkg/testdata"
)

func main() {
	count := flag.Int("count", 50, "number of buyers to generate")
	email := flag.String("email", "demo@leadintake.local", "owner account email")
	password := flag.String("password", "demo-password", "owner account password")
	admin := flag.Bool("admin", false, "give the owner account the admin role")
	flag.Parse()

	cfg := config.Load()

	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Find or create the owner account
	var owner models.User
	err = db.DB.Where("email = ?", *email).First(&owner).Error
	if err != nil {
		hash, hashErr := auth.HashPassword(*password)
		if hashErr != nil {
			log.Fatalf("Failed to hash password: %v", hashErr)
		}
		role := models.RoleUser
		if *admin {
			role = models.RoleAdmin
		}
		now := time.Now().UTC()
		owner = models.User{
			ID:           uuid.NewString(),
			Email:        *email,
			Name:         "Demo User",
			PasswordHash: hash,
			Role:         role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := db.DB.Create(&owner).Error; err != nil {
			log.Fatalf("Failed to create owner: %v", err)
		}
		log.Printf("Created owner account %s (%s)", owner.Email, owner.Role)
	} else {
		log.Printf("Reusing owner account %s", owner.Email)
	}

	log.Printf("Seeding %d buyers...", *count)
	buyers := testdata.GenerateBuyers(testdata.DefaultConfig(owner.ID, *count))
	if err := testdata.BulkInsertBuyers(db.DB, buyers, 100); err != nil {
		log.Fatalf("Failed to insert buyers: %v", err)
	}
	log.Printf("Done: %d buyers seeded for %s", len(buyers), owner.Email)
}
