package config

import (
	"log"

	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
)

// SeedDemo creates a demo organization with an admin and a buyer so a fresh
// install has something to log in with. Skips silently when data exists.
func SeedDemo(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Organization{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Demo seed skipped: organizations already exist")
		return nil
	}

	org := models.Organization{Name: "Demo Equipment Trading GmbH", Country: "DE"}
	if err := db.Create(&org).Error; err != nil {
		return err
	}

	users := []models.User{
		{OrganizationID: org.ID, Name: "Demo Admin", Email: "admin@demo.local", Role: models.UserRoleAdmin},
		{OrganizationID: org.ID, Name: "Demo Buyer", Email: "buyer@demo.local", Role: models.UserRoleMember},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded demo organization %s with %d users", org.ID, len(users))
	return nil
}
