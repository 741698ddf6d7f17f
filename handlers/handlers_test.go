package handlers

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/equiprocure/backend/config"
	"github.com/equiprocure/backend/models"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateForTests(db))
	return db
}

func seedOrg(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	org := models.Organization{Name: "Hanseatic Machinery GmbH", Country: "DE"}
	require.NoError(t, db.Create(&org).Error)
	return org.ID
}

func seedUser(t *testing.T, db *gorm.DB, orgID uuid.UUID, role models.UserRole) uuid.UUID {
	t.Helper()
	user := models.User{
		OrganizationID: orgID,
		Name:           "Test User",
		Email:          fmt.Sprintf("%s@example.com", uuid.New()),
		Role:           role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

// clockAt returns a fixed time source for deterministic age math.
func clockAt(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

var baseTime = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

// seedRFQ creates an RFQ directly with an explicit creation timestamp so
// tests control its age.
func seedRFQ(t *testing.T, db *gorm.DB, orgID, userID uuid.UUID, tier models.ServiceTier, status models.RFQStatus, createdAt time.Time) *models.RFQ {
	t.Helper()
	rfq := &models.RFQ{
		UserID:         userID,
		OrganizationID: orgID,
		Category:       "excavators",
		ServiceTier:    tier,
		ServicePackage: models.ServicePackageCore,
		KeySpecs:       "20t class, max 8000 operating hours, CE marked",
		Status:         status,
		SLATargetHours: tier.SLATargetHours(),
		Urgency:        models.UrgencyNormal,
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(rfq).Error)
	return rfq
}

func validCreateRFQInput(userID uuid.UUID) CreateRFQInput {
	return CreateRFQInput{
		UserID:             userID,
		Category:           "wheel loaders",
		ServiceTier:        models.ServiceTierPriority,
		KeySpecs:           "3.5m3 bucket, quick coupler, under 6000 hours",
		DeliveryCountry:    "NL",
		ConditionTolerance: "used, good condition",
		BusinessGoal:       "replace aging fleet unit before Q4",
		RiskTolerance:      "medium",
		BudgetConfidence:   "high",
	}
}
