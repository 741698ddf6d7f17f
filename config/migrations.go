package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250901_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Organization{}, &models.User{},
					&models.RFQ{}, &models.RFQEvent{}, &models.Offer{})
			},
		},
		{
			ID: "20250901_create_escalation_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.ApprovalPolicy{}, &models.AutomationRule{},
					&models.AutomationRunLog{}, &models.OpsTask{}, &models.Notification{})
			},
		},
		{
			// One OPEN/ACKNOWLEDGED task per (org, rfq, source). The partial
			// unique index closes the read-then-write race between
			// overlapping scan cycles; check-then-insert alone is not enough.
			ID: "20250901_add_ops_task_dedupe_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_ops_tasks_open_dedupe
					ON ops_tasks (organization_id, rfq_id, source)
					WHERE status IN ('OPEN', 'ACKNOWLEDGED')`).Error
			},
		},
	})

	return m.Migrate()
}

// MigrateForTests applies the full schema directly; tests run against an
// in-memory store where gormigrate's bookkeeping table is unnecessary.
func MigrateForTests(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Organization{}, &models.User{},
		&models.RFQ{}, &models.RFQEvent{}, &models.Offer{},
		&models.ApprovalPolicy{}, &models.AutomationRule{},
		&models.AutomationRunLog{}, &models.OpsTask{}, &models.Notification{}); err != nil {
		return err
	}
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_ops_tasks_open_dedupe
		ON ops_tasks (organization_id, rfq_id, source)
		WHERE status IN ('OPEN', 'ACKNOWLEDGED')`).Error
}
