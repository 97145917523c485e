package persistence

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
)

// Migrate runs the schema migration for all persistence models. The entity
// mapping tables share one model but are created per kind.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.TenantModel{},
		&models.SyncJobModel{},
		&models.SyncScheduleModel{},
		&models.SyncStateModel{},
		&models.ProductMappingModel{},
		&models.CachedEntityModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	for _, table := range models.EntityMappingTables() {
		if err := db.Table(table).AutoMigrate(&models.EntityMappingModel{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", table, err)
		}
	}

	return nil
}
