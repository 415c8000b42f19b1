package dao

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/taskboard/dao/model"
)

// Migrate brings the schema up to date. The initial migration creates every
// table via AutoMigrate; later schema changes get their own entry so
// existing deployments can roll forward.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250901-init",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.User{},
					&model.Project{},
					&model.Member{},
					&model.Task{},
					&model.Comment{},
					&model.ActivityLog{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&model.ActivityLog{},
					&model.Comment{},
					&model.Task{},
					&model.Member{},
					&model.Project{},
					&model.User{},
				)
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return err
	}
	klog.Info("database migration success")
	return nil
}
