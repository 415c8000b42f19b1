package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/activity"
)

// newTestDB opens a fresh in-memory database per test. MaxOpenConns is
// pinned to one because each new sqlite :memory: connection would otherwise
// see an empty database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Member{},
		&model.Task{},
		&model.Comment{},
		&model.ActivityLog{},
	))
	return db
}

func newTestServices(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return New(db, activity.NewRecorder(db), nil), db
}

func createUser(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	user := model.User{
		Email:    fmt.Sprintf("%s@example.com", name),
		Name:     name,
		Password: "x",
		Role:     model.RoleUser,
		Status:   model.StatusActive,
	}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

func createProject(t *testing.T, svc *Services, ownerID uint, name string) *model.Project {
	t.Helper()
	project, err := svc.Project.Create(context.Background(), ownerID, activity.Meta{}, &CreateProjectInput{Name: name})
	require.NoError(t, err)
	return project
}

func countActivities(t *testing.T, db *gorm.DB, projectID uint, action model.ActivityAction) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.ActivityLog{}).
		Where("project_id = ? AND action = ?", projectID, action).Count(&count).Error)
	return count
}
