package cronjob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
)

func newTestManager(t *testing.T) *CronJobManager {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Task{}))
	return &CronJobManager{db: db, archiveAfter: 30 * 24 * time.Hour}
}

func createTask(t *testing.T, db *gorm.DB, status model.TaskStatus, updatedAt time.Time) uint {
	t.Helper()
	task := model.Task{ProjectID: 1, Title: "t", Status: status, Priority: model.PriorityMedium, CreatorID: 1}
	require.NoError(t, db.Create(&task).Error)
	// UpdatedAt is managed by gorm, so backdate it directly.
	require.NoError(t, db.Model(&model.Task{}).Where("id = ?", task.ID).
		UpdateColumn("updated_at", updatedAt).Error)
	return task.ID
}

func TestArchiveCompletedTasks(t *testing.T) {
	cm := newTestManager(t)
	now := time.Now()

	oldDone := createTask(t, cm.db, model.TaskCompleted, now.Add(-60*24*time.Hour))
	freshDone := createTask(t, cm.db, model.TaskCompleted, now.Add(-time.Hour))
	oldOpen := createTask(t, cm.db, model.TaskInProgress, now.Add(-60*24*time.Hour))

	n, err := cm.archiveCompletedTasks(context.Background(), now.Add(-cm.archiveAfter))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	var task model.Task
	require.NoError(t, cm.db.First(&task, oldDone).Error)
	require.True(t, task.IsArchived)
	task = model.Task{}
	require.NoError(t, cm.db.First(&task, freshDone).Error)
	require.False(t, task.IsArchived)
	task = model.Task{}
	require.NoError(t, cm.db.First(&task, oldOpen).Error)
	require.False(t, task.IsArchived)
}

func TestArchiveIsIdempotent(t *testing.T) {
	cm := newTestManager(t)
	cutoff := time.Now().Add(-cm.archiveAfter)
	createTask(t, cm.db, model.TaskCompleted, time.Now().Add(-90*24*time.Hour))

	n, err := cm.archiveCompletedTasks(context.Background(), cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = cm.archiveCompletedTasks(context.Background(), cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}
