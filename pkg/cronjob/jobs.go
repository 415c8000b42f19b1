package cronjob

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/raids-lab/taskboard/dao/model"
)

const jobTimeout = 5 * time.Minute

func (cm *CronJobManager) purgeSessions() {
	if cm.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	cm.sessions.PurgeExpired(ctx)
	klog.V(2).Info("cronjob: session purge completed")
}

func (cm *CronJobManager) autoArchiveTasks() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := cm.archiveCompletedTasks(ctx, time.Now().Add(-cm.archiveAfter))
	if err != nil {
		klog.Errorf("cronjob: auto archive failed: %v", err)
		return
	}
	if n > 0 {
		klog.Infof("cronjob: archived %d completed tasks", n)
	}
}

// archiveCompletedTasks archives completed, unarchived tasks whose last
// update predates the cutoff. Returns the number of tasks touched.
func (cm *CronJobManager) archiveCompletedTasks(ctx context.Context, cutoff time.Time) (int64, error) {
	res := cm.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("status = ? AND is_archived = ? AND updated_at < ?", model.TaskCompleted, false, cutoff).
		Update("is_archived", true)
	return res.RowsAffected, res.Error
}
