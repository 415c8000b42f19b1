// Package cronjob schedules background maintenance: purging stale
// session index entries and archiving completed tasks that nobody
// touched for a while. Schedules come from the config file.
package cronjob

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raids-lab/taskboard/pkg/config"
	"github.com/raids-lab/taskboard/pkg/session"

	"gorm.io/gorm"
)

type CronJobManager struct {
	db        *gorm.DB
	sessions  *session.Store
	cron      *cron.Cron
	cronMutex sync.RWMutex

	sessionPurgeSpec string
	autoArchiveSpec  string
	archiveAfter     time.Duration
}

func NewCronJobManager(db *gorm.DB, sessions *session.Store, conf *config.Config) *CronJobManager {
	return &CronJobManager{
		db:               db,
		sessions:         sessions,
		cron:             cron.New(cron.WithLocation(time.Local)),
		sessionPurgeSpec: conf.Cron.SessionPurgeSpec,
		autoArchiveSpec:  conf.Cron.AutoArchiveSpec,
		archiveAfter:     time.Duration(conf.Cron.AutoArchiveDays) * 24 * time.Hour,
	}
}

// Start registers the maintenance jobs and starts the scheduler.
func (cm *CronJobManager) Start() error {
	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()

	if _, err := cm.cron.AddFunc(cm.sessionPurgeSpec, cm.purgeSessions); err != nil {
		return err
	}
	if _, err := cm.cron.AddFunc(cm.autoArchiveSpec, cm.autoArchiveTasks); err != nil {
		return err
	}
	cm.cron.Start()
	return nil
}

// StopCron stops the cron scheduler.
func (cm *CronJobManager) StopCron() {
	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()
	cm.cron.Stop()
}
