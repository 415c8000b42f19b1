package helper

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/raids-lab/taskboard/dao"
	"github.com/raids-lab/taskboard/dao/query"
	"github.com/raids-lab/taskboard/internal/handler"
	"github.com/raids-lab/taskboard/internal/util"
	"github.com/raids-lab/taskboard/pkg/activity"
	"github.com/raids-lab/taskboard/pkg/config"
	"github.com/raids-lab/taskboard/pkg/cronjob"
	"github.com/raids-lab/taskboard/pkg/hub"
	"github.com/raids-lab/taskboard/pkg/mailer"
	"github.com/raids-lab/taskboard/pkg/notify"
	"github.com/raids-lab/taskboard/pkg/service"
	"github.com/raids-lab/taskboard/pkg/session"
)

// ConfigInitializer 封装配置初始化逻辑
type ConfigInitializer struct {
	backendConfig *config.Config
}

// NewConfigInitializer 创建新的ConfigInitializer实例
func NewConfigInitializer() *ConfigInitializer {
	return &ConfigInitializer{
		backendConfig: config.GetConfig(),
	}
}

// GetBackendConfig 获取后端配置
func (ci *ConfigInitializer) GetBackendConfig() *config.Config {
	return ci.backendConfig
}

// LoadDebugEnvironment 加载调试环境变量
func (ci *ConfigInitializer) LoadDebugEnvironment() error {
	if gin.Mode() != gin.DebugMode {
		return nil
	}

	err := godotenv.Load(".debug.env")
	if err != nil {
		return err
	}

	be := os.Getenv("TASKBOARD_BE_PORT")
	if be == "" {
		panic("TASKBOARD_BE_PORT is not set")
	}
	ci.backendConfig.ServerAddr = ":" + be

	return nil
}

// InitializeRegisterConfig 初始化注册配置
func (ci *ConfigInitializer) InitializeRegisterConfig() (*handler.RegisterConfig, error) {
	registerConfig := &handler.RegisterConfig{}

	// init db and run migrations
	db := query.GetDB()
	if err := dao.Migrate(db); err != nil {
		return nil, err
	}
	registerConfig.DB = db

	// init redis session store
	registerConfig.Sessions = session.NewStore(session.NewClient(ci.backendConfig))

	// init token manager
	registerConfig.TokenMgr = util.GetTokenMgr()

	// realtime fanout and outbound notifications
	registerConfig.Hub = hub.New()
	registerConfig.Webhook = notify.New()

	// activity recorder and domain services; the mailer may be nil when
	// SMTP is not configured, which disables invitation mails
	recorder := activity.NewRecorder(db)
	registerConfig.Recorder = recorder
	registerConfig.Services = service.New(db, recorder, mailer.New(ci.backendConfig))

	return registerConfig, nil
}

// NewCronJobManager 创建后台定时任务管理器
func (ci *ConfigInitializer) NewCronJobManager(registerConfig *handler.RegisterConfig) *cronjob.CronJobManager {
	return cronjob.NewCronJobManager(registerConfig.DB, registerConfig.Sessions, ci.backendConfig)
}
