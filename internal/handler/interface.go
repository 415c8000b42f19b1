package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/internal/util"
	"github.com/raids-lab/taskboard/pkg/activity"
	"github.com/raids-lab/taskboard/pkg/hub"
	"github.com/raids-lab/taskboard/pkg/notify"
	"github.com/raids-lab/taskboard/pkg/service"
	"github.com/raids-lab/taskboard/pkg/session"
)

type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// RegisterConfig carries the shared dependencies each manager picks from.
type RegisterConfig struct {
	DB       *gorm.DB
	Services *service.Services
	Recorder *activity.Recorder
	TokenMgr *util.TokenManager
	Sessions *session.Store
	Hub      *hub.Hub
	Webhook  *notify.Webhook
}

// Registers collects the manager constructors; each handler file appends
// its own in init().
var Registers []func(*RegisterConfig) Manager
