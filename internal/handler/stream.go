package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/internal/resputil"
	"github.com/raids-lab/taskboard/internal/util"
	"github.com/raids-lab/taskboard/pkg/config"
	"github.com/raids-lab/taskboard/pkg/hub"
	"github.com/raids-lab/taskboard/pkg/logutils"
	"github.com/raids-lab/taskboard/pkg/service"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewStreamMgr)
}

type StreamMgr struct {
	name     string
	db       *gorm.DB
	svc      *service.Services
	hub      *hub.Hub
	tokenMgr *util.TokenManager
}

func NewStreamMgr(conf *RegisterConfig) Manager {
	return &StreamMgr{
		name:     "stream",
		db:       conf.DB,
		svc:      conf.Services,
		hub:      conf.Hub,
		tokenMgr: conf.TokenMgr,
	}
}

func (mgr *StreamMgr) GetName() string { return mgr.name }

// The stream authenticates through a query parameter because browsers
// cannot set headers on websocket upgrades, so it registers as public.
func (mgr *StreamMgr) RegisterPublic(g *gin.RouterGroup) {
	g.GET("/stream", mgr.Stream)
}

func (mgr *StreamMgr) RegisterProtected(_ *gin.RouterGroup) {}
func (mgr *StreamMgr) RegisterAdmin(_ *gin.RouterGroup)     {}

// StreamMessage is what clients send to manage their subscriptions.
type StreamMessage struct {
	Op        string `json:"op"` // "subscribe" or "unsubscribe"
	ProjectID uint   `json:"projectId"`
}

// Stream godoc
// @Summary Open the realtime event stream
// @Description Upgrades to a websocket; clients then subscribe to projects they can read
// @Tags Stream
// @Param token query string true "Access token"
// @Success 101 {string} string "Switching protocols"
// @Failure 401 {object} resputil.Response[any] "Invalid token"
// @Router /v1/stream [get]
func (mgr *StreamMgr) Stream(c *gin.Context) {
	token, err := mgr.tokenMgr.CheckToken(c.Query("token"))
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, err.Error(), resputil.TokenInvalid)
		return
	}
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil || user.Status != model.StatusActive {
		resputil.HTTPError(c, http.StatusUnauthorized, "User is not active", resputil.UserInactive)
		return
	}

	upgrade := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	// Allow all origins in debug mode
	if config.IsDebugMode() {
		upgrade.CheckOrigin = func(_ *http.Request) bool {
			return true
		}
	}
	ws, err := upgrade.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	client := mgr.hub.Register(ws, token.UserID)
	defer client.Close()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg StreamMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Op {
		case "subscribe":
			// Only projects the user can read.
			if _, err := mgr.svc.Project.Get(c, token.UserID, msg.ProjectID); err != nil {
				logutils.Log.Warnf("stream: user %d denied subscription to project %d", token.UserID, msg.ProjectID)
				continue
			}
			client.Subscribe(msg.ProjectID)
		case "unsubscribe":
			client.Unsubscribe(msg.ProjectID)
		}
	}
}
