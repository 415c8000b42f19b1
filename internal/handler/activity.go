package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/internal/payload"
	"github.com/raids-lab/taskboard/internal/resputil"
	"github.com/raids-lab/taskboard/internal/util"
	"github.com/raids-lab/taskboard/pkg/activity"
	"github.com/raids-lab/taskboard/pkg/service"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewActivityMgr)
}

type ActivityMgr struct {
	name     string
	svc      *service.Services
	recorder *activity.Recorder
}

func NewActivityMgr(conf *RegisterConfig) Manager {
	return &ActivityMgr{
		name:     "activities",
		svc:      conf.Services,
		recorder: conf.Recorder,
	}
}

func (mgr *ActivityMgr) GetName() string { return mgr.name }

func (mgr *ActivityMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ActivityMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/projects/:projectId/activities", mgr.List)
}

func (mgr *ActivityMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type ListActivitiesReq struct {
	PageIndex  *int   `form:"page_index" binding:"required"`
	PageSize   *int   `form:"page_size" binding:"required"`
	EntityType string `form:"entity_type" binding:"omitempty,oneof=project task comment"`
	EntityID   uint   `form:"entity_id"`
	Action     string `form:"action"`
}

// List godoc
// @Summary List a project's activity log, newest first
// @Description The log is append-only; entries survive the deletion of the entities they describe
// @Tags Activity
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Param page_index query int true "Page index, starting at 1"
// @Param page_size query int true "Page size"
// @Param entity_type query string false "Filter by entity type"
// @Param entity_id query int false "Filter by entity ID"
// @Param action query string false "Filter by action"
// @Success 200 {object} resputil.Response[payload.ListResp[model.ActivityLog]] "Activity entries"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Router /v1/projects/{projectId}/activities [get]
func (mgr *ActivityMgr) List(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ListActivitiesReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	// Membership gate; the recorder itself has no access control.
	token := util.GetToken(c)
	if _, err := mgr.svc.Project.Get(c, token.UserID, uri.ProjectID); err != nil {
		serviceError(c, err)
		return
	}

	offset, limit := pageOffsetLimit(req.PageIndex, req.PageSize)
	entries, count, err := mgr.recorder.List(c, uri.ProjectID, activity.ListFilter{
		EntityType: model.EntityType(req.EntityType),
		EntityID:   req.EntityID,
		Action:     model.ActivityAction(req.Action),
	}, offset, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, payload.ListResp[model.ActivityLog]{Rows: entries, Count: count})
}
