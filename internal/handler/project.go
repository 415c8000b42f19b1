package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/internal/payload"
	"github.com/raids-lab/taskboard/internal/resputil"
	"github.com/raids-lab/taskboard/internal/util"
	"github.com/raids-lab/taskboard/pkg/hub"
	"github.com/raids-lab/taskboard/pkg/notify"
	"github.com/raids-lab/taskboard/pkg/service"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewProjectMgr)
}

type ProjectMgr struct {
	name    string
	svc     *service.Services
	hub     *hub.Hub
	webhook *notify.Webhook
}

func NewProjectMgr(conf *RegisterConfig) Manager {
	return &ProjectMgr{
		name:    "projects",
		svc:     conf.Services,
		hub:     conf.Hub,
		webhook: conf.Webhook,
	}
}

func (mgr *ProjectMgr) GetName() string { return mgr.name }

func (mgr *ProjectMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ProjectMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("/projects", mgr.Create)
	g.GET("/projects", mgr.List)
	g.GET("/projects/:projectId", mgr.Get)
	g.PUT("/projects/:projectId", mgr.Update)
	g.PUT("/projects/:projectId/settings", mgr.UpdateSettings)
	g.DELETE("/projects/:projectId", mgr.Delete)

	g.GET("/projects/:projectId/members", mgr.ListMembers)
	g.POST("/projects/:projectId/members", mgr.AddMember)
	g.PUT("/projects/:projectId/members/:userId", mgr.UpdateMemberRole)
	g.DELETE("/projects/:projectId/members/:userId", mgr.RemoveMember)
}

func (mgr *ProjectMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	ProjectURI struct {
		ProjectID uint `uri:"projectId" binding:"required"`
	}

	ProjectMemberURI struct {
		ProjectID uint `uri:"projectId" binding:"required"`
		UserID    uint `uri:"userId" binding:"required"`
	}

	CreateProjectReq struct {
		Name        string  `json:"name" binding:"required,max=200"`
		Description *string `json:"description"`
		Color       string  `json:"color" binding:"omitempty,max=16"`
	}

	UpdateProjectReq struct {
		Name        *string              `json:"name" binding:"omitempty,max=200"`
		Description *string              `json:"description"`
		Color       *string              `json:"color" binding:"omitempty,max=16"`
		Status      *model.ProjectStatus `json:"status" binding:"omitempty,oneof=active archived completed"`
	}

	MemberReq struct {
		UserID uint   `json:"userId" binding:"required"`
		Role   string `json:"role" binding:"required,oneof=viewer member admin owner"`
	}

	MemberRoleReq struct {
		Role string `json:"role" binding:"required,oneof=viewer member admin owner"`
	}

	MemberResp struct {
		UserID   uint              `json:"userId"`
		Role     model.ProjectRole `json:"role"`
		RoleName string            `json:"roleName"`
		JoinedAt time.Time         `json:"joinedAt"`
		User     *UserResp         `json:"user,omitempty"`
	}
)

func (mgr *ProjectMgr) notifyProject(c *gin.Context, project *model.Project, event string, data any) {
	actorID := util.GetToken(c).UserID
	mgr.hub.Publish(hub.Event{Type: event, ProjectID: project.ID, ActorID: actorID, Payload: data})
	mgr.webhook.Deliver(project, event, actorID, data)
}

// Create godoc
// @Summary Create a project
// @Description The caller becomes the immutable owner
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateProjectReq true "Project data"
// @Success 200 {object} resputil.Response[model.Project] "Created project"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/projects [post]
func (mgr *ProjectMgr) Create(c *gin.Context) {
	var req CreateProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	project, err := mgr.svc.Project.Create(c, token.UserID, requestMeta(c), &service.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, project)
}

// List godoc
// @Summary List projects visible to the current user
// @Tags Project
// @Produce json
// @Security Bearer
// @Param page_index query int true "Page index, starting at 1"
// @Param page_size query int true "Page size"
// @Success 200 {object} resputil.Response[payload.ListResp[model.Project]] "Projects"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/projects [get]
func (mgr *ProjectMgr) List(c *gin.Context) {
	var req payload.ListReqQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	offset, limit := pageOffsetLimit(req.PageIndex, req.PageSize)
	projects, count, err := mgr.svc.Project.ListForUser(c, token.UserID, offset, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, payload.ListResp[model.Project]{Rows: projects, Count: count})
}

// Get godoc
// @Summary Get one project
// @Tags Project
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Success 200 {object} resputil.Response[model.Project] "Project"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Failure 404 {object} resputil.Response[any] "Not found"
// @Router /v1/projects/{projectId} [get]
func (mgr *ProjectMgr) Get(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	project, err := mgr.svc.Project.Get(c, token.UserID, uri.ProjectID)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, project)
}

// Update godoc
// @Summary Update project fields
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Param data body UpdateProjectReq true "Fields to update"
// @Success 200 {object} resputil.Response[model.Project] "Updated project"
// @Failure 403 {object} resputil.Response[any] "Missing edit capability"
// @Router /v1/projects/{projectId} [put]
func (mgr *ProjectMgr) Update(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	project, err := mgr.svc.Project.Update(c, token.UserID, requestMeta(c), uri.ProjectID, &service.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Status:      req.Status,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyProject(c, project, "project.updated", project)
	resputil.Success(c, project)
}

// UpdateSettings godoc
// @Summary Replace project settings
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Param data body model.ProjectSettings true "New settings"
// @Success 200 {object} resputil.Response[model.Project] "Updated project"
// @Failure 403 {object} resputil.Response[any] "Missing edit capability"
// @Router /v1/projects/{projectId}/settings [put]
func (mgr *ProjectMgr) UpdateSettings(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var settings model.ProjectSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	project, err := mgr.svc.Project.UpdateSettings(c, token.UserID, requestMeta(c), uri.ProjectID, &settings)
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyProject(c, project, "project.settings_updated", settings)
	resputil.Success(c, project)
}

// Delete godoc
// @Summary Delete a project and everything under it
// @Tags Project
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Success 200 {object} resputil.Response[string] "Deleted"
// @Failure 403 {object} resputil.Response[any] "Only the owner may delete"
// @Router /v1/projects/{projectId} [delete]
func (mgr *ProjectMgr) Delete(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	if err := mgr.svc.Project.Delete(c, token.UserID, requestMeta(c), uri.ProjectID); err != nil {
		serviceError(c, err)
		return
	}
	mgr.hub.Publish(hub.Event{Type: "project.deleted", ProjectID: uri.ProjectID, ActorID: token.UserID})
	resputil.Success(c, "")
}

// ListMembers godoc
// @Summary List project members
// @Tags Project
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Success 200 {object} resputil.Response[[]MemberResp] "Members"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Router /v1/projects/{projectId}/members [get]
func (mgr *ProjectMgr) ListMembers(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	members, err := mgr.svc.Project.ListMembers(c, token.UserID, uri.ProjectID)
	if err != nil {
		serviceError(c, err)
		return
	}

	resp := make([]MemberResp, len(members))
	for i := range members {
		m := &members[i]
		resp[i] = MemberResp{
			UserID:   m.UserID,
			Role:     m.Role,
			RoleName: m.Role.String(),
			JoinedAt: m.JoinedAt,
		}
		if m.User.ID != 0 {
			u := toUserResp(&m.User)
			resp[i].User = &u
		}
	}
	resputil.Success(c, resp)
}

// AddMember godoc
// @Summary Add a user to the project
// @Description Re-adding an existing member updates the role instead
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Param data body MemberReq true "User and role"
// @Success 200 {object} resputil.Response[string] "Added"
// @Failure 403 {object} resputil.Response[any] "Missing invite capability"
// @Router /v1/projects/{projectId}/members [post]
func (mgr *ProjectMgr) AddMember(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req MemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	role, ok := model.ParseProjectRole(req.Role)
	if !ok {
		resputil.BadRequestError(c, "unknown role")
		return
	}

	token := util.GetToken(c)
	if err := mgr.svc.Project.AddMember(c, token.UserID, requestMeta(c), uri.ProjectID, req.UserID, role); err != nil {
		serviceError(c, err)
		return
	}
	mgr.hub.Publish(hub.Event{Type: "member.added", ProjectID: uri.ProjectID, ActorID: token.UserID, Payload: req})
	resputil.Success(c, "")
}

// UpdateMemberRole godoc
// @Summary Change a member's role
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Param userId path int true "User ID"
// @Param data body MemberRoleReq true "New role"
// @Success 200 {object} resputil.Response[string] "Updated"
// @Failure 403 {object} resputil.Response[any] "Missing invite capability"
// @Router /v1/projects/{projectId}/members/{userId} [put]
func (mgr *ProjectMgr) UpdateMemberRole(c *gin.Context) {
	var uri ProjectMemberURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req MemberRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	role, ok := model.ParseProjectRole(req.Role)
	if !ok {
		resputil.BadRequestError(c, "unknown role")
		return
	}

	token := util.GetToken(c)
	if err := mgr.svc.Project.UpdateMemberRole(c, token.UserID, requestMeta(c), uri.ProjectID, uri.UserID, role); err != nil {
		serviceError(c, err)
		return
	}
	mgr.hub.Publish(hub.Event{Type: "member.role_changed", ProjectID: uri.ProjectID, ActorID: token.UserID})
	resputil.Success(c, "")
}

// RemoveMember godoc
// @Summary Remove a member from the project
// @Description Removing the owner is a no-op; removing a non-member succeeds silently
// @Tags Project
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Param userId path int true "User ID"
// @Success 200 {object} resputil.Response[string] "Removed"
// @Failure 403 {object} resputil.Response[any] "Missing invite capability"
// @Router /v1/projects/{projectId}/members/{userId} [delete]
func (mgr *ProjectMgr) RemoveMember(c *gin.Context) {
	var uri ProjectMemberURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	if err := mgr.svc.Project.RemoveMember(c, token.UserID, requestMeta(c), uri.ProjectID, uri.UserID); err != nil {
		serviceError(c, err)
		return
	}
	mgr.hub.Publish(hub.Event{Type: "member.removed", ProjectID: uri.ProjectID, ActorID: token.UserID})
	resputil.Success(c, "")
}
