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
	Registers = append(Registers, NewTaskMgr)
}

type TaskMgr struct {
	name    string
	svc     *service.Services
	hub     *hub.Hub
	webhook *notify.Webhook
}

func NewTaskMgr(conf *RegisterConfig) Manager {
	return &TaskMgr{
		name:    "tasks",
		svc:     conf.Services,
		hub:     conf.Hub,
		webhook: conf.Webhook,
	}
}

func (mgr *TaskMgr) GetName() string { return mgr.name }

func (mgr *TaskMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *TaskMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("/projects/:projectId/tasks", mgr.Create)
	g.GET("/projects/:projectId/tasks", mgr.List)
	g.GET("/projects/:projectId/board", mgr.Board)

	g.GET("/tasks/assigned", mgr.ListAssigned)
	g.GET("/tasks/:taskId", mgr.Get)
	g.PUT("/tasks/:taskId", mgr.Update)
	g.PUT("/tasks/:taskId/move", mgr.Move)
	g.PUT("/tasks/:taskId/archive", mgr.SetArchived)
	g.DELETE("/tasks/:taskId", mgr.Delete)

	g.POST("/tasks/:taskId/subtasks", mgr.AddSubtask)
	g.PUT("/tasks/:taskId/subtasks/:index", mgr.ToggleSubtask)
	g.DELETE("/tasks/:taskId/subtasks/:index", mgr.RemoveSubtask)

	g.PUT("/tasks/:taskId/watch", mgr.SetWatching)

	g.POST("/tasks/:taskId/attachments", mgr.AddAttachment)
	g.DELETE("/tasks/:taskId/attachments/:index", mgr.RemoveAttachment)
}

func (mgr *TaskMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	TaskURI struct {
		TaskID uint `uri:"taskId" binding:"required"`
	}

	TaskIndexURI struct {
		TaskID uint `uri:"taskId" binding:"required"`
		Index  *int `uri:"index" binding:"required"`
	}

	CreateTaskReq struct {
		Title          string             `json:"title" binding:"required,max=500"`
		Description    string             `json:"description"`
		Status         model.TaskStatus   `json:"status"`
		Priority       model.TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
		AssigneeID     *uint              `json:"assigneeId"`
		DueDate        *time.Time         `json:"dueDate"`
		Labels         []string           `json:"labels"`
		EstimatedHours float64            `json:"estimatedHours" binding:"omitempty,gte=0"`
		Subtasks       []model.Subtask    `json:"subtasks"`
	}

	UpdateTaskReq struct {
		Title          *string             `json:"title" binding:"omitempty,max=500"`
		Description    *string             `json:"description"`
		Status         *model.TaskStatus   `json:"status"`
		Priority       *model.TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
		Position       *int                `json:"position"`
		AssigneeID     *uint               `json:"assigneeId"`
		ClearAssignee  bool                `json:"clearAssignee"`
		DueDate        *time.Time          `json:"dueDate"`
		ClearDueDate   bool                `json:"clearDueDate"`
		Labels         []string            `json:"labels"`
		EstimatedHours *float64            `json:"estimatedHours" binding:"omitempty,gte=0"`
		ActualHours    *float64            `json:"actualHours" binding:"omitempty,gte=0"`
	}

	MoveTaskReq struct {
		Status   model.TaskStatus `json:"status" binding:"required"`
		Position *int             `json:"position" binding:"required"`
	}

	ArchiveTaskReq struct {
		Archived *bool `json:"archived" binding:"required"`
	}

	SubtaskReq struct {
		Title string `json:"title" binding:"required,max=500"`
	}

	WatchReq struct {
		Watching *bool `json:"watching" binding:"required"`
	}

	AttachmentReq struct {
		Name string `json:"name" binding:"required,max=256"`
		URL  string `json:"url" binding:"required,url"`
		Size int64  `json:"size" binding:"omitempty,gte=0"`
	}

	ListTasksReq struct {
		PageIndex  *int    `form:"page_index" binding:"required"`
		PageSize   *int    `form:"page_size" binding:"required"`
		Status     *string `form:"status"`
		Priority   *string `form:"priority"`
		AssigneeID *uint   `form:"assignee_id"`
		Label      *string `form:"label"`
		Archived   *bool   `form:"archived"`
		Search     *string `form:"search"`
	}
)

func (mgr *TaskMgr) notifyTask(c *gin.Context, task *model.Task, event string) {
	actorID := util.GetToken(c).UserID
	mgr.hub.Publish(hub.Event{Type: event, ProjectID: task.ProjectID, ActorID: actorID, Payload: task})
	if project, err := mgr.svc.Project.Get(c, actorID, task.ProjectID); err == nil {
		mgr.webhook.Deliver(project, event, actorID, task)
	}
}

// Create godoc
// @Summary Create a task
// @Description The new task lands at the end of the project's global order
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Param data body CreateTaskReq true "Task data"
// @Success 200 {object} resputil.Response[model.Task] "Created task"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Failure 403 {object} resputil.Response[any] "Missing manage-tasks capability"
// @Router /v1/projects/{projectId}/tasks [post]
func (mgr *TaskMgr) Create(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req CreateTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.Create(c, token.UserID, requestMeta(c), uri.ProjectID, &service.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		Labels:         req.Labels,
		EstimatedHours: req.EstimatedHours,
		Subtasks:       req.Subtasks,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyTask(c, task, "task.created")
	resputil.Success(c, task)
}

// List godoc
// @Summary List a project's tasks with filters
// @Tags Task
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Param page_index query int true "Page index, starting at 1"
// @Param page_size query int true "Page size"
// @Param status query string false "Workflow status"
// @Param priority query string false "Priority"
// @Param assignee_id query int false "Assignee user ID"
// @Param label query string false "Label"
// @Param archived query bool false "Archived flag"
// @Param search query string false "Title substring"
// @Success 200 {object} resputil.Response[payload.ListResp[model.Task]] "Tasks"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Router /v1/projects/{projectId}/tasks [get]
func (mgr *TaskMgr) List(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ListTasksReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	filter := service.TaskFilter{
		AssigneeID: req.AssigneeID,
		Label:      req.Label,
		Archived:   req.Archived,
		Search:     req.Search,
	}
	if req.Status != nil {
		status := model.TaskStatus(*req.Status)
		filter.Status = &status
	}
	if req.Priority != nil {
		priority := model.TaskPriority(*req.Priority)
		filter.Priority = &priority
	}

	token := util.GetToken(c)
	offset, limit := pageOffsetLimit(req.PageIndex, req.PageSize)
	tasks, count, err := mgr.svc.Task.List(c, token.UserID, uri.ProjectID, &filter, offset, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, payload.ListResp[model.Task]{Rows: tasks, Count: count})
}

// Board godoc
// @Summary Get the Kanban board of a project
// @Description Non-archived tasks ordered by position, creation time as tiebreak
// @Tags Task
// @Produce json
// @Security Bearer
// @Param projectId path int true "Project ID"
// @Success 200 {object} resputil.Response[[]model.Task] "Tasks in board order"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Router /v1/projects/{projectId}/board [get]
func (mgr *TaskMgr) Board(c *gin.Context) {
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	tasks, err := mgr.svc.Task.Board(c, token.UserID, uri.ProjectID)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, tasks)
}

// ListAssigned godoc
// @Summary List tasks assigned to the current user across projects
// @Tags Task
// @Produce json
// @Security Bearer
// @Param page_index query int true "Page index, starting at 1"
// @Param page_size query int true "Page size"
// @Success 200 {object} resputil.Response[payload.ListResp[model.Task]] "Assigned tasks"
// @Router /v1/tasks/assigned [get]
func (mgr *TaskMgr) ListAssigned(c *gin.Context) {
	var req payload.ListReqQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	offset, limit := pageOffsetLimit(req.PageIndex, req.PageSize)
	tasks, count, err := mgr.svc.Task.ListAssigned(c, token.UserID, offset, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, payload.ListResp[model.Task]{Rows: tasks, Count: count})
}

// Get godoc
// @Summary Get one task
// @Tags Task
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Success 200 {object} resputil.Response[model.Task] "Task"
// @Failure 404 {object} resputil.Response[any] "Not found"
// @Router /v1/tasks/{taskId} [get]
func (mgr *TaskMgr) Get(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.Get(c, token.UserID, uri.TaskID)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, task)
}

// Update godoc
// @Summary Update task fields
// @Description Status and position are written as given, without reordering siblings
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param data body UpdateTaskReq true "Fields to update"
// @Success 200 {object} resputil.Response[model.Task] "Updated task"
// @Failure 400 {object} resputil.Response[any] "Assignee is not a member"
// @Failure 403 {object} resputil.Response[any] "Missing manage-tasks capability"
// @Router /v1/tasks/{taskId} [put]
func (mgr *TaskMgr) Update(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.Update(c, token.UserID, requestMeta(c), uri.TaskID, &service.UpdateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		Position:       req.Position,
		AssigneeID:     req.AssigneeID,
		ClearAssignee:  req.ClearAssignee,
		DueDate:        req.DueDate,
		ClearDueDate:   req.ClearDueDate,
		Labels:         req.Labels,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyTask(c, task, "task.updated")
	resputil.Success(c, task)
}

// Move godoc
// @Summary Move a task on the board
// @Description Stores the given status and position verbatim; duplicates are allowed
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param data body MoveTaskReq true "Target status and position"
// @Success 200 {object} resputil.Response[model.Task] "Moved task"
// @Failure 403 {object} resputil.Response[any] "Missing manage-tasks capability"
// @Router /v1/tasks/{taskId}/move [put]
func (mgr *TaskMgr) Move(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req MoveTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.Move(c, token.UserID, requestMeta(c), uri.TaskID, req.Status, *req.Position)
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyTask(c, task, "task.moved")
	resputil.Success(c, task)
}

// SetArchived godoc
// @Summary Archive or unarchive a task
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param data body ArchiveTaskReq true "Archived flag"
// @Success 200 {object} resputil.Response[model.Task] "Updated task"
// @Failure 403 {object} resputil.Response[any] "Missing manage-tasks capability"
// @Router /v1/tasks/{taskId}/archive [put]
func (mgr *TaskMgr) SetArchived(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ArchiveTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.SetArchived(c, token.UserID, requestMeta(c), uri.TaskID, *req.Archived)
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyTask(c, task, "task.archived")
	resputil.Success(c, task)
}

// Delete godoc
// @Summary Delete a task and its comments
// @Tags Task
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Success 200 {object} resputil.Response[string] "Deleted"
// @Failure 403 {object} resputil.Response[any] "Missing manage-tasks capability"
// @Router /v1/tasks/{taskId} [delete]
func (mgr *TaskMgr) Delete(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.Get(c, token.UserID, uri.TaskID)
	if err != nil {
		serviceError(c, err)
		return
	}
	if err := mgr.svc.Task.Delete(c, token.UserID, requestMeta(c), uri.TaskID); err != nil {
		serviceError(c, err)
		return
	}
	mgr.hub.Publish(hub.Event{Type: "task.deleted", ProjectID: task.ProjectID, ActorID: token.UserID, Payload: uri.TaskID})
	resputil.Success(c, "")
}

// AddSubtask godoc
// @Summary Append a subtask checklist item
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param data body SubtaskReq true "Subtask title"
// @Success 200 {object} resputil.Response[model.Task] "Updated task"
// @Failure 403 {object} resputil.Response[any] "Missing manage-tasks capability"
// @Router /v1/tasks/{taskId}/subtasks [post]
func (mgr *TaskMgr) AddSubtask(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req SubtaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.AddSubtask(c, token.UserID, requestMeta(c), uri.TaskID, req.Title)
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyTask(c, task, "task.updated")
	resputil.Success(c, task)
}

// ToggleSubtask godoc
// @Summary Toggle a subtask's completed flag
// @Tags Task
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param index path int true "Subtask index"
// @Success 200 {object} resputil.Response[model.Task] "Updated task"
// @Failure 400 {object} resputil.Response[any] "Index out of range"
// @Router /v1/tasks/{taskId}/subtasks/{index} [put]
func (mgr *TaskMgr) ToggleSubtask(c *gin.Context) {
	var uri TaskIndexURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.ToggleSubtask(c, token.UserID, requestMeta(c), uri.TaskID, *uri.Index)
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyTask(c, task, "task.updated")
	resputil.Success(c, task)
}

// RemoveSubtask godoc
// @Summary Remove a subtask checklist item
// @Tags Task
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param index path int true "Subtask index"
// @Success 200 {object} resputil.Response[model.Task] "Updated task"
// @Failure 400 {object} resputil.Response[any] "Index out of range"
// @Router /v1/tasks/{taskId}/subtasks/{index} [delete]
func (mgr *TaskMgr) RemoveSubtask(c *gin.Context) {
	var uri TaskIndexURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.RemoveSubtask(c, token.UserID, requestMeta(c), uri.TaskID, *uri.Index)
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyTask(c, task, "task.updated")
	resputil.Success(c, task)
}

// SetWatching godoc
// @Summary Watch or unwatch a task
// @Description Any project member may watch; no capability needed
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param data body WatchReq true "Watching flag"
// @Success 200 {object} resputil.Response[model.Task] "Updated task"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Router /v1/tasks/{taskId}/watch [put]
func (mgr *TaskMgr) SetWatching(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req WatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.SetWatching(c, token.UserID, uri.TaskID, *req.Watching)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, task)
}

// AddAttachment godoc
// @Summary Attach file metadata to a task
// @Description Stores name, URL and size; the blob itself lives elsewhere
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param data body AttachmentReq true "Attachment metadata"
// @Success 200 {object} resputil.Response[model.Task] "Updated task"
// @Failure 403 {object} resputil.Response[any] "Missing manage-tasks capability"
// @Router /v1/tasks/{taskId}/attachments [post]
func (mgr *TaskMgr) AddAttachment(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req AttachmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.AddAttachment(c, token.UserID, requestMeta(c), uri.TaskID, &model.Attachment{
		Name:       req.Name,
		URL:        req.URL,
		Size:       req.Size,
		UploaderID: token.UserID,
		UploadedAt: time.Now(),
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyTask(c, task, "task.updated")
	resputil.Success(c, task)
}

// RemoveAttachment godoc
// @Summary Remove an attachment from a task
// @Tags Task
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param index path int true "Attachment index"
// @Success 200 {object} resputil.Response[model.Task] "Updated task"
// @Failure 400 {object} resputil.Response[any] "Index out of range"
// @Router /v1/tasks/{taskId}/attachments/{index} [delete]
func (mgr *TaskMgr) RemoveAttachment(c *gin.Context) {
	var uri TaskIndexURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	task, err := mgr.svc.Task.RemoveAttachment(c, token.UserID, requestMeta(c), uri.TaskID, *uri.Index)
	if err != nil {
		serviceError(c, err)
		return
	}
	mgr.notifyTask(c, task, "task.updated")
	resputil.Success(c, task)
}
