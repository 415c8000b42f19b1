package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/internal/payload"
	"github.com/raids-lab/taskboard/internal/resputil"
	"github.com/raids-lab/taskboard/internal/util"
	"github.com/raids-lab/taskboard/pkg/hub"
	"github.com/raids-lab/taskboard/pkg/service"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewCommentMgr)
}

type CommentMgr struct {
	name string
	svc  *service.Services
	hub  *hub.Hub
}

func NewCommentMgr(conf *RegisterConfig) Manager {
	return &CommentMgr{
		name: "comments",
		svc:  conf.Services,
		hub:  conf.Hub,
	}
}

func (mgr *CommentMgr) GetName() string { return mgr.name }

func (mgr *CommentMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *CommentMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("/tasks/:taskId/comments", mgr.Create)
	g.GET("/tasks/:taskId/comments", mgr.List)
	g.PUT("/comments/:commentId", mgr.Update)
	g.DELETE("/comments/:commentId", mgr.Delete)
	g.POST("/comments/:commentId/reactions", mgr.React)
	g.DELETE("/comments/:commentId/reactions/:emoji", mgr.Unreact)
}

func (mgr *CommentMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	CommentURI struct {
		CommentID uint `uri:"commentId" binding:"required"`
	}

	CommentEmojiURI struct {
		CommentID uint   `uri:"commentId" binding:"required"`
		Emoji     string `uri:"emoji" binding:"required"`
	}

	CreateCommentReq struct {
		Content  string `json:"content" binding:"required,max=5000"`
		ParentID *uint  `json:"parentId"`
		Mentions []uint `json:"mentions"`
	}

	UpdateCommentReq struct {
		Content string `json:"content" binding:"required,max=5000"`
	}

	ReactionReq struct {
		Emoji string `json:"emoji" binding:"required,max=32"`
	}
)

// Create godoc
// @Summary Comment on a task
// @Description Replies are single level; the parent must be a top-level comment on the same task
// @Tags Comment
// @Accept json
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param data body CreateCommentReq true "Comment data"
// @Success 200 {object} resputil.Response[model.Comment] "Created comment"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Router /v1/tasks/{taskId}/comments [post]
func (mgr *CommentMgr) Create(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req CreateCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	comment, err := mgr.svc.Comment.Create(c, token.UserID, requestMeta(c), uri.TaskID, &service.CreateCommentInput{
		Content:  req.Content,
		ParentID: req.ParentID,
		Mentions: req.Mentions,
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	if task, err := mgr.svc.Task.Get(c, token.UserID, uri.TaskID); err == nil {
		mgr.hub.Publish(hub.Event{Type: "comment.created", ProjectID: task.ProjectID, ActorID: token.UserID, Payload: comment})
	}
	resputil.Success(c, comment)
}

// List godoc
// @Summary List a task's comments, oldest first
// @Tags Comment
// @Produce json
// @Security Bearer
// @Param taskId path int true "Task ID"
// @Param page_index query int true "Page index, starting at 1"
// @Param page_size query int true "Page size"
// @Success 200 {object} resputil.Response[payload.ListResp[model.Comment]] "Comments"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Router /v1/tasks/{taskId}/comments [get]
func (mgr *CommentMgr) List(c *gin.Context) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req payload.ListReqQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	offset, limit := pageOffsetLimit(req.PageIndex, req.PageSize)
	comments, count, err := mgr.svc.Comment.List(c, token.UserID, uri.TaskID, offset, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, payload.ListResp[model.Comment]{Rows: comments, Count: count})
}

// Update godoc
// @Summary Edit a comment
// @Description Only the author may edit, regardless of project role
// @Tags Comment
// @Accept json
// @Produce json
// @Security Bearer
// @Param commentId path int true "Comment ID"
// @Param data body UpdateCommentReq true "New content"
// @Success 200 {object} resputil.Response[model.Comment] "Updated comment"
// @Failure 403 {object} resputil.Response[any] "Not the author"
// @Router /v1/comments/{commentId} [put]
func (mgr *CommentMgr) Update(c *gin.Context) {
	var uri CommentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	comment, err := mgr.svc.Comment.Update(c, token.UserID, requestMeta(c), uri.CommentID, req.Content)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, comment)
}

// Delete godoc
// @Summary Delete a comment
// @Description Soft delete; only the author may delete
// @Tags Comment
// @Produce json
// @Security Bearer
// @Param commentId path int true "Comment ID"
// @Success 200 {object} resputil.Response[string] "Deleted"
// @Failure 403 {object} resputil.Response[any] "Not the author"
// @Router /v1/comments/{commentId} [delete]
func (mgr *CommentMgr) Delete(c *gin.Context) {
	var uri CommentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	if err := mgr.svc.Comment.Delete(c, token.UserID, requestMeta(c), uri.CommentID); err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, "")
}

// React godoc
// @Summary Add an emoji reaction
// @Description Reacting twice with the same emoji is a no-op
// @Tags Comment
// @Accept json
// @Produce json
// @Security Bearer
// @Param commentId path int true "Comment ID"
// @Param data body ReactionReq true "Emoji"
// @Success 200 {object} resputil.Response[model.Comment] "Updated comment"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Router /v1/comments/{commentId}/reactions [post]
func (mgr *CommentMgr) React(c *gin.Context) {
	var uri CommentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ReactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	comment, err := mgr.svc.Comment.React(c, token.UserID, uri.CommentID, req.Emoji)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, comment)
}

// Unreact godoc
// @Summary Remove an emoji reaction
// @Tags Comment
// @Produce json
// @Security Bearer
// @Param commentId path int true "Comment ID"
// @Param emoji path string true "Emoji"
// @Success 200 {object} resputil.Response[model.Comment] "Updated comment"
// @Failure 403 {object} resputil.Response[any] "Not a member"
// @Router /v1/comments/{commentId}/reactions/{emoji} [delete]
func (mgr *CommentMgr) Unreact(c *gin.Context) {
	var uri CommentEmojiURI
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	comment, err := mgr.svc.Comment.Unreact(c, token.UserID, uri.CommentID, uri.Emoji)
	if err != nil {
		serviceError(c, err)
		return
	}
	resputil.Success(c, comment)
}
