package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/internal/resputil"
	"github.com/raids-lab/taskboard/internal/util"
	"github.com/raids-lab/taskboard/pkg/logutils"
	"github.com/raids-lab/taskboard/pkg/session"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewUserMgr)
}

type UserMgr struct {
	name     string
	db       *gorm.DB
	sessions *session.Store
}

func NewUserMgr(conf *RegisterConfig) Manager {
	return &UserMgr{
		name:     "users",
		db:       conf.DB,
		sessions: conf.Sessions,
	}
}

func (mgr *UserMgr) GetName() string { return mgr.name }

func (mgr *UserMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *UserMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/users/me", mgr.GetProfile)
	g.PUT("/users/me", mgr.UpdateProfile)
	g.PUT("/users/me/password", mgr.ChangePassword)
	g.GET("/users", mgr.SearchUsers)
}

func (mgr *UserMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.ListUsers)
	g.PUT("/:id/role", mgr.UpdateRole)
	g.PUT("/:id/status", mgr.UpdateStatus)
}

type (
	UserResp struct {
		ID        uint                                    `json:"id"`
		Email     string                                  `json:"email"`
		Name      string                                  `json:"name"`
		Role      model.Role                              `json:"role"`
		Status    model.Status                            `json:"status"`
		Avatar    *string                                 `json:"avatar"`
		CreatedAt time.Time                               `json:"createdAt"`
		Attribute datatypes.JSONType[model.UserAttribute] `json:"attributes"`
	}

	UpdateProfileReq struct {
		Name       *string              `json:"name" binding:"omitempty,max=100"`
		Avatar     *string              `json:"avatar"`
		Attributes *model.UserAttribute `json:"attributes"`
	}

	ChangePasswordReq struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required,min=8"`
	}

	UserIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	UpdateRoleReq struct {
		Role model.Role `json:"role" binding:"required"`
	}

	UpdateStatusReq struct {
		Status model.Status `json:"status" binding:"required"`
	}

	SearchUsersReq struct {
		Search string `form:"search" binding:"required,min=2"`
	}
)

func toUserResp(user *model.User) UserResp {
	return UserResp{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Status:    user.Status,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
		Attribute: user.Attributes,
	}
}

// GetProfile godoc
// @Summary Get the current user's profile
// @Tags User
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[UserResp] "Profile"
// @Failure 401 {object} resputil.Response[any] "Unauthorized"
// @Router /v1/users/me [get]
func (mgr *UserMgr) GetProfile(c *gin.Context) {
	token := util.GetToken(c)
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.NotFound)
		return
	}
	resputil.Success(c, toUserResp(&user))
}

// UpdateProfile godoc
// @Summary Update the current user's profile
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body UpdateProfileReq true "Fields to update"
// @Success 200 {object} resputil.Response[UserResp] "Updated profile"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/users/me [put]
func (mgr *UserMgr) UpdateProfile(c *gin.Context) {
	var req UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.NotFound)
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Avatar != nil {
		user.Avatar = req.Avatar
	}
	if req.Attributes != nil {
		user.Attributes = datatypes.NewJSONType(*req.Attributes)
	}
	if err := mgr.db.WithContext(c).Save(&user).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toUserResp(&user))
}

// ChangePassword godoc
// @Summary Change the current user's password
// @Description Requires the old password; all other sessions are revoked
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body ChangePasswordReq true "Old and new password"
// @Success 200 {object} resputil.Response[string] "Changed"
// @Failure 401 {object} resputil.Response[any] "Old password mismatch"
// @Router /v1/users/me/password [put]
func (mgr *UserMgr) ChangePassword(c *gin.Context) {
	var req ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.NotFound)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Old password mismatch", resputil.InvalidCredentials)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, "Hash password failed", resputil.NotSpecified)
		return
	}
	if err := mgr.db.WithContext(c).Model(&user).Update("password", string(hashed)).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if err := mgr.sessions.RevokeAll(c, user.ID); err != nil {
		logutils.Log.Errorf("revoke sessions after password change: %v", err)
	}
	resputil.Success(c, "")
}

// SearchUsers godoc
// @Summary Search users by name or email
// @Description Used by member pickers when inviting to a project
// @Tags User
// @Produce json
// @Security Bearer
// @Param search query string true "Name or email fragment"
// @Success 200 {object} resputil.Response[[]UserResp] "Matches"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/users [get]
func (mgr *UserMgr) SearchUsers(c *gin.Context) {
	var req SearchUsersReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var users []model.User
	pattern := "%" + req.Search + "%"
	err := mgr.db.WithContext(c).
		Where("status = ?", model.StatusActive).
		Where("name LIKE ? OR email LIKE ?", pattern, pattern).
		Order("id").
		Limit(20).
		Find(&users).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resp := make([]UserResp, len(users))
	for i := range users {
		resp[i] = toUserResp(&users[i])
	}
	resputil.Success(c, resp)
}

// ListUsers godoc
// @Summary List all users
// @Tags User
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]UserResp] "All users"
// @Failure 500 {object} resputil.Response[any] "Other errors"
// @Router /v1/admin/users [get]
func (mgr *UserMgr) ListUsers(c *gin.Context) {
	var users []model.User
	if err := mgr.db.WithContext(c).Order("id desc").Find(&users).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resp := make([]UserResp, len(users))
	for i := range users {
		resp[i] = toUserResp(&users[i])
	}
	resputil.Success(c, resp)
}

// UpdateRole godoc
// @Summary Change a user's platform role
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "User ID"
// @Param data body UpdateRoleReq true "New role"
// @Success 200 {object} resputil.Response[string] "Updated"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/admin/users/{id}/role [put]
func (mgr *UserMgr) UpdateRole(c *gin.Context) {
	var uri UserIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	res := mgr.db.WithContext(c).Model(&model.User{}).Where("id = ?", uri.ID).Update("role", req.Role)
	if res.Error != nil {
		resputil.Error(c, res.Error.Error(), resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.NotFound)
		return
	}
	logutils.Log.Infof("user %d role set to %d", uri.ID, req.Role)
	resputil.Success(c, "")
}

// UpdateStatus godoc
// @Summary Activate or deactivate a user
// @Description Deactivating revokes the user's refresh tokens immediately
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "User ID"
// @Param data body UpdateStatusReq true "New status"
// @Success 200 {object} resputil.Response[string] "Updated"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/admin/users/{id}/status [put]
func (mgr *UserMgr) UpdateStatus(c *gin.Context) {
	var uri UserIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	res := mgr.db.WithContext(c).Model(&model.User{}).Where("id = ?", uri.ID).Update("status", req.Status)
	if res.Error != nil {
		resputil.Error(c, res.Error.Error(), resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.NotFound)
		return
	}
	if req.Status == model.StatusInactive {
		if err := mgr.sessions.RevokeAll(c, uri.ID); err != nil {
			logutils.Log.Errorf("revoke sessions of deactivated user %d: %v", uri.ID, err)
		}
	}
	resputil.Success(c, "")
}
