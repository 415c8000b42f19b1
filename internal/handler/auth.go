package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/internal/resputil"
	"github.com/raids-lab/taskboard/internal/util"
	"github.com/raids-lab/taskboard/pkg/logutils"
	"github.com/raids-lab/taskboard/pkg/session"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAuthMgr)
}

type AuthMgr struct {
	name     string
	db       *gorm.DB
	tokenMgr *util.TokenManager
	sessions *session.Store
}

func NewAuthMgr(conf *RegisterConfig) Manager {
	return &AuthMgr{
		name:     "auth",
		db:       conf.DB,
		tokenMgr: conf.TokenMgr,
		sessions: conf.Sessions,
	}
}

func (mgr *AuthMgr) GetName() string { return mgr.name }

func (mgr *AuthMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/auth/register", mgr.Register)
	g.POST("/auth/login", mgr.Login)
	g.POST("/auth/refresh", mgr.RefreshToken)
}

func (mgr *AuthMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("/auth/logout", mgr.Logout)
}

func (mgr *AuthMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	RegisterReq struct {
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name" binding:"required,max=100"`
		Password string `json:"password" binding:"required,min=8"`
	}

	LoginReq struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	RefreshReq struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}

	LoginResp struct {
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
		Context      UserContext `json:"context"`
	}

	UserContext struct {
		UserID       uint       `json:"userId"`
		Name         string     `json:"name"`
		RolePlatform model.Role `json:"rolePlatform"`
	}
)

// Register godoc
// @Summary Register a new account
// @Description Create a user with email and password, then sign them in
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body RegisterReq true "Registration data"
// @Success 200 {object} resputil.Response[LoginResp] "Tokens for the new account"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Failure 409 {object} resputil.Response[any] "Email already registered"
// @Router /v1/auth/register [post]
func (mgr *AuthMgr) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, "Hash password failed", resputil.NotSpecified)
		return
	}

	user := model.User{
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashed),
		Role:     model.RoleUser,
		Status:   model.StatusActive,
	}

	// The first account on a fresh deployment becomes the platform admin.
	var count int64
	if err := mgr.db.WithContext(c).Model(&model.User{}).Count(&count).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if count == 0 {
		user.Role = model.RoleAdmin
	}

	if err := mgr.db.WithContext(c).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			resputil.HTTPError(c, http.StatusConflict, "Email already registered", resputil.DuplicateKey)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	logutils.Log.Infof("user registered: %s (%d)", user.Email, user.ID)
	mgr.issueTokens(c, &user)
}

// Login godoc
// @Summary Sign in
// @Description Verify credentials and return a token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body LoginReq true "Credentials"
// @Success 200 {object} resputil.Response[LoginResp] "Tokens"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Failure 401 {object} resputil.Response[any] "Invalid credentials or inactive account"
// @Router /v1/auth/login [post]
func (mgr *AuthMgr) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	l := logutils.Log.WithFields(logutils.Fields{"email": req.Email})

	var user model.User
	if err := mgr.db.WithContext(c).Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Error("login: ", err)
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		l.Error("login: password mismatch")
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
		return
	}
	if user.Status != model.StatusActive {
		l.Error("login: user is not active")
		resputil.HTTPError(c, http.StatusUnauthorized, "User is not active", resputil.UserInactive)
		return
	}

	mgr.issueTokens(c, &user)
}

// RefreshToken godoc
// @Summary Rotate the token pair
// @Description Exchange a live refresh token for a new pair; the old one is revoked
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body RefreshReq true "Refresh token"
// @Success 200 {object} resputil.Response[LoginResp] "New tokens"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Failure 401 {object} resputil.Response[any] "Token expired or revoked"
// @Router /v1/auth/refresh [post]
func (mgr *AuthMgr) RefreshToken(c *gin.Context) {
	var req RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	msg, jti, err := mgr.tokenMgr.CheckRefreshToken(req.RefreshToken)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, err.Error(), resputil.TokenExpired)
		return
	}
	if _, err := mgr.sessions.Validate(c, jti); err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Session revoked", resputil.TokenInvalid)
		return
	}

	var user model.User
	if err := mgr.db.WithContext(c).First(&user, msg.UserID).Error; err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "User not found", resputil.TokenInvalid)
		return
	}
	if user.Status != model.StatusActive {
		resputil.HTTPError(c, http.StatusUnauthorized, "User is not active", resputil.UserInactive)
		return
	}

	// Rotation: the presented token is single use.
	if err := mgr.sessions.Revoke(c, jti, user.ID); err != nil {
		logutils.Log.Errorf("revoke refresh token: %v", err)
	}
	mgr.issueTokens(c, &user)
}

// Logout godoc
// @Summary Sign out
// @Description Revoke the presented refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body RefreshReq true "Refresh token"
// @Success 200 {object} resputil.Response[string] "Signed out"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/auth/logout [post]
func (mgr *AuthMgr) Logout(c *gin.Context) {
	var req RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	_, jti, err := mgr.tokenMgr.CheckRefreshToken(req.RefreshToken)
	if err == nil {
		if err := mgr.sessions.Revoke(c, jti, token.UserID); err != nil {
			logutils.Log.Errorf("logout revoke: %v", err)
		}
	}
	resputil.Success(c, "")
}

func (mgr *AuthMgr) issueTokens(c *gin.Context, user *model.User) {
	msg := util.JWTMessage{
		UserID:       user.ID,
		Username:     user.Name,
		RolePlatform: user.Role,
	}
	accessToken, refreshToken, refreshID, err := mgr.tokenMgr.CreateTokens(&msg)
	if err != nil {
		resputil.Error(c, "Create tokens failed", resputil.NotSpecified)
		return
	}
	if err := mgr.sessions.Save(c, refreshID, user.ID, mgr.tokenMgr.RefreshTokenTTL()); err != nil {
		resputil.Error(c, "Persist session failed", resputil.NotSpecified)
		return
	}

	resputil.Success(c, LoginResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Context: UserContext{
			UserID:       user.ID,
			Name:         user.Name,
			RolePlatform: user.Role,
		},
	})
}
