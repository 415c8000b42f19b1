package util

import (
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/taskboard/dao/model"
)

const (
	UserIDKey       = "x-user-id"
	UsernameKey     = "x-user-name"
	RolePlatformKey = "x-role-platform"
)

func SetJWTContext(c *gin.Context, msg JWTMessage) {
	c.Set(UserIDKey, msg.UserID)
	c.Set(UsernameKey, msg.Username)
	c.Set(RolePlatformKey, msg.RolePlatform)
}

func GetToken(ctx *gin.Context) JWTMessage {
	var msg JWTMessage
	msg.UserID = ctx.GetUint(UserIDKey)
	msg.Username = ctx.GetString(UsernameKey)

	rolePlatform, _ := ctx.Get(RolePlatformKey)
	msg.RolePlatform, _ = rolePlatform.(model.Role)
	return msg
}
