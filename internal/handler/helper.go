package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raids-lab/taskboard/internal/resputil"
	"github.com/raids-lab/taskboard/pkg/activity"
	"github.com/raids-lab/taskboard/pkg/service"
)

func requestMeta(c *gin.Context) activity.Meta {
	return activity.Meta{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// serviceError translates the service error taxonomy into the response
// envelope. Anything outside the taxonomy becomes a 500.
func serviceError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		resputil.HTTPError(c, http.StatusNotFound, err.Error(), resputil.NotFound)
	case errors.Is(err, service.ErrAccessDenied):
		resputil.HTTPError(c, http.StatusForbidden, err.Error(), resputil.AccessDenied)
	case errors.Is(err, service.ErrInsufficientPermissions):
		resputil.HTTPError(c, http.StatusForbidden, err.Error(), resputil.InsufficientPermissions)
	case errors.Is(err, service.ErrInvalidAssignee):
		resputil.HTTPError(c, http.StatusBadRequest, err.Error(), resputil.InvalidAssignee)
	case errors.Is(err, service.ErrDuplicateKey):
		resputil.HTTPError(c, http.StatusConflict, err.Error(), resputil.DuplicateKey)
	case errors.As(err, &ve):
		resputil.HTTPError(c, http.StatusBadRequest, ve.Error(), resputil.ValidationFailed)
	default:
		resputil.Error(c, err.Error(), resputil.NotSpecified)
	}
}

func pageOffsetLimit(pageIndex, pageSize *int) (offset, limit int) {
	limit = 20
	if pageSize != nil && *pageSize > 0 {
		limit = *pageSize
	}
	if pageIndex != nil && *pageIndex > 0 {
		offset = (*pageIndex - 1) * limit
	}
	return offset, limit
}
