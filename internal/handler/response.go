package handler

import (
	"net/http"
	"strconv"

	"community_hub/internal/errs"
	"community_hub/internal/logger"
	"community_hub/internal/middleware"
	"community_hub/internal/policy"
	"community_hub/internal/repository/mysql"

	"github.com/gin-gonic/gin"
)

func statusOf(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation, errs.KindConflict, errs.KindForbiddenTransition:
		return http.StatusBadRequest
	case errs.KindPermissionDenied:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError 业务错误按类别渲染，未分类错误记录堆栈后返回 500
func respondError(c *gin.Context, err error) {
	e, ok := errs.As(err)
	if !ok {
		logger.ErrorWithStack(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}
	body := gin.H{e.Key: e.Msg}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	c.JSON(statusOf(e.Kind), body)
}

func actorOf(c *gin.Context) policy.Actor {
	return middleware.CurrentActor(c)
}

// pageOf 解析 page/size，非法值交给 Normalize 兜底
func pageOf(c *gin.Context) mysql.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return mysql.Page{Page: page, Size: size}.Normalize()
}

// idParam 路径中的 id 非法时按不存在处理
func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		respondError(c, errs.NotFound("Not found."))
		return 0, false
	}
	return id, true
}
