package api

import (
	"errors"

	"github.com/evrental/evrental/internal/common/errs"
	"github.com/gin-gonic/gin"
)

// Response 统一响应包络。
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"` // 领域错误分类，调用方按它决定是否重试
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// respondErr 按领域错误分类映射 HTTP 状态码。
func respondErr(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	kind := ""
	var de *errs.Error
	if errors.As(err, &de) {
		kind = de.Knd.String()
	}
	c.JSON(status, Response{Success: false, Error: err.Error(), Kind: kind})
}

func respondBadRequest(c *gin.Context, err error) {
	respondErr(c, errs.Wrap(errs.KindInvalidInput, err, "invalid request body"))
}
